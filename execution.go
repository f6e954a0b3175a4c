// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// L6 execution engine (spec §4.6): drives one command's reply through
// reading-head -> reading-meta -> reading-rows -> (more-results ?
// reading-head-subsequent : complete).

type execState int

const (
	stateReadingHead execState = iota
	stateReadingMeta
	stateReadingRows
	stateComplete
)

// Execution is the per-command cursor returned by a query or statement
// execute call. It owns the single outstanding operation on its Conn until
// Close/completion releases it (spec §5 "at most one operation in flight").
type Execution struct {
	conn     *Conn
	encoding Encoding
	target   RowTarget

	state   execState
	columns []ColumnType
	last    OKResult
	opHeld  bool
}

func (c *Conn) newExecution(encoding Encoding, target RowTarget) *Execution {
	return &Execution{conn: c, encoding: encoding, target: target, state: stateReadingHead}
}

// startTextQuery issues COM_QUERY and returns an Execution positioned at
// reading-head (spec §4.6). The caller drives it with ReadResultSetHead.
func (c *Conn) startTextQuery(query string) (*Execution, error) {
	if err := c.acquireOp(); err != nil {
		return nil, err
	}
	ex := c.newExecution(EncodingText, nil)
	ex.opHeld = true
	if err := c.writeCommand(comQuery, []byte(query)); err != nil {
		c.releaseOp()
		ex.opHeld = false
		return nil, err
	}
	return ex, nil
}

// Query starts a text-protocol query that produces a resultset parsed into
// target's rows (spec §4.6/§9 "RowTarget").
func (c *Conn) Query(query string, target RowTarget) (*Execution, error) {
	ex, err := c.startTextQuery(query)
	if err != nil {
		return nil, err
	}
	ex.target = target
	return ex, nil
}

// startBinaryExecute issues COM_STMT_EXECUTE for an already-prepared
// statement id (stmt.go owns preparing/closing statements).
func (c *Conn) startBinaryExecute(stmtID uint32, body []byte, target RowTarget) (*Execution, error) {
	if err := c.acquireOp(); err != nil {
		return nil, err
	}
	ex := c.newExecution(EncodingBinary, target)
	ex.opHeld = true
	if err := c.writeCommand(comStmtExecute, body); err != nil {
		c.releaseOp()
		ex.opHeld = false
		return nil, err
	}
	return ex, nil
}

// ReadResultSetHead reads the first packet of a command's reply: either an
// OK/Err (no resultset) or a column-count prefix starting a resultset,
// followed by its column-definition packets (spec §4.6 "reading-head").
func (ex *Execution) ReadResultSetHead() error {
	if ex.state != stateReadingHead {
		return errProtocolValue("ReadResultSetHead called out of order")
	}
	data, err := ex.conn.readMessage()
	if err != nil {
		ex.release()
		return err
	}

	switch data[0] {
	case iERR:
		ex.release()
		return serverErr(parseErrPacket(data))

	case iOK:
		res, err := parseOKPacket(data)
		if err != nil {
			ex.release()
			return err
		}
		ex.last = res
		ex.conn.status = res.Status
		if res.MoreResultsExist() {
			ex.state = stateReadingHead
			return nil
		}
		ex.state = stateComplete
		ex.release()
		return nil

	case iLocalInFile:
		ex.release()
		return errProtocolValue("LOCAL INFILE is not supported")

	default:
		return ex.readColumnCount(data)
	}
}

func (ex *Execution) readColumnCount(data []byte) error {
	count, _, n := readLengthEncodedInteger(data)
	if n == 0 || n != len(data) {
		ex.release()
		return errProtocolValue("malformed column-count packet")
	}

	cols := make([]ColumnType, 0, count)
	for i := uint64(0); i < count; i++ {
		d, err := ex.conn.readMessage()
		if err != nil {
			ex.release()
			return err
		}
		col, err := parseColumnDefinition(d, ex.conn.cfg.MetadataMode)
		if err != nil {
			ex.release()
			return err
		}
		cols = append(cols, col)
	}

	if !ex.conn.caps.has(capDeprecateEOF) {
		d, err := ex.conn.readMessage()
		if err != nil {
			ex.release()
			return err
		}
		if !isEOFTerminator(d, false) {
			ex.release()
			return errMetadataCheckFailed("expected EOF after column definitions")
		}
	}

	ex.columns = cols
	if ex.target != nil {
		if err := ex.target.MatchMeta(cols); err != nil {
			ex.release()
			return err
		}
	}
	ex.state = stateReadingRows
	return nil
}

func (c Capability) has(f Capability) bool { return c&f != 0 }

// ReadSomeRows decodes up to max rows into ex.target (rows are decoded and
// discarded when it is nil), reporting the number actually read and whether the resultset
// has more rows after this call (spec §4.6 "reading-rows"). Rows are
// driven one packet at a time; no internal read-ahead buffering occurs
// beyond the frame layer (spec §5 "resource model").
func (ex *Execution) ReadSomeRows(max int) (n int, more bool, err error) {
	if ex.state != stateReadingRows {
		return 0, false, errProtocolValue("ReadSomeRows called out of order")
	}
	target := ex.target

	for n < max {
		data, rerr := ex.conn.readMessage()
		if rerr != nil {
			ex.release()
			return n, false, rerr
		}

		if data[0] == iERR {
			ex.release()
			return n, false, serverErr(parseErrPacket(data))
		}
		if isEOFTerminator(data, ex.conn.caps.has(capDeprecateEOF)) {
			if ex.conn.caps.has(capDeprecateEOF) {
				res, perr := parseOKPacket(data)
				if perr != nil {
					ex.release()
					return n, false, perr
				}
				ex.last = res
				ex.conn.status = res.Status
				if res.MoreResultsExist() {
					ex.state = stateReadingHead
					return n, false, nil
				}
			}
			ex.state = stateComplete
			ex.release()
			return n, false, nil
		}

		var values []Value
		var derr error
		if ex.encoding == EncodingBinary {
			values, derr = decodeBinaryRow(data, ex.columns, ex.conn.cfg.Loc)
		} else {
			values, derr = decodeTextRow(data, ex.columns, ex.conn.cfg.Loc)
		}
		if derr != nil {
			// A malformed row desyncs the wire stream: the connection's
			// sequence/byte position can no longer be trusted for the next
			// command (spec §7: protocol-value-error poisons the connection,
			// unlike static-row-parsing-error/metadata-check-failed which
			// leave it usable).
			ex.conn.cleanup()
			ex.release()
			return n, false, derr
		}

		if target != nil {
			if err := target.ParseRow(values); err != nil {
				ex.release()
				return n, false, err
			}
		}
		n++
	}
	return n, true, nil
}

// MoreResultsExist reports whether the command that produced this
// Execution has additional resultsets pending (spec §4.6/§9 "Execution
// processor").
func (ex *Execution) MoreResultsExist() bool { return ex.last.MoreResultsExist() }

// LastResult returns the OK-packet bookkeeping of the most recently
// completed (sub-)resultset.
func (ex *Execution) LastResult() OKResult { return ex.last }

// Columns returns the current resultset's column metadata.
func (ex *Execution) Columns() []ColumnType { return ex.columns }

func (ex *Execution) release() {
	if ex.opHeld {
		ex.conn.releaseOp()
		ex.opHeld = false
	}
}

// Close abandons the execution, draining any unread rows so the connection
// remains usable for the next command (spec §4.6 edge case: "caller stops
// before reading to completion").
func (ex *Execution) Close() error {
	for ex.state == stateReadingRows || ex.state == stateReadingHead {
		if ex.state == stateReadingHead {
			if err := ex.ReadResultSetHead(); err != nil {
				return err
			}
			continue
		}
		if _, _, err := ex.ReadSomeRows(1 << 20); err != nil {
			return err
		}
	}
	return nil
}
