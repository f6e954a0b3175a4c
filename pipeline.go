// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// L7 Pipeline runner (spec §4.7): an ordered batch of stages, each one of
// execute-query/prepare-statement/close-statement/reset-connection/
// set-character-set/ping, written in order and then replied to in order.

// StageKind selects which command a pipeline Stage submits.
type StageKind int

const (
	StageExecuteQuery StageKind = iota
	StagePrepareStatement
	StageCloseStatement
	StageResetConnection
	StageSetCharacterSet
	StagePing
)

// Stage is one request in a pipeline. Query is used by StageExecuteQuery
// and StagePrepareStatement, Charset by StageSetCharacterSet, Stmt by StageCloseStatement, and Target
// receives StageExecuteQuery's rows if non-nil.
type Stage struct {
	Kind    StageKind
	Query   string
	Charset string
	Stmt    *Stmt
	Target  RowTarget
}

// StageResult is the per-stage outcome slot of spec §4.7.
type StageResult struct {
	Err     error
	Result  OKResult
	Stmt    *Stmt // set by StagePrepareStatement
	Skipped bool  // true once a fatal error has aborted the remainder
}

// RunPipeline writes every stage's request, then reads every reply in
// order, filling one StageResult per stage (spec §4.7). All stages are
// attempted even if earlier ones fail; a fatal error (I/O, framing,
// sequence mismatch, TLS) aborts the remainder, which are marked Skipped
// with that same fatal error. The returned error is the first non-fatal
// server error encountered, or the fatal error if any.
func (c *Conn) RunPipeline(stages []Stage) ([]StageResult, error) {
	if err := c.acquireOp(); err != nil {
		return nil, err
	}
	defer c.releaseOp()

	results := make([]StageResult, len(stages))

	for i, st := range stages {
		if err := c.writePipelineStage(st); err != nil {
			return abortPipeline(results, i, err), err
		}
	}

	var topErr error
	for i, st := range stages {
		res, fatal, err := c.readPipelineReply(st)
		results[i] = res
		if err != nil && topErr == nil {
			topErr = err
		}
		if fatal {
			markSkipped(results, i+1, err)
			return results, err
		}
	}
	return results, topErr
}

func abortPipeline(results []StageResult, from int, err error) []StageResult {
	markSkipped(results, from, err)
	return results
}

func markSkipped(results []StageResult, from int, err error) {
	for i := from; i < len(results); i++ {
		results[i] = StageResult{Err: err, Skipped: true}
	}
}

// writePipelineStage writes one stage's command through writeCommand, so
// every stage starts a fresh command at sequence number 0; stages are
// written back to back before any reply is read (spec §5: "the server
// processes stages in submission order").
func (c *Conn) writePipelineStage(st Stage) error {
	switch st.Kind {
	case StageExecuteQuery:
		return c.writeCommand(comQuery, []byte(st.Query))
	case StagePrepareStatement:
		return c.writeCommand(comStmtPrepare, []byte(st.Query))
	case StageCloseStatement:
		body := make([]byte, 4)
		putUint32(body, st.Stmt.id)
		return c.writeCommand(comStmtClose, body)
	case StageResetConnection:
		return c.writeCommand(comResetConnection, nil)
	case StageSetCharacterSet:
		return c.writeCommand(comQuery, []byte("SET NAMES '"+st.Charset+"'"))
	case StagePing:
		return c.writeCommand(comPing, nil)
	default:
		return errProtocolValue("unknown pipeline stage kind")
	}
}

// readPipelineReply consumes one stage's reply, returning whether the
// failure (if any) was fatal to the pipeline as a whole.
func (c *Conn) readPipelineReply(st Stage) (res StageResult, fatal bool, err error) {
	switch st.Kind {
	case StageCloseStatement:
		// COM_STMT_CLOSE has no reply.
		return StageResult{}, false, nil

	case StagePrepareStatement:
		data, rerr := c.readMessage()
		if rerr != nil {
			return StageResult{Err: rerr}, true, rerr
		}
		if data[0] == iERR {
			serr := serverErr(parseErrPacket(data))
			return StageResult{Err: serr}, false, serr
		}
		stmt, perr := c.finishPrepare(data)
		if perr != nil {
			return StageResult{Err: perr}, true, perr
		}
		return StageResult{Stmt: stmt}, false, nil

	default:
		data, rerr := c.readMessage()
		if rerr != nil {
			return StageResult{Err: rerr}, true, rerr
		}
		if data[0] == iERR {
			serr := serverErr(parseErrPacket(data))
			return StageResult{Err: serr}, false, serr
		}
		if st.Kind == StageExecuteQuery && data[0] != iOK {
			ex := c.newExecution(EncodingText, st.Target)
			if err := ex.drainFromColumnCount(data); err != nil {
				return StageResult{Err: err}, !isServerError(err), err
			}
			return StageResult{Result: ex.last}, false, nil
		}
		ok, perr := parseOKPacket(data)
		if perr != nil {
			return StageResult{Err: perr}, true, perr
		}
		return StageResult{Result: ok}, false, nil
	}
}

// finishPrepare completes a COM_STMT_PREPARE reply whose header packet has
// already been read (shared with Prepare's column/param-definition loop).
func (c *Conn) finishPrepare(data []byte) (*Stmt, error) {
	if len(data) < 12 {
		return nil, ErrIncompleteMessage
	}
	stmt := &Stmt{
		conn:       c,
		id:         uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16 | uint32(data[4])<<24,
		numParams:  int(data[7]) | int(data[8])<<8,
		generation: c.stmtGeneration,
	}
	numColumns := int(data[5]) | int(data[6])<<8

	if stmt.numParams > 0 {
		if err := c.skipParamOrColumnDefs(stmt.numParams); err != nil {
			return nil, err
		}
	}
	if numColumns > 0 {
		cols, err := c.readColumnDefs(numColumns)
		if err != nil {
			return nil, err
		}
		stmt.columns = cols
	}
	return stmt, nil
}

// drainFromColumnCount runs a pipeline query stage's resultset to
// completion without returning an Execution to the caller: the pipeline
// contract hands back only the final OKResult per stage (spec §4.7).
func (ex *Execution) drainFromColumnCount(head []byte) error {
	if err := ex.readColumnCount(head); err != nil {
		return err
	}
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

func isServerError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindServerError
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
