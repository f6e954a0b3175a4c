// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "encoding/binary"

// Stmt is a prepared statement handle (spec §4.6 supplement: prepared
// statements). It is bound to the Conn and stmtGeneration that created it;
// using it after a reset-connection fails fast instead of sending a stale
// statement id.
type Stmt struct {
	conn       *Conn
	id         uint32
	generation uint64
	numParams  int
	columns    []ColumnType
}

// Prepare sends COM_STMT_PREPARE and parses the COM_STMT_PREPARE_OK
// response (spec §6): statement id, column count, and parameter count.
func (c *Conn) Prepare(query string) (*Stmt, error) {
	if err := c.acquireOp(); err != nil {
		return nil, err
	}
	defer c.releaseOp()

	if err := c.writeCommand(comStmtPrepare, []byte(query)); err != nil {
		return nil, err
	}
	data, err := c.readMessage()
	if err != nil {
		return nil, err
	}
	if data[0] == iERR {
		return nil, serverErr(parseErrPacket(data))
	}
	if len(data) < 12 {
		return nil, ErrIncompleteMessage
	}

	stmt := &Stmt{
		conn:       c,
		id:         binary.LittleEndian.Uint32(data[1:5]),
		numParams:  int(binary.LittleEndian.Uint16(data[7:9])),
		generation: c.stmtGeneration,
	}
	numColumns := int(binary.LittleEndian.Uint16(data[5:7]))

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

// skipParamOrColumnDefs reads and discards n column-definition packets
// (used for the parameter-definitions block, whose types this driver does
// not need ahead of execution) plus the trailing EOF when deprecate-EOF is
// not in effect.
func (c *Conn) skipParamOrColumnDefs(n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.readMessage(); err != nil {
			return err
		}
	}
	if !c.caps.has(capDeprecateEOF) {
		if _, err := c.readMessage(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) readColumnDefs(n int) ([]ColumnType, error) {
	cols := make([]ColumnType, 0, n)
	for i := 0; i < n; i++ {
		data, err := c.readMessage()
		if err != nil {
			return nil, err
		}
		col, err := parseColumnDefinition(data, c.cfg.MetadataMode)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if !c.caps.has(capDeprecateEOF) {
		if _, err := c.readMessage(); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

// NumParams reports the placeholder count this statement was prepared with.
func (s *Stmt) NumParams() int { return s.numParams }

// Execute binds params and runs COM_STMT_EXECUTE, returning an Execution
// positioned at reading-head (spec §4.6). Parameters at or above
// longDataThreshold bytes are sent first via COM_STMT_SEND_LONG_DATA, per
// spec §4.3 "Parameter encoding".
func (s *Stmt) Execute(params []Param, target RowTarget, longDataThreshold int) (*Execution, error) {
	if s.generation != s.conn.stmtGeneration {
		return nil, errProtocolValue("statement handle is stale after reset-connection")
	}
	if len(params) != s.numParams {
		return nil, errProtocolValue("parameter count does not match prepared statement")
	}

	longData := make(map[int]bool, len(params))
	for i, p := range params {
		if longDataThreshold > 0 && paramLen(p) >= longDataThreshold {
			longData[i] = true
			if err := s.sendLongData(i, p); err != nil {
				return nil, err
			}
		}
	}

	body := make([]byte, 0, 9+len(params)*2)
	body = append(body, 0, 0, 0, 0) // statement id, filled below
	binary.LittleEndian.PutUint32(body[0:4], s.id)
	body = append(body, 0x00)       // cursor type: CURSOR_TYPE_NO_CURSOR
	body = append(body, 1, 0, 0, 0) // iteration-count = 1

	if len(params) > 0 {
		var err error
		body, err = encodeBinaryParams(body, params, s.conn.cfg.Loc, longDataThreshold, longData)
		if err != nil {
			return nil, err
		}
	}

	ex, err := s.conn.startBinaryExecute(s.id, body, target)
	if err != nil {
		return nil, err
	}
	ex.columns = s.columns
	return ex, nil
}

func (s *Stmt) sendLongData(paramIdx int, p Param) error {
	var data []byte
	switch p.Kind {
	case ParamBytes:
		data = p.Bytes
	case ParamString:
		data = []byte(p.String)
	default:
		return nil
	}

	if err := s.conn.acquireOp(); err != nil {
		return err
	}
	defer s.conn.releaseOp()

	body := make([]byte, 6+len(data))
	binary.LittleEndian.PutUint32(body[0:4], s.id)
	binary.LittleEndian.PutUint16(body[4:6], uint16(paramIdx))
	copy(body[6:], data)
	return s.conn.writeCommand(comStmtSendLongData, body)
}

// Close sends COM_STMT_CLOSE, which the server never acknowledges (spec §6).
func (s *Stmt) Close() error {
	if err := s.conn.acquireOp(); err != nil {
		return err
	}
	defer s.conn.releaseOp()

	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, s.id)
	return s.conn.writeCommand(comStmtClose, body)
}
