// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// Packet-level parsers shared by the session engine (session.go, auth
// dialog) and execution engine (execution.go): OK_Packet, Err_Packet, and
// the EOF/deprecate-EOF terminator (spec §6).

// OKResult is the OK-packet summary of spec §3 "Execution processor":
// affected-rows, last-insert-id, warnings, info string, and whether this
// resultset carries stored-procedure OUT-params (spec §9 Design Notes).
type OKResult struct {
	AffectedRows uint64
	LastInsertID uint64
	Status       statusFlag
	Warnings     uint16
	Info         string
	IsOutParams  bool
}

func (r OKResult) MoreResultsExist() bool { return r.Status&statusMoreResultsExists != 0 }

// parseOKPacket decodes an OK_Packet or a deprecate-EOF-as-OK packet (spec
// §6 "OK packet": header 0x00 or, when payload >= 1 byte under
// deprecate-EOF, 0xFE).
func parseOKPacket(data []byte) (OKResult, error) {
	if len(data) < 1 {
		return OKResult{}, ErrIncompleteMessage
	}
	pos := 1
	affectedRows, _, n := readLengthEncodedInteger(data[pos:])
	if n == 0 {
		return OKResult{}, ErrIncompleteMessage
	}
	pos += n

	lastInsertID, _, n := readLengthEncodedInteger(data[pos:])
	if n == 0 {
		return OKResult{}, ErrIncompleteMessage
	}
	pos += n

	if pos+2 > len(data) {
		return OKResult{}, ErrIncompleteMessage
	}
	status := readStatus(data[pos : pos+2])
	pos += 2

	var warnings uint16
	if pos+2 <= len(data) {
		warnings = uint16(data[pos]) | uint16(data[pos+1])<<8
		pos += 2
	}

	var info string
	if pos < len(data) {
		b, _, n, err := readLengthEncodedString(data[pos:])
		if err == nil {
			info = string(b)
			pos += n
		}
	}

	return OKResult{
		AffectedRows: affectedRows,
		LastInsertID: lastInsertID,
		Status:       status,
		Warnings:     warnings,
		Info:         info,
		IsOutParams:  status&statusPSOutParams != 0,
	}, nil
}

func readStatus(b []byte) statusFlag {
	return statusFlag(b[0]) | statusFlag(b[1])<<8
}

// parseErrPacket decodes an Err_Packet (spec §6 "Err packet").
func parseErrPacket(data []byte) *ServerError {
	if len(data) < 3 {
		return &ServerError{Message: "malformed error packet"}
	}
	se := &ServerError{Number: uint16(data[1]) | uint16(data[2])<<8}
	pos := 3
	if len(data) > 3 && data[3] == '#' && len(data) >= 9 {
		copy(se.SQLState[:], data[4:9])
		pos = 9
	}
	se.Message = string(data[pos:])
	return se
}

// isEOFTerminator reports whether data is an EOF-style resultset
// terminator: the classic 5-or-1-byte 0xFE packet, or (under
// capDeprecateEOF) a regular OK packet whose header happens to be 0xFE.
func isEOFTerminator(data []byte, deprecateEOF bool) bool {
	if len(data) == 0 || data[0] != iEOF {
		return false
	}
	if deprecateEOF {
		return true
	}
	return len(data) < 9
}
