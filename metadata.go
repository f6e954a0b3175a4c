// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "encoding/binary"

// ColumnType is the per-column metadata of spec §3 "Metadata". In
// MetadataMinimal mode, Schema/Table/OrigTable/OrigName are left empty; only
// the fields needed to parse rows are retained.
type ColumnType struct {
	Schema     string
	Table      string
	OrigTable  string
	Name       string
	OrigName   string
	Collation  uint16
	Length     uint32
	Type       fieldType
	Flags      fieldFlag
	Decimals   uint8
}

func (c *ColumnType) Unsigned() bool       { return c.Flags&flagUnsigned != 0 }
func (c *ColumnType) Nullable() bool       { return c.Flags&flagNotNULL == 0 }
func (c *ColumnType) PrimaryKey() bool     { return c.Flags&flagPriKey != 0 }
func (c *ColumnType) AutoIncrement() bool  { return c.Flags&flagAutoIncrement != 0 }

// parseColumnDefinition decodes one Protocol::ColumnDefinition41 packet
// (spec §6). The catalog is always skipped and the column name is always
// kept; schema, table, original table and original name are kept only
// when mode is MetadataFull.
func parseColumnDefinition(data []byte, mode MetadataMode) (ColumnType, error) {
	var c ColumnType
	pos := 0

	catalog, n, err := skipOrReadString(data[pos:], false)
	if err != nil {
		return c, err
	}
	pos += n
	_ = catalog

	schema, n, err := skipOrReadString(data[pos:], mode == MetadataFull)
	if err != nil {
		return c, err
	}
	pos += n
	c.Schema = schema

	table, n, err := skipOrReadString(data[pos:], mode == MetadataFull)
	if err != nil {
		return c, err
	}
	pos += n
	c.Table = table

	origTable, n, err := skipOrReadString(data[pos:], mode == MetadataFull)
	if err != nil {
		return c, err
	}
	pos += n
	c.OrigTable = origTable

	name, n, err := skipOrReadString(data[pos:], true)
	if err != nil {
		return c, err
	}
	pos += n
	c.Name = name

	origName, n, err := skipOrReadString(data[pos:], mode == MetadataFull)
	if err != nil {
		return c, err
	}
	pos += n
	c.OrigName = origName

	// length-encoded 0x0c marker
	_, _, n = readLengthEncodedInteger(data[pos:])
	pos += n

	if pos+2 > len(data) {
		return c, ErrIncompleteMessage
	}
	c.Collation = binary.LittleEndian.Uint16(data[pos : pos+2])
	pos += 2

	if pos+4 > len(data) {
		return c, ErrIncompleteMessage
	}
	c.Length = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	if pos+1 > len(data) {
		return c, ErrIncompleteMessage
	}
	c.Type = fieldType(data[pos])
	pos++

	if pos+2 > len(data) {
		return c, ErrIncompleteMessage
	}
	c.Flags = fieldFlag(binary.LittleEndian.Uint16(data[pos : pos+2]))
	pos += 2

	if pos+1 > len(data) {
		return c, ErrIncompleteMessage
	}
	c.Decimals = data[pos]

	return c, nil
}

// skipOrReadString either reads and returns a length-encoded string, or
// skips it and returns an empty string, depending on keep.
func skipOrReadString(data []byte, keep bool) (string, int, error) {
	if keep {
		b, _, n, err := readLengthEncodedString(data)
		if err != nil {
			return "", 0, err
		}
		return string(b), n, nil
	}
	n, err := skipLengthEncodedString(data)
	if err != nil {
		return "", 0, err
	}
	return "", n, nil
}
