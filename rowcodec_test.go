// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textRowPayload(fields ...[]byte) []byte {
	var out []byte
	for _, f := range fields {
		if f == nil {
			out = append(out, 0xfb)
			continue
		}
		out = appendLengthEncodedInteger(out, uint64(len(f)))
		out = append(out, f...)
	}
	return out
}

func TestDecodeTextRowNullAndInt(t *testing.T) {
	cols := []ColumnType{
		{Type: fieldTypeLong},
		{Type: fieldTypeVarString},
	}
	data := textRowPayload([]byte("42"), nil)
	values, err := decodeTextRow(data, cols, time.UTC)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, ValueInt64, values[0].Kind)
	assert.Equal(t, int64(42), values[0].Int64)
	assert.Equal(t, ValueNull, values[1].Kind)
}

func TestDecodeTextRowUnsignedBigInt(t *testing.T) {
	cols := []ColumnType{{Type: fieldTypeLongLong, Flags: flagUnsigned}}
	data := textRowPayload([]byte("18446744073709551615"))
	values, err := decodeTextRow(data, cols, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, ValueUint64, values[0].Kind)
	assert.Equal(t, uint64(18446744073709551615), values[0].Uint64)
}

func TestDecodeTextRowDate(t *testing.T) {
	cols := []ColumnType{{Type: fieldTypeDate}}
	data := textRowPayload([]byte("2024-03-05"))
	values, err := decodeTextRow(data, cols, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, ValueDate, values[0].Kind)
	assert.Equal(t, Date{Year: 2024, Month: 3, Day: 5}, values[0].Date)
}

func TestDecodeBinaryRowNullBitmap(t *testing.T) {
	cols := []ColumnType{
		{Type: fieldTypeTiny},
		{Type: fieldTypeLong},
	}
	// offset +2 per column per the binary protocol's NULL bitmap.
	// column 0 -> bit (0+2)=2, column 1 -> bit (1+2)=3
	nullMask := byte(1 << 3) // only column 1 is NULL
	data := []byte{0x00, nullMask}
	data = append(data, 7) // column 0 value: tiny int 7
	values, err := decodeBinaryRow(data, cols, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, ValueInt64, values[0].Kind)
	assert.Equal(t, int64(7), values[0].Int64)
	assert.Equal(t, ValueNull, values[1].Kind)
}

func TestDecodeBinaryFieldLongLongUnsigned(t *testing.T) {
	col := ColumnType{Type: fieldTypeLongLong, Flags: flagUnsigned}
	want := uint64(1)<<63 + 5
	data := uint64ToBytes(want)
	v, n, err := decodeBinaryField(data, col, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, ValueUint64, v.Kind)
	assert.Equal(t, want, v.Uint64)
}

func TestDecodeBinaryFieldShortIncomplete(t *testing.T) {
	col := ColumnType{Type: fieldTypeShort}
	_, _, err := decodeBinaryField([]byte{0x01}, col, time.UTC)
	require.Error(t, err)
	assert.Equal(t, KindIncompleteMessage, err.(*Error).Kind)
}

func TestEncodeBinaryParamsNullAndInt(t *testing.T) {
	params := []Param{
		{Kind: ParamNull},
		{Kind: ParamInt64, Int64: -7},
	}
	out, err := encodeBinaryParams(nil, params, time.UTC, 0, map[int]bool{})
	require.NoError(t, err)

	maskLen := 1
	assert.Equal(t, byte(1<<0), out[0]&0x01, "null-bitmap bit for param 0 should be set")
	assert.Equal(t, byte(0x01), out[maskLen], "new-params-bound flag")
	typesStart := maskLen + 1
	assert.Equal(t, byte(fieldTypeNULL), out[typesStart])
	assert.Equal(t, byte(fieldTypeLongLong), out[typesStart+2])
}

func TestEncodeBinaryParamsSkipsLongData(t *testing.T) {
	params := []Param{{Kind: ParamString, String: "big"}}
	out, err := encodeBinaryParams(nil, params, time.UTC, 1, map[int]bool{0: true})
	require.NoError(t, err)
	// No value bytes appended beyond the mask/flag/type-array header.
	assert.Equal(t, 1+1+2, len(out))
}

func TestParamLen(t *testing.T) {
	assert.Equal(t, 5, paramLen(Param{Kind: ParamBytes, Bytes: []byte("hello")}))
	assert.Equal(t, 3, paramLen(Param{Kind: ParamString, String: "abc"}))
	assert.Equal(t, 0, paramLen(Param{Kind: ParamInt64, Int64: 1}))
}
