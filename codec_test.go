// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
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

func TestLengthEncodedIntegerRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 250, 251, 0xffff, 0x10000, 0xffffff, 0x1000000, 1<<64 - 1}
	for _, n := range cases {
		b := appendLengthEncodedInteger(nil, n)
		got, isNull, consumed := readLengthEncodedInteger(b)
		assert.False(t, isNull)
		assert.Equal(t, len(b), consumed)
		assert.Equal(t, n, got)
	}
}

func TestReadLengthEncodedIntegerNull(t *testing.T) {
	num, isNull, n := readLengthEncodedInteger([]byte{0xfb})
	assert.True(t, isNull)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(0), num)
}

func TestReadLengthEncodedIntegerShortInput(t *testing.T) {
	_, _, n := readLengthEncodedInteger([]byte{0xfc, 0x01})
	assert.Equal(t, 0, n)
}

func TestReadLengthEncodedString(t *testing.T) {
	var b []byte
	b = appendLengthEncodedInteger(b, 5)
	b = append(b, "hello"...)
	data, isNull, n, err := readLengthEncodedString(b)
	require.NoError(t, err)
	assert.False(t, isNull)
	assert.Equal(t, len(b), n)
	assert.Equal(t, "hello", string(data))
}

func TestReadLengthEncodedStringIncomplete(t *testing.T) {
	b := appendLengthEncodedInteger(nil, 10)
	b = append(b, "short"...)
	_, _, _, err := readLengthEncodedString(b)
	require.Error(t, err)
	assert.Equal(t, KindIncompleteMessage, err.(*Error).Kind)
}

func TestReadNullTerminatedString(t *testing.T) {
	data, n, err := readNullTerminatedString([]byte("abc\x00trailing"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, 4, n)
}

func TestReadNullTerminatedStringMissingTerminator(t *testing.T) {
	_, _, err := readNullTerminatedString([]byte("no terminator"))
	require.Error(t, err)
}

func TestAppendDateTimeOmitsZeroClock(t *testing.T) {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	b, err := appendDateTime(nil, d)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", string(b))
}

func TestAppendDateTimeWithFractionalSeconds(t *testing.T) {
	d := time.Date(2024, 3, 5, 1, 2, 3, 4000, time.UTC)
	b, err := appendDateTime(nil, d)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05 01:02:03.000004", string(b))
}

func TestAppendDateTimeYearOutOfRange(t *testing.T) {
	d := time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := appendDateTime(nil, d)
	require.Error(t, err)
	assert.Equal(t, KindProtocolValueError, err.(*Error).Kind)
}

func TestParseDateTime(t *testing.T) {
	got, err := parseDateTime([]byte("2024-03-05"), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDateTime([]byte("2024-03-05 01:02:03"), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 1, 2, 3, 0, time.UTC), got)
}

func TestParseBinaryDateTimeLengths(t *testing.T) {
	zero, err := parseBinaryDateTime(0, nil, time.UTC)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	dateOnly := []byte{0xe8, 0x07, 3, 5} // 2024-03-05
	got, err := parseBinaryDateTime(4, dateOnly, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestParseBinaryDateTimeInvalidLength(t *testing.T) {
	_, err := parseBinaryDateTime(99, make([]byte, 99), time.UTC)
	require.Error(t, err)
	assert.Equal(t, KindProtocolValueError, err.(*Error).Kind)
}

func TestFormatBinaryTimeNegative(t *testing.T) {
	src := make([]byte, 8)
	src[0] = 1 // negative
	src[1] = 1 // 1 day
	src[5] = 2 // +2 hours -> 26 hours total
	src[6] = 3
	src[7] = 4
	out, err := formatBinaryTime(src, 8)
	require.NoError(t, err)
	assert.Equal(t, "-26:03:04", string(out))
}

func TestFormatBinaryTimeOutOfRange(t *testing.T) {
	src := make([]byte, 8)
	src[1] = 40 // 40 days alone already exceeds the 838-hour representable range
	_, err := formatBinaryTime(src, 8)
	require.Error(t, err)
}
