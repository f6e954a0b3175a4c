// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// L1 Codec primitives (spec §4.1): fixed-width integers, length-encoded
// integers/strings, and calendar/time encode-decode. Decoders never read
// past the declared bound; short input fails with ErrIncompleteMessage.

func readLengthEncodedInteger(b []byte) (num uint64, isNull bool, n int) {
	if len(b) == 0 {
		return 0, false, 0
	}
	switch b[0] {
	case 0xfb:
		return 0, true, 1
	case 0xfc:
		if len(b) < 3 {
			return 0, false, 0
		}
		return uint64(b[1]) | uint64(b[2])<<8, false, 3
	case 0xfd:
		if len(b) < 4 {
			return 0, false, 0
		}
		return uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16, false, 4
	case 0xfe:
		if len(b) < 9 {
			return 0, false, 0
		}
		return binary.LittleEndian.Uint64(b[1:9]), false, 9
	default:
		return uint64(b[0]), false, 1
	}
}

func appendLengthEncodedInteger(b []byte, n uint64) []byte {
	switch {
	case n <= 250:
		return append(b, byte(n))
	case n <= 0xffff:
		return append(b, 0xfc, byte(n), byte(n>>8))
	case n <= 0xffffff:
		return append(b, 0xfd, byte(n), byte(n>>8), byte(n>>16))
	default:
		return append(b, 0xfe, byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
			byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
	}
}

// readLengthEncodedString reads a length-encoded string, returning its
// bytes (a view into b), whether it was the NULL marker, and the number of
// bytes consumed from b including the length prefix.
func readLengthEncodedString(b []byte) (data []byte, isNull bool, n int, err error) {
	num, isNull, n := readLengthEncodedInteger(b)
	if n == 0 {
		return nil, false, 0, ErrIncompleteMessage
	}
	if isNull {
		return nil, true, n, nil
	}
	if n+int(num) > len(b) {
		return nil, false, n, ErrIncompleteMessage
	}
	return b[n : n+int(num)], false, n + int(num), nil
}

func skipLengthEncodedString(b []byte) (n int, err error) {
	num, _, n := readLengthEncodedInteger(b)
	if n == 0 {
		return 0, ErrIncompleteMessage
	}
	if n+int(num) > len(b) {
		return n, ErrIncompleteMessage
	}
	return n + int(num), nil
}

// readNullTerminatedString reads a string up to (not including) the next
// 0x00 byte, returning the bytes consumed including the terminator.
func readNullTerminatedString(b []byte) (data []byte, n int, err error) {
	for i, c := range b {
		if c == 0x00 {
			return b[:i], i + 1, nil
		}
	}
	return nil, 0, ErrIncompleteMessage
}

func uint64ToString(n uint64) []byte {
	return []byte(strconv.FormatUint(n, 10))
}

func uint64ToBytes(n uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return b[:]
}

// appendDateTime renders t using the wire-level text layout of spec §6
// (DATETIME: "YYYY-MM-DD HH:MM:SS" optionally with fractional seconds).
func appendDateTime(buf []byte, t time.Time) ([]byte, error) {
	year, month, day := t.Date()
	if year < 1 || year > 9999 {
		return buf, errProtocolValue("year out of range for DATETIME")
	}
	hour, min, sec := t.Clock()
	nsec := t.Nanosecond()

	buf = appendZeroPadded(buf, year, 4)
	buf = append(buf, '-')
	buf = appendZeroPadded(buf, int(month), 2)
	buf = append(buf, '-')
	buf = appendZeroPadded(buf, day, 2)

	if hour == 0 && min == 0 && sec == 0 && nsec == 0 {
		return buf, nil
	}

	buf = append(buf, ' ')
	buf = appendZeroPadded(buf, hour, 2)
	buf = append(buf, ':')
	buf = appendZeroPadded(buf, min, 2)
	buf = append(buf, ':')
	buf = appendZeroPadded(buf, sec, 2)

	if nsec == 0 {
		return buf, nil
	}
	buf = append(buf, '.')
	buf = appendZeroPadded(buf, nsec/1000, 6)
	return buf, nil
}

func appendZeroPadded(buf []byte, v, width int) []byte {
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return append(buf, s...)
}

// parseDateTime parses the text layouts of spec §6 (DATE / DATETIME /
// TIMESTAMP) in the given location.
func parseDateTime(b []byte, loc *time.Location) (time.Time, error) {
	s := string(b)
	switch len(s) {
	case 10: // YYYY-MM-DD
		return time.ParseInLocation("2006-01-02", s, loc)
	case 19: // YYYY-MM-DD HH:MM:SS
		return time.ParseInLocation("2006-01-02 15:04:05", s, loc)
	default:
		if len(s) > 20 && s[19] == '.' {
			return time.ParseInLocation("2006-01-02 15:04:05.999999999", s, loc)
		}
	}
	return time.Time{}, errProtocolValue(fmt.Sprintf("invalid time string %q", s))
}

// parseBinaryDateTime decodes the length-prefixed binary DATE/DATETIME
// layout of spec §4.3 (4, 7, or 11 bytes).
func parseBinaryDateTime(num uint64, data []byte, loc *time.Location) (time.Time, error) {
	switch num {
	case 0:
		return time.Time{}, nil
	case 4:
		return time.Date(
			int(binary.LittleEndian.Uint16(data[:2])),
			time.Month(data[2]),
			int(data[3]), 0, 0, 0, 0, loc), nil
	case 7:
		return time.Date(
			int(binary.LittleEndian.Uint16(data[:2])),
			time.Month(data[2]),
			int(data[3]), int(data[4]), int(data[5]), int(data[6]), 0, loc), nil
	case 11:
		return time.Date(
			int(binary.LittleEndian.Uint16(data[:2])),
			time.Month(data[2]),
			int(data[3]), int(data[4]), int(data[5]), int(data[6]),
			int(binary.LittleEndian.Uint32(data[7:11]))*1000, loc), nil
	}
	return time.Time{}, errProtocolValue(fmt.Sprintf("invalid DATETIME packet length %d", num))
}

// formatBinaryDateTime renders a binary DATE/DATETIME payload as the text
// layout of spec §6, into a buffer of the requested length.
func formatBinaryDateTime(src []byte, length uint8) ([]byte, error) {
	switch len(src) {
	case 0:
		return []byte("0000-00-00"), nil
	case 4, 7, 11:
	default:
		return nil, errProtocolValue(fmt.Sprintf("invalid DATETIME packet length %d", len(src)))
	}
	dst := make([]byte, 0, length)
	dst = appendZeroPadded(dst, int(binary.LittleEndian.Uint16(src[:2])), 4)
	dst = append(dst, '-')
	dst = appendZeroPadded(dst, int(src[2]), 2)
	dst = append(dst, '-')
	dst = appendZeroPadded(dst, int(src[3]), 2)
	if length <= 10 || len(src) < 7 {
		return dst, nil
	}
	dst = append(dst, ' ')
	dst = appendZeroPadded(dst, int(src[4]), 2)
	dst = append(dst, ':')
	dst = appendZeroPadded(dst, int(src[5]), 2)
	dst = append(dst, ':')
	dst = appendZeroPadded(dst, int(src[6]), 2)
	if len(src) < 11 {
		return dst, nil
	}
	dst = append(dst, '.')
	dst = appendZeroPadded(dst, int(binary.LittleEndian.Uint32(src[7:11])), 6)
	return dst, nil
}

// formatBinaryTime renders a binary TIME payload (spec §4.3: 8 or 12 bytes
// with sign, days, h, m, s, μs) as the text layout of spec §6.
func formatBinaryTime(src []byte, length uint8) ([]byte, error) {
	if len(src) == 0 {
		return []byte("00:00:00"), nil
	}
	if len(src) != 8 && len(src) != 12 {
		return nil, errProtocolValue(fmt.Sprintf("invalid TIME packet length %d", len(src)))
	}
	sign := src[0]
	days := binary.LittleEndian.Uint32(src[1:5])
	hours := int(src[5]) + int(days)*24
	if hours > 838 {
		return nil, errProtocolValue("TIME hours exceed the representable range (|h|<=838)")
	}
	dst := make([]byte, 0, length)
	if sign == 1 {
		dst = append(dst, '-')
	}
	dst = appendZeroPadded(dst, hours, 2)
	dst = append(dst, ':')
	dst = appendZeroPadded(dst, int(src[6]), 2)
	dst = append(dst, ':')
	dst = appendZeroPadded(dst, int(src[7]), 2)
	if len(src) < 12 {
		return dst, nil
	}
	dst = append(dst, '.')
	dst = appendZeroPadded(dst, int(binary.LittleEndian.Uint32(src[8:12])), 6)
	return dst, nil
}
