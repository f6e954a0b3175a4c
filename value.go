// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind tags the variant held by a Value (spec §3 "Field value").
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueInt64
	ValueUint64
	ValueFloat32
	ValueFloat64
	ValueBytes
	ValueDate
	ValueDateTime
	ValueTime
)

// Date is the (y,m,d) calendar value; a MySQL zero-date (0000-00-00) is
// permitted and represented as the zero value (spec §3).
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateTime is (y,m,d,h,m,s,μs).
type DateTime struct {
	Date
	Hour, Min, Sec, Micro int
}

// Time is MySQL's TIME value: a signed duration with |h| <= 838 (spec §3).
type Time struct {
	Negative bool
	Hours    int
	Min, Sec, Micro int
}

// Value is the Field value variant of spec §3. A Value obtained from a row
// read is a *view*: its Bytes slice borrows storage owned by the
// connection's read buffer and is valid only until the next network
// operation on that connection (spec §3 "Field value", §9 Design Notes).
// Clone copies the borrowed bytes so the Value outlives that boundary.
type Value struct {
	Kind     ValueKind
	Int64    int64
	Uint64   uint64
	Float32  float32
	Float64  float64
	Bytes    []byte
	Date     Date
	DateTime DateTime
	Time     Time

	owned bool
}

func (v Value) IsNull() bool { return v.Kind == ValueNull }

// Clone returns a Value whose Bytes (if any) are copied into
// caller-owned storage, safe to retain past the next network call.
func (v Value) Clone() Value {
	if v.Kind == ValueBytes && !v.owned {
		b := make([]byte, len(v.Bytes))
		copy(b, v.Bytes)
		v.Bytes = b
		v.owned = true
	}
	return v
}

// AsDecimal interprets a DECIMAL/NEWDECIMAL byte-string value (spec §6: wire
// type DECIMAL/NEWDECIMAL is carried as a byte-string) as an arbitrary
// precision decimal. It is a convenience on top of the raw variant; callers
// that only need the text form can use Bytes directly.
func (v Value) AsDecimal() (decimal.Decimal, error) {
	if v.Kind != ValueBytes {
		return decimal.Decimal{}, errProtocolValue("value is not a DECIMAL byte-string")
	}
	return decimal.NewFromString(string(v.Bytes))
}

// AsTime converts a DateTime/Date value into a time.Time in loc, per the
// naive-DATETIME behavior documented in spec §9 Design Notes ("the source
// treats [TIMESTAMP] as a naive DATETIME... preserve that behavior").
func (v Value) AsTime(loc *time.Location) (time.Time, bool) {
	switch v.Kind {
	case ValueDate:
		return time.Date(v.Date.Year, time.Month(v.Date.Month), v.Date.Day, 0, 0, 0, 0, loc), true
	case ValueDateTime:
		dt := v.DateTime
		return time.Date(dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Min, dt.Sec, dt.Micro*1000, loc), true
	default:
		return time.Time{}, false
	}
}
