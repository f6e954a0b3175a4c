// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"fmt"
	"reflect"
)

// RowTarget is the static-row-parsing capability of spec §9 Design Notes: a
// caller-supplied destination that checks a resultset's metadata once
// (MatchMeta) and then receives each row's field values (ParseRow). A
// mismatch between the two is KindStaticRowParsingError/KindMetadataCheckFailed,
// never a panic.
type RowTarget interface {
	// MatchMeta is called once, right after ReadResultSetHead resolves a
	// column-count packet, with the resultset's column metadata.
	MatchMeta(cols []ColumnType) error
	// ParseRow is called once per row with that row's decoded values.
	ParseRow(values []Value) error
}

// TupleTarget adapts a slice of *Value destinations to RowTarget, matching
// columns positionally (spec §9 "tuple (positional) adapter"). Each row
// overwrites the pointed-to Values in place of sink; callers that need to
// retain a row past the next ParseRow call must call Value.Clone first.
type TupleTarget struct {
	sink []*Value
	n    int
}

// NewTupleTarget builds a RowTarget that writes each row's fields into
// sink, in column order. len(sink) fixes the expected column count.
func NewTupleTarget(sink ...*Value) *TupleTarget {
	return &TupleTarget{sink: sink}
}

// MatchMeta requires at least len(sink) columns; extra trailing columns are
// ignored (spec §4.6 "tuple (positional) adapter").
func (t *TupleTarget) MatchMeta(cols []ColumnType) error {
	if len(cols) < len(t.sink) {
		return errMetadataCheckFailed(fmt.Sprintf("resultset has %d columns, target expects at least %d", len(cols), len(t.sink)))
	}
	t.n = len(t.sink)
	return nil
}

func (t *TupleTarget) ParseRow(values []Value) error {
	if len(values) < t.n {
		return errStaticRowParsing(fmt.Sprintf("row has %d values, expected at least %d", len(values), t.n))
	}
	for i := 0; i < t.n; i++ {
		*t.sink[i] = values[i]
	}
	return nil
}

// NamedTarget adapts a struct pointer to RowTarget, matching resultset
// columns to exported fields by name (spec §9 "named-struct (by-name)
// adapter"). Column names are retained in every MetadataMode, so it works
// with MetadataMinimal as well as MetadataFull.
type NamedTarget struct {
	dest   reflect.Value // addressable struct
	fields map[string]int
	order  []int
	rows   func(reflect.Value, []Value) error
}

// NewNamedTarget builds a RowTarget bound to *dest, a pointer to a struct
// whose exported field names match (case-insensitively) the resultset's
// column names. Each ParseRow call overwrites the struct in place; no copy
// per row is produced.
func NewNamedTarget(dest interface{}) (*NamedTarget, error) {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, errStaticRowParsing("NewNamedTarget requires a pointer to a struct")
	}
	return &NamedTarget{dest: rv.Elem()}, nil
}

// MatchMeta matches resultset columns to struct fields by name, then checks
// every matched column's declared wire type and nullability against the
// destination field's Go type (spec §4.6: "a metadata check compares
// declared column types and nullability to the expected ... type").
// Resultset columns with no matching field are ignored ("extras are
// ignored"); struct fields with no matching column fail the check ("absent
// names fail"). Every offense (absent field, type mismatch, nullability
// mismatch) is collected and reported together in one metadata-check-failed
// error, per spec's "joined human-readable message".
func (t *NamedTarget) MatchMeta(cols []ColumnType) error {
	typ := t.dest.Type()
	byName := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		byName[lowerASCII(f.Name)] = i
	}

	var problems []string
	matched := make([]bool, typ.NumField())
	order := make([]int, len(cols))

	for i, col := range cols {
		idx, ok := byName[lowerASCII(col.Name)]
		if !ok {
			order[i] = -1
			continue
		}
		order[i] = idx
		matched[idx] = true

		field := typ.Field(idx)
		if msg, ok := incompatibleColumn(field.Type.Kind(), col); !ok {
			problems = append(problems, fmt.Sprintf("column %q / field %q: %s", col.Name, field.Name, msg))
		}
	}

	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		if !matched[i] {
			problems = append(problems, fmt.Sprintf("field %q has no matching column", f.Name))
		}
	}

	if len(problems) > 0 {
		return errMetadataCheckFailed(fmt.Sprintf("%d of %d fields mismatched: %s", len(problems), typ.NumField(), joinProblems(problems)))
	}

	t.fields = byName
	t.order = order
	return nil
}

func (t *NamedTarget) ParseRow(values []Value) error {
	if len(values) != len(t.order) {
		return errStaticRowParsing("row width changed since MatchMeta")
	}
	for i, v := range values {
		idx := t.order[i]
		if idx < 0 {
			continue // column has no matching field; ignored per MatchMeta
		}
		field := t.dest.Field(idx)
		if err := assignValue(field, v); err != nil {
			return errStaticRowParsing(err.Error())
		}
	}
	return nil
}

// wireCategory buckets a column's declared wire type into the coarse shape
// assignValue actually knows how to write into a Go field.
func wireCategory(t fieldType) string {
	switch t {
	case fieldTypeTiny, fieldTypeShort, fieldTypeInt24, fieldTypeYear, fieldTypeLong:
		return "int32"
	case fieldTypeLongLong:
		return "int64"
	case fieldTypeFloat:
		return "float32"
	case fieldTypeDouble:
		return "float64"
	case fieldTypeDate, fieldTypeNewDate, fieldTypeDateTime, fieldTypeTimestamp, fieldTypeTime:
		return "temporal"
	default:
		return "string"
	}
}

// fieldCategory buckets a destination field's Go kind to the same shape.
func fieldCategory(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "int32"
	case reflect.Int64, reflect.Uint64:
		return "int64"
	case reflect.Float32:
		return "float32"
	case reflect.Float64:
		return "float64"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "string" // []byte
	default:
		return "unsupported"
	}
}

// nullCapable reports whether a Go kind can represent a NULL value
// distinctly from its zero value; fixed-width numeric/bool kinds cannot, so
// binding them to a nullable column silently conflates NULL with 0/false.
func nullCapable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Slice, reflect.String, reflect.Interface:
		return true
	}
	return false
}

// incompatibleColumn checks a destination field kind against a column's
// declared wire type (spec §4.6/S6: "int32 not compatible with BIGINT") and
// nullability. ok is false when the pair is incompatible; msg explains why.
func incompatibleColumn(fieldKind reflect.Kind, col ColumnType) (msg string, ok bool) {
	fc := fieldCategory(fieldKind)
	wc := wireCategory(col.Type)

	switch {
	case fc == "unsupported":
		return fmt.Sprintf("Go field kind %s has no wire encoding", fieldKind), false
	case fc == "string" && wc == "string":
	case fc == "int32" && wc == "int32":
	case fc == "int64" && (wc == "int32" || wc == "int64"):
	case fc == "float32" && wc == "float32":
	case fc == "float64" && (wc == "float32" || wc == "float64"):
	case fc == "bool" && wc == "int32":
	default:
		return fmt.Sprintf("field kind %s not compatible with column type %s", fieldKind, wc), false
	}

	if col.Nullable() && !nullCapable(fieldKind) {
		return fmt.Sprintf("column is nullable but field kind %s cannot represent NULL", fieldKind), false
	}
	return "", true
}

func joinProblems(problems []string) string {
	out := problems[0]
	for _, p := range problems[1:] {
		out += "; " + p
	}
	return out
}

func assignValue(field reflect.Value, v Value) error {
	if v.IsNull() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(string(v.Bytes))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		field.SetInt(v.Int64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		field.SetUint(v.Uint64)
	case reflect.Float32:
		field.SetFloat(float64(v.Float32))
	case reflect.Float64:
		field.SetFloat(v.Float64)
	case reflect.Bool:
		field.SetBool(v.Int64 != 0)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, len(v.Bytes))
			copy(b, v.Bytes)
			field.SetBytes(b)
			return nil
		}
		return fmt.Errorf("unsupported slice field type %s", field.Type())
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
