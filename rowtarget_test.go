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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTupleTargetMatchMetaFewerColumnsThanSinkFails(t *testing.T) {
	var a, b Value
	target := NewTupleTarget(&a, &b)
	err := target.MatchMeta([]ColumnType{{Name: "id"}})
	require.Error(t, err)
	assert.Equal(t, KindMetadataCheckFailed, err.(*Error).Kind)
}

func TestTupleTargetMatchMetaIgnoresExtraTrailingColumns(t *testing.T) {
	var a Value
	target := NewTupleTarget(&a)
	err := target.MatchMeta([]ColumnType{{Name: "id"}, {Name: "extra"}})
	require.NoError(t, err)
}

func TestTupleTargetParseRow(t *testing.T) {
	var id, name Value
	target := NewTupleTarget(&id, &name)
	require.NoError(t, target.MatchMeta([]ColumnType{{Name: "id"}, {Name: "name"}}))

	err := target.ParseRow([]Value{
		{Kind: ValueInt64, Int64: 7},
		{Kind: ValueBytes, Bytes: []byte("alice")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.Int64)
	assert.Equal(t, "alice", string(name.Bytes))
}

func TestTupleTargetParseRowIgnoresExtraTrailingValues(t *testing.T) {
	var a Value
	target := NewTupleTarget(&a)
	require.NoError(t, target.MatchMeta([]ColumnType{{Name: "a"}, {Name: "b"}}))
	err := target.ParseRow([]Value{{Kind: ValueInt64, Int64: 1}, {Kind: ValueInt64, Int64: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Int64)
}

func TestTupleTargetParseRowFewerValuesThanSinkFails(t *testing.T) {
	var a, b Value
	target := NewTupleTarget(&a, &b)
	target.n = 2 // simulate a prior MatchMeta against a 2+-column resultset
	err := target.ParseRow([]Value{{Kind: ValueInt64}})
	require.Error(t, err)
	assert.Equal(t, KindStaticRowParsingError, err.(*Error).Kind)
}

type namedTargetRow struct {
	ID   int64
	Name string
}

func TestNamedTargetRequiresStructPointer(t *testing.T) {
	var row namedTargetRow
	_, err := NewNamedTarget(row)
	require.Error(t, err)

	_, err = NewNamedTarget(&row)
	require.NoError(t, err)
}

func TestNamedTargetMatchMetaAndParseRow(t *testing.T) {
	var row namedTargetRow
	target, err := NewNamedTarget(&row)
	require.NoError(t, err)

	cols := []ColumnType{
		{Name: "ID", Type: fieldTypeLongLong, Flags: flagNotNULL},
		{Name: "name", Type: fieldTypeVarString},
	}
	require.NoError(t, target.MatchMeta(cols))

	err = target.ParseRow([]Value{
		{Kind: ValueInt64, Int64: 42},
		{Kind: ValueBytes, Bytes: []byte("bob")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), row.ID)
	assert.Equal(t, "bob", row.Name)
}

// TestNamedTargetMatchMetaIgnoresUnknownColumn covers spec §4.6 "extras are
// ignored": a resultset column with no matching struct field does not fail
// the check, and its value is simply dropped in ParseRow.
func TestNamedTargetMatchMetaIgnoresUnknownColumn(t *testing.T) {
	var row namedTargetRow
	target, err := NewNamedTarget(&row)
	require.NoError(t, err)

	cols := []ColumnType{
		{Name: "ID", Type: fieldTypeLongLong, Flags: flagNotNULL},
		{Name: "name", Type: fieldTypeVarString},
		{Name: "not_a_field", Type: fieldTypeVarString},
	}
	require.NoError(t, target.MatchMeta(cols))

	err = target.ParseRow([]Value{
		{Kind: ValueInt64, Int64: 1},
		{Kind: ValueBytes, Bytes: []byte("a")},
		{Kind: ValueBytes, Bytes: []byte("dropped")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.ID)
	assert.Equal(t, "a", row.Name)
}

// TestNamedTargetMatchMetaMissingFieldFails covers spec §4.6 "absent names
// fail": a struct field with no matching resultset column fails the check.
func TestNamedTargetMatchMetaMissingFieldFails(t *testing.T) {
	var row namedTargetRow
	target, err := NewNamedTarget(&row)
	require.NoError(t, err)

	err = target.MatchMeta([]ColumnType{{Name: "ID", Type: fieldTypeLongLong, Flags: flagNotNULL}})
	require.Error(t, err)
	assert.Equal(t, KindMetadataCheckFailed, err.(*Error).Kind)
	assert.Contains(t, err.Error(), "Name")
}

// TestNamedTargetMatchMetaDeclaredTypeMismatchFails covers spec §4.6/S6: an
// int64 field bound to a column whose declared wire type is string-shaped
// fails the check instead of silently reading as zero.
func TestNamedTargetMatchMetaDeclaredTypeMismatchFails(t *testing.T) {
	var row namedTargetRow
	target, err := NewNamedTarget(&row)
	require.NoError(t, err)

	cols := []ColumnType{
		{Name: "ID", Type: fieldTypeVarString}, // declared as a string, not an integer
		{Name: "name", Type: fieldTypeVarString},
	}
	err = target.MatchMeta(cols)
	require.Error(t, err)
	assert.Equal(t, KindMetadataCheckFailed, err.(*Error).Kind)
	assert.Contains(t, err.Error(), "ID")
}

// TestNamedTargetMatchMetaNullableNumericFieldFails covers the nullability
// half of the metadata check: a fixed-width numeric field can't represent
// NULL, so binding it to a nullable column must fail rather than silently
// conflating NULL with zero.
func TestNamedTargetMatchMetaNullableNumericFieldFails(t *testing.T) {
	var row namedTargetRow
	target, err := NewNamedTarget(&row)
	require.NoError(t, err)

	cols := []ColumnType{
		{Name: "ID", Type: fieldTypeLongLong}, // Flags omitted: nullable
		{Name: "name", Type: fieldTypeVarString},
	}
	err = target.MatchMeta(cols)
	require.Error(t, err)
	assert.Equal(t, KindMetadataCheckFailed, err.(*Error).Kind)
	assert.Contains(t, err.Error(), "NULL")
}

func TestNamedTargetParseRowNullSetsZeroValue(t *testing.T) {
	row := namedTargetRow{Name: "stale"}
	target, err := NewNamedTarget(&row)
	require.NoError(t, err)

	cols := []ColumnType{
		{Name: "id", Type: fieldTypeLongLong, Flags: flagNotNULL},
		{Name: "name", Type: fieldTypeVarString},
	}
	require.NoError(t, target.MatchMeta(cols))

	require.NoError(t, target.ParseRow([]Value{
		{Kind: ValueInt64, Int64: 1},
		{Kind: ValueNull},
	}))
	assert.Equal(t, "", row.Name)
}

func TestLowerASCII(t *testing.T) {
	assert.Equal(t, "orig_name", lowerASCII("Orig_Name"))
}
