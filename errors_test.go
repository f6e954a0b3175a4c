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
)

func TestServerErrorFormatsSQLState(t *testing.T) {
	se := &ServerError{Number: 1045, SQLState: [5]byte{'2', '8', '0', '0', '0'}, Message: "Access denied"}
	assert.Equal(t, "Error 1045 (28000): Access denied", se.Error())
}

func TestServerErrorWithoutSQLState(t *testing.T) {
	se := &ServerError{Number: 1105, Message: "unknown error"}
	assert.Equal(t, "Error 1105: unknown error", se.Error())
}

func TestErrorDiagnosticsServerOrigin(t *testing.T) {
	se := &ServerError{Number: 1062, Message: "Duplicate entry"}
	err := serverErr(se)
	diag := err.Diagnostics()
	assert.True(t, diag.ServerOrigin)
	assert.Equal(t, "Duplicate entry", diag.Message)
}

func TestErrorDiagnosticsLocalOrigin(t *testing.T) {
	err := errProtocolValue("bad value")
	diag := err.Diagnostics()
	assert.False(t, diag.ServerOrigin)
	assert.Equal(t, "bad value", diag.Message)
}

func TestErrorDiagnosticsNilReceiver(t *testing.T) {
	var err *Error
	assert.Equal(t, Diagnostics{}, err.Diagnostics())
}

func TestKindStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "server-error", KindServerError.String())
	assert.Equal(t, "pool-cancelled", KindPoolCancelled.String())
	assert.Equal(t, "unknown-error-kind", Kind(9999).String())
}

func TestErrUnknownAuthPlugin(t *testing.T) {
	err := errUnknownAuthPlugin("sspi_auth")
	assert.Equal(t, KindUnknownAuthPlugin, err.Kind)
	assert.Contains(t, err.Error(), "sspi_auth")
}

func TestErrorUnwrapReturnsCause(t *testing.T) {
	err := errProtocolValue("boom")
	assert.Error(t, err.Unwrap())
}
