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

	"github.com/pkg/errors"
)

// Kind classifies every error the engine can produce. It is the Go
// realization of the error taxonomy; callers switch on Kind rather than
// matching error strings or sentinel values.
type Kind int

const (
	KindServerError Kind = iota
	KindIncompleteMessage
	KindExtraBytes
	KindProtocolValueError
	KindSequenceMismatch
	KindServerUnsupported
	KindServerDoesntSupportSSL
	KindAuthPluginRequiresSSL
	KindUnknownAuthPlugin
	KindMaxBufferSizeExceeded
	KindMetadataCheckFailed
	KindNumResultsetsMismatch
	KindStaticRowParsingError
	KindOperationInProgress
	KindOperationCancelled
	KindUnknownCharacterSet
	KindNoConnectionAvailable
	KindPoolCancelled
)

func (k Kind) String() string {
	switch k {
	case KindServerError:
		return "server-error"
	case KindIncompleteMessage:
		return "incomplete-message"
	case KindExtraBytes:
		return "extra-bytes"
	case KindProtocolValueError:
		return "protocol-value-error"
	case KindSequenceMismatch:
		return "sequence-number-mismatch"
	case KindServerUnsupported:
		return "server-unsupported"
	case KindServerDoesntSupportSSL:
		return "server-doesnt-support-ssl"
	case KindAuthPluginRequiresSSL:
		return "auth-plugin-requires-ssl"
	case KindUnknownAuthPlugin:
		return "unknown-auth-plugin"
	case KindMaxBufferSizeExceeded:
		return "max-buffer-size-exceeded"
	case KindMetadataCheckFailed:
		return "metadata-check-failed"
	case KindNumResultsetsMismatch:
		return "num-resultsets-mismatch"
	case KindStaticRowParsingError:
		return "static-row-parsing-error"
	case KindOperationInProgress:
		return "operation-in-progress"
	case KindOperationCancelled:
		return "operation-cancelled"
	case KindUnknownCharacterSet:
		return "unknown-character-set"
	case KindNoConnectionAvailable:
		return "no-connection-available"
	case KindPoolCancelled:
		return "pool-cancelled"
	default:
		return "unknown-error-kind"
	}
}

// Diagnostics carries the server-origin message attached to an error, or the
// zero value when an error did not originate on the server. The message is
// preserved verbatim; it is never parsed or reinterpreted.
type Diagnostics struct {
	ServerOrigin bool
	Message      string
}

// ServerError is the MySQL Err_Packet contents: a numeric error code, a
// 5-character SQLSTATE, and a human-readable message.
type ServerError struct {
	Number   uint16
	SQLState [5]byte
	Message  string
}

func (e *ServerError) Error() string {
	if e.SQLState != ([5]byte{}) {
		return fmt.Sprintf("Error %d (%s): %s", e.Number, e.SQLState, e.Message)
	}
	return fmt.Sprintf("Error %d: %s", e.Number, e.Message)
}

// Error is the single error type returned by every engine and pool
// operation. Kind is always set; Server is set only for KindServerError.
type Error struct {
	Kind   Kind
	Server *ServerError
	msg    string
	cause  error
}

func (e *Error) Error() string {
	if e.Server != nil {
		return e.Server.Error()
	}
	if e.msg != "" {
		return e.Kind.String() + ": " + e.msg
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Diagnostics extracts the diagnostics pair an operation returns alongside
// its error, per spec §4.10 ("every operation returns (error, diagnostics)").
func (e *Error) Diagnostics() Diagnostics {
	if e == nil {
		return Diagnostics{}
	}
	if e.Server != nil {
		return Diagnostics{ServerOrigin: true, Message: e.Server.Message}
	}
	return Diagnostics{Message: e.msg}
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg, cause: errors.New(msg)}
}

func wrapErr(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, cause: errors.Wrap(cause, msg)}
}

func serverErr(se *ServerError) *Error {
	return &Error{Kind: KindServerError, Server: se, cause: se}
}

// Sentinel, kind-tagged errors for conditions that carry no extra context.
var (
	ErrIncompleteMessage      = newErr(KindIncompleteMessage, "decoder ran off the end of the message")
	ErrExtraBytes             = newErr(KindExtraBytes, "decoder left trailing bytes in the message")
	ErrSequenceMismatch       = newErr(KindSequenceMismatch, "packet sequence number discontinuity")
	ErrServerUnsupported      = newErr(KindServerUnsupported, "server is missing a mandatory capability")
	ErrServerDoesntSupportSSL = newErr(KindServerDoesntSupportSSL, "TLS required but server does not advertise SSL support")
	ErrAuthPluginRequiresSSL  = newErr(KindAuthPluginRequiresSSL, "auth plugin requires an active TLS session for cleartext exchange")
	ErrMaxBufferSizeExceeded  = newErr(KindMaxBufferSizeExceeded, "message exceeds the configured maximum buffer size")
	ErrOperationInProgress    = newErr(KindOperationInProgress, "a previous operation on this connection has not completed")
	ErrOperationCancelled     = newErr(KindOperationCancelled, "operation was cancelled")
	ErrUnknownCharacterSet    = newErr(KindUnknownCharacterSet, "current character set is not in the known collation table")
	ErrNoConnectionAvailable  = newErr(KindNoConnectionAvailable, "pool acquisition timed out with no connection available")
	ErrPoolCancelled          = newErr(KindPoolCancelled, "pool was shut down")
	ErrBusyBuffer             = newErr(KindProtocolValueError, "connection buffer is already in use")
)

func errUnknownAuthPlugin(name string) *Error {
	return newErr(KindUnknownAuthPlugin, fmt.Sprintf("unknown auth plugin %q", name))
}

func errProtocolValue(msg string) *Error {
	return newErr(KindProtocolValueError, msg)
}

func errMetadataCheckFailed(msg string) *Error {
	return newErr(KindMetadataCheckFailed, msg)
}

func errNumResultsetsMismatch(msg string) *Error {
	return newErr(KindNumResultsetsMismatch, msg)
}

func errStaticRowParsing(msg string) *Error {
	return newErr(KindStaticRowParsingError, msg)
}
