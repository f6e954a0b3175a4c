// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// Capability is a bit of the 32-bit client/server capability flag field
// (spec §3 "Capability set").
type Capability uint32

const (
	capLongPassword Capability = 1 << iota
	capFoundRows
	capLongFlag
	capConnectWithDB
	capNoSchema
	capCompress
	capODBC
	capLocalFiles
	capIgnoreSpace
	capProtocol41
	capInteractive
	capSSL
	capIgnoreSIGPIPE
	capTransactions
	capReserved
	capSecureConnection
	capMultiStatements
	capMultiResults
	capPSMultiResults
	capPluginAuth
	capConnectAttrs
	capPluginAuthLenencClientData
	capClientSessionTrack
	capDeprecateEOF
)

// mandatoryCapabilities are required of every server; connecting to a
// server missing any of these fails with KindServerUnsupported.
const mandatoryCapabilities = capLongPassword | capProtocol41 | capSecureConnection |
	capPluginAuth | capPluginAuthLenencClientData | capDeprecateEOF

// command bytes, https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_command_phase.html
const (
	comQuit             byte = 0x01
	comInitDB           byte = 0x02
	comQuery            byte = 0x03
	comFieldList        byte = 0x04
	comPing             byte = 0x0e
	comStmtPrepare      byte = 0x16
	comStmtExecute      byte = 0x17
	comStmtSendLongData byte = 0x18
	comStmtClose        byte = 0x19
	comStmtReset        byte = 0x1a
	comResetConnection  byte = 0x1f
)

// generic response header bytes
const (
	iOK           byte = 0x00
	iAuthMoreData byte = 0x01
	iLocalInFile  byte = 0xfb
	iEOF          byte = 0xfe
	iERR          byte = 0xff
)

// statusFlag is the 2-byte server status bitfield attached to OK/EOF packets.
type statusFlag uint16

const (
	statusInTrans statusFlag = 1 << iota
	statusInAutocommit
	statusReserved
	statusMoreResultsExists
	statusNoGoodIndexUsed
	statusNoIndexUsed
	statusCursorExists
	statusLastRowSent
	statusDbDropped
	statusNoBackslashEscapes
	statusMetadataChanged
	statusQueryWasSlow
	statusPSOutParams
	statusInTransReadonly
	statusSessionStateChanged
)

// fieldType is the 1-byte wire type code of a column definition.
type fieldType byte

const (
	fieldTypeDecimal fieldType = iota
	fieldTypeTiny
	fieldTypeShort
	fieldTypeLong
	fieldTypeFloat
	fieldTypeDouble
	fieldTypeNULL
	fieldTypeTimestamp
	fieldTypeLongLong
	fieldTypeInt24
	fieldTypeDate
	fieldTypeTime
	fieldTypeDateTime
	fieldTypeYear
	fieldTypeNewDate
	fieldTypeVarChar
	fieldTypeBit
)

const (
	fieldTypeJSON fieldType = iota + 0xf5
	fieldTypeNewDecimal
	fieldTypeEnum
	fieldTypeSet
	fieldTypeTinyBLOB
	fieldTypeMediumBLOB
	fieldTypeLongBLOB
	fieldTypeBLOB
	fieldTypeVarString
	fieldTypeString
	fieldTypeGeometry
)

// fieldFlag is the 2-byte column attribute bitfield (spec §3 "Metadata").
type fieldFlag uint16

const (
	flagNotNULL fieldFlag = 1 << iota
	flagPriKey
	flagUniqueKey
	flagMultipleKey
	flagBLOB
	flagUnsigned
	flagZeroFill
	flagBinary
	flagEnum
	flagAutoIncrement
	flagTimestamp
	flagSet
	_
	_
	_
	flagNumeric fieldFlag = flagZeroFill | flagUnsigned
)

// maxPacketSize is 2^24-1, the largest payload a single frame can carry
// before another frame must follow (spec §3 "Packet frame").
const maxPacketSize = 1<<24 - 1

// defaultMaxAllowedPacket bounds the size of a single logical message the
// engine will assemble; it is the Go realization of the frame layer's
// "max-buffer-size-exceeded" cap (spec §4.2), default 64 MiB per spec §6.
const defaultMaxAllowedPacket = 64 << 20

const defaultInitialBufSize = 1024

const minProtocolVersion = 10

const defaultCollation = "utf8mb4_general_ci"

// TLSMode selects how the session engine negotiates TLS (spec §4.5/§6).
type TLSMode int

const (
	TLSDisable TLSMode = iota
	TLSEnable
	TLSRequire
)

// MetadataMode selects how much column metadata is retained (spec §3
// "Metadata"): Minimal keeps the column name plus the fields needed to parse
// rows; Full additionally retains schema, table, original table and
// original name.
type MetadataMode int

const (
	MetadataMinimal MetadataMode = iota
	MetadataFull
)

// Encoding selects the row wire format in use for the current resultset
// (spec §3 "Execution processor").
type Encoding int

const (
	EncodingText Encoding = iota
	EncodingBinary
)
