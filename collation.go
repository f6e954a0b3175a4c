// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// collations is a small, immutable process-wide table of collation name to
// id, per spec §9 Design Notes ("not globals; ... a small immutable
// process-wide table of known collation ids is acceptable"). It is not
// exhaustive of every collation MySQL/MariaDB ships. An unknown collation id
// from the server leaves the character set unknown (§4.5); an unknown
// configured collation name falls back to defaultCollation (collationID).
var collations = map[string]uint8{
	"big5_chinese_ci":         1,
	"latin1_german1_ci":       5,
	"ascii_general_ci":        11,
	"latin1_swedish_ci":       8,
	"latin1_general_ci":       48,
	"latin1_bin":              47,
	"utf8_general_ci":         33,
	"utf8_bin":                83,
	"utf8mb4_general_ci":      45,
	"utf8mb4_bin":             46,
	"utf8mb4_unicode_ci":      224,
	"utf8mb4_0900_ai_ci":      255,
	"binary":                  63,
	"cp1251_general_ci":       51,
	"gbk_chinese_ci":          28,
	"utf16_general_ci":        54,
	"utf32_general_ci":        60,
	"koi8r_general_ci":        7,
	"eucjpms_japanese_ci":     97,
}

// collationCharsets maps a subset of collation ids back to their charset
// name, used by the session engine to populate the current character set
// from the handshake's requested collation (spec §4.5).
var collationCharsets = func() map[uint8]string {
	// The MySQL/MariaDB collation-id space does not map 1:1 onto charset
	// names (many collations share one charset); this reverse index only
	// needs one representative charset string per id we might encounter.
	m := map[uint8]string{
		1:   "big5",
		5:   "latin1",
		8:   "latin1",
		11:  "ascii",
		28:  "gbk",
		33:  "utf8",
		45:  "utf8mb4",
		46:  "utf8mb4",
		47:  "latin1",
		48:  "latin1",
		51:  "cp1251",
		54:  "utf16",
		60:  "utf32",
		63:  "binary",
		83:  "utf8",
		97:  "eucjpms",
		224: "utf8mb4",
		255: "utf8mb4",
	}
	return m
}()

// charsetForCollation returns the charset name for a collation id and
// whether it is known (spec §4.5: "If the handshake's requested collation
// matches a well-known entry, the current character set is set to that
// value; otherwise it becomes unknown").
func charsetForCollation(id uint8) (string, bool) {
	name, ok := collationCharsets[id]
	return name, ok
}
