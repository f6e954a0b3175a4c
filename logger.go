// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "github.com/sirupsen/logrus"

// Logger is the engine's sole logging collaborator (spec §1 Non-goals:
// logging itself is out of scope, but the engine still reports I/O errors
// here: readMessage and writeRaw log them before poisoning the connection
// and returning them). Any type whose Print method
// matches this signature satisfies it, including *logrus.Logger.
type Logger interface {
	Print(v ...any)
}

// defaultLogger returns a logrus-backed Logger for callers that don't
// supply their own, matching *logrus.Logger.Print's signature exactly.
func defaultLogger() Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}
