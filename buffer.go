// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"net"
	"time"
)

const maxCachedBufSize = 256 * 1024

// bufio is a zero-copy-ish read/write buffer for one connection. Reads and
// writes never overlap (the connection is single-threaded cooperative, spec
// §5), so one double-buffering scheme serves both directions: the buffer
// returned by takeBuffer/readNext stays valid to the caller until the next
// network call, per spec §4.2 ("reserved bytes remain valid... until the
// next network call on the connection").
//
// Buffer policy (spec §4.2): the buffer starts at initSize and grows as
// needed up to maxSize; reads or writes that would exceed maxSize fail with
// ErrMaxBufferSizeExceeded instead of growing further.
type bufio struct {
	buf     []byte
	nc      net.Conn
	length  int
	timeout time.Duration
	dbuf    [2][]byte
	flipcnt uint

	maxSize int
}

func newBufio(nc net.Conn, initSize, maxSize int) bufio {
	if initSize <= 0 {
		initSize = defaultInitialBufSize
	}
	if maxSize <= 0 {
		maxSize = defaultMaxAllowedPacket
	}
	fg := make([]byte, initSize)
	return bufio{
		buf:     fg,
		nc:      nc,
		dbuf:    [2][]byte{fg, nil},
		maxSize: maxSize,
	}
}

// flip replaces the active buffer with the background buffer; the actual
// swap happens lazily the next time readNext grows the buffer.
func (b *bufio) flip() {
	b.flipcnt++
}

// readNext reads and returns the next n bytes from the connection,
// reusing or growing the background buffer as needed. The returned slice
// is only valid until the next call to readNext, takeBuffer, or a sibling
// take* method (spec §4.2 buffer ownership).
func (b *bufio) readNext(n int) ([]byte, error) {
	if n > b.maxSize {
		return nil, ErrMaxBufferSizeExceeded
	}

	dest := b.dbuf[b.flipcnt&1]
	if cap(dest) < n {
		dest = make([]byte, n, growBufSize(n))
	} else {
		dest = dest[:n]
	}

	if b.timeout > 0 {
		if err := b.nc.SetReadDeadline(time.Now().Add(b.timeout)); err != nil {
			return nil, err
		}
	}

	read := 0
	for read < n {
		m, err := b.nc.Read(dest[read:])
		read += m
		if err != nil {
			return nil, err
		}
	}

	b.dbuf[b.flipcnt&1] = dest
	b.flipcnt++
	return dest, nil
}

func growBufSize(n int) int {
	if n < maxCachedBufSize {
		return maxCachedBufSize
	}
	return n
}

// takeBuffer returns a buffer with the requested size, preferring a slice
// of the existing buffer when it fits. Only one buffer (total) may be in
// use at a time; calling this while a previous buffer is still in use
// returns ErrBusyBuffer.
func (b *bufio) takeBuffer(length int) ([]byte, error) {
	if length > b.maxSize {
		return nil, ErrMaxBufferSizeExceeded
	}
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	if length <= cap(b.buf) {
		return b.buf[:length], nil
	}
	if length < maxPacketSize {
		b.buf = make([]byte, length)
		return b.buf, nil
	}
	return make([]byte, length), nil
}

// takeSmallBuffer is a shortcut for lengths known to fit the current
// buffer without growing it.
func (b *bufio) takeSmallBuffer(length int) ([]byte, error) {
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	return b.buf[:length], nil
}

// takeCompleteBuffer returns the entire existing buffer, cap == len.
func (b *bufio) takeCompleteBuffer() ([]byte, error) {
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	return b.buf, nil
}

// store records an updated buffer for reuse if it's a reasonable size to
// cache.
func (b *bufio) store(buf []byte) error {
	if b.length > 0 {
		return ErrBusyBuffer
	} else if cap(buf) <= maxPacketSize && cap(buf) > cap(b.buf) {
		b.buf = buf[:cap(buf)]
	}
	return nil
}
