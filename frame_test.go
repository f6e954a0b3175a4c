// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn adapts a byte slice to net.Conn for exercising frameReader
// without a real socket.
type fakeConn struct {
	r *bytes.Reader
}

func (f *fakeConn) Read(b []byte) (int, error)         { return f.r.Read(b) }
func (f *fakeConn) Write(b []byte) (int, error)         { return len(b), nil }
func (f *fakeConn) Close() error                        { return nil }
func (f *fakeConn) LocalAddr() net.Addr                 { return nil }
func (f *fakeConn) RemoteAddr() net.Addr                { return nil }
func (f *fakeConn) SetDeadline(time.Time) error         { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error     { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error    { return nil }

func TestSplitFramesEmptyPayload(t *testing.T) {
	assert.Equal(t, []int{0}, splitFrames(nil))
}

func TestSplitFramesSingleFrame(t *testing.T) {
	assert.Equal(t, []int{0}, splitFrames(make([]byte, 10)))
}

func TestSplitFramesExactMultipleGetsTrailingFrame(t *testing.T) {
	offsets := splitFrames(make([]byte, maxPacketSize))
	assert.Equal(t, []int{0, maxPacketSize}, offsets)
}

func TestSplitFramesPartialOverflow(t *testing.T) {
	offsets := splitFrames(make([]byte, maxPacketSize+10))
	assert.Equal(t, []int{0, maxPacketSize}, offsets)
}

func writePacket(seq byte, payload []byte) []byte {
	n := len(payload)
	head := []byte{byte(n), byte(n >> 8), byte(n >> 16), seq}
	return append(head, payload...)
}

func newFrameReader(data []byte) *frameReader {
	b := newBufio(&fakeConn{r: bytes.NewReader(data)}, 0, 0)
	return &frameReader{buf: &b}
}

func TestFrameReaderSingleFrameMessage(t *testing.T) {
	data := writePacket(0, []byte("hello"))
	r := newFrameReader(data)
	msg, err := r.readMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg.Payload))
	assert.Equal(t, byte(0), msg.FirstSeq)
	assert.Equal(t, byte(0), msg.LastSeq)
	assert.False(t, msg.SeqMismatch)
}

func TestFrameReaderEmptyMessage(t *testing.T) {
	data := writePacket(3, nil)
	r := newFrameReader(data)
	msg, err := r.readMessage()
	require.NoError(t, err)
	assert.Nil(t, msg.Payload)
	assert.Equal(t, byte(3), msg.FirstSeq)
}

func TestFrameReaderMultiFrameAssembly(t *testing.T) {
	first := make([]byte, maxPacketSize)
	for i := range first {
		first[i] = byte(i)
	}
	second := []byte("tail")

	var data []byte
	data = append(data, writePacket(0, first)...)
	data = append(data, writePacket(1, second)...)

	r := newFrameReader(data)
	msg, err := r.readMessage()
	require.NoError(t, err)
	assert.Equal(t, len(first)+len(second), len(msg.Payload))
	assert.Equal(t, first, msg.Payload[:len(first)])
	assert.Equal(t, second, msg.Payload[len(first):])
	assert.Equal(t, byte(0), msg.FirstSeq)
	assert.Equal(t, byte(1), msg.LastSeq)
}

func TestFrameReaderSequenceMismatch(t *testing.T) {
	var data []byte
	data = append(data, writePacket(0, make([]byte, maxPacketSize))...)
	data = append(data, writePacket(5, []byte("x"))...)

	r := newFrameReader(data)
	msg, err := r.readMessage()
	require.NoError(t, err)
	assert.True(t, msg.SeqMismatch)
}
