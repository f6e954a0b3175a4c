// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"context"
	"crypto/tls"
	"net"
	"runtime"
	"sync/atomic"
	"time"
)

// Config holds the parameters of one connection (spec §6 "Configuration").
// Loading configuration from files/flags/env is explicitly out of scope
// (spec §1 Non-goals); this struct and its functional-option constructor
// are the engine's entire configuration surface.
type Config struct {
	Addr             string
	User             string
	Password         string
	DBName           string
	Collation        string
	TLS              *tls.Config
	TLSMode          TLSMode
	MultiStatements  bool
	ConnectAttrs     map[string]string
	InitialBufSize   int
	MaxAllowedPacket int
	Loc              *time.Location
	Logger           Logger
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	MetadataMode     MetadataMode
}

// Option configures a Config at construction time.
type Option func(*Config)

func WithAuth(user, password, dbName string) Option {
	return func(c *Config) { c.User = user; c.Password = password; c.DBName = dbName }
}

func WithTLS(mode TLSMode, cfg *tls.Config) Option {
	return func(c *Config) { c.TLSMode = mode; c.TLS = cfg }
}

func WithMultiStatements(enabled bool) Option {
	return func(c *Config) { c.MultiStatements = enabled }
}

func WithConnectAttrs(attrs map[string]string) Option {
	return func(c *Config) { c.ConnectAttrs = attrs }
}

func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func WithMetadataMode(mode MetadataMode) Option {
	return func(c *Config) { c.MetadataMode = mode }
}

// NewConfig builds a Config for addr with sane defaults, applying opts in
// order.
func NewConfig(addr string, opts ...Option) *Config {
	c := &Config{
		Addr:             addr,
		Collation:        defaultCollation,
		InitialBufSize:   defaultInitialBufSize,
		MaxAllowedPacket: defaultMaxAllowedPacket,
		Loc:              time.UTC,
		Logger:           defaultLogger(),
		ConnectTimeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cancelRequest struct {
	ctx  context.Context
	done chan struct{}
}

// Conn is the L8 connection façade (spec §4.8): the unified per-connection
// API, serialized so that only one operation may be outstanding at a time.
type Conn struct {
	cfg *Config

	netConn net.Conn
	rawConn net.Conn // pre-TLS transport, retained across a TLS upgrade

	buf    bufio
	reader frameReader
	writer frameWriter

	caps             Capability
	connectionID     uint32
	connected        bool
	status           statusFlag
	charset          string
	charsetKnown     bool
	backslashEscapes bool
	authPluginName   string

	opInProgress atomic.Bool
	closed       atomic.Bool
	canceled     atomic.Value // holds error

	// stmtGeneration increments on every reset-connection (spec §4.5); a
	// stmt.go handle is stale once its cached generation no longer matches.
	stmtGeneration uint64

	chCtx   chan cancelRequest
	closech chan struct{}
}

// Dial connects to cfg.Addr and drives the handshake (spec §4.5) to
// completion, returning an authenticated Conn.
func Dial(ctx context.Context, cfg *Config) (*Conn, error) {
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, wrapErr(KindServerUnsupported, err, "dial failed")
	}

	c := &Conn{
		cfg:     cfg,
		netConn: nc,
		rawConn: nc,
		buf:     newBufio(nc, cfg.InitialBufSize, cfg.MaxAllowedPacket),
		closech: make(chan struct{}),
	}
	c.reader = frameReader{buf: &c.buf}
	c.startWatcher()

	done, err := c.watchCancel(ctx)
	if err != nil {
		nc.Close()
		return nil, err
	}
	defer close(done)

	if err := c.handshake(); err != nil {
		c.cleanup()
		return nil, err
	}
	c.connected = true
	return c, nil
}

// acquireOp enforces "at most one operation in flight" (spec §5/§8 property
// 7): it performs no I/O and fails immediately if a previous operation has
// not completed.
func (c *Conn) acquireOp() error {
	if c.closed.Load() {
		return wrapErr(KindOperationCancelled, ErrOperationCancelled, "connection is closed")
	}
	if !c.opInProgress.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	return nil
}

func (c *Conn) releaseOp() { c.opInProgress.Store(false) }

// readMessage reads one logical message and poisons the connection on any
// framing or I/O error (spec §7: "All framing, I/O, and protocol errors
// poison the connection").
func (c *Conn) readMessage() ([]byte, error) {
	msg, err := c.reader.readMessage()
	if err != nil {
		if cerr, _ := c.canceled.Load().(error); cerr != nil {
			return nil, cerr
		}
		c.cfg.Logger.Print(err)
		c.cleanup()
		return nil, wrapErr(KindIncompleteMessage, err, "read failed")
	}
	if msg.SeqMismatch {
		c.cleanup()
		return nil, ErrSequenceMismatch
	}
	return msg.Payload, nil
}

// writeMessage fragments and writes one logical message starting at
// sequence number seq (spec §4.2 "Writer contract").
func (c *Conn) writeMessage(seq byte, payload []byte) error {
	offsets := splitFrames(payload)
	for i, off := range offsets {
		end := len(payload)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		frame := payload[off:end]
		hdr := [4]byte{byte(len(frame)), byte(len(frame) >> 8), byte(len(frame) >> 16), seq}
		if err := c.writeRaw(hdr[:]); err != nil {
			return err
		}
		if len(frame) > 0 {
			if err := c.writeRaw(frame); err != nil {
				return err
			}
		}
		seq++
	}
	return nil
}

func (c *Conn) writeRaw(b []byte) error {
	if c.cfg.WriteTimeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	for len(b) > 0 {
		n, err := c.netConn.Write(b)
		if err != nil {
			if cerr, _ := c.canceled.Load().(error); cerr != nil {
				return cerr
			}
			c.cfg.Logger.Print(err)
			c.cleanup()
			return wrapErr(KindIncompleteMessage, err, "write failed")
		}
		b = b[n:]
	}
	return nil
}

// writeCommand starts a new command by resetting the sequence counter to 0
// (spec §3: "the first frame of the next message continues the counter
// unless the engine explicitly resets it").
func (c *Conn) writeCommand(cmd byte, payload []byte) error {
	c.reader.sequence = 0
	body := append([]byte{cmd}, payload...)
	return c.writeMessage(0, body)
}

func (c *Conn) cleanup() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.closech)
		c.netConn.Close()
	}
}

// Close performs the session engine's `close` algorithm (spec §4.5): quit,
// TLS shutdown if active, then transport close.
func (c *Conn) Close() error {
	if c.closed.Load() {
		return nil
	}
	if c.connected {
		_ = c.writeCommand(comQuit, nil)
	}
	if tlsConn, ok := c.netConn.(*tls.Conn); ok {
		_ = tlsConn.Close()
	}
	c.cleanup()
	return nil
}

func (c *Conn) isClosed() bool { return c.closed.Load() }

// ConnectionID returns the server-assigned connection id, present only
// between a successful handshake and close (spec §4.8).
func (c *Conn) ConnectionID() (uint32, bool) {
	if !c.connected {
		return 0, false
	}
	return c.connectionID, true
}

// CharacterSet returns the cached current character set, or
// ErrUnknownCharacterSet if it is not known (spec §4.8/§7).
func (c *Conn) CharacterSet() (string, error) {
	if !c.charsetKnown {
		return "", ErrUnknownCharacterSet
	}
	return c.charset, nil
}

func (c *Conn) BackslashEscapes() bool { return !c.status.has(statusNoBackslashEscapes) }

func (s statusFlag) has(f statusFlag) bool { return s&f != 0 }

// TLSActive reports whether the connection completed a TLS upgrade.
func (c *Conn) TLSActive() bool {
	_, ok := c.netConn.(*tls.Conn)
	return ok
}

// --- cancellation glue (L11 async runtime glue, spec §4.11) ---
//
// The engine itself runs synchronous, blocking I/O (readMessage/writeRaw
// above); cancellation is delivered out-of-band by a background watcher
// goroutine that races ctx.Done() against operation completion and tears
// down the transport on cancellation, exactly as the teacher's
// watchCancel/startWatcher pair does it (connection_go18.go). This is the
// chosen Go realization of spec §4.11's "cancellation delivers a logical
// signal between tokens."

func (c *Conn) watchCancel(ctx context.Context) (chan<- struct{}, error) {
	select {
	case <-ctx.Done():
		return nil, ErrOperationCancelled
	default:
	}
	if c.chCtx == nil {
		return make(chan struct{}), nil
	}

	done := make(chan struct{})
	req := cancelRequest{ctx: ctx, done: done}
	select {
	case c.chCtx <- req:
	default:
		return nil, ErrOperationCancelled
	}
	return done, nil
}

func (c *Conn) startWatcher() {
	chCtx := make(chan cancelRequest, runtime.GOMAXPROCS(0))
	c.chCtx = chCtx
	go func() {
		for req := range chCtx {
			select {
			case <-req.ctx.Done():
				c.canceled.Store(ErrOperationCancelled)
				c.cleanup()
			case <-req.done:
			case <-c.closech:
				return
			}
		}
	}()
}
