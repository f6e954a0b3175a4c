// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mysqlpool implements L9, the connection pool (spec §4.9): a
// bounded set of mysql.Conn instances multiplexed across concurrent
// consumers, with health checks, idle recycling, and FIFO acquisition.
package mysqlpool

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	mysql "github.com/go-mysqlx/mysqlx"
)

// Config holds the pool-wide options of spec §4.9. ThreadSafety is stored
// but not read: this Go realization always serializes slot-table access
// behind one mutex (the "strand"), and Acquire behaves the same in both
// modes.
type Config struct {
	DialConfig       *mysql.Config
	InitialSize      int
	MaxSize          int
	ConnectTimeout   time.Duration
	PingInterval     time.Duration
	IdleTimeout      time.Duration
	ResetAfterReturn bool
	RetryInterval    time.Duration
	ThreadSafety     ThreadSafetyMode
	Metrics          *Metrics
}

// ThreadSafetyMode names the pool's concurrency discipline (spec §4.9); the
// pool does not change its behavior based on it.
type ThreadSafetyMode int

const (
	Parallel ThreadSafetyMode = iota
	SingleThreaded
)

func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	return &cfg
}

// slotState is the lifecycle of spec §4.9's slot-state diagram.
type slotState int

const (
	slotInitial slotState = iota
	slotConnectInProgress
	slotIdle
	slotInUse
	slotResetInProgress
	slotTerminated
)

type slot struct {
	conn      *mysql.Conn
	state     slotState
	lastErr   error
	idleSince time.Time
	elem      *list.Element // position in pool.idle, nil when not idle
}

// Pool is the L9 connection pool. All slot-table and wait-queue mutations
// happen under mu, the "strand" of spec §4.9.
type Pool struct {
	cfg *Config

	mu      sync.Mutex
	slots   []*slot
	idle    *list.List // of *slot, front = longest-idle
	waiters *list.List // of *waiter, FIFO
	closed  bool
	lastErr error

	closeCh chan struct{}
}

type waiter struct {
	ready chan *slot
}

// New constructs a pool and starts its background warm-up and health-check
// goroutines (spec §4.9). It does not block for the initial connections.
func New(cfg *Config) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:     cfg,
		idle:    list.New(),
		waiters: list.New(),
		closeCh: make(chan struct{}),
	}

	for i := 0; i < cfg.InitialSize; i++ {
		go p.spawnSlot()
	}
	return p
}

func (p *Pool) spawnSlot() {
	s := &slot{state: slotConnectInProgress}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.slots = append(p.slots, s)
	p.mu.Unlock()

	p.connectSlot(s)
}

func (p *Pool) connectSlot(s *slot) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ConnectTimeout)
	defer cancel()
	conn, err := mysql.Dial(ctx, p.cfg.DialConfig)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		if conn != nil {
			go conn.Close()
		}
		return
	}
	if err != nil {
		s.state = slotTerminated
		s.lastErr = err
		p.lastErr = err
		p.removeSlotLocked(s)
		return
	}

	s.conn = conn
	s.lastErr = nil
	p.markIdleLocked(s)
	go p.healthLoop(s)
}

func (p *Pool) removeSlotLocked(s *slot) {
	for i, cur := range p.slots {
		if cur == s {
			p.slots = append(p.slots[:i], p.slots[i+1:]...)
			return
		}
	}
}

func (p *Pool) markIdleLocked(s *slot) {
	s.state = slotIdle
	s.idleSince = time.Now()
	s.elem = p.idle.PushBack(s)
	p.handOffLocked()
	p.reportOccupancyLocked()
}

// handOffLocked pairs the front waiter (if any) with an idle slot, FIFO
// (spec §4.9 "Acquisitions are FIFO").
func (p *Pool) handOffLocked() {
	for p.idle.Len() > 0 && p.waiters.Len() > 0 {
		se := p.idle.Front()
		s := se.Value.(*slot)
		we := p.waiters.Front()
		w := we.Value.(*waiter)

		p.idle.Remove(se)
		p.waiters.Remove(we)
		s.elem = nil
		s.state = slotInUse
		w.ready <- s
	}
}

// Acquire waits for an idle slot, creating a new connection if the pool is
// under MaxSize, per spec §4.9 "Acquire". On timeout it returns
// ErrNoConnectionAvailable wrapping the latest slot error, if any.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	start := time.Now()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, mysql.ErrPoolCancelled
	}

	if p.idle.Len() > 0 {
		se := p.idle.Front()
		s := se.Value.(*slot)
		p.idle.Remove(se)
		s.elem = nil
		s.state = slotInUse
		p.reportOccupancyLocked()
		p.mu.Unlock()
		p.cfg.Metrics.observeAcquire(start, false)
		return &Handle{pool: p, slot: s}, nil
	}

	if len(p.slots) < p.cfg.MaxSize {
		s := &slot{state: slotConnectInProgress}
		p.slots = append(p.slots, s)
		p.mu.Unlock()
		p.connectSlot(s)

		p.mu.Lock()
		if s.state == slotTerminated {
			err := s.lastErr
			p.mu.Unlock()
			p.cfg.Metrics.observeAcquire(start, false)
			return nil, wrapNoConnection(err)
		}
		if s.state == slotIdle {
			p.idle.Remove(s.elem)
			s.elem = nil
			s.state = slotInUse
			p.reportOccupancyLocked()
			p.mu.Unlock()
			p.cfg.Metrics.observeAcquire(start, false)
			return &Handle{pool: p, slot: s}, nil
		}
		p.mu.Unlock()
	} else {
		p.mu.Unlock()
	}

	w := &waiter{ready: make(chan *slot, 1)}
	p.mu.Lock()
	p.waiters.PushBack(w)
	elem := p.waiters.Back()
	p.reportOccupancyLocked()
	p.mu.Unlock()

	select {
	case s, ok := <-w.ready:
		p.cfg.Metrics.observeAcquire(start, true)
		if !ok || s == nil {
			return nil, mysql.ErrPoolCancelled
		}
		return &Handle{pool: p, slot: s}, nil
	case <-ctx.Done():
		p.mu.Lock()
		p.waiters.Remove(elem)
		lastErr := p.lastErr
		p.reportOccupancyLocked()
		p.mu.Unlock()
		select {
		case s, ok := <-w.ready:
			// Won the race against removal; honor the handoff anyway.
			p.cfg.Metrics.observeAcquire(start, true)
			if !ok || s == nil {
				return nil, mysql.ErrPoolCancelled
			}
			return &Handle{pool: p, slot: s}, nil
		default:
		}
		p.cfg.Metrics.observeAcquire(start, true)
		return nil, wrapNoConnection(lastErr)
	}
}

// reportOccupancyLocked pushes current slot counts to Metrics; callers must
// hold p.mu.
func (p *Pool) reportOccupancyLocked() {
	p.cfg.Metrics.setOccupancy(len(p.slots)-p.idle.Len(), p.idle.Len(), p.waiters.Len())
}

// wrapNoConnection attaches the latest slot error to
// ErrNoConnectionAvailable, per spec §4.9 "Acquire" ("along with the
// latest slot error if any, to aid debugging"). errors.Is against
// mysql.ErrNoConnectionAvailable still matches through the %w chain.
func wrapNoConnection(cause error) error {
	if cause == nil {
		return mysql.ErrNoConnectionAvailable
	}
	return fmt.Errorf("%w (last slot error: %v)", mysql.ErrNoConnectionAvailable, cause)
}

// Handle is the PoolHandle of spec §9 Design Notes ("Pooled connection as
// scoped resource"): Release returns the slot. Go has no
// destructors, so callers must defer h.Release() explicitly; there is no
// way to enforce the contract statically.
type Handle struct {
	pool      *Pool
	slot      *slot
	skipReset bool
	broken    bool
	released  bool
}

// Conn exposes the underlying connection for the duration of the handle.
func (h *Handle) Conn() *mysql.Conn { return h.slot.conn }

// MarkHealthy flags the connection as healthy with unchanged session state,
// skipping reset-connection on release (spec §4.9 "Release").
func (h *Handle) MarkHealthy() { h.skipReset = true }

// MarkBroken flags the connection as fatally broken; release will
// reconnect the slot instead of resetting it.
func (h *Handle) MarkBroken() { h.broken = true }

// Release returns the slot to the pool, applying the reset policy of spec
// §4.9 "Release". Safe to call more than once; only the first call acts.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.pool.release(h.slot, h.skipReset, h.broken)
}

func (p *Pool) release(s *slot, skipReset, broken bool) {
	if broken {
		p.mu.Lock()
		s.state = slotConnectInProgress
		p.mu.Unlock()
		go p.reconnectSlot(s)
		return
	}

	resetNeeded := p.cfg.ResetAfterReturn && !skipReset
	if !resetNeeded {
		p.mu.Lock()
		p.markIdleLocked(s)
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	s.state = slotResetInProgress
	p.mu.Unlock()

	if err := s.conn.ResetConnection(); err != nil {
		p.mu.Lock()
		s.state = slotConnectInProgress
		p.mu.Unlock()
		go p.reconnectSlot(s)
		return
	}

	p.mu.Lock()
	p.markIdleLocked(s)
	p.mu.Unlock()
}

func (p *Pool) reconnectSlot(s *slot) {
	p.cfg.Metrics.incReconnect()
	old := s.conn
	if old != nil {
		go old.Close()
	}
	p.connectSlot(s)
}

// healthLoop implements spec §4.9 "Health": ping idle slots every
// PingInterval, reconnecting on failure; recycle slots idle past
// IdleTimeout.
func (p *Pool) healthLoop(s *slot) {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.closeCh:
			return
		case <-ticker.C:
			p.mu.Lock()
			if s.state != slotIdle {
				p.mu.Unlock()
				continue
			}
			if time.Since(s.idleSince) > p.cfg.IdleTimeout {
				p.idle.Remove(s.elem)
				s.elem = nil
				s.state = slotConnectInProgress
				p.mu.Unlock()
				go p.reconnectSlot(s)
				continue
			}
			conn := s.conn
			p.mu.Unlock()

			if err := conn.Ping(); err != nil {
				p.cfg.Metrics.incPingFailure()
				p.mu.Lock()
				if s.elem != nil {
					p.idle.Remove(s.elem)
					s.elem = nil
				}
				s.state = slotConnectInProgress
				p.mu.Unlock()
				go p.reconnectSlot(s)
			}
		}
	}
}

// Stats reports a snapshot of pool occupancy (spec §9 supplement: pool
// statistics surface, grounded on the pack's pool implementations).
type Stats struct {
	Total   int
	Idle    int
	InUse   int
	Waiting int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Total:   len(p.slots),
		Idle:    p.idle.Len(),
		InUse:   len(p.slots) - p.idle.Len(),
		Waiting: p.waiters.Len(),
	}
}

// Close shuts the pool down: closes every connection and wakes every
// waiter with ErrPoolCancelled (spec §4.9 edge case: pool shutdown).
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.closeCh)

	for e := p.waiters.Front(); e != nil; e = e.Next() {
		close(e.Value.(*waiter).ready)
	}
	p.waiters.Init()

	conns := make([]*mysql.Conn, 0, len(p.slots))
	for _, s := range p.slots {
		if s.conn != nil {
			conns = append(conns, s.conn)
		}
	}
	p.slots = nil
	p.idle.Init()
	p.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return nil
}
