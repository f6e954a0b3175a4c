// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysqlpool

import (
	"context"
	"testing"
	"time"

	mysql "github.com/go-mysqlx/mysqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := (&Config{}).withDefaults()
	assert.Equal(t, 10, cfg.MaxSize)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, time.Second, cfg.RetryInterval)
}

func TestConfigWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := (&Config{
		MaxSize:        3,
		ConnectTimeout: time.Millisecond,
		PingInterval:   time.Millisecond,
		IdleTimeout:    time.Millisecond,
		RetryInterval:  time.Millisecond,
	}).withDefaults()
	assert.Equal(t, 3, cfg.MaxSize)
	assert.Equal(t, time.Millisecond, cfg.ConnectTimeout)
}

// newEmptyPool builds a Pool with InitialSize 0, so no background connect
// goroutine ever runs and the slot table stays empty without a live server.
func newEmptyPool() *Pool {
	return New(&Config{})
}

func TestStatsOnEmptyPool(t *testing.T) {
	p := newEmptyPool()
	defer p.Close()
	stats := p.Stats()
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.Idle)
	assert.Equal(t, 0, stats.InUse)
	assert.Equal(t, 0, stats.Waiting)
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	p := newEmptyPool()
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}

func TestAcquireAfterCloseReturnsPoolCancelled(t *testing.T) {
	p := newEmptyPool()
	require.NoError(t, p.Close())

	_, err := p.Acquire(context.Background())
	require.ErrorIs(t, err, mysql.ErrPoolCancelled)
}

// TestCloseWakesParkedWaiterWithPoolCancelled covers the case where a
// goroutine is already blocked in Acquire's waiter queue when Close runs:
// it must observe ErrPoolCancelled, never a Handle wrapping a nil slot.
func TestCloseWakesParkedWaiterWithPoolCancelled(t *testing.T) {
	p := New(&Config{MaxSize: 1})

	// Occupy the pool's only slot without dialing, forcing the next
	// Acquire to queue as a waiter instead of growing or finding one idle.
	p.mu.Lock()
	p.slots = append(p.slots, &slot{state: slotInUse})
	p.mu.Unlock()

	result := make(chan error, 1)
	go func() {
		h, err := p.Acquire(context.Background())
		if h != nil {
			result <- nil
			return
		}
		result <- err
	}()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.waiters.Len() == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Close())

	select {
	case err := <-result:
		require.ErrorIs(t, err, mysql.ErrPoolCancelled)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Close")
	}
}

func TestWrapNoConnectionWithoutCause(t *testing.T) {
	err := wrapNoConnection(nil)
	assert.Equal(t, mysql.ErrNoConnectionAvailable, err)
}

func TestWrapNoConnectionWithCauseWrapsSentinel(t *testing.T) {
	cause := assert.AnError
	err := wrapNoConnection(cause)
	assert.ErrorIs(t, err, mysql.ErrNoConnectionAvailable)
	assert.Contains(t, err.Error(), cause.Error())
}
