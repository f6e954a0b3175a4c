// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysqlpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an optional Prometheus collector a Pool reports occupancy and
// timing to. A Pool with a nil Metrics simply skips every call below.
type Metrics struct {
	Registry *prometheus.Registry

	connectionsActive  prometheus.Gauge
	connectionsIdle    prometheus.Gauge
	connectionsWaiting prometheus.Gauge
	acquireDuration    prometheus.Histogram
	poolExhausted      prometheus.Counter
	reconnects         prometheus.Counter
	pingFailures       prometheus.Counter
}

// NewMetrics builds and registers the pool's gauges/counters/histogram
// against a fresh registry, named poolName (e.g. the target DSN or alias).
func NewMetrics(poolName string) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"pool": poolName}

	m := &Metrics{
		Registry: reg,
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mysqlx_pool_connections_active",
			Help:        "Connections currently checked out of the pool",
			ConstLabels: labels,
		}),
		connectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mysqlx_pool_connections_idle",
			Help:        "Connections currently idle in the pool",
			ConstLabels: labels,
		}),
		connectionsWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mysqlx_pool_acquire_waiters",
			Help:        "Goroutines currently waiting in Acquire",
			ConstLabels: labels,
		}),
		acquireDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "mysqlx_pool_acquire_duration_seconds",
			Help:        "Time spent in Pool.Acquire",
			Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 14),
			ConstLabels: labels,
		}),
		poolExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mysqlx_pool_exhausted_total",
			Help:        "Acquire calls that hit MaxSize and had to wait",
			ConstLabels: labels,
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mysqlx_pool_reconnects_total",
			Help:        "Slot reconnects triggered by a broken connection or failed reset/ping",
			ConstLabels: labels,
		}),
		pingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mysqlx_pool_ping_failures_total",
			Help:        "Health-check ping failures",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		m.connectionsActive,
		m.connectionsIdle,
		m.connectionsWaiting,
		m.acquireDuration,
		m.poolExhausted,
		m.reconnects,
		m.pingFailures,
	)
	return m
}

func (m *Metrics) observeAcquire(start time.Time, waited bool) {
	if m == nil {
		return
	}
	m.acquireDuration.Observe(time.Since(start).Seconds())
	if waited {
		m.poolExhausted.Inc()
	}
}

func (m *Metrics) setOccupancy(active, idle, waiting int) {
	if m == nil {
		return
	}
	m.connectionsActive.Set(float64(active))
	m.connectionsIdle.Set(float64(idle))
	m.connectionsWaiting.Set(float64(waiting))
}

func (m *Metrics) incReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) incPingFailure() {
	if m == nil {
		return
	}
	m.pingFailures.Inc()
}
