// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes the engine's row/rejection/account counters as
// Prometheus metrics, registered on a private registry rather than the
// process-global one so multiple Collectors can coexist within a test
// binary.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxfi/payments-engine/internal/engine"
	"github.com/luxfi/payments-engine/internal/types"
)

// Collector implements engine.Metrics and also answers an http.Handler
// for /metrics scraping.
type Collector struct {
	registry *prometheus.Registry

	processed *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	locked    prometheus.Gauge
	accounts  prometheus.Gauge
}

// NewCollector builds and registers a fresh set of metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_rows_processed_total",
			Help: "Rows successfully applied, by kind.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_rows_rejected_total",
			Help: "Rows rejected, by kind and reason.",
		}, []string{"kind", "reason"}),
		locked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "payments_accounts_locked",
			Help: "Number of locked accounts as of the last snapshot.",
		}),
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "payments_accounts_total",
			Help: "Total number of accounts created as of the last snapshot.",
		}),
	}

	reg.MustRegister(c.processed, c.rejected, c.locked, c.accounts)
	return c
}

// IncProcessed implements engine.Metrics.
func (c *Collector) IncProcessed(kind types.Kind) {
	c.processed.WithLabelValues(kind.String()).Inc()
}

// IncRejected implements engine.Metrics.
func (c *Collector) IncRejected(kind types.Kind, reason engine.Reason) {
	c.rejected.WithLabelValues(kind.String(), string(reason)).Inc()
}

// SetAccountCounts records the final locked/total account counts after a
// run completes, for the final /metrics scrape.
func (c *Collector) SetAccountCounts(total, locked int) {
	c.accounts.Set(float64(total))
	c.locked.Set(float64(locked))
}

// Handler returns an http.Handler serving this Collector's metrics in
// the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
