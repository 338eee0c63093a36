// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics exposes Prometheus counters for the credential lifecycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validation sources and outcomes used as label values.
const (
	SourceCache   = "cache"
	SourceStorage = "storage"

	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder is the metrics contract used by services and workers.
type Recorder interface {
	RecordLogin(provider, outcome string)
	RecordExchangeLatency(provider string, duration time.Duration)
	RecordValidation(source, outcome string)
	RecordCacheError(operation string)
	RecordAuditWritten(outcome string)
	RecordAuditDropped()
}

// Collector is the Prometheus implementation of [Recorder].
type Collector struct {
	logins          *prometheus.CounterVec
	exchangeLatency *prometheus.HistogramVec
	validations     *prometheus.CounterVec
	cacheErrors     *prometheus.CounterVec
	auditWritten    *prometheus.CounterVec
	auditDropped    prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "OAuth login attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		exchangeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authcore_oauth_exchange_seconds",
			Help:    "Latency of the provider code exchange.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_session_validations_total",
			Help: "Session validations by answering source and verdict.",
		}, []string{"source", "outcome"}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_session_cache_errors_total",
			Help: "Validation cache failures swallowed by the session store.",
		}, []string{"operation"}),
		auditWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_audit_events_total",
			Help: "Audit events handed to the sink by outcome.",
		}, []string{"outcome"}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full.",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.exchangeLatency,
		c.validations,
		c.cacheErrors,
		c.auditWritten,
		c.auditDropped,
	)

	return c
}

func (c *Collector) RecordLogin(provider, outcome string) {
	c.logins.WithLabelValues(provider, outcome).Inc()
}

func (c *Collector) RecordExchangeLatency(provider string, duration time.Duration) {
	c.exchangeLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

func (c *Collector) RecordValidation(source, outcome string) {
	c.validations.WithLabelValues(source, outcome).Inc()
}

func (c *Collector) RecordCacheError(operation string) {
	c.cacheErrors.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordAuditWritten(outcome string) {
	c.auditWritten.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordAuditDropped() {
	c.auditDropped.Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement. It is the default for tests and tools.
type Nop struct{}

func (Nop) RecordLogin(string, string) {}
func (Nop) RecordExchangeLatency(string, time.Duration) {}
func (Nop) RecordValidation(string, string) {}
func (Nop) RecordCacheError(string) {}
func (Nop) RecordAuditWritten(string) {}
func (Nop) RecordAuditDropped() {}
