// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authfakes

import (
	"strings"
	"sync"
	"time"
)

// Metrics counts every measurement by name and labels.
type Metrics struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMetrics returns an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{counts: make(map[string]int)}
}

// Count returns how often name was recorded with labels.
func (m *Metrics) Count(name string, labels ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key(name, labels)]
}

func (m *Metrics) inc(name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key(name, labels)]++
}

func key(name string, labels []string) string {
	return name + "|" + strings.Join(labels, "|")
}

func (m *Metrics) RecordLogin(provider, outcome string) { m.inc("login", provider, outcome) }

func (m *Metrics) RecordExchangeLatency(provider string, _ time.Duration) {
	m.inc("exchange", provider)
}

func (m *Metrics) RecordValidation(source, outcome string) { m.inc("validation", source, outcome) }

func (m *Metrics) RecordCacheError(operation string) { m.inc("cache_error", operation) }

func (m *Metrics) RecordAuditWritten(outcome string) { m.inc("audit_written", outcome) }

func (m *Metrics) RecordAuditDropped() { m.inc("audit_dropped") }
