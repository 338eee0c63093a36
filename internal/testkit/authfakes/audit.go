// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authfakes

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/authcore/internal/audit"
)

// AuditSink collects written entries. Operation name for Fail: "write".
type AuditSink struct {
	failures

	mu      sync.Mutex
	entries []audit.Entry
	written chan struct{}
}

// NewAuditSink returns an empty sink.
func NewAuditSink() *AuditSink {
	return &AuditSink{written: make(chan struct{}, 1024)}
}

var _ audit.Sink = (*AuditSink)(nil)

func (sink *AuditSink) Write(_ context.Context, entry audit.Entry) error {
	if err := sink.err("write"); err != nil {
		return err
	}
	sink.mu.Lock()
	sink.entries = append(sink.entries, entry)
	sink.mu.Unlock()

	select {
	case sink.written <- struct{}{}:
	default:
	}
	return nil
}

// Entries returns a snapshot of written entries.
func (sink *AuditSink) Entries() []audit.Entry {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]audit.Entry(nil), sink.entries...)
}

// WaitFor blocks until at least n entries were written or timeout passes.
func (sink *AuditSink) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(sink.Entries()) >= n {
			return true
		}
		select {
		case <-sink.written:
		case <-deadline:
			return len(sink.Entries()) >= n
		}
	}
}

// PlainIP is an [audit.IPTransform] that prefixes instead of encrypting, so
// tests can read the stored value.
type PlainIP struct{}

func (PlainIP) Transform(ip string) (string, error) {
	return "enc:" + ip, nil
}

// Reveal undoes [PlainIP.Transform].
func Reveal(stored *string) string {
	if stored == nil {
		return ""
	}
	return strings.TrimPrefix(*stored, "enc:")
}
