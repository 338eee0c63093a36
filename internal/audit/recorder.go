// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/authcore/internal/platform/metrics"
	"github.com/taibuivan/authcore/pkg/pointer"
	"github.com/taibuivan/authcore/pkg/uuid"
)

// Worker defaults.
const (
	DefaultBufferSize   = 1024
	DefaultWriteTimeout = 2 * time.Second
	DefaultDrainTimeout = 5 * time.Second
)

// RecorderConfig tunes a [Recorder]. Zero fields take the defaults.
type RecorderConfig struct {
	BufferSize   int
	WriteTimeout time.Duration
	DrainTimeout time.Duration
	Clock        func() time.Time
}

// Recorder queues events for a single background writer.
type Recorder struct {
	events    chan Event
	sink      Sink
	transform IPTransform
	config    RecorderConfig
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewRecorder creates a Recorder. Start it with [Recorder.Run].
func NewRecorder(sink Sink, transform IPTransform, config RecorderConfig, recorder metrics.Recorder, logger *slog.Logger) *Recorder {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Recorder{
		events:    make(chan Event, config.BufferSize),
		sink:      sink,
		transform: transform,
		config:    config,
		metrics:   recorder,
		logger:    logger,
	}
}

// Record queues event and returns immediately. When the queue is full the
// event is dropped and counted.
func (recorder *Recorder) Record(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = recorder.config.Clock()
	}

	select {
	case recorder.events <- event:
	default:
		recorder.metrics.RecordAuditDropped()
		recorder.logger.Warn("audit_event_dropped",
			slog.String("action", string(event.Action)),
			slog.String("result", string(event.Result)),
		)
	}
}

// Pending returns the number of queued events.
func (recorder *Recorder) Pending() int {
	return len(recorder.events)
}

/*
Run writes queued events until ctx is cancelled, then drains what is already
queued within the drain timeout.

It must be started exactly once, usually in its own goroutine.
*/
func (recorder *Recorder) Run(ctx context.Context) {
	for {
		select {
		case event := <-recorder.events:
			recorder.write(ctx, event)
		case <-ctx.Done():
			recorder.drain(ctx)
			return
		}
	}
}

func (recorder *Recorder) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recorder.config.DrainTimeout)
	defer cancel()

	for {
		select {
		case event := <-recorder.events:
			recorder.write(drainCtx, event)
		default:
			return
		}

		if drainCtx.Err() != nil {
			recorder.logger.Warn("audit_drain_incomplete", slog.Int("remaining", len(recorder.events)))
			return
		}
	}
}

func (recorder *Recorder) write(ctx context.Context, event Event) {
	entry := Entry{
		ID:           uuid.New(),
		ActorID:      event.ActorID,
		Action:       event.Action,
		Result:       event.Result,
		ErrorMessage: pointer.NonEmpty(event.Error),
		CreatedAt:    event.OccurredAt,
	}

	// The cleartext IP is never written; an encryption failure stores none.
	if event.IP != "" {
		encrypted, err := recorder.transform.Transform(event.IP)
		if err != nil {
			recorder.logger.Error("audit_ip_transform_failed", slog.Any("error", err))
		} else {
			entry.IPAddress = pointer.To(encrypted)
		}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recorder.config.WriteTimeout)
	defer cancel()

	if err := recorder.sink.Write(writeCtx, entry); err != nil {
		recorder.metrics.RecordAuditWritten(metrics.OutcomeFailure)
		recorder.logger.Error("audit_write_failed",
			slog.String("action", string(entry.Action)),
			slog.Any("error", err),
		)
		return
	}

	recorder.metrics.RecordAuditWritten(metrics.OutcomeSuccess)
}
