// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitrine-hq/vitrine/internal/logging"
	"github.com/vitrine-hq/vitrine/internal/metrics"
)

// RejectReason explains why Enqueue did not accept an event.
type RejectReason string

const (
	// ReasonDisabled means the queue is disabled or has been stopped.
	ReasonDisabled RejectReason = "disabled"

	// ReasonOverflow means the buffer was already at capacity.
	ReasonOverflow RejectReason = "overflow"
)

// EnqueueResult is the synchronous outcome of an Enqueue call.
type EnqueueResult struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
}

// QueueConfig holds audit queue configuration, resolved once at construction.
// Non-positive numeric values are clamped to a safe minimum rather than
// rejected: the queue favors availability over strict validation.
type QueueConfig struct {
	// Enabled controls whether the queue accepts events and runs its ticker.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// Capacity is the maximum number of buffered events before overflow
	// rejections begin. Minimum 1.
	Capacity int `json:"capacity" koanf:"capacity"`

	// FlushBatchSize is how many events one flush iteration drains from the
	// head of the buffer. Minimum 1.
	FlushBatchSize int `json:"flush_batch_size" koanf:"flush_batch_size"`

	// FlushInterval is the period between automatic flush attempts.
	// Minimum 1ms.
	FlushInterval time.Duration `json:"flush_interval" koanf:"flush_interval"`

	// SaveTimeout bounds a single persistence call so a stuck sink cannot
	// stall a flush pass forever. Defaults to 5s.
	SaveTimeout time.Duration `json:"save_timeout" koanf:"save_timeout"`
}

// DefaultQueueConfig returns production defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Enabled:        true,
		Capacity:       1000,
		FlushBatchSize: 50,
		FlushInterval:  5 * time.Second,
		SaveTimeout:    5 * time.Second,
	}
}

// normalize clamps invalid numeric settings to safe minimums.
func (c QueueConfig) normalize() QueueConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.FlushBatchSize < 1 {
		c.FlushBatchSize = 1
	}
	if c.FlushInterval < time.Millisecond {
		c.FlushInterval = time.Millisecond
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = 5 * time.Second
	}
	return c
}

// Stats is a read-only snapshot of queue state. Queued is the live buffer
// length; the other three are cumulative since construction.
type Stats struct {
	Queued  int    `json:"queued"`
	Dropped uint64 `json:"dropped"`
	Flushed uint64 `json:"flushed"`
	Failed  uint64 `json:"failed"`
}

// Queue is a bounded in-memory buffer of pending audit writes with a
// background flush loop. It exists so the request path never waits on, or
// sees errors from, audit persistence.
//
// Ordering is FIFO end to end: batches are drained from the head, persisted
// sequentially, and a failed batch's unconsumed suffix is requeued at the
// front, ahead of anything enqueued meanwhile. Only one flush pass runs at a
// time; concurrent FlushNow callers wait for the in-flight pass instead of
// starting their own.
type Queue struct {
	cfg  QueueConfig
	sink Sink
	log  zerolog.Logger

	mu      sync.Mutex
	events  []*Event
	stopped bool
	// inflight is non-nil while a flush pass is running and is closed when
	// the pass completes. It is the mutual-exclusion handle for FlushNow.
	inflight chan struct{}

	dropped uint64
	flushed uint64
	failed  uint64

	stopc chan struct{}
	wg    sync.WaitGroup
}

// NewQueue creates a queue writing to sink. When cfg.Enabled, the periodic
// flush loop starts immediately; the caller owns shutdown via Stop.
func NewQueue(sink Sink, cfg QueueConfig) *Queue {
	q := &Queue{
		cfg:   cfg.normalize(),
		sink:  sink,
		log:   logging.With().Str("component", "auditqueue").Logger(),
		stopc: make(chan struct{}),
	}

	if q.cfg.Enabled {
		q.wg.Add(1)
		go q.run()
	}

	return q
}

// Enqueue appends an event to the buffer. It never blocks and never panics:
// the result says whether the event was accepted and, if not, why. A rejected
// event has no side effect on the buffer.
func (q *Queue) Enqueue(event *Event) EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.cfg.Enabled || q.stopped {
		return EnqueueResult{Accepted: false, Reason: ReasonDisabled}
	}

	if len(q.events) >= q.cfg.Capacity {
		q.dropped++
		metrics.AuditEventsDropped.Inc()
		return EnqueueResult{Accepted: false, Reason: ReasonOverflow}
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	q.events = append(q.events, event)
	metrics.AuditQueueDepth.Set(float64(len(q.events)))
	return EnqueueResult{Accepted: true}
}

// FlushNow drains the buffer until it is empty or a persistence error aborts
// the pass. If another flush is already in flight, FlushNow waits for it to
// finish and returns without starting a second pass, so no event is ever
// processed twice. It never returns an error: failures are logged, counted,
// and retried on the next tick.
func (q *Queue) FlushNow(ctx context.Context) {
	q.mu.Lock()
	if q.inflight != nil {
		done := q.inflight
		q.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	q.inflight = done
	q.mu.Unlock()

	start := time.Now()
	q.drain(ctx)
	metrics.AuditFlushDuration.Observe(time.Since(start).Seconds())

	q.mu.Lock()
	q.inflight = nil
	q.mu.Unlock()
	close(done)
}

// drain runs flush iterations until the buffer is empty or a batch aborts.
func (q *Queue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.events) == 0 {
			q.mu.Unlock()
			return
		}

		// Remove the batch from the buffer before persisting it. In-flight
		// events are invisible to producers checking capacity, so Enqueue
		// keeps accepting while the batch is written out.
		n := q.cfg.FlushBatchSize
		if n > len(q.events) {
			n = len(q.events)
		}
		batch := make([]*Event, n)
		copy(batch, q.events)
		q.events = append(q.events[:0:0], q.events[n:]...)
		metrics.AuditQueueDepth.Set(float64(len(q.events)))
		q.mu.Unlock()

		// Persist sequentially; ordering matters for audit trails.
		for i, event := range batch {
			saveCtx, cancel := context.WithTimeout(ctx, q.cfg.SaveTimeout)
			saveStart := time.Now()
			err := q.sink.Save(saveCtx, event)
			metrics.SinkWriteDuration.Observe(time.Since(saveStart).Seconds())
			cancel()

			if err != nil {
				q.requeue(batch[i:], err)
				return
			}

			q.mu.Lock()
			q.flushed++
			q.mu.Unlock()
			metrics.AuditEventsFlushed.Inc()
		}
	}
}

// requeue pushes the failing event and the unattempted rest of its batch back
// onto the front of the buffer, in their original order, and aborts the pass.
// The buffer may transiently exceed capacity here; overflow is only enforced
// against producers.
func (q *Queue) requeue(rest []*Event, cause error) {
	q.mu.Lock()
	q.failed++
	restored := make([]*Event, 0, len(rest)+len(q.events))
	restored = append(restored, rest...)
	restored = append(restored, q.events...)
	q.events = restored
	pending := len(q.events)
	metrics.AuditQueueDepth.Set(float64(pending))
	q.mu.Unlock()

	metrics.AuditFlushFailures.Inc()
	q.log.Warn().
		Err(cause).
		Int("pending", pending).
		Msg("Audit flush aborted, events requeued for next tick")
}

// Stop halts the ticker and performs one final best-effort drain. It is
// idempotent: the first call does the work, later calls return immediately.
// After Stop, Enqueue rejects everything with reason "disabled" while
// FlushNow and GetStats remain callable.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	if q.cfg.Enabled {
		close(q.stopc)
		q.wg.Wait()
	}

	// Final drain is best effort: if the sink is down, whatever remains is
	// abandoned when the process exits.
	q.FlushNow(ctx)
}

// GetStats returns a snapshot of queue depth and cumulative counters.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Queued:  len(q.events),
		Dropped: q.dropped,
		Flushed: q.flushed,
		Failed:  q.failed,
	}
}

// run is the periodic flush loop. It owns the ticker; Stop terminates it
// deterministically before the final drain.
func (q *Queue) run() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopc:
			return
		case <-ticker.C:
			q.FlushNow(context.Background())
		}
	}
}
