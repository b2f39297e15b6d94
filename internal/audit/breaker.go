// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package audit

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vitrine-hq/vitrine/internal/logging"
	"github.com/vitrine-hq/vitrine/internal/metrics"
)

// BreakerConfig configures the circuit breaker around a Sink.
type BreakerConfig struct {
	// Name identifies the breaker in logs.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing the sink
	// again.
	OpenTimeout time.Duration

	// MaxHalfOpenRequests is how many probe requests the half-open state
	// allows.
	MaxHalfOpenRequests uint32
}

// DefaultBreakerConfig returns production defaults: open after 5 consecutive
// failures, probe again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "audit-sink",
		FailureThreshold:    5,
		OpenTimeout:         30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// BreakerSink wraps a Sink with a circuit breaker. While the breaker is open,
// Save fails fast without touching the underlying store, so a dead sink does
// not cost a timeout per event on every flush tick. The queue treats the
// fast-fail like any other persistence error: requeue and retry next tick.
type BreakerSink struct {
	inner Sink
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerSink wraps sink with a circuit breaker.
func NewBreakerSink(sink Sink, cfg BreakerConfig) *BreakerSink {
	if cfg.Name == "" {
		cfg.Name = "audit-sink"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.MaxHalfOpenRequests == 0 {
		cfg.MaxHalfOpenRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.SinkBreakerState.Set(1)
			} else {
				metrics.SinkBreakerState.Set(0)
			}
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Audit sink circuit breaker state changed")
		},
	}

	return &BreakerSink{
		inner: sink,
		cb:    gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Save persists the event through the breaker.
func (s *BreakerSink) Save(ctx context.Context, event *Event) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.inner.Save(ctx, event)
	})
	return err
}

// State returns the breaker state as a string for monitoring.
func (s *BreakerSink) State() string {
	return s.cb.State().String()
}
