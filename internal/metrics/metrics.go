// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

// Package metrics provides Prometheus instrumentation for Vitrine:
// audit queue behavior, API endpoint latency and throughput, and
// signage store operations. Metrics are exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audit queue metrics
	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Current number of audit events waiting in the write queue",
		},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Total number of audit events rejected because the queue was full",
		},
	)

	AuditEventsFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_flushed_total",
			Help: "Total number of audit events successfully persisted",
		},
	)

	AuditFlushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_flush_failures_total",
			Help: "Total number of flush passes aborted by a persistence error",
		},
	)

	AuditFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_flush_duration_seconds",
			Help:    "Duration of audit queue flush passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Signage store metrics
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signage_store_operations_total",
			Help: "Total number of signage store operations",
		},
		[]string{"operation", "kind"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signage_store_errors_total",
			Help: "Total number of signage store errors",
		},
		[]string{"operation", "kind"},
	)

	// Audit sink metrics
	SinkWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_sink_write_duration_seconds",
			Help:    "Duration of single audit event persistence calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SinkBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_sink_breaker_open",
			Help: "1 when the audit sink circuit breaker is open, 0 otherwise",
		},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStoreOperation records a signage store operation and its outcome.
func RecordStoreOperation(operation, kind string, err error) {
	StoreOperations.WithLabelValues(operation, kind).Inc()
	if err != nil {
		StoreErrors.WithLabelValues(operation, kind).Inc()
	}
}
