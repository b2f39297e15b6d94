// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

// Package middleware provides chi-compatible HTTP middleware: request ID
// propagation, Prometheus instrumentation, and the audit recorder that feeds
// mutating requests into the asynchronous audit queue.
//
// Middleware order matters. RequestID must run before AuditRecorder so that
// recorded events carry the request ID, and Metrics should wrap everything it
// is meant to measure:
//
//	r.Use(middleware.RequestID)
//	r.Use(middleware.Metrics)
//	r.Use(middleware.AuditRecorder(queue))
package middleware
