// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package api

import (
	"net/http"
	"time"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var startTime = time.Now()

// HealthResponse is the GET /api/v1/health payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Health handles GET /api/v1/health. It is intentionally dependency-free so
// a wedged store never fails the liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	})
}
