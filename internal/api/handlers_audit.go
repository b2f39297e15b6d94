// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vitrine-hq/vitrine/internal/audit"
	"github.com/vitrine-hq/vitrine/internal/logging"
)

// AuditHandlers exposes the persisted audit trail and the live write queue to
// administrators.
type AuditHandlers struct {
	store audit.Store
	queue *audit.Queue
}

// NewAuditHandlers creates the audit handler set.
func NewAuditHandlers(store audit.Store, queue *audit.Queue) *AuditHandlers {
	return &AuditHandlers{store: store, queue: queue}
}

// ListEvents handles GET /api/v1/audit/events with filtering and pagination.
func (h *AuditHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := parseQueryFilter(r)

	events, err := h.store.Query(ctx, filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to query audit events", nil)
		return
	}

	total, err := h.store.Count(ctx, filter)
	if err != nil {
		logging.Warn().Err(err).Msg("Audit count query failed")
		total = int64(len(events))
	}

	respondPage(w, r, events, &PaginationMeta{
		Total:  total,
		Count:  len(events),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// parseQueryFilter builds an audit filter from URL query parameters.
func parseQueryFilter(r *http.Request) audit.QueryFilter {
	filter := audit.DefaultQueryFilter()
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	filter.Action = q.Get("action")
	filter.ActorID = q.Get("actor_id")
	filter.ActorType = q.Get("actor_type")
	filter.ResourceID = q.Get("resource_id")
	filter.ResourceType = q.Get("resource_type")
	filter.RequestID = q.Get("request_id")
	filter.SourceIP = q.Get("source_ip")

	if v := q.Get("start_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartTime = &t
		}
	}
	if v := q.Get("end_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndTime = &t
		}
	}

	return filter
}

// QueueStatsResponse is the GET /api/v1/audit/queue payload.
type QueueStatsResponse struct {
	Queue     audit.Stats `json:"queue"`
	Persisted int64       `json:"persisted"`
}

// GetQueueStats handles GET /api/v1/audit/queue: live queue counters plus the
// total persisted event count.
func (h *AuditHandlers) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	persisted, err := h.store.Count(r.Context(), audit.QueryFilter{})
	if err != nil {
		logging.Warn().Err(err).Msg("Audit count query failed")
	}

	respondData(w, r, http.StatusOK, QueueStatsResponse{
		Queue:     h.queue.GetStats(),
		Persisted: persisted,
	})
}

// FlushQueue handles POST /api/v1/audit/queue/flush: force a drain of the
// buffer right now instead of waiting for the ticker. The response carries
// the stats after the pass so the caller can see what remains.
func (h *AuditHandlers) FlushQueue(w http.ResponseWriter, r *http.Request) {
	h.queue.FlushNow(r.Context())
	respondData(w, r, http.StatusOK, h.queue.GetStats())
}
