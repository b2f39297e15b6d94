// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vitrine-hq/vitrine/internal/audit"
)

func testActor(_ context.Context) audit.Actor {
	return audit.Actor{ID: "u1", Type: "user", Name: "ops"}
}

// newRecorderQueue returns a queue whose ticker never fires during the test,
// backed by an in-memory store for inspection.
func newRecorderQueue(t *testing.T) (*audit.Queue, *audit.MemoryStore) {
	t.Helper()
	store := audit.NewMemoryStore(100)
	q := audit.NewQueue(store, audit.QueueConfig{
		Enabled:        true,
		Capacity:       100,
		FlushBatchSize: 10,
		FlushInterval:  time.Hour,
	})
	t.Cleanup(func() { q.Stop(context.Background()) })
	return q, store
}

func TestAuditRecorder_RecordsMutatingRequest(t *testing.T) {
	q, store := newRecorderQueue(t)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AuditRecorder(q, testActor))
	r.Delete("/api/v1/playlists/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/playlists/p1", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "vitrine-cli/1.0")
	r.ServeHTTP(httptest.NewRecorder(), req)

	q.FlushNow(context.Background())

	events := store.Events()
	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	e := events[0]
	if e.Action != "playlist.delete" {
		t.Errorf("action = %q, want playlist.delete", e.Action)
	}
	if e.StatusCode != http.StatusNoContent {
		t.Errorf("status_code = %d, want 204", e.StatusCode)
	}
	if e.Actor.ID != "u1" {
		t.Errorf("actor.id = %q, want u1", e.Actor.ID)
	}
	if e.Resource == nil || e.Resource.ID != "p1" || e.Resource.Type != "playlist" {
		t.Errorf("resource = %+v, want playlist p1", e.Resource)
	}
	if e.Source.IPAddress != "203.0.113.9" {
		t.Errorf("ip = %q, want first X-Forwarded-For entry", e.Source.IPAddress)
	}
	if e.Route != "/api/v1/playlists/{id}" {
		t.Errorf("route = %q", e.Route)
	}
	if e.Path != "/api/v1/playlists/p1" {
		t.Errorf("path = %q", e.Path)
	}
	if e.RequestID == "" {
		t.Error("request ID missing from event")
	}
}

func TestAuditRecorder_SkipsReads(t *testing.T) {
	q, store := newRecorderQueue(t)

	r := chi.NewRouter()
	r.Use(AuditRecorder(q, testActor))
	r.Get("/api/v1/playlists", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/playlists", nil))

	q.FlushNow(context.Background())
	if n := store.Len(); n != 0 {
		t.Errorf("GET produced %d audit events, want 0", n)
	}
}

func TestAuditRecorder_RejectionDoesNotFailRequest(t *testing.T) {
	// Disabled queue rejects every enqueue; the request must still succeed.
	q := audit.NewQueue(audit.NewMemoryStore(10), audit.QueueConfig{Enabled: false})

	r := chi.NewRouter()
	r.Use(AuditRecorder(q, testActor))
	r.Post("/api/v1/devices", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/devices", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201 despite audit rejection", rec.Code)
	}
}

func TestDeriveAction(t *testing.T) {
	tests := []struct {
		method string
		route  string
		want   string
	}{
		{http.MethodPost, "/api/v1/content", "content.create"},
		{http.MethodPut, "/api/v1/content/{id}", "content.update"},
		{http.MethodDelete, "/api/v1/schedules/{id}", "schedule.delete"},
		{http.MethodPost, "/api/v1/devices", audit.ActionDeviceRegister},
		{http.MethodPatch, "/api/v1/devices/{id}", "device.update"},
		{http.MethodPost, "/api/v1/unknown", "post /api/v1/unknown"},
	}

	for _, tt := range tests {
		if got := deriveAction(tt.method, tt.route); got != tt.want {
			t.Errorf("deriveAction(%s, %s) = %q, want %q", tt.method, tt.route, got, tt.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	if got := clientIP(req); got != "192.0.2.7" {
		t.Errorf("clientIP = %q, want 192.0.2.7", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	if got := clientIP(req); got != "198.51.100.4" {
		t.Errorf("clientIP = %q, want forwarded address", got)
	}
}
