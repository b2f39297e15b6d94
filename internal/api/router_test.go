// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vitrine-hq/vitrine/internal/audit"
	"github.com/vitrine-hq/vitrine/internal/auth"
	"github.com/vitrine-hq/vitrine/internal/config"
	"github.com/vitrine-hq/vitrine/internal/signage"
)

type testEnv struct {
	router     http.Handler
	signage    *signage.Store
	auditStore *audit.MemoryStore
	queue      *audit.Queue
	token      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.DefaultTestConfig()
	store, err := signage.OpenInMemory()
	if err != nil {
		t.Fatalf("open signage store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	auditStore := audit.NewMemoryStore(1000)
	queue := audit.NewQueue(auditStore, audit.QueueConfig{
		Enabled:        true,
		Capacity:       100,
		FlushBatchSize: 10,
		FlushInterval:  time.Hour,
	})
	t.Cleanup(func() { queue.Stop(context.Background()) })

	jwt, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("new jwt manager: %v", err)
	}
	token, err := jwt.GenerateToken("admin", []string{auth.RoleAdmin})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	return &testEnv{
		router: NewRouter(RouterDeps{
			Config:     cfg,
			Signage:    store,
			AuditStore: auditStore,
			AuditQueue: queue,
			JWT:        jwt,
		}),
		signage:    store,
		auditStore: auditStore,
		queue:      queue,
		token:      token,
	}
}

// do performs an authenticated request against the test router.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the envelope's data field into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("response not successful: %s", rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health HealthResponse
	decodeData(t, rec, &health)
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
}

func TestCRUDRequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", rec.Code)
	}
}

func TestContentLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/content/", ContentRequest{
		Name:     "welcome.mp4",
		MIMEType: "video/mp4",
		URI:      "media/welcome.mp4",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", rec.Code, rec.Body.String())
	}
	var created signage.ContentItem
	decodeData(t, rec, &created)
	if created.ID == "" {
		t.Fatal("created content has no ID")
	}

	rec = e.do(t, http.MethodGet, "/api/v1/content/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodPut, "/api/v1/content/"+created.ID, ContentRequest{
		Name:     "welcome-v2.mp4",
		MIMEType: "video/mp4",
		URI:      "media/welcome-v2.mp4",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated signage.ContentItem
	decodeData(t, rec, &updated)
	if updated.Name != "welcome-v2.mp4" {
		t.Errorf("updated name = %q", updated.Name)
	}

	rec = e.do(t, http.MethodDelete, "/api/v1/content/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/v1/content/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestValidationFailure(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/content/", ContentRequest{
		Name: "missing-fields",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool      `json:"success"`
		Error   *APIError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want %s", envelope.Error, ErrCodeValidationFailed)
	}
}

func TestScheduleWindowValidation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/schedules/", ScheduleRequest{
		Name:       "broken",
		PlaylistID: "p1",
		Start:      "25:00",
		End:        "17:00",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid window: status = %d, want 400", rec.Code)
	}
}

func TestManifestEndpoint_NoToken(t *testing.T) {
	e := newTestEnv(t)

	seed := []error{
		e.signage.PutContent(&signage.ContentItem{ID: "c1", URI: "media/a.mp4", MIMEType: "video/mp4", DurationSec: 20}),
		e.signage.PutPlaylist(&signage.Playlist{ID: "p1", Entries: []signage.PlaylistEntry{{ContentID: "c1"}}}),
		e.signage.PutSchedule(&signage.Schedule{ID: "s1", PlaylistID: "p1", Start: "00:00", End: "00:00", Enabled: true}),
		e.signage.PutDevice(&signage.Device{ID: "d1", ScheduleIDs: []string{"s1"}}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/d1/manifest", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without token: %s", rec.Code, rec.Body.String())
	}
	var m signage.Manifest
	decodeData(t, rec, &m)
	if len(m.Items) != 1 || m.Items[0].ContentID != "c1" {
		t.Errorf("manifest = %+v", m)
	}

	// The poll doubles as check-in.
	d, err := e.signage.GetDevice("d1")
	if err != nil {
		t.Fatal(err)
	}
	if d.LastSeenAt == nil {
		t.Error("manifest poll did not update last_seen_at")
	}
}

func TestMutationsAreAudited(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/devices/", DeviceRequest{Name: "lobby"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register device: status = %d", rec.Code)
	}

	e.queue.FlushNow(context.Background())

	events := e.auditStore.Events()
	if len(events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(events))
	}
	if events[0].Action != audit.ActionDeviceRegister {
		t.Errorf("action = %q, want %s", events[0].Action, audit.ActionDeviceRegister)
	}
	if events[0].Actor.ID != "admin" {
		t.Errorf("actor = %+v", events[0].Actor)
	}
}

func TestAuditEndpoints(t *testing.T) {
	e := newTestEnv(t)

	// Produce two audited mutations.
	for _, name := range []string{"a", "b"} {
		rec := e.do(t, http.MethodPost, "/api/v1/playlists/", PlaylistRequest{Name: name})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create playlist: status = %d", rec.Code)
		}
	}

	// Flush via the admin endpoint instead of calling the queue directly.
	rec := e.do(t, http.MethodPost, "/api/v1/audit/queue/flush", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("flush: status = %d: %s", rec.Code, rec.Body.String())
	}
	var stats audit.Stats
	decodeData(t, rec, &stats)
	if stats.Flushed < 2 {
		t.Errorf("flushed = %d, want >= 2", stats.Flushed)
	}
	if stats.Queued != 0 {
		t.Errorf("queued = %d, want 0 after flush", stats.Queued)
	}

	rec = e.do(t, http.MethodGet, "/api/v1/audit/events?action=playlist.create", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list events: status = %d", rec.Code)
	}
	var events []audit.Event
	decodeData(t, rec, &events)
	if len(events) != 2 {
		t.Errorf("events = %d, want 2", len(events))
	}

	rec = e.do(t, http.MethodGet, "/api/v1/audit/queue", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("queue stats: status = %d", rec.Code)
	}
	var qs QueueStatsResponse
	decodeData(t, rec, &qs)
	if qs.Persisted < 2 {
		t.Errorf("persisted = %d, want >= 2", qs.Persisted)
	}
}

func TestAuditEndpointsRequireAdminRole(t *testing.T) {
	e := newTestEnv(t)

	// Token without the admin role.
	cfg := config.DefaultTestConfig()
	jwt, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatal(err)
	}
	viewerToken, err := jwt.GenerateToken("viewer", []string{"viewer"})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/events", nil)
	req.Header.Set("Authorization", "Bearer "+viewerToken)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for non-admin", rec.Code)
	}
}
