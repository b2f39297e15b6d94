// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package signage

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func TestStore_ContentCRUD(t *testing.T) {
	s := newTestStore(t)

	item := &ContentItem{
		ID:       "c1",
		Name:     "lobby-loop.mp4",
		MIMEType: "video/mp4",
		URI:      "media/lobby-loop.mp4",
	}
	if err := s.PutContent(item); err != nil {
		t.Fatalf("put content: %v", err)
	}

	got, err := s.GetContent("c1")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if got.Name != "lobby-loop.mp4" || got.MIMEType != "video/mp4" {
		t.Errorf("got %+v", got)
	}

	if _, err := s.GetContent("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteContent("c1"); err != nil {
		t.Fatalf("delete content: %v", err)
	}
	if _, err := s.GetContent("c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteContent("c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting absent entity should return ErrNotFound, got %v", err)
	}
}

func TestStore_ListIsolatedByPrefix(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutContent(&ContentItem{ID: "c1", Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutContent(&ContentItem{ID: "c2", Name: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutPlaylist(&Playlist{ID: "p1", Name: "loop"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutDevice(&Device{ID: "d1", Name: "lobby"}); err != nil {
		t.Fatal(err)
	}

	items, err := s.ListContent()
	if err != nil {
		t.Fatalf("list content: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("ListContent returned %d items, want 2", len(items))
	}

	pls, err := s.ListPlaylists()
	if err != nil {
		t.Fatalf("list playlists: %v", err)
	}
	if len(pls) != 1 {
		t.Errorf("ListPlaylists returned %d, want 1", len(pls))
	}

	ds, err := s.ListDevices()
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(ds) != 1 {
		t.Errorf("ListDevices returned %d, want 1", len(ds))
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutPlaylist(&Playlist{ID: "p1", Name: "v1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutPlaylist(&Playlist{ID: "p1", Name: "v2"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPlaylist("p1")
	if err != nil {
		t.Fatalf("get playlist: %v", err)
	}
	if got.Name != "v2" {
		t.Errorf("playlist name = %q, want v2", got.Name)
	}

	pls, err := s.ListPlaylists()
	if err != nil {
		t.Fatal(err)
	}
	if len(pls) != 1 {
		t.Errorf("overwrite created duplicate, have %d playlists", len(pls))
	}
}

func TestStore_PutScheduleValidatesWindow(t *testing.T) {
	s := newTestStore(t)

	bad := &Schedule{ID: "s1", Start: "25:00", End: "17:00"}
	if err := s.PutSchedule(bad); err == nil {
		t.Error("schedule with invalid window should be rejected")
	}

	good := &Schedule{ID: "s1", Start: "09:00", End: "17:00", Enabled: true}
	if err := s.PutSchedule(good); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
}

func TestStore_TouchDevice(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutDevice(&Device{ID: "d1", Name: "lobby"}); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	if err := s.TouchDevice("d1", at); err != nil {
		t.Fatalf("touch device: %v", err)
	}

	got, err := s.GetDevice("d1")
	if err != nil {
		t.Fatal(err)
	}
	if got.LastSeenAt == nil || !got.LastSeenAt.Equal(at) {
		t.Errorf("last_seen_at = %v, want %v", got.LastSeenAt, at)
	}

	if err := s.TouchDevice("missing", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("touching missing device should return ErrNotFound, got %v", err)
	}
}

func TestResolveManifest(t *testing.T) {
	s := newTestStore(t)

	seed := []error{
		s.PutContent(&ContentItem{ID: "c1", URI: "media/a.mp4", MIMEType: "video/mp4", DurationSec: 30}),
		s.PutContent(&ContentItem{ID: "c2", URI: "media/b.png", MIMEType: "image/png"}),
		s.PutPlaylist(&Playlist{ID: "p1", Entries: []PlaylistEntry{
			{ContentID: "c1"},
			{ContentID: "c2", DurationSec: 15},
			{ContentID: "gone"},
		}}),
		s.PutSchedule(&Schedule{
			ID: "day", PlaylistID: "p1", Start: "09:00", End: "17:00",
			Enabled: true, Priority: 1,
		}),
		s.PutSchedule(&Schedule{
			ID: "night", PlaylistID: "p1", Start: "22:00", End: "06:00",
			Enabled: true, Priority: 1,
		}),
		s.PutDevice(&Device{ID: "d1", ScheduleIDs: []string{"day", "night", "missing"}}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	noon := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	m, err := s.ResolveManifest("d1", noon)
	if err != nil {
		t.Fatalf("resolve manifest: %v", err)
	}
	if m.ScheduleID != "day" {
		t.Errorf("schedule_id = %q, want day", m.ScheduleID)
	}
	if m.PlaylistID != "p1" {
		t.Errorf("playlist_id = %q, want p1", m.PlaylistID)
	}
	// c1 with its own duration, c2 with the entry override, "gone" skipped.
	if len(m.Items) != 2 {
		t.Fatalf("manifest has %d items, want 2: %+v", len(m.Items), m.Items)
	}
	if m.Items[0].ContentID != "c1" || m.Items[0].DurationSec != 30 {
		t.Errorf("item 0 = %+v", m.Items[0])
	}
	if m.Items[1].ContentID != "c2" || m.Items[1].DurationSec != 15 {
		t.Errorf("item 1 = %+v", m.Items[1])
	}
}

func TestResolveManifest_NoActiveSchedule(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutDevice(&Device{ID: "d1"}); err != nil {
		t.Fatal(err)
	}

	m, err := s.ResolveManifest("d1", time.Now())
	if err != nil {
		t.Fatalf("resolve manifest: %v", err)
	}
	if m.ScheduleID != "" || len(m.Items) != 0 {
		t.Errorf("expected empty manifest, got %+v", m)
	}
}

func TestResolveManifest_UnknownDevice(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.ResolveManifest("ghost", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown device, got %v", err)
	}
}
