// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

// Package signage holds the signage domain model and its Badger-backed store:
// content items, playlists, schedules, devices, and the manifest resolution
// that tells a device what to play right now.
package signage

import (
	"time"
)

// ContentItem is an uploaded media asset.
type ContentItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MIMEType    string    `json:"mime_type"`
	URI         string    `json:"uri"`
	SizeBytes   int64     `json:"size_bytes"`
	DurationSec int       `json:"duration_sec,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlaylistEntry references a content item within a playlist. DurationSec
// overrides the content's own duration when non-zero (e.g. images).
type PlaylistEntry struct {
	ContentID   string `json:"content_id"`
	DurationSec int    `json:"duration_sec,omitempty"`
}

// Playlist is an ordered sequence of content entries.
type Playlist struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Entries   []PlaylistEntry `json:"entries"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Schedule binds a playlist to a recurring time window. A device plays the
// highest-priority schedule active at the current time.
type Schedule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PlaylistID string `json:"playlist_id"`

	// Days lists active weekdays. Empty means every day.
	Days []time.Weekday `json:"days,omitempty"`

	// Start and End bound the daily window in "HH:MM" (24h). The window may
	// wrap midnight (e.g. 22:00-06:00). Equal values mean all day.
	Start string `json:"start"`
	End   string `json:"end"`

	// Timezone is an IANA zone name evaluated against; empty means UTC.
	Timezone string `json:"timezone,omitempty"`

	// Priority breaks ties between overlapping schedules; higher wins.
	Priority int `json:"priority"`

	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Device is a registered display endpoint.
type Device struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	ScheduleIDs []string   `json:"schedule_ids,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ManifestItem is one playable entry in a resolved manifest.
type ManifestItem struct {
	ContentID   string `json:"content_id"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mime_type"`
	DurationSec int    `json:"duration_sec"`
}

// Manifest is what a device should play now: the winning schedule's playlist
// expanded into concrete content references.
type Manifest struct {
	DeviceID    string         `json:"device_id"`
	ScheduleID  string         `json:"schedule_id,omitempty"`
	PlaylistID  string         `json:"playlist_id,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Items       []ManifestItem `json:"items"`
}
