// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package signage

import (
	"errors"
	"fmt"
	"time"

	"github.com/vitrine-hq/vitrine/internal/logging"
)

// ResolveManifest computes what a device should play at instant t: load the
// device, evaluate its schedules, pick the highest-priority active one, and
// expand its playlist into concrete content references.
//
// A device with no active schedule gets an empty manifest, not an error: a
// dark screen is a valid state. Dangling references (deleted schedules,
// playlists, or content) are skipped with a warning so one stale pointer
// never blanks an otherwise healthy rotation.
func (s *Store) ResolveManifest(deviceID string, t time.Time) (*Manifest, error) {
	device, err := s.GetDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest for device %s: %w", deviceID, err)
	}

	m := &Manifest{
		DeviceID:    device.ID,
		GeneratedAt: t.UTC(),
		Items:       []ManifestItem{},
	}

	schedules := make([]*Schedule, 0, len(device.ScheduleIDs))
	for _, sid := range device.ScheduleIDs {
		sc, err := s.GetSchedule(sid)
		if errors.Is(err, ErrNotFound) {
			logging.Warn().
				Str("device_id", device.ID).
				Str("schedule_id", sid).
				Msg("Device references missing schedule, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}

	winner := PickSchedule(schedules, t)
	if winner == nil {
		return m, nil
	}
	m.ScheduleID = winner.ID

	pl, err := s.GetPlaylist(winner.PlaylistID)
	if errors.Is(err, ErrNotFound) {
		logging.Warn().
			Str("schedule_id", winner.ID).
			Str("playlist_id", winner.PlaylistID).
			Msg("Schedule references missing playlist")
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	m.PlaylistID = pl.ID

	for _, entry := range pl.Entries {
		item, err := s.GetContent(entry.ContentID)
		if errors.Is(err, ErrNotFound) {
			logging.Warn().
				Str("playlist_id", pl.ID).
				Str("content_id", entry.ContentID).
				Msg("Playlist references missing content, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}

		dur := item.DurationSec
		if entry.DurationSec > 0 {
			dur = entry.DurationSec
		}
		m.Items = append(m.Items, ManifestItem{
			ContentID:   item.ID,
			URI:         item.URI,
			MIMEType:    item.MIMEType,
			DurationSec: dur,
		})
	}

	return m, nil
}
