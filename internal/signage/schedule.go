// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package signage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// ValidateWindow checks the schedule's time window syntax.
func (s *Schedule) ValidateWindow() error {
	if _, err := parseClock(s.Start); err != nil {
		return fmt.Errorf("schedule start: %w", err)
	}
	if _, err := parseClock(s.End); err != nil {
		return fmt.Errorf("schedule end: %w", err)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("schedule timezone: %w", err)
		}
	}
	return nil
}

// ActiveAt reports whether the schedule's window covers the given instant.
// Disabled schedules are never active. A malformed window is treated as
// inactive rather than erroring: manifests must resolve even if one schedule
// is broken.
func (s *Schedule) ActiveAt(t time.Time) bool {
	if !s.Enabled {
		return false
	}

	loc := time.UTC
	if s.Timezone != "" {
		l, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return false
		}
		loc = l
	}
	local := t.In(loc)

	if len(s.Days) > 0 {
		found := false
		for _, d := range s.Days {
			if local.Weekday() == d {
				found = true
				break
			}
		}
		if !found {
			// A wrapping window that started yesterday still covers the
			// early hours of today; check yesterday's weekday for that case.
			if !s.wrapsMidnight() || !s.coversYesterday(local) {
				return false
			}
		}
	}

	start, err := parseClock(s.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(s.End)
	if err != nil {
		return false
	}

	now := local.Hour()*60 + local.Minute()
	if start == end {
		return true // all-day window
	}
	if start < end {
		return now >= start && now < end
	}
	// Window wraps midnight, e.g. 22:00-06:00.
	return now >= start || now < end
}

func (s *Schedule) wrapsMidnight() bool {
	start, err1 := parseClock(s.Start)
	end, err2 := parseClock(s.End)
	return err1 == nil && err2 == nil && start > end
}

// coversYesterday reports whether the instant falls in the tail (post-
// midnight) part of a wrapping window whose day is yesterday.
func (s *Schedule) coversYesterday(local time.Time) bool {
	end, err := parseClock(s.End)
	if err != nil {
		return false
	}
	now := local.Hour()*60 + local.Minute()
	if now >= end {
		return false
	}
	yesterday := local.AddDate(0, 0, -1).Weekday()
	for _, d := range s.Days {
		if d == yesterday {
			return true
		}
	}
	return false
}

// PickSchedule returns the active schedule with the highest priority, or nil
// when none is active. Ties resolve to the earliest in the slice so manifest
// resolution is deterministic.
func PickSchedule(schedules []*Schedule, t time.Time) *Schedule {
	var best *Schedule
	for _, s := range schedules {
		if !s.ActiveAt(t) {
			continue
		}
		if best == nil || s.Priority > best.Priority {
			best = s
		}
	}
	return best
}
