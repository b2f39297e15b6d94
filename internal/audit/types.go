// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// Common audit actions. Handlers may also record free-form actions; these
// constants cover the built-in surfaces.
const (
	ActionContentCreate  = "content.create"
	ActionContentUpdate  = "content.update"
	ActionContentDelete  = "content.delete"
	ActionPlaylistCreate = "playlist.create"
	ActionPlaylistUpdate = "playlist.update"
	ActionPlaylistDelete = "playlist.delete"
	ActionScheduleCreate = "schedule.create"
	ActionScheduleUpdate = "schedule.update"
	ActionScheduleDelete = "schedule.delete"
	ActionDeviceRegister = "device.register"
	ActionDeviceUpdate   = "device.update"
	ActionDeviceDelete   = "device.delete"
	ActionAuthLogin      = "auth.login"
	ActionAuthDenied     = "auth.denied"
	ActionQueueFlush     = "queue.flush"
)

// Event is a single audit-trail record: one state-changing request against
// the signage backend, captured before persistence.
type Event struct {
	// ID uniquely identifies this event. Generated on enqueue if empty.
	ID string `json:"id"`

	// Timestamp when the event occurred. Set on enqueue if zero.
	Timestamp time.Time `json:"timestamp"`

	// Action names what was done, e.g. "content.create".
	Action string `json:"action"`

	// Method, Path, and Route describe the originating HTTP request.
	// Route is the chi route pattern (e.g. /api/v1/content/{id}), Path the
	// concrete URL path.
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
	Route  string `json:"route,omitempty"`

	// StatusCode is the HTTP status returned to the client.
	StatusCode int `json:"status_code,omitempty"`

	// Actor is who performed the action.
	Actor Actor `json:"actor"`

	// Resource is the object of the action (optional).
	Resource *Resource `json:"resource,omitempty"`

	// Source is where the request came from.
	Source Source `json:"source"`

	// RequestID correlates this event with the originating HTTP request.
	RequestID string `json:"request_id,omitempty"`

	// Metadata carries event-specific details.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Actor represents who performed an action.
type Actor struct {
	// ID is the unique identifier (user ID, device ID, service name).
	ID string `json:"id"`

	// Type of actor: user, device, or system.
	Type string `json:"type"`

	// Name is the username or device name.
	Name string `json:"name,omitempty"`

	// Roles assigned to the actor.
	Roles []string `json:"roles,omitempty"`
}

// Resource represents the object of an action.
type Resource struct {
	// ID of the resource.
	ID string `json:"id"`

	// Type of resource: content, playlist, schedule, device.
	Type string `json:"type"`

	// Name of the resource.
	Name string `json:"name,omitempty"`
}

// Source represents where a request originated.
type Source struct {
	// IPAddress of the client.
	IPAddress string `json:"ip_address"`

	// UserAgent of the client.
	UserAgent string `json:"user_agent,omitempty"`
}

// Sink is the minimal write port consumed by the queue: persist one event.
// Any error aborts the current flush batch; the queue retries on the next
// scheduled tick.
type Sink interface {
	Save(ctx context.Context, event *Event) error
}

// Store is the full persistence interface implemented by the audit stores.
type Store interface {
	Sink

	// Query retrieves events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes events older than the given time and reports how many.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter defines filtering options for audit queries.
type QueryFilter struct {
	// Action filters by exact action name.
	Action string `json:"action,omitempty"`

	// ActorID filters by actor ID.
	ActorID string `json:"actor_id,omitempty"`

	// ActorType filters by actor type.
	ActorType string `json:"actor_type,omitempty"`

	// ResourceID filters by resource ID.
	ResourceID string `json:"resource_id,omitempty"`

	// ResourceType filters by resource type.
	ResourceType string `json:"resource_type,omitempty"`

	// RequestID filters by request correlation ID.
	RequestID string `json:"request_id,omitempty"`

	// SourceIP filters by client IP.
	SourceIP string `json:"source_ip,omitempty"`

	// StartTime and EndTime bound the time range (inclusive).
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Limit is the maximum number of results. Defaults to 100 when zero.
	Limit int `json:"limit,omitempty"`

	// Offset for pagination.
	Offset int `json:"offset,omitempty"`
}

// DefaultQueryFilter returns a sensible default filter.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}
