// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DuckDBStore implements Store using DuckDB. This is the production sink:
// durable across restarts and queryable for the audit trail API.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed audit store. Call CreateTable during
// database initialization before the first Save.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the audit_events table and its indexes if they do not
// exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			action TEXT NOT NULL,

			method TEXT,
			path TEXT,
			route TEXT,
			status_code INTEGER,

			actor_id TEXT NOT NULL,
			actor_type TEXT NOT NULL,
			actor_name TEXT,
			actor_roles JSON,

			resource_id TEXT,
			resource_type TEXT,
			resource_name TEXT,

			source_ip TEXT,
			source_user_agent TEXT,

			request_id TEXT,
			metadata JSON,

			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_events(action);
		CREATE INDEX IF NOT EXISTS idx_audit_actor_id ON audit_events(actor_id);
		CREATE INDEX IF NOT EXISTS idx_audit_resource_id ON audit_events(resource_id);
		CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_events(request_id);
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}
	return nil
}

// Save persists a single audit event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("audit event is nil")
	}

	roles, err := json.Marshal(event.Actor.Roles)
	if err != nil {
		return fmt.Errorf("failed to marshal actor roles: %w", err)
	}

	var resourceID, resourceType, resourceName sql.NullString
	if event.Resource != nil {
		resourceID = sql.NullString{String: event.Resource.ID, Valid: true}
		resourceType = sql.NullString{String: event.Resource.Type, Valid: true}
		resourceName = sql.NullString{String: event.Resource.Name, Valid: event.Resource.Name != ""}
	}

	metadata := []byte("null")
	if len(event.Metadata) > 0 {
		metadata = event.Metadata
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, action,
			method, path, route, status_code,
			actor_id, actor_type, actor_name, actor_roles,
			resource_id, resource_type, resource_name,
			source_ip, source_user_agent,
			request_id, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp, event.Action,
		event.Method, event.Path, event.Route, event.StatusCode,
		event.Actor.ID, event.Actor.Type, event.Actor.Name, string(roles),
		resourceID, resourceType, resourceName,
		event.Source.IPAddress, event.Source.UserAgent,
		event.RequestID, string(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// buildWhere translates a QueryFilter into a WHERE clause and its arguments.
func buildWhere(filter *QueryFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		conds = append(conds, cond)
		args = append(args, arg)
	}

	if filter.Action != "" {
		add("action = ?", filter.Action)
	}
	if filter.ActorID != "" {
		add("actor_id = ?", filter.ActorID)
	}
	if filter.ActorType != "" {
		add("actor_type = ?", filter.ActorType)
	}
	if filter.ResourceID != "" {
		add("resource_id = ?", filter.ResourceID)
	}
	if filter.ResourceType != "" {
		add("resource_type = ?", filter.ResourceType)
	}
	if filter.RequestID != "" {
		add("request_id = ?", filter.RequestID)
	}
	if filter.SourceIP != "" {
		add("source_ip = ?", filter.SourceIP)
	}
	if filter.StartTime != nil {
		add("timestamp >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add("timestamp <= ?", *filter.EndTime)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query retrieves events matching the filter, newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	where, args := buildWhere(&filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, timestamp, action,
			method, path, route, status_code,
			actor_id, actor_type, actor_name, actor_roles,
			resource_id, resource_type, resource_name,
			source_ip, source_user_agent,
			request_id, metadata
		FROM audit_events` + where + `
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

// Get retrieves a single event by ID.
func (s *DuckDBStore) Get(ctx context.Context, id string) (*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, action,
			method, path, route, status_code,
			actor_id, actor_type, actor_name, actor_roles,
			resource_id, resource_type, resource_name,
			source_ip, source_user_agent,
			request_id, metadata
		FROM audit_events WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("audit event not found: %s", id)
	}
	return scanEvent(rows)
}

// Count returns the number of events matching the filter.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildWhere(&filter)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}

// Delete removes events older than the given time, for retention cleanup.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // DuckDB may not report affected rows; deletion succeeded
	}
	return deleted, nil
}

// scanEvent reads one row into an Event.
func scanEvent(rows *sql.Rows) (*Event, error) {
	var event Event
	var method, path, route, actorName, requestID, sourceIP, sourceUA sql.NullString
	var resourceID, resourceType, resourceName sql.NullString
	var statusCode sql.NullInt64
	var rolesJSON, metadataJSON sql.NullString

	err := rows.Scan(
		&event.ID, &event.Timestamp, &event.Action,
		&method, &path, &route, &statusCode,
		&event.Actor.ID, &event.Actor.Type, &actorName, &rolesJSON,
		&resourceID, &resourceType, &resourceName,
		&sourceIP, &sourceUA,
		&requestID, &metadataJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit event: %w", err)
	}

	event.Method = method.String
	event.Path = path.String
	event.Route = route.String
	event.StatusCode = int(statusCode.Int64)
	event.Actor.Name = actorName.String
	event.RequestID = requestID.String
	event.Source.IPAddress = sourceIP.String
	event.Source.UserAgent = sourceUA.String

	if rolesJSON.Valid && rolesJSON.String != "" && rolesJSON.String != "null" {
		if err := json.Unmarshal([]byte(rolesJSON.String), &event.Actor.Roles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actor roles: %w", err)
		}
	}

	if resourceID.Valid && resourceID.String != "" {
		event.Resource = &Resource{
			ID:   resourceID.String,
			Type: resourceType.String,
			Name: resourceName.String,
		}
	}

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		event.Metadata = json.RawMessage(metadataJSON.String)
	}

	return &event, nil
}
