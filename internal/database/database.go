// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

// Package database opens and tunes the DuckDB connection used by the audit
// store. DuckDB is embedded; a "connection" is a handle into the process-local
// database file.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/vitrine-hq/vitrine/internal/config"
	"github.com/vitrine-hq/vitrine/internal/logging"
)

// Open opens the DuckDB database at cfg.Path, creating the parent directory
// when needed, and verifies the connection with a ping.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	// Auto-install/auto-load stays off so startup never blocks on network
	// fetches in restricted environments.
	connStr := fmt.Sprintf(
		"%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, runtime.NumCPU(), maxMemory,
	)

	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is embedded and single-writer; a small pool avoids writer
	// contention while keeping reads concurrent.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close database after ping failure")
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Str("max_memory", maxMemory).
		Msg("DuckDB database opened")

	return db, nil
}

// OpenInMemory opens an ephemeral DuckDB instance for tests.
func OpenInMemory(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping in-memory database: %w", err)
	}
	return db, nil
}
