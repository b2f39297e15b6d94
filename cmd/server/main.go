// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitrine-hq/vitrine/internal/api"
	"github.com/vitrine-hq/vitrine/internal/audit"
	"github.com/vitrine-hq/vitrine/internal/auth"
	"github.com/vitrine-hq/vitrine/internal/config"
	"github.com/vitrine-hq/vitrine/internal/database"
	"github.com/vitrine-hq/vitrine/internal/logging"
	"github.com/vitrine-hq/vitrine/internal/signage"
	"github.com/vitrine-hq/vitrine/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Vitrine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Audit persistence: DuckDB behind an optional circuit breaker.
	db, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("open audit database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Audit database close failed")
		}
	}()

	auditStore := audit.NewDuckDBStore(db)
	if err := auditStore.CreateTable(ctx); err != nil {
		return fmt.Errorf("initialize audit schema: %w", err)
	}

	var sink audit.Sink = auditStore
	if cfg.Audit.BreakerEnabled {
		sink = audit.NewBreakerSink(auditStore, audit.DefaultBreakerConfig())
	}

	queue := audit.NewQueue(sink, audit.QueueConfig{
		Enabled:        cfg.Audit.Enabled,
		Capacity:       cfg.Audit.Capacity,
		FlushBatchSize: cfg.Audit.FlushBatchSize,
		FlushInterval:  cfg.Audit.FlushInterval,
		SaveTimeout:    cfg.Audit.SaveTimeout,
	})

	// Signage domain store.
	signageStore, err := signage.Open(cfg.Signage.DataDir)
	if err != nil {
		return fmt.Errorf("open signage store: %w", err)
	}
	defer func() {
		if err := signageStore.Close(); err != nil {
			logging.Warn().Err(err).Msg("Signage store close failed")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("initialize auth: %w", err)
	}

	router := api.NewRouter(api.RouterDeps{
		Config:     cfg,
		Signage:    signageStore,
		AuditStore: auditStore,
		AuditQueue: queue,
		JWT:        jwtManager,
	})

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddStorageService(&supervisor.GCService{
		Store:    signageStore,
		Interval: cfg.Signage.GCInterval,
	})
	tree.AddStorageService(&supervisor.RetentionService{
		Store:         auditStore,
		RetentionDays: cfg.Audit.RetentionDays,
		SweepInterval: time.Hour,
	})
	tree.AddAPIService(&supervisor.HTTPService{
		Server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.Timeout,
			WriteTimeout:      cfg.Server.Timeout,
			IdleTimeout:       2 * time.Minute,
		},
		ShutdownTimeout: 10 * time.Second,
	})

	logging.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Msg("Serving")

	err = tree.Serve(ctx)

	// Drain whatever the queue still buffers before the stores close.
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Stop(stopCtx)

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	if err != nil && ctx.Err() == nil {
		return err
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}
