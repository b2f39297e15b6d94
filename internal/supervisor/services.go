// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/vitrine-hq/vitrine/internal/audit"
	"github.com/vitrine-hq/vitrine/internal/logging"
)

// HTTPService runs an http.Server under suture supervision. Serve blocks
// until the listener fails or the context is canceled, then shuts the server
// down gracefully within the configured timeout.
type HTTPService struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.Server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return suture.ErrDoNotRestart
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("HTTP server shutdown incomplete")
	}
	return ctx.Err()
}

func (s *HTTPService) String() string { return "http-server" }

// GCRunner is implemented by stores with a periodic maintenance hook.
type GCRunner interface {
	RunGC()
}

// GCService calls the store's garbage collection on a fixed interval.
type GCService struct {
	Store    GCRunner
	Interval time.Duration
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Store.RunGC()
		}
	}
}

func (s *GCService) String() string { return "store-gc" }

// RetentionService deletes audit events older than the retention window once
// per sweep interval.
type RetentionService struct {
	Store         audit.Store
	RetentionDays int
	SweepInterval time.Duration
}

// Serve implements suture.Service.
func (s *RetentionService) Serve(ctx context.Context) error {
	if s.RetentionDays <= 0 {
		// Retention disabled; park until shutdown so suture does not spin.
		<-ctx.Done()
		return ctx.Err()
	}

	interval := s.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RetentionService) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.RetentionDays)
	removed, err := s.Store.Delete(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit retention sweep failed")
		return
	}
	if removed > 0 {
		logging.Info().
			Int64("removed", removed).
			Time("cutoff", cutoff).
			Msg("Audit retention sweep completed")
	}
}

func (s *RetentionService) String() string { return "audit-retention" }
