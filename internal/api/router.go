// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitrine-hq/vitrine/internal/audit"
	"github.com/vitrine-hq/vitrine/internal/auth"
	"github.com/vitrine-hq/vitrine/internal/config"
	"github.com/vitrine-hq/vitrine/internal/middleware"
	"github.com/vitrine-hq/vitrine/internal/signage"
)

// RouterDeps holds everything the router wires together.
type RouterDeps struct {
	Config     *config.Config
	Signage    *signage.Store
	AuditStore audit.Store
	AuditQueue *audit.Queue
	JWT        *auth.JWTManager
}

// NewRouter builds the full HTTP routing table.
//
// Layout:
//
//	GET  /metrics                          Prometheus scrape (unauthenticated)
//	GET  /api/v1/health                    liveness
//	POST /api/v1/auth/login                token issuance
//	GET  /api/v1/devices/{id}/manifest     device polling (unauthenticated)
//	     /api/v1/content|playlists|schedules|devices   CRUD (bearer token)
//	     /api/v1/audit/...                 audit trail + queue admin (admin role)
func NewRouter(deps RouterDeps) http.Handler {
	sec := &deps.Config.Security

	signageHandlers := NewSignageHandlers(deps.Signage)
	auditHandlers := NewAuditHandlers(deps.AuditStore, deps.AuditQueue)
	loginHandler := auth.NewLoginHandler(deps.JWT, sec)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sec.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         86400,
	}))
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/v1/health", Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			sec.RateLimitReqs,
			sec.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))

		r.Post("/auth/login", loginHandler.ServeHTTP)

		// Device polling endpoint: players authenticate out of band (network
		// placement), so the manifest stays reachable without a token.
		r.Get("/devices/{id}/manifest", signageHandlers.GetManifest)

		r.Group(func(r chi.Router) {
			r.Use(deps.JWT.Authenticate)
			r.Use(middleware.AuditRecorder(deps.AuditQueue, auth.ActorFromContext))

			r.Route("/content", func(r chi.Router) {
				r.Get("/", signageHandlers.ListContent)
				r.Post("/", signageHandlers.CreateContent)
				r.Get("/{id}", signageHandlers.GetContent)
				r.Put("/{id}", signageHandlers.UpdateContent)
				r.Delete("/{id}", signageHandlers.DeleteContent)
			})

			r.Route("/playlists", func(r chi.Router) {
				r.Get("/", signageHandlers.ListPlaylists)
				r.Post("/", signageHandlers.CreatePlaylist)
				r.Get("/{id}", signageHandlers.GetPlaylist)
				r.Put("/{id}", signageHandlers.UpdatePlaylist)
				r.Delete("/{id}", signageHandlers.DeletePlaylist)
			})

			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", signageHandlers.ListSchedules)
				r.Post("/", signageHandlers.CreateSchedule)
				r.Get("/{id}", signageHandlers.GetSchedule)
				r.Put("/{id}", signageHandlers.UpdateSchedule)
				r.Delete("/{id}", signageHandlers.DeleteSchedule)
			})

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", signageHandlers.ListDevices)
				r.Post("/", signageHandlers.RegisterDevice)
				r.Get("/{id}", signageHandlers.GetDevice)
				r.Put("/{id}", signageHandlers.UpdateDevice)
				r.Delete("/{id}", signageHandlers.DeleteDevice)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))
				r.Get("/events", auditHandlers.ListEvents)
				r.Get("/queue", auditHandlers.GetQueueStats)
				r.Post("/queue/flush", auditHandlers.FlushQueue)
			})
		})
	})

	return r
}
