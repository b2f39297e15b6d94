// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vitrine-hq/vitrine/internal/audit"
	"github.com/vitrine-hq/vitrine/internal/logging"
)

// ActorResolver extracts the acting identity from a request context. The auth
// package provides the production implementation; tests can substitute one.
type ActorResolver func(ctx context.Context) audit.Actor

// AuditRecorder records every mutating request (POST, PUT, PATCH, DELETE) as
// an audit event after the handler completes, so the recorded status code is
// the one actually sent. Enqueue is fire and forget: a full or disabled queue
// never fails the request, a rejection is only logged.
func AuditRecorder(q *audit.Queue, resolveActor ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			wrapper := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapper, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			event := &audit.Event{
				Action:     deriveAction(r.Method, route),
				Method:     r.Method,
				Path:       r.URL.Path,
				Route:      route,
				StatusCode: wrapper.status,
				Actor:      resolveActor(r.Context()),
				Resource:   deriveResource(r, route),
				Source: audit.Source{
					IPAddress: clientIP(r),
					UserAgent: r.UserAgent(),
				},
				RequestID: GetRequestID(r.Context()),
			}

			if res := q.Enqueue(event); !res.Accepted {
				logging.Debug().
					Str("reason", string(res.Reason)).
					Str("action", event.Action).
					Msg("Audit event rejected")
			}
		})
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// actionVerbs maps HTTP methods to audit action verbs.
var actionVerbs = map[string]string{
	http.MethodPost:   "create",
	http.MethodPut:    "update",
	http.MethodPatch:  "update",
	http.MethodDelete: "delete",
}

// deriveAction builds "<resource>.<verb>" from the route pattern, e.g.
// POST /api/v1/playlists -> playlist.create. Routes outside the known
// resource set fall back to "<method> <route>".
func deriveAction(method, route string) string {
	resource := resourceType(route)
	if resource == "" {
		return strings.ToLower(method) + " " + route
	}
	if resource == "device" && method == http.MethodPost {
		return audit.ActionDeviceRegister
	}
	return resource + "." + actionVerbs[method]
}

// resourceType extracts the singular resource name from a route pattern.
func resourceType(route string) string {
	for _, seg := range strings.Split(route, "/") {
		switch seg {
		case "content":
			return "content"
		case "playlists":
			return "playlist"
		case "schedules":
			return "schedule"
		case "devices":
			return "device"
		}
	}
	return ""
}

// deriveResource builds the resource reference from the {id} URL parameter,
// when present. Creation requests have no ID yet and yield nil.
func deriveResource(r *http.Request, route string) *audit.Resource {
	id := chi.URLParam(r, "id")
	if id == "" {
		return nil
	}
	return &audit.Resource{
		ID:   id,
		Type: resourceType(route),
	}
}

// clientIP returns the originating client address, preferring the first entry
// of X-Forwarded-For when a proxy set it.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
