// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vitrine-hq/vitrine/internal/audit"
	"github.com/vitrine-hq/vitrine/internal/logging"
)

// RoleAdmin grants access to management endpoints (queue admin, audit query).
const RoleAdmin = "admin"

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated principal attached to the request context.
type Identity struct {
	Username string
	Roles    []string
}

// HasRole reports whether the identity carries the given role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

// ActorFromContext adapts the authenticated identity into an audit actor.
// Unauthenticated requests (e.g. device manifest polls) map to an anonymous
// system actor rather than an empty one.
func ActorFromContext(ctx context.Context) audit.Actor {
	id := IdentityFromContext(ctx)
	if id == nil {
		return audit.Actor{ID: "anonymous", Type: "system"}
	}
	return audit.Actor{
		ID:    id.Username,
		Type:  "user",
		Name:  id.Username,
		Roles: id.Roles,
	}
}

// Authenticate validates the Authorization bearer token and attaches the
// resulting identity to the request context. Requests without a valid token
// get 401.
func (m *JWTManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := m.ValidateToken(token)
		if err != nil {
			logging.Debug().Err(err).Msg("Token validation failed")
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		identity := &Identity{Username: claims.Username, Roles: claims.Roles}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route on a role. Must run after Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !id.HasRole(role) {
				writeAuthError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // nothing to do if the client is gone
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
