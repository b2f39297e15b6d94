// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package auth

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/vitrine-hq/vitrine/internal/config"
	"github.com/vitrine-hq/vitrine/internal/logging"
)

// LoginRequest is the POST /api/v1/auth/login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginHandler verifies credentials against the configured admin account and
// issues a bearer token.
type LoginHandler struct {
	jwt      *JWTManager
	cfg      *config.SecurityConfig
	validate *validator.Validate
}

// NewLoginHandler builds the login endpoint handler.
func NewLoginHandler(jwt *JWTManager, cfg *config.SecurityConfig) *LoginHandler {
	return &LoginHandler{
		jwt:      jwt,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// ServeHTTP handles POST /api/v1/auth/login. Credential comparison is
// constant time so response timing leaks nothing about partial matches.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.AdminPassword)) == 1
	if h.cfg.AdminUsername == "" || !userOK || !passOK {
		logging.Warn().
			Str("username", req.Username).
			Msg("Login rejected")
		writeAuthError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.jwt.GenerateToken(req.Username, []string{RoleAdmin})
	if err != nil {
		logging.Error().Err(err).Msg("Token generation failed")
		writeAuthError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // nothing to do if the client is gone
	json.NewEncoder(w).Encode(LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.jwt.TTL()).UTC(),
	})
}
