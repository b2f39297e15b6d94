// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/vitrine-hq/vitrine/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret: testSecret,
		TokenTTL:  time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("empty secret should be rejected")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateToken("alice", []string{RoleAdmin})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("username = %q, want alice", claims.Username)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != RoleAdmin {
		t.Errorf("roles = %v, want [admin]", claims.Roles)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret: strings.Repeat("x", 32),
		TokenTTL:  time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	token, err := m.GenerateToken("alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with different secret should fail validation")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	m := &JWTManager{secret: []byte(testSecret), ttl: -time.Minute}

	token, err := m.GenerateToken("alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token should fail validation")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.ValidateToken("not.a.token"); err == nil {
		t.Error("malformed token should fail validation")
	}
}

func TestValidateToken_NoneAlgorithmRejected(t *testing.T) {
	m := newTestManager(t)

	// Unsigned token with alg=none: header and claims are valid base64 JSON,
	// signature is empty.
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJ1c2VybmFtZSI6ImFsaWNlIn0."
	if _, err := m.ValidateToken(unsigned); err == nil {
		t.Error("alg=none token should fail validation")
	}
}
