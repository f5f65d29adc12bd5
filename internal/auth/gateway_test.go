// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/retroterm/internal/config"
)

func sessionJSON(expiresAt time.Time) string {
	return fmt.Sprintf(`{"userId":"u1","email":"a@b.com","username":"ada","token":"tok-123","expiresAt":%q}`,
		expiresAt.Format(time.RFC3339))
}

func errorJSON(code, message string) string {
	return fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, code, message)
}

func TestGateway_LoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/login", r.URL.Path)

		var req credentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@b.com", req.Email)
		assert.Equal(t, "hunter22x", req.Password)

		fmt.Fprint(w, sessionJSON(time.Now().Add(24*time.Hour)))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, t.TempDir())
	session, err := g.Login(context.Background(), "a@b.com", "hunter22x", "")
	require.NoError(t, err)

	assert.Equal(t, "ada", session.Username)
	assert.Equal(t, "u1", session.UserID)
	assert.True(t, g.Authenticated())
}

func TestGateway_LoginInvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, errorJSON("invalid_credentials", "nope"))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, t.TempDir())
	_, err := g.Login(context.Background(), "a@b.com", "wrong-pass", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, g.Authenticated())
}

func TestGateway_LoginTOTPRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.TOTPCode == "" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, errorJSON("totp_required", "code needed"))
			return
		}
		fmt.Fprint(w, sessionJSON(time.Now().Add(time.Hour)))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, t.TempDir())

	_, err := g.Login(context.Background(), "a@b.com", "hunter22x", "")
	require.ErrorIs(t, err, ErrTOTPRequired)

	_, err = g.Login(context.Background(), "a@b.com", "hunter22x", "123456")
	require.NoError(t, err)
	assert.True(t, g.Authenticated())
}

func TestGateway_RegisterValidation(t *testing.T) {
	g := NewGateway("http://localhost:1", t.TempDir())
	ctx := context.Background()

	_, err := g.Register(ctx, "not-an-email", "ada", "longenough1")
	assert.Error(t, err)

	_, err = g.Register(ctx, "a@b.com", "", "longenough1")
	assert.Error(t, err)

	_, err = g.Register(ctx, "a@b.com", "ada", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestGateway_RegisterConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, errorJSON("user_exists", "taken"))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, t.TempDir())
	_, err := g.Register(context.Background(), "a@b.com", "ada", "longenough1")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestGateway_LogoutClearsSession(t *testing.T) {
	var loggedOut bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/login":
			fmt.Fprint(w, sessionJSON(time.Now().Add(time.Hour)))
		case "/v1/logout":
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			loggedOut = true
			fmt.Fprint(w, `{}`)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	g := NewGateway(srv.URL, dir)
	_, err := g.Login(context.Background(), "a@b.com", "hunter22x", "")
	require.NoError(t, err)

	require.NoError(t, g.Logout(context.Background()))
	assert.True(t, loggedOut)
	assert.False(t, g.Authenticated())

	_, err = os.Stat(filepath.Join(dir, sessionFileName))
	assert.True(t, os.IsNotExist(err), "session cache should be removed on logout")
}

func TestGateway_SessionExpiredDropsLocalState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/login":
			fmt.Fprint(w, sessionJSON(time.Now().Add(time.Hour)))
		case "/v1/settings":
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, errorJSON("session_expired", "stale"))
		}
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, t.TempDir())
	_, err := g.Login(context.Background(), "a@b.com", "hunter22x", "")
	require.NoError(t, err)

	_, _, err = g.FetchSettings(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, g.Authenticated())
}

func TestGateway_SettingsRoundTrip(t *testing.T) {
	var stored settingsRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/login":
			fmt.Fprint(w, sessionJSON(time.Now().Add(time.Hour)))
		case r.URL.Path == "/v1/settings" && r.Method == http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&stored))
			fmt.Fprint(w, `{}`)
		case r.URL.Path == "/v1/settings" && r.Method == http.MethodGet:
			require.NoError(t, json.NewEncoder(w).Encode(stored))
		}
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, t.TempDir())
	_, err := g.Login(context.Background(), "a@b.com", "hunter22x", "")
	require.NoError(t, err)

	want := config.DefaultSettings()
	want.FontSize = 20
	want.Theme = "amber"
	require.NoError(t, g.SaveSettings(context.Background(), want))

	got, exists, err := g.FetchSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 20, got.FontSize)
	assert.Equal(t, "amber", got.Theme)
}

func TestGateway_SettingsRequireAuth(t *testing.T) {
	g := NewGateway("http://localhost:1", t.TempDir())

	_, _, err := g.FetchSettings(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	err = g.SaveSettings(context.Background(), config.DefaultSettings())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSessionCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewSessionCache(dir)

	session := &Session{
		UserID:    "u1",
		Email:     "a@b.com",
		Username:  "ada",
		Token:     "tok-123",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, cache.Save(session))

	// Token must not appear in plaintext on disk.
	blob, err := os.ReadFile(filepath.Join(dir, sessionFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "tok-123")

	loaded, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, session.Token, loaded.Token)
	assert.Equal(t, session.Username, loaded.Username)
}

func TestSessionCache_ExpiredTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	cache := NewSessionCache(dir)

	expired := &Session{
		UserID:    "u1",
		Token:     "tok-123",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, cache.Save(expired))

	_, err := cache.Load()
	assert.ErrorIs(t, err, ErrNoCachedSession)
}

func TestSessionCache_CorruptTreatedAsCorrupt(t *testing.T) {
	dir := t.TempDir()
	cache := NewSessionCache(dir)

	session := &Session{UserID: "u1", Token: "t", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, cache.Save(session))

	path := filepath.Join(dir, sessionFileName)
	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, blob, 0600))

	_, err = cache.Load()
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestSession_Valid(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.Valid())

	assert.False(t, (&Session{Token: "", ExpiresAt: time.Now().Add(time.Hour)}).Valid())
	assert.False(t, (&Session{Token: "t", ExpiresAt: time.Now().Add(-time.Second)}).Valid())
	assert.True(t, (&Session{Token: "t", ExpiresAt: time.Now().Add(time.Hour)}).Valid())
}

func TestTOTP_GenerateAndValidate(t *testing.T) {
	// Base32 secret, as issued at enrollment.
	secret := "JBSWY3DPEHPK3PXP"

	code, err := GenerateTOTPCode(secret)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.True(t, ValidateTOTPCode(code, secret))
	assert.False(t, ValidateTOTPCode("000000", secret))
}
