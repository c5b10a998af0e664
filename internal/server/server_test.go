package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooksh/brook/internal/crypto"
	"github.com/brooksh/brook/internal/server/auth"
	"github.com/brooksh/brook/internal/server/handlers"
	"github.com/brooksh/brook/internal/server/session"
	"github.com/brooksh/brook/internal/server/storage/memory"
	"github.com/brooksh/brook/internal/server/token"
	"github.com/brooksh/brook/pkg/api"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()

	hasher, err := crypto.NewPasswordHasher(crypto.Argon2Params{
		Memory: 8 * 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	require.NoError(t, err)

	return Config{
		Gateway: auth.NewGateway(auth.Deps{
			Credentials: store,
			Profiles:    store,
			Sessions:    session.NewManager(store, logger),
			Tokens:      token.NewMemoryIssuer(),
			Hasher:      hasher,
			Logger:      logger,
		}),
		Logger:     logger,
		Addr:       "127.0.0.1:0",
		Version:    "test",
		RateLimit:  100,
		RateWindow: time.Minute,
	}
}

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()

	h, stop, err := NewHandler(cfg)
	require.NoError(t, err)
	t.Cleanup(stop)
	return h
}

func do(t *testing.T, h http.Handler, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("User-Agent", "brook-test")
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_RegisterThenBrowse(t *testing.T) {
	h := newTestHandler(t, testConfig(t))

	w := do(t, h, http.MethodPost, "/auth/register", api.RegisterRequest{
		Username: "Ada", Email: "a@x.com", Password: "secret1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var grant api.RegisterResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&grant))
	assert.Equal(t, "ada", grant.Username)

	w = do(t, h, http.MethodGet, "/auth/check-username/ada", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"available":false,"reason":"Username already taken"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/ada", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1 profile views")

	w = do(t, h, http.MethodGet, grant.RedirectURL, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome back, Ada")

	w = do(t, h, http.MethodGet, "/api/v1/me", nil, http.Header{"Authorization": {"Bearer " + grant.AccessToken}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"profileViews":1`)

	w = do(t, h, http.MethodGet, "/api/v1/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/auth/verify-device", api.VerifyDeviceRequest{
		SessionID: grant.SessionID, SessionToken: grant.SessionToken,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)

	w = do(t, h, http.MethodPost, "/auth/logout", api.LogoutRequest{SessionID: grant.SessionID}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestRouter_Routes(t *testing.T) {
	h := newTestHandler(t, testConfig(t))

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, target: "/api/v1/health", wantStatus: http.StatusOK},
		{name: "login page", method: http.MethodGet, target: "/login", wantStatus: http.StatusOK},
		{name: "account without token", method: http.MethodGet, target: "/account", wantStatus: http.StatusSeeOther},
		{name: "unknown profile", method: http.MethodGet, target: "/nobody", wantStatus: http.StatusNotFound},
		{name: "unknown profile json", method: http.MethodGet, target: "/api/v1/profiles/nobody", wantStatus: http.StatusNotFound},
		{name: "nested path", method: http.MethodGet, target: "/ada/extra", wantStatus: http.StatusNotFound},
		{name: "register wrong method", method: http.MethodGet, target: "/auth/register", wantStatus: http.StatusMethodNotAllowed},
		{name: "profile wrong method", method: http.MethodDelete, target: "/ada", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.target, nil, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_RateLimitsAuthOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = 2
	h := newTestHandler(t, cfg)

	for range 2 {
		w := do(t, h, http.MethodGet, "/auth/check-username/grace", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, h, http.MethodGet, "/auth/check-username/grace", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// pages are not limited
	for range 3 {
		w = do(t, h, http.MethodGet, "/login", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRouter_HealthDegraded(t *testing.T) {
	cfg := testConfig(t)
	cfg.HealthChecks = map[string]handlers.HealthCheck{
		"sessions": func(ctx context.Context) error { return errors.New("down") },
	}
	h := newTestHandler(t, cfg)

	w := do(t, h, http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","version":"test"}`, w.Body.String())
}

func TestNewHandler_Validation(t *testing.T) {
	valid := testConfig(t)

	tests := []struct {
		mutate func(*Config)
		name   string
	}{
		{name: "no gateway", mutate: func(c *Config) { c.Gateway = nil }},
		{name: "no logger", mutate: func(c *Config) { c.Logger = nil }},
		{name: "zero rate", mutate: func(c *Config) { c.RateLimit = 0 }},
		{name: "zero window", mutate: func(c *Config) { c.RateWindow = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, _, err := NewHandler(cfg)
			assert.Error(t, err)
		})
	}

	cfg := valid
	cfg.Addr = " "
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestServer_ShutdownOnCancel(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
