package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooksh/brook/internal/crypto"
	"github.com/brooksh/brook/internal/server/auth"
	"github.com/brooksh/brook/internal/server/session"
	"github.com/brooksh/brook/internal/server/storage/memory"
	"github.com/brooksh/brook/internal/server/token"
)

const testUserAgent = "Mozilla/5.0 (X11; Linux x86_64)"

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T) *auth.Gateway {
	t.Helper()

	logger := setupTestLogger()
	store := memory.New()

	hasher, err := crypto.NewPasswordHasher(crypto.Argon2Params{
		Memory: 8 * 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	require.NoError(t, err)

	return auth.NewGateway(auth.Deps{
		Credentials: store,
		Profiles:    store,
		Sessions:    session.NewManager(store, logger),
		Tokens:      token.NewMemoryIssuer(),
		Hasher:      hasher,
		Logger:      logger,
	})
}

// jsonRequest builds a request that looks like it came from the test browser
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testUserAgent)
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("Accept-Encoding", "gzip")
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lower case scheme", header: "bearer abc", want: "abc"},
		{name: "basic", header: "Basic abc", want: ""},
		{name: "no token", header: "Bearer", want: ""},
		{name: "empty", header: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, BearerToken(req))
		})
	}
}

func TestDeviceFingerprint(t *testing.T) {
	a := jsonRequest(t, http.MethodGet, "/", nil)
	b := jsonRequest(t, http.MethodGet, "/", nil)
	assert.Equal(t, DeviceFingerprint(a), DeviceFingerprint(b))

	b.Header.Set("User-Agent", "curl/8.0")
	assert.NotEqual(t, DeviceFingerprint(a), DeviceFingerprint(b))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(auth.KindValidation, http.StatusUnauthorized))
	assert.Equal(t, http.StatusBadRequest, statusFor(auth.KindConflict, http.StatusUnauthorized))
	assert.Equal(t, http.StatusUnauthorized, statusFor(auth.KindAuth, http.StatusUnauthorized))
	assert.Equal(t, http.StatusBadRequest, statusFor(auth.KindAuth, http.StatusBadRequest))
	assert.Equal(t, http.StatusNotFound, statusFor(auth.KindNotFound, http.StatusBadRequest))
	assert.Equal(t, http.StatusInternalServerError, statusFor(auth.KindStorage, http.StatusBadRequest))
}
