package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooksh/brook/internal/crypto"
	"github.com/brooksh/brook/internal/server"
	"github.com/brooksh/brook/internal/server/auth"
	"github.com/brooksh/brook/internal/server/session"
	"github.com/brooksh/brook/internal/server/storage/memory"
	"github.com/brooksh/brook/internal/server/token"
	"github.com/brooksh/brook/pkg/api"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.Equal(t, "http://localhost:8080", client.BaseURL())
	assert.Equal(t, DefaultUserAgent, client.userAgent)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_Register(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))

		var req api.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ada", req.Username)
		assert.True(t, req.RememberDevice)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.RegisterResponse{
			SessionID:    "sid",
			SessionToken: "stok",
			AccessToken:  "brk_x",
			Username:     "ada",
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Register(context.Background(), api.RegisterRequest{
		Username:       "ada",
		Email:          "a@x.com",
		Password:       "secret1",
		RememberDevice: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "sid", resp.SessionID)
	assert.Equal(t, "brk_x", resp.AccessToken)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    string
		statusCode int
	}{
		{
			name:       "json error body",
			statusCode: http.StatusBadRequest,
			body:       `{"error":"Username already taken"}`,
			wantErr:    "server error (400): Username already taken",
		},
		{
			name:       "plain body",
			statusCode: http.StatusBadGateway,
			body:       "bad gateway",
			wantErr:    "request failed with status 502",
		},
		{
			name:       "too many requests",
			statusCode: http.StatusTooManyRequests,
			body:       `{"error":"Too many requests, please try again later"}`,
			wantErr:    "server error (429)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := NewClient(srv.URL).Login(context.Background(), api.LoginRequest{Email: "a@x.com", Password: "x"})

			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.statusCode, StatusOf(err))
		})
	}
}

func TestClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CheckUsername(context.Background(), "ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
	assert.Zero(t, StatusOf(err))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).GetProfile(context.Background(), "ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_Me_SendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/me", r.URL.Path)
		assert.Equal(t, "Bearer brk_token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(api.ProfileResponse{Username: "ada"})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Me(context.Background(), "brk_token")
	require.NoError(t, err)
	assert.Equal(t, "ada", resp.Username)
}

func TestClient_PathEscaping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/check-username/a%2Fb", r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(api.UsernameCheckResponse{Reason: "invalid"})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).CheckUsername(context.Background(), "a/b")
	require.NoError(t, err)
	assert.False(t, resp.Available)
}

// newBrookServer runs the real router on in-memory stores
func newBrookServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	hasher, err := crypto.NewPasswordHasher(crypto.Argon2Params{
		Memory: 8 * 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	require.NoError(t, err)

	handler, stop, err := server.NewHandler(server.Config{
		Gateway: auth.NewGateway(auth.Deps{
			Credentials: store,
			Profiles:    store,
			Sessions:    session.NewManager(store, logger),
			Tokens:      token.NewMemoryIssuer(),
			Hasher:      hasher,
			Logger:      logger,
		}),
		Logger:     logger,
		Version:    "test",
		RateLimit:  100,
		RateWindow: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(stop)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AgainstServer(t *testing.T) {
	ctx := context.Background()
	client := NewClient(newBrookServer(t).URL)

	check, err := client.CheckUsername(ctx, "Ada")
	require.NoError(t, err)
	assert.True(t, check.Available)

	reg, err := client.Register(ctx, api.RegisterRequest{Username: "Ada", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada", reg.Username)

	_, err = client.Register(ctx, api.RegisterRequest{Username: "ADA", Email: "b@x.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	login, err := client.Login(ctx, api.LoginRequest{Email: "A@X.com", Password: "secret1"})
	require.NoError(t, err)

	verify, err := client.VerifyDevice(ctx, api.VerifyDeviceRequest{SessionID: login.SessionID, SessionToken: login.SessionToken})
	require.NoError(t, err)
	assert.True(t, verify.Valid)
	assert.Equal(t, "ada", verify.Username)

	// another user agent is another device
	verify, err = NewClient(client.BaseURL(), WithUserAgent("other")).VerifyDevice(ctx, api.VerifyDeviceRequest{
		SessionID: reg.SessionID, SessionToken: reg.SessionToken,
	})
	require.NoError(t, err)
	assert.False(t, verify.Valid)

	me, err := client.Me(ctx, verify.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err), "invalid verify carries no token")
	assert.Nil(t, me)

	me, err = client.Me(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ada", me.Username)

	profile, err := client.GetProfile(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.DisplayName)

	require.NoError(t, client.Logout(ctx, login.SessionID))

	verify, err = client.VerifyDevice(ctx, api.VerifyDeviceRequest{SessionID: login.SessionID, SessionToken: login.SessionToken})
	require.NoError(t, err)
	assert.False(t, verify.Valid)
}
