package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/auth"
)

type resolverFunc func(ctx context.Context, token string) (*models.Profile, error)

func (f resolverFunc) ResolveAccessToken(ctx context.Context, token string) (*models.Profile, error) {
	return f(ctx, token)
}

func TestRequireAccessToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ada := &models.Profile{UID: 1, Username: "ada"}

	resolver := resolverFunc(func(ctx context.Context, token string) (*models.Profile, error) {
		switch token {
		case "good":
			return ada, nil
		case "broken":
			return nil, &auth.Error{Kind: auth.KindStorage, Message: auth.MsgInternal, Err: errors.New("db down")}
		default:
			return nil, &auth.Error{Kind: auth.KindAuth, Message: auth.MsgInvalidToken}
		}
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lower case scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "storage failure", header: "Bearer broken", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *models.Profile
			handler := RequireAccessToken(logger, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p, ok := ProfileFromContext(r.Context())
				require.True(t, ok)
				got = p
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, ada, got)
				return
			}
			assert.Nil(t, got)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestProfileFromContext_Missing(t *testing.T) {
	_, ok := ProfileFromContext(context.Background())
	assert.False(t, ok)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
