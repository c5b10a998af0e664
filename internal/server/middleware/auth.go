package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/auth"
)

// TokenResolver maps a bearer access token to its profile
type TokenResolver interface {
	ResolveAccessToken(ctx context.Context, accessToken string) (*models.Profile, error)
}

type profileKey struct{}

// RequireAccessToken rejects requests without a valid bearer access token
// with a JSON 401. On success the profile is stored in the request context.
func RequireAccessToken(logger *slog.Logger, resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				unauthorized(w)
				return
			}

			profile, err := resolver.ResolveAccessToken(ctx, strings.TrimSpace(token))
			if err != nil {
				if auth.KindOf(err) == auth.KindStorage {
					logger.ErrorContext(ctx, "Failed to resolve access token", slog.Any("error", err))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
					return
				}
				logger.DebugContext(ctx, "Access token rejected", slog.Any("error", err))
				unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, profileKey{}, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileFromContext returns the profile stored by RequireAccessToken
func ProfileFromContext(ctx context.Context) (*models.Profile, bool) {
	p, ok := ctx.Value(profileKey{}).(*models.Profile)
	return p, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="brook"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Invalid or expired access token"}`))
}

// Chain applies middlewares so that the first one is outermost
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
