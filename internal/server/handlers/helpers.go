package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/brooksh/brook/internal/crypto"
	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/auth"
	"github.com/brooksh/brook/pkg/api"
)

// maxBodySize caps JSON request bodies
const maxBodySize = 64 << 10

// Gateway is the identity service the handlers call into
type Gateway interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Grant, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.Grant, error)
	CheckUsernameAvailable(ctx context.Context, name string) (*auth.Availability, error)
	VerifyDevice(ctx context.Context, sessionID, sessionToken, fingerprint string) (*auth.DeviceStatus, error)
	Logout(ctx context.Context, sessionID string) error
	ResolveAccessToken(ctx context.Context, accessToken string) (*models.Profile, error)
	ViewProfile(ctx context.Context, username string) (*models.Profile, error)
	GetProfile(ctx context.Context, username string) (*models.Profile, error)
}

var _ Gateway = (*auth.Gateway)(nil)

// DeviceFingerprint derives the device fingerprint from request headers
func DeviceFingerprint(r *http.Request) string {
	return crypto.Fingerprint(
		r.Header.Get("User-Agent"),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
	)
}

// BearerToken extracts the token from "Authorization: Bearer <token>"
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// base carries the logger and the response helpers shared by all handlers
type base struct {
	logger *slog.Logger
}

func (b *base) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (b *base) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func (b *base) sendError(w http.ResponseWriter, message string, statusCode int) {
	b.sendJSON(w, api.ErrorResponse{Error: message}, statusCode)
}

// sendGatewayError maps the error kind to a status. authStatus is used for
// KindAuth: login answers 400, protected endpoints 401.
func (b *base) sendGatewayError(ctx context.Context, w http.ResponseWriter, op string, err error, authStatus int) {
	status := statusFor(auth.KindOf(err), authStatus)

	if status >= http.StatusInternalServerError {
		b.logger.ErrorContext(ctx, "Request failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
	} else {
		b.logger.InfoContext(ctx, "Request rejected",
			slog.String("op", op),
			slog.String("kind", auth.KindOf(err).String()),
			slog.String("reason", auth.MessageOf(err)),
		)
	}

	b.sendError(w, auth.MessageOf(err), status)
}

func statusFor(kind auth.Kind, authStatus int) int {
	switch kind {
	case auth.KindValidation, auth.KindConflict:
		return http.StatusBadRequest
	case auth.KindAuth:
		return authStatus
	case auth.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (b *base) render(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		b.logger.ErrorContext(r.Context(), "failed to render page", slog.Any("error", err))
	}
}
