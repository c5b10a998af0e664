package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/brooksh/brook/internal/server/auth"
	"github.com/brooksh/brook/pkg/api"
)

// AccountPath is where a freshly authenticated browser is sent
const AccountPath = "/account"

// AuthHandler serves the /auth/* JSON endpoints
type AuthHandler struct {
	base
	gateway Gateway
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(logger *slog.Logger, gateway Gateway) *AuthHandler {
	return &AuthHandler{
		base:    base{logger: logger},
		gateway: gateway,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	grant, err := h.gateway.Register(ctx, auth.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Remember:    req.RememberDevice,
		Fingerprint: DeviceFingerprint(r),
	})
	if err != nil {
		h.sendGatewayError(ctx, w, "register", err, http.StatusBadRequest)
		return
	}

	h.sendJSON(w, grantResponse(grant), http.StatusCreated)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	grant, err := h.gateway.Login(ctx, auth.LoginInput{
		Email:       req.Email,
		Password:    req.Password,
		Remember:    req.RememberDevice,
		Fingerprint: DeviceFingerprint(r),
	})
	if err != nil {
		h.sendGatewayError(ctx, w, "login", err, http.StatusBadRequest)
		return
	}

	h.logger.InfoContext(ctx, "User logged in", slog.String("username", grant.Profile.Username))

	h.sendJSON(w, grantResponse(grant), http.StatusOK)
}

// CheckUsername handles GET /auth/check-username/{name}
func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	availability, err := h.gateway.CheckUsernameAvailable(ctx, r.PathValue("name"))
	if err != nil {
		h.sendGatewayError(ctx, w, "check-username", err, http.StatusBadRequest)
		return
	}

	h.sendJSON(w, api.UsernameCheckResponse{
		Available: availability.Available,
		Reason:    availability.Reason,
	}, http.StatusOK)
}

// VerifyDevice handles POST /auth/verify-device.
// An invalid session is answered with 200 and valid=false.
func (h *AuthHandler) VerifyDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.VerifyDeviceRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode verify-device request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	status, err := h.gateway.VerifyDevice(ctx, req.SessionID, req.SessionToken, DeviceFingerprint(r))
	if err != nil {
		h.sendGatewayError(ctx, w, "verify-device", err, http.StatusUnauthorized)
		return
	}

	resp := api.VerifyDeviceResponse{Valid: status.Valid}
	if status.Valid {
		resp.Username = status.Profile.Username
		resp.AccessToken = status.AccessToken
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LogoutRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode logout request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.gateway.Logout(ctx, req.SessionID); err != nil {
		h.sendGatewayError(ctx, w, "logout", err, http.StatusBadRequest)
		return
	}

	h.sendJSON(w, api.LogoutResponse{Success: true}, http.StatusOK)
}

func grantResponse(g *auth.Grant) api.SessionGrant {
	return api.SessionGrant{
		Username:     g.Profile.Username,
		RedirectURL:  AccountPath + "?token=" + url.QueryEscape(g.AccessToken),
		SessionID:    g.Session.SessionID,
		SessionToken: g.Session.SessionToken,
		AccessToken:  g.AccessToken,
		ExpiresAt:    g.Session.ExpiresAt,
	}
}
