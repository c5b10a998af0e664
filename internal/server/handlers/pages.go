package handlers

import (
	"log/slog"
	"net/http"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/auth"
	"github.com/brooksh/brook/internal/server/middleware"
	"github.com/brooksh/brook/internal/server/web"
	"github.com/brooksh/brook/pkg/api"
)

// LoginPath is the login page, target of failed account access
const LoginPath = "/login"

// PageHandler serves the HTML pages and the public profile JSON
type PageHandler struct {
	base
	gateway Gateway
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(logger *slog.Logger, gateway Gateway) *PageHandler {
	return &PageHandler{
		base:    base{logger: logger},
		gateway: gateway,
	}
}

// Profile handles GET /{username}. Every successful render counts a view.
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.PathValue("username")

	profile, err := h.gateway.ViewProfile(ctx, username)
	if err != nil {
		if auth.KindOf(err) == auth.KindNotFound {
			h.render(w, r, web.NotFoundPage(username), http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load profile", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.render(w, r, web.ProfilePage(profile), http.StatusOK)
}

// Account handles GET /account. The access token comes from ?token= or
// a bearer header; without a valid one the browser is sent to the login page.
func (h *PageHandler) Account(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		token = BearerToken(r)
	}

	profile, err := h.gateway.ResolveAccessToken(ctx, token)
	if err != nil {
		if auth.KindOf(err) != auth.KindAuth {
			h.logger.ErrorContext(ctx, "failed to resolve access token", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.render(w, r, web.AccountPage(profile), http.StatusOK)
}

// Login handles GET /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, web.LoginPage(), http.StatusOK)
}

// ProfileJSON handles GET /api/v1/profiles/{username}. It does not count a view.
func (h *PageHandler) ProfileJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := h.gateway.GetProfile(ctx, r.PathValue("username"))
	if err != nil {
		h.sendGatewayError(ctx, w, "get-profile", err, http.StatusUnauthorized)
		return
	}

	h.sendJSON(w, profileResponse(profile), http.StatusOK)
}

// Me handles GET /api/v1/me behind middleware.RequireAccessToken
func (h *PageHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		h.sendError(w, auth.MsgInvalidToken, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.sendJSON(w, profileResponse(profile), http.StatusOK)
}

func profileResponse(p *models.Profile) api.ProfileResponse {
	return api.ProfileResponse{
		Username:     p.Username,
		DisplayName:  p.DisplayAlias,
		ProfileViews: p.ProfileViews,
		CreatedAt:    p.CreatedAt,
	}
}
