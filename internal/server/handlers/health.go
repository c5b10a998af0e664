package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/brooksh/brook/pkg/api"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler serves GET /api/v1/health
type HealthHandler struct {
	base
	checks  map[string]HealthCheck
	version string
}

// NewHealthHandler creates a new health handler. checks may be nil.
func NewHealthHandler(logger *slog.Logger, version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		base:    base{logger: logger},
		version: version,
		checks:  checks,
	}
}

// Health answers 200 "ok" when every check passes, 503 "degraded" otherwise
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := api.HealthResponse{Status: "ok", Version: h.version}
	status := http.StatusOK

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "Health check failed",
				slog.String("check", name),
				slog.Any("error", err),
			)
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	h.sendJSON(w, resp, status)
}
