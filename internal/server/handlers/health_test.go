package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brooksh/brook/pkg/api"
)

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		checks     map[string]HealthCheck
		name       string
		wantStatus string
		wantCode   int
	}{
		{
			name:       "no checks",
			wantStatus: "ok",
			wantCode:   http.StatusOK,
		},
		{
			name: "all pass",
			checks: map[string]HealthCheck{
				"db": func(context.Context) error { return nil },
			},
			wantStatus: "ok",
			wantCode:   http.StatusOK,
		},
		{
			name: "one fails",
			checks: map[string]HealthCheck{
				"db":       func(context.Context) error { return nil },
				"sessions": func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: "degraded",
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(setupTestLogger(), "1.2.3", tt.checks)

			w := httptest.NewRecorder()
			handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			resp := decodeBody[api.HealthResponse](t, w)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
		})
	}
}
