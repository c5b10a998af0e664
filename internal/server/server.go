// Package server assembles the HTTP surface: JSON auth API, public profile
// pages and the account page.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brooksh/brook/internal/server/handlers"
	"github.com/brooksh/brook/internal/server/middleware"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 5 * time.Second
	healthPath             = "/api/v1/health"
)

// Config holds everything needed to build the router
type Config struct {
	Gateway         handlers.Gateway
	Logger          *slog.Logger
	HealthChecks    map[string]handlers.HealthCheck
	Addr            string
	Version         string
	RateLimit       int
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
	// TrustProxy keys rate limits by X-Forwarded-For, see middleware.TrustForwardedHeaders
	TrustProxy bool
}

// Server owns the http.Server and the rate limiter cleanup goroutine
type Server struct {
	httpServer      *http.Server
	stop            func()
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// NewHandler builds the root handler. The returned stop func releases the
// rate limiter and must be called once the handler is no longer served.
func NewHandler(cfg Config) (http.Handler, func(), error) {
	if cfg.Gateway == nil {
		return nil, nil, errors.New("gateway is required")
	}
	if cfg.Logger == nil {
		return nil, nil, errors.New("logger is required")
	}
	if cfg.RateLimit <= 0 || cfg.RateWindow <= 0 {
		return nil, nil, fmt.Errorf("invalid rate limit %d per %s", cfg.RateLimit, cfg.RateWindow)
	}

	logger := cfg.Logger
	var limitOpts []middleware.RateLimitOption
	if cfg.TrustProxy {
		limitOpts = append(limitOpts, middleware.TrustForwardedHeaders())
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger, limitOpts...)

	authHandler := handlers.NewAuthHandler(logger, cfg.Gateway)
	pageHandler := handlers.NewPageHandler(logger, cfg.Gateway)
	healthHandler := handlers.NewHealthHandler(logger, cfg.Version, cfg.HealthChecks)

	mux := http.NewServeMux()

	limited := func(h http.HandlerFunc) http.Handler {
		return limiter.Middleware(h)
	}
	mux.Handle("POST /auth/register", limited(authHandler.Register))
	mux.Handle("POST /auth/login", limited(authHandler.Login))
	mux.Handle("GET /auth/check-username/{name}", limited(authHandler.CheckUsername))
	mux.Handle("POST /auth/verify-device", limited(authHandler.VerifyDevice))
	mux.Handle("POST /auth/logout", limited(authHandler.Logout))

	mux.HandleFunc("GET "+healthPath, healthHandler.Health)
	mux.HandleFunc("GET /api/v1/profiles/{username}", pageHandler.ProfileJSON)
	mux.Handle("GET /api/v1/me", middleware.RequireAccessToken(logger, cfg.Gateway)(http.HandlerFunc(pageHandler.Me)))

	mux.HandleFunc("GET "+handlers.LoginPath, pageHandler.Login)
	mux.HandleFunc("GET "+handlers.AccountPath, pageHandler.Account)
	mux.HandleFunc("GET /{username}", pageHandler.Profile)

	root := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging(logger, healthPath),
		middleware.Recovery(logger),
	)

	return root, limiter.Stop, nil
}

// New validates cfg and constructs the server
func New(cfg Config) (*Server, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("http address is required")
	}

	handler, stop, err := NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose handler: %w", err)
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		stop:            stop,
		logger:          cfg.Logger,
		shutdownTimeout: timeout,
	}, nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	defer s.stop()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "HTTP server listening", slog.String("addr", s.httpServer.Addr))
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
