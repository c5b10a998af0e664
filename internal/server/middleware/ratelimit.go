package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window token bucket keyed by client IP.
// Each key gets rate requests per window; the bucket refills in full once
// the window has passed.
type RateLimiter struct {
	buckets    map[string]*bucket
	logger     *slog.Logger
	now        func() time.Time
	stopC      chan struct{}
	rate       int
	window     time.Duration
	mu         sync.Mutex
	once       sync.Once
	trustProxy bool
}

// RateLimitOption configures RateLimiter
type RateLimitOption func(*RateLimiter)

// TrustForwardedHeaders keys buckets by X-Forwarded-For / X-Real-IP.
// Only safe behind a reverse proxy that overwrites those headers; otherwise
// any client can pick a fresh key per request.
func TrustForwardedHeaders() RateLimitOption {
	return func(rl *RateLimiter) { rl.trustProxy = true }
}

type bucket struct {
	lastRefill time.Time
	tokens     int
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewRateLimiter(rate int, window time.Duration, logger *slog.Logger, opts ...RateLimitOption) *RateLimiter {
	rl := newRateLimiter(rate, window, logger, time.Now)
	for _, opt := range opts {
		opt(rl)
	}
	go rl.cleanupLoop()
	return rl
}

func newRateLimiter(rate int, window time.Duration, logger *slog.Logger, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		logger:  logger,
		now:     now,
		stopC:   make(chan struct{}),
		rate:    rate,
		window:  window,
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopC:
			return
		}
	}
}

// cleanup drops buckets idle for more than two windows
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) > rl.window*2 {
			delete(rl.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopC) })
}

// Allow takes one token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.lastRefill) >= rl.window {
		b = &bucket{tokens: rl.rate, lastRefill: now}
		rl.buckets[key] = b
	}

	if b.tokens == 0 {
		return false
	}

	b.tokens--
	return true
}

// Middleware rejects requests over the limit with 429 and a Retry-After header
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(rl.window.Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r, rl.trustProxy)

		if !rl.Allow(key) {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
				slog.String("ip", key),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests, please try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the connection address without its port. With trustProxy
// the first X-Forwarded-For hop wins, then X-Real-IP.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
