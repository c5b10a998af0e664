// Package session manages per-device login sessions.
//
// A session is ACTIVE until it either expires or is revoked; both are
// terminal and remove the session from storage. Validation requires the
// session id, the session token and the device fingerprint to all match.
// The fingerprint is derived from client supplied headers, so it only
// catches casual reuse of a session on a different browser.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brooksh/brook/internal/crypto"
	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
)

const (
	// DefaultTTL applies when the user did not ask to be remembered
	DefaultTTL = 24 * time.Hour
	// RememberTTL applies to remembered devices
	RememberTTL = 30 * 24 * time.Hour
)

// ErrInvalidSession covers unknown, expired, revoked and mismatched sessions.
// Callers get no hint which check failed.
var ErrInvalidSession = errors.New("invalid or expired session")

// Credentials is what the device presents back: the id and the secret token
type Credentials struct {
	SessionID    string
	SessionToken string
	ExpiresAt    time.Time
}

// Manager creates, validates and revokes device sessions
type Manager struct {
	store  storage.SessionStorage
	logger *slog.Logger
	now    func() time.Time
}

// Option configures Manager
type Option func(*Manager)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager on top of store
func NewManager(store storage.SessionStorage, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session for uid on the device identified by fingerprint.
// Expired sessions are swept first.
func (m *Manager) Create(ctx context.Context, uid int64, fingerprint string, remember bool) (*Credentials, error) {
	if _, err := m.Sweep(ctx); err != nil {
		// a failed sweep must not block logins
		m.logger.WarnContext(ctx, "Session sweep failed", slog.Any("error", err))
	}

	sessionID, err := crypto.RandomToken()
	if err != nil {
		return nil, err
	}

	sessionToken, err := crypto.RandomToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	ttl := DefaultTTL
	if remember {
		ttl = RememberTTL
	}

	sess := &models.DeviceSession{
		SessionID:   sessionID,
		UID:         uid,
		TokenHash:   crypto.HashToken(sessionToken),
		Fingerprint: fingerprint,
		CreatedAt:   now,
		LastUsedAt:  now,
		ExpiresAt:   now.Add(ttl),
		Remembered:  remember,
	}

	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &Credentials{
		SessionID:    sessionID,
		SessionToken: sessionToken,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

// Validate returns the uid bound to the session. Any failed check deletes
// the session and yields ErrInvalidSession. On success LastUsedAt is refreshed.
func (m *Manager) Validate(ctx context.Context, sessionID, sessionToken, fingerprint string) (int64, error) {
	if sessionID == "" || sessionToken == "" {
		return 0, ErrInvalidSession
	}

	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return 0, ErrInvalidSession
		}
		return 0, fmt.Errorf("failed to get session: %w", err)
	}

	now := m.now()

	var reason string
	switch {
	case sess.Expired(now):
		reason = "expired"
	case !crypto.VerifyToken(sessionToken, sess.TokenHash):
		reason = "token mismatch"
	case !crypto.EqualFingerprint(fingerprint, sess.Fingerprint):
		reason = "fingerprint mismatch"
	}

	if reason != "" {
		m.logger.InfoContext(ctx, "Session invalidated",
			slog.String("reason", reason),
			slog.Int64("uid", sess.UID),
		)
		if err := m.store.DeleteSession(ctx, sessionID); err != nil {
			return 0, fmt.Errorf("failed to delete session: %w", err)
		}
		return 0, ErrInvalidSession
	}

	// a concurrent logout or sweep may have removed it since the read
	if err := m.store.TouchSession(ctx, sessionID, now); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return 0, ErrInvalidSession
		}
		return 0, fmt.Errorf("failed to touch session: %w", err)
	}

	return sess.UID, nil
}

// Revoke deletes the session. Revoking an unknown session is not an error.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// Sweep removes every expired session and returns how many were dropped
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpiredSessions(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}

	if n > 0 {
		m.logger.DebugContext(ctx, "Expired sessions swept", slog.Int("count", n))
	}

	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.WarnContext(ctx, "Session sweep failed", slog.Any("error", err))
			}
		}
	}
}
