// Package storage defines the local cache of device sessions used by the CLI.
package storage

import (
	"context"
	"time"
)

// Session is what the CLI keeps after register or login. The session token
// is the long-lived device secret; the access token is short-lived and is
// refreshed through verify-device.
type Session struct {
	ExpiresAt    time.Time `json:"expires_at"`
	ServerURL    string    `json:"server_url"`
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	SessionToken string    `json:"session_token"`
	AccessToken  string    `json:"access_token"`
}

// Expired reports whether the device session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore keeps one session per server URL
type SessionStore interface {
	// SaveSession creates or replaces the session for session.ServerURL
	SaveSession(ctx context.Context, session *Session) error

	// GetSession returns ErrSessionNotFound when nothing is cached
	GetSession(ctx context.Context, serverURL string) (*Session, error)

	// DeleteSession returns ErrSessionNotFound when nothing is cached
	DeleteSession(ctx context.Context, serverURL string) error
}
