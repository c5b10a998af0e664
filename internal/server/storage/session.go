package storage

import (
	"context"
	"time"

	"github.com/brooksh/brook/internal/models"
)

// SessionStorage defines interface for device session persistence.
// The collection is rebuildable: losing it only forces users to log in again.
type SessionStorage interface {
	// SaveSession creates or replaces a session by SessionID
	SaveSession(ctx context.Context, session *models.DeviceSession) error

	// GetSession retrieves session by id
	// Returns ErrSessionNotFound if session doesn't exist
	GetSession(ctx context.Context, sessionID string) (*models.DeviceSession, error)

	// TouchSession sets LastUsedAt on an existing session and never creates one.
	// Returns ErrSessionNotFound if the session is gone.
	TouchSession(ctx context.Context, sessionID string, at time.Time) error

	// DeleteSession deletes session by id. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, sessionID string) error

	// DeleteExpiredSessions removes all sessions with ExpiresAt <= now
	// Returns number of deleted sessions
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}
