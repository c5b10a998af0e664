package memory

import (
	"context"
	"time"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
)

// SaveSession creates or replaces a session
func (s *Storage) SaveSession(ctx context.Context, session *models.DeviceSession) error {
	stored := *session

	s.sessionsMu.Lock()
	s.sessions[stored.SessionID] = &stored
	s.sessionsMu.Unlock()

	return nil
}

// GetSession retrieves session by id
func (s *Storage) GetSession(ctx context.Context, sessionID string) (*models.DeviceSession, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}

	sess := *stored
	return &sess, nil
}

// TouchSession refreshes LastUsedAt of a stored session
func (s *Storage) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	stored, ok := s.sessions[sessionID]
	if !ok {
		return storage.ErrSessionNotFound
	}

	stored.LastUsedAt = at
	return nil
}

// DeleteSession deletes session by id
func (s *Storage) DeleteSession(ctx context.Context, sessionID string) error {
	s.sessionsMu.Lock()
	delete(s.sessions, sessionID)
	s.sessionsMu.Unlock()

	return nil
}

// DeleteExpiredSessions scans every session. Fine for small deployments;
// the bolt backend keeps an expiry index instead.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	deleted := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			deleted++
		}
	}

	return deleted, nil
}
