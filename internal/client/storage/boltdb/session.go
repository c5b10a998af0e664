package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/brooksh/brook/internal/client/storage"
)

// SaveSession stores the session under its server URL
func (s *Storage) SaveSession(ctx context.Context, session *storage.Session) error {
	if session.ServerURL == "" {
		return fmt.Errorf("session has no server url")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		if err := bucket.Put([]byte(session.ServerURL), data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// GetSession returns the session cached for serverURL
func (s *Storage) GetSession(ctx context.Context, serverURL string) (*storage.Session, error) {
	var session *storage.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		data := bucket.Get([]byte(serverURL))
		if data == nil {
			return storage.ErrSessionNotFound
		}

		session = &storage.Session{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession removes the session cached for serverURL
func (s *Storage) DeleteSession(ctx context.Context, serverURL string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		key := []byte(serverURL)
		if bucket.Get(key) == nil {
			return storage.ErrSessionNotFound
		}

		if err := bucket.Delete(key); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}
