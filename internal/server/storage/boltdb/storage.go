// Package boltdb persists device sessions in a bbolt file.
//
// Sessions are kept as JSON under their id. A second bucket indexes them by
// expiry (big-endian unix nanos followed by the id) so that sweeping expired
// sessions walks only the prefix that is due.
package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
)

var (
	bucketSessions = []byte("sessions")
	bucketExpiry   = []byte("sessions_by_expiry")
)

var _ storage.SessionStorage = (*Storage)(nil)

// Storage represents BoltDB session storage
type Storage struct {
	db *bbolt.DB
}

// New opens (or creates) the bolt file at dbPath
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database file
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the session buckets are readable
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketSessions) == nil {
			return fmt.Errorf("bucket %s missing", bucketSessions)
		}
		return nil
	})
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSessions, bucketExpiry} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// SaveSession creates or replaces a session
func (s *Storage) SaveSession(ctx context.Context, session *models.DeviceSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		expiry := tx.Bucket(bucketExpiry)

		id := []byte(session.SessionID)

		if prev := sessions.Get(id); prev != nil {
			var old models.DeviceSession
			if err := json.Unmarshal(prev, &old); err == nil {
				if err := expiry.Delete(expiryKey(old.ExpiresAt, old.SessionID)); err != nil {
					return fmt.Errorf("failed to drop expiry index: %w", err)
				}
			}
		}

		if err := sessions.Put(id, data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		if err := expiry.Put(expiryKey(session.ExpiresAt, session.SessionID), nil); err != nil {
			return fmt.Errorf("failed to index session: %w", err)
		}

		return nil
	})
}

// TouchSession refreshes LastUsedAt. The expiry index is left alone.
func (s *Storage) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		id := []byte(sessionID)

		data := sessions.Get(id)
		if data == nil {
			return storage.ErrSessionNotFound
		}

		var sess models.DeviceSession
		if err := json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		sess.LastUsedAt = at

		updated, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := sessions.Put(id, updated); err != nil {
			return fmt.Errorf("failed to touch session: %w", err)
		}
		return nil
	})
}

// GetSession retrieves session by id
func (s *Storage) GetSession(ctx context.Context, sessionID string) (*models.DeviceSession, error) {
	var sess *models.DeviceSession

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(sessionID))
		if data == nil {
			return storage.ErrSessionNotFound
		}

		sess = &models.DeviceSession{}
		if err := json.Unmarshal(data, sess); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// DeleteSession deletes session by id
func (s *Storage) DeleteSession(ctx context.Context, sessionID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteSession(tx, []byte(sessionID))
	})
}

// DeleteExpiredSessions walks the expiry index up to now
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		var due [][]byte

		// ExpiresAt <= now, so the upper bound is inclusive of now
		limit := expiryPrefix(now)
		c := tx.Bucket(bucketExpiry).Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k[:8], limit) <= 0; k, _ = c.Next() {
			due = append(due, bytes.Clone(k[8:]))
		}

		// cursor deletes skip entries in bbolt, so delete after the walk
		for _, id := range due {
			if err := deleteSession(tx, id); err != nil {
				return err
			}
		}

		deleted = len(due)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

func deleteSession(tx *bbolt.Tx, id []byte) error {
	sessions := tx.Bucket(bucketSessions)

	data := sessions.Get(id)
	if data == nil {
		return nil
	}

	var sess models.DeviceSession
	if err := json.Unmarshal(data, &sess); err == nil {
		if err := tx.Bucket(bucketExpiry).Delete(expiryKey(sess.ExpiresAt, sess.SessionID)); err != nil {
			return fmt.Errorf("failed to drop expiry index: %w", err)
		}
	}

	if err := sessions.Delete(id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func expiryPrefix(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return b
}

func expiryKey(t time.Time, sessionID string) []byte {
	return append(expiryPrefix(t), sessionID...)
}
