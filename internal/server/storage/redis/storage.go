// Package redis keeps device sessions in Redis. Expiry is delegated to key
// TTLs, so the store never needs an explicit sweep.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
)

// DefaultPrefix namespaces session keys
const DefaultPrefix = "brook:sess:"

var _ storage.SessionStorage = (*Storage)(nil)

// Storage is a Redis-backed SessionStorage
type Storage struct {
	client redis.UniversalClient
	now    func() time.Time
	prefix string
}

// Option configures Storage
type Option func(*Storage)

// WithPrefix overrides DefaultPrefix
func WithPrefix(prefix string) Option {
	return func(s *Storage) { s.prefix = prefix }
}

// WithClock overrides time.Now, used to compute key TTLs
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

// New wraps an existing client. The caller owns the client.
func New(client redis.UniversalClient, opts ...Option) *Storage {
	s := &Storage{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and pings it
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Storage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return New(client, opts...), nil
}

// Close closes the underlying client
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection to Redis
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Storage) key(sessionID string) string {
	return s.prefix + sessionID
}

// SaveSession stores the session with a TTL matching its ExpiresAt.
// An already expired session is removed instead of written.
func (s *Storage) SaveSession(ctx context.Context, session *models.DeviceSession) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.DeleteSession(ctx, session.SessionID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves session by id
func (s *Storage) GetSession(ctx context.Context, sessionID string) (*models.DeviceSession, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess := &models.DeviceSession{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return sess, nil
}

// TouchSession rewrites the session with a new LastUsedAt. SET XX refuses to
// recreate a key deleted since the read, and KEEPTTL keeps the expiry.
func (s *Storage) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.LastUsedAt = at

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.client.SetArgs(ctx, s.key(sessionID), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.ErrSessionNotFound
		}
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}

// DeleteSession deletes session by id
func (s *Storage) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: Redis evicts keys on TTL.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
