package memory

import (
	"context"
	"time"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
	"github.com/brooksh/brook/internal/validation"
)

// CreateProfile inserts a profile if its username is free
func (s *Storage) CreateProfile(ctx context.Context, profile *models.Profile) error {
	key := validation.CanonicalUsername(profile.Username)
	if validation.IsReservedUsername(key) {
		return storage.ErrReservedUsername
	}

	s.profilesMu.Lock()
	defer s.profilesMu.Unlock()

	if _, exists := s.usernames[key]; exists {
		return storage.ErrUsernameTaken
	}

	stored := *profile
	stored.Username = key
	s.profiles[stored.UID] = &stored
	s.usernames[key] = stored.UID

	return nil
}

// GetProfileByUsername retrieves profile by username
func (s *Storage) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	s.profilesMu.RLock()
	defer s.profilesMu.RUnlock()

	uid, ok := s.usernames[validation.CanonicalUsername(username)]
	if !ok {
		return nil, storage.ErrProfileNotFound
	}

	p := *s.profiles[uid]
	return &p, nil
}

// GetProfileByUID retrieves profile by uid
func (s *Storage) GetProfileByUID(ctx context.Context, uid int64) (*models.Profile, error) {
	s.profilesMu.RLock()
	defer s.profilesMu.RUnlock()

	stored, ok := s.profiles[uid]
	if !ok {
		return nil, storage.ErrProfileNotFound
	}

	p := *stored
	return &p, nil
}

// IncrementViews adds one view under the collection lock
func (s *Storage) IncrementViews(ctx context.Context, uid int64, at time.Time) (*models.Profile, error) {
	s.profilesMu.Lock()
	defer s.profilesMu.Unlock()

	stored, ok := s.profiles[uid]
	if !ok {
		return nil, storage.ErrProfileNotFound
	}

	stored.ProfileViews++
	stored.LastUpdated = at

	p := *stored
	return &p, nil
}

// DeleteProfile removes profile by uid
func (s *Storage) DeleteProfile(ctx context.Context, uid int64) error {
	s.profilesMu.Lock()
	defer s.profilesMu.Unlock()

	stored, ok := s.profiles[uid]
	if !ok {
		return storage.ErrProfileNotFound
	}

	delete(s.usernames, stored.Username)
	delete(s.profiles, uid)

	return nil
}
