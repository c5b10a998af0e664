package memory

import (
	"context"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
	"github.com/brooksh/brook/internal/validation"
)

// CreateCredential stores a credential and allocates the next uid
func (s *Storage) CreateCredential(ctx context.Context, email, passwordSecret string) (int64, error) {
	key := validation.NormalizeEmail(email)

	s.credsMu.Lock()
	defer s.credsMu.Unlock()

	if _, exists := s.emails[key]; exists {
		return 0, storage.ErrEmailTaken
	}

	s.nextUID++
	uid := s.nextUID

	s.creds[uid] = &models.Credential{
		UID:            uid,
		Email:          key,
		PasswordSecret: passwordSecret,
	}
	s.emails[key] = uid

	return uid, nil
}

// GetCredentialByEmail retrieves credential by email
func (s *Storage) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	s.credsMu.RLock()
	defer s.credsMu.RUnlock()

	uid, ok := s.emails[validation.NormalizeEmail(email)]
	if !ok {
		return nil, storage.ErrCredentialNotFound
	}

	c := *s.creds[uid]
	return &c, nil
}

// DeleteCredential removes credential by uid. The uid is never reused.
func (s *Storage) DeleteCredential(ctx context.Context, uid int64) error {
	s.credsMu.Lock()
	defer s.credsMu.Unlock()

	stored, ok := s.creds[uid]
	if !ok {
		return storage.ErrCredentialNotFound
	}

	delete(s.emails, stored.Email)
	delete(s.creds, uid)

	return nil
}
