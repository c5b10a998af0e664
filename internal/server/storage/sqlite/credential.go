package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
	"github.com/brooksh/brook/internal/validation"
)

// CreateCredential stores a credential and returns the allocated uid.
// AUTOINCREMENT keeps uids monotonic, deleted ones are never handed out again.
func (s *Storage) CreateCredential(ctx context.Context, email, passwordSecret string) (int64, error) {
	query := `
		INSERT INTO credentials (email, password_secret, created_at)
		VALUES (?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		validation.NormalizeEmail(email),
		passwordSecret,
		toMillis(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err, "credentials.email") {
			return 0, storage.ErrEmailTaken
		}
		return 0, fmt.Errorf("failed to insert credential: %w", err)
	}

	uid, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get credential uid: %w", err)
	}

	return uid, nil
}

// GetCredentialByEmail retrieves credential by email
func (s *Storage) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query := `
		SELECT uid, email, password_secret
		FROM credentials
		WHERE email = ?
	`

	c := &models.Credential{}

	err := s.db.QueryRowContext(ctx, query, validation.NormalizeEmail(email)).Scan(
		&c.UID,
		&c.Email,
		&c.PasswordSecret,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return c, nil
}

// DeleteCredential removes credential by uid. The profile row, if any,
// goes with it through ON DELETE CASCADE.
func (s *Storage) DeleteCredential(ctx context.Context, uid int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrCredentialNotFound
	}

	return nil
}
