package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
	"github.com/brooksh/brook/internal/validation"
)

const profileColumns = `uid, username, display_alias, profile_views, created_at, last_updated`

// CreateProfile inserts a profile. The unique index on username is the
// arbiter between concurrent claims of the same name.
func (s *Storage) CreateProfile(ctx context.Context, profile *models.Profile) error {
	username := validation.CanonicalUsername(profile.Username)
	if validation.IsReservedUsername(username) {
		return storage.ErrReservedUsername
	}

	query := `
		INSERT INTO profiles (uid, username, display_alias, profile_views, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		profile.UID,
		username,
		profile.DisplayAlias,
		profile.ProfileViews,
		toMillis(profile.CreatedAt),
		toMillis(profile.LastUpdated),
	)
	if err != nil {
		if isUniqueViolation(err, "profiles.username") {
			return storage.ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

// GetProfileByUsername retrieves profile by username
func (s *Storage) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username = ?`

	return s.scanProfile(s.db.QueryRowContext(ctx, query, validation.CanonicalUsername(username)))
}

// GetProfileByUID retrieves profile by uid
func (s *Storage) GetProfileByUID(ctx context.Context, uid int64) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE uid = ?`

	return s.scanProfile(s.db.QueryRowContext(ctx, query, uid))
}

// IncrementViews bumps the counter in a single statement so concurrent
// viewers never lose an update.
func (s *Storage) IncrementViews(ctx context.Context, uid int64, at time.Time) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET profile_views = profile_views + 1, last_updated = ?
		WHERE uid = ?
		RETURNING ` + profileColumns

	return s.scanProfile(s.db.QueryRowContext(ctx, query, toMillis(at), uid))
}

// DeleteProfile removes profile by uid
func (s *Storage) DeleteProfile(ctx context.Context, uid int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrProfileNotFound
	}

	return nil
}

func (s *Storage) scanProfile(row *sql.Row) (*models.Profile, error) {
	var (
		p                    models.Profile
		createdAt, updatedAt int64
	)

	err := row.Scan(&p.UID, &p.Username, &p.DisplayAlias, &p.ProfileViews, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p.CreatedAt = fromMillis(createdAt)
	p.LastUpdated = fromMillis(updatedAt)

	return &p, nil
}

// isUniqueViolation matches the driver message, e.g.
// "constraint failed: UNIQUE constraint failed: profiles.username (2067)".
func isUniqueViolation(err error, column string) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
