package storage

import (
	"context"
	"time"

	"github.com/brooksh/brook/internal/models"
)

// ProfileStorage defines interface for public profile persistence.
// Implementations serialize writes so the username uniqueness check and the
// insert happen atomically.
type ProfileStorage interface {
	// CreateProfile inserts a profile for an existing credential uid.
	// Username must already be canonical (lowercase).
	// Returns ErrUsernameTaken or ErrReservedUsername
	CreateProfile(ctx context.Context, profile *models.Profile) error

	// GetProfileByUsername retrieves profile by username (case-insensitive)
	// Returns ErrProfileNotFound if profile doesn't exist
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)

	// GetProfileByUID retrieves profile by uid
	// Returns ErrProfileNotFound if profile doesn't exist
	GetProfileByUID(ctx context.Context, uid int64) (*models.Profile, error)

	// IncrementViews adds one view and bumps last_updated, returning the updated profile
	// Returns ErrProfileNotFound if profile doesn't exist
	IncrementViews(ctx context.Context, uid int64, at time.Time) (*models.Profile, error)

	// DeleteProfile removes a profile. Used for compensating deletes.
	// Returns ErrProfileNotFound if profile doesn't exist
	DeleteProfile(ctx context.Context, uid int64) error
}
