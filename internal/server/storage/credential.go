package storage

import (
	"context"

	"github.com/brooksh/brook/internal/models"
)

// CredentialStorage defines interface for login credential persistence
type CredentialStorage interface {
	// CreateCredential stores email and password secret and allocates a new uid.
	// Email must already be normalized (lowercase).
	// Returns ErrEmailTaken if email already exists
	CreateCredential(ctx context.Context, email, passwordSecret string) (int64, error)

	// GetCredentialByEmail retrieves credential by email (case-insensitive)
	// Returns ErrCredentialNotFound if credential doesn't exist
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)

	// DeleteCredential removes a credential. Used for compensating deletes.
	// Returns ErrCredentialNotFound if credential doesn't exist
	DeleteCredential(ctx context.Context, uid int64) error
}
