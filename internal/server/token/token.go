// Package token issues and validates short-lived bearer access tokens.
//
// Possession of a token is enough to act as its uid until it expires. Tokens
// are not bound to a device; device binding is the job of the session package.
package token

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long an access token stays valid
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is returned for unknown, malformed or expired tokens
var ErrInvalidToken = errors.New("invalid or expired access token")

// Issuer mints access tokens bound to a uid
type Issuer interface {
	// Issue returns a new token for uid
	Issue(ctx context.Context, uid int64) (string, error)

	// Validate resolves a token to its uid
	// Returns ErrInvalidToken if the token is unknown or expired
	Validate(ctx context.Context, token string) (int64, error)
}
