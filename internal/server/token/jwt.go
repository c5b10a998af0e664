package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtIssuerName = "brook"

// MinJWTSecretLen is the shortest accepted HMAC secret
const MinJWTSecretLen = 32

var _ Issuer = (*JWTIssuer)(nil)

// JWTIssuer mints stateless HS256 tokens. Unlike MemoryIssuer they survive
// restarts and can be checked by any process sharing the secret, but cannot
// be revoked before they expire.
type JWTIssuer struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// NewJWTIssuer creates a JWT issuer. secret must be at least MinJWTSecretLen bytes.
func NewJWTIssuer(secret []byte, ttl time.Duration, now func() time.Time) (*JWTIssuer, error) {
	if len(secret) < MinJWTSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinJWTSecretLen)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}

	return &JWTIssuer{secret: secret, ttl: ttl, now: now}, nil
}

// Issue signs a token for uid
func (i *JWTIssuer) Issue(ctx context.Context, uid int64) (string, error) {
	now := i.now()

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    jwtIssuerName,
		Subject:   strconv.FormatInt(uid, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// Validate verifies signature, issuer and expiry
func (i *JWTIssuer) Validate(ctx context.Context, token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return 0, errors.Join(ErrInvalidToken, err)
	}

	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return uid, nil
}
