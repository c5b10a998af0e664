package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/brooksh/brook/internal/models"
)

// Prefix tags opaque tokens minted by MemoryIssuer
const Prefix = "brk_"

const nonceSize = 16

var _ Issuer = (*MemoryIssuer)(nil)

// MemoryIssuer keeps opaque tokens in a process-local map. Tokens older than
// the TTL are purged on every Issue and rejected by Validate. Restarting the
// process invalidates every token.
type MemoryIssuer struct {
	tokens map[string]models.AccessToken
	now    func() time.Time
	ttl    time.Duration
	mu     sync.Mutex
}

// MemoryOption configures MemoryIssuer
type MemoryOption func(*MemoryIssuer)

// WithClock overrides time.Now
func WithClock(now func() time.Time) MemoryOption {
	return func(i *MemoryIssuer) { i.now = now }
}

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) MemoryOption {
	return func(i *MemoryIssuer) { i.ttl = ttl }
}

// NewMemoryIssuer creates an empty issuer
func NewMemoryIssuer(opts ...MemoryOption) *MemoryIssuer {
	i := &MemoryIssuer{
		tokens: make(map[string]models.AccessToken),
		now:    time.Now,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue mints Prefix + sha256(uid, timestamp, nonce)
func (i *MemoryIssuer) Issue(ctx context.Context, uid int64) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate token nonce: %w", err)
	}

	now := i.now()

	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(uid, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(now.UnixNano(), 10)))
	h.Write([]byte{0})
	h.Write(nonce)
	tok := Prefix + hex.EncodeToString(h.Sum(nil))

	i.mu.Lock()
	defer i.mu.Unlock()

	i.purgeLocked(now)
	i.tokens[tok] = models.AccessToken{Token: tok, UID: uid, IssuedAt: now}

	return tok, nil
}

// Validate resolves token to its uid. An expired token is dropped on sight.
func (i *MemoryIssuer) Validate(ctx context.Context, token string) (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	at, ok := i.tokens[token]
	if !ok {
		return 0, ErrInvalidToken
	}

	if i.expired(at, i.now()) {
		delete(i.tokens, token)
		return 0, ErrInvalidToken
	}

	return at.UID, nil
}

// Len returns the number of tokens currently held, expired ones included
func (i *MemoryIssuer) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.tokens)
}

func (i *MemoryIssuer) purgeLocked(now time.Time) {
	for tok, at := range i.tokens {
		if i.expired(at, now) {
			delete(i.tokens, tok)
		}
	}
}

func (i *MemoryIssuer) expired(at models.AccessToken, now time.Time) bool {
	return now.Sub(at.IssuedAt) >= i.ttl
}
