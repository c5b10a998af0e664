package token

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestMemoryIssuer_IssueAndValidate(t *testing.T) {
	ctx := context.Background()
	issuer := NewMemoryIssuer()

	tok, err := issuer.Issue(ctx, 42)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(tok, Prefix))
	assert.Len(t, tok, len(Prefix)+64)

	uid, err := issuer.Validate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestMemoryIssuer_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	issuer := NewMemoryIssuer(WithClock(clock.Now))

	// same uid, same instant: the nonce still separates them
	a, err := issuer.Issue(ctx, 1)
	require.NoError(t, err)
	b, err := issuer.Issue(ctx, 1)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, issuer.Len())
}

func TestMemoryIssuer_Validate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		advance time.Duration
		token   func(valid string) string
		wantErr bool
	}{
		{name: "fresh token", token: func(v string) string { return v }},
		{name: "just before expiry", advance: DefaultTTL - time.Second, token: func(v string) string { return v }},
		{name: "at expiry", advance: DefaultTTL, token: func(v string) string { return v }, wantErr: true},
		{name: "unknown token", token: func(string) string { return Prefix + "deadbeef" }, wantErr: true},
		{name: "empty token", token: func(string) string { return "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClock()
			issuer := NewMemoryIssuer(WithClock(clock.Now))

			tok, err := issuer.Issue(ctx, 7)
			require.NoError(t, err)

			clock.Advance(tt.advance)

			uid, err := issuer.Validate(ctx, tt.token(tok))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				assert.Zero(t, uid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(7), uid)
		})
	}
}

func TestMemoryIssuer_PurgesOnIssue(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	issuer := NewMemoryIssuer(WithClock(clock.Now))

	for uid := range int64(5) {
		_, err := issuer.Issue(ctx, uid)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, issuer.Len())

	clock.Advance(25 * time.Hour)

	fresh, err := issuer.Issue(ctx, 99)
	require.NoError(t, err)

	assert.Equal(t, 1, issuer.Len())

	uid, err := issuer.Validate(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, int64(99), uid)
}

func TestMemoryIssuer_ValidateDropsExpired(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	issuer := NewMemoryIssuer(WithClock(clock.Now), WithTTL(time.Minute))

	tok, err := issuer.Issue(ctx, 1)
	require.NoError(t, err)

	clock.Advance(time.Minute)

	_, err = issuer.Validate(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Zero(t, issuer.Len())
}

func TestMemoryIssuer_Concurrent(t *testing.T) {
	ctx := context.Background()
	issuer := NewMemoryIssuer()

	var wg sync.WaitGroup
	for uid := range int64(50) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := issuer.Issue(ctx, uid)
			if !assert.NoError(t, err) {
				return
			}
			got, err := issuer.Validate(ctx, tok)
			assert.NoError(t, err)
			assert.Equal(t, uid, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, issuer.Len())
}
