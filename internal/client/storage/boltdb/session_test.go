package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooksh/brook/internal/client/storage"
)

func createTestStorage(t *testing.T) *Storage {
	t.Helper()

	store, err := New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStorage_SaveGetDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	const server = "http://localhost:8080"
	session := &storage.Session{
		ServerURL:    server,
		Username:     "ada",
		SessionID:    "sid",
		SessionToken: "stok",
		AccessToken:  "brk_1",
		ExpiresAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	_, err := store.GetSession(ctx, server)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx, server)
	require.NoError(t, err)
	assert.Equal(t, session.Username, got.Username)
	assert.Equal(t, session.SessionToken, got.SessionToken)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

	// replace the access token
	session.AccessToken = "brk_2"
	require.NoError(t, store.SaveSession(ctx, session))
	got, err = store.GetSession(ctx, server)
	require.NoError(t, err)
	assert.Equal(t, "brk_2", got.AccessToken)

	require.NoError(t, store.DeleteSession(ctx, server))
	_, err = store.GetSession(ctx, server)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	assert.ErrorIs(t, store.DeleteSession(ctx, server), storage.ErrSessionNotFound)
}

func TestStorage_SessionsPerServer(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.SaveSession(ctx, &storage.Session{ServerURL: "http://a", Username: "ada"}))
	require.NoError(t, store.SaveSession(ctx, &storage.Session{ServerURL: "http://b", Username: "grace"}))

	a, err := store.GetSession(ctx, "http://a")
	require.NoError(t, err)
	b, err := store.GetSession(ctx, "http://b")
	require.NoError(t, err)

	assert.Equal(t, "ada", a.Username)
	assert.Equal(t, "grace", b.Username)
}

func TestStorage_SaveSessionRequiresServer(t *testing.T) {
	store := createTestStorage(t)
	assert.Error(t, store.SaveSession(context.Background(), &storage.Session{Username: "ada"}))
}

func TestStorage_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.db")

	store, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(ctx, &storage.Session{ServerURL: "http://a", SessionID: "sid"}))
	require.NoError(t, store.Close())

	store, err = New(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetSession(ctx, "http://a")
	require.NoError(t, err)
	assert.Equal(t, "sid", got.SessionID)
}
