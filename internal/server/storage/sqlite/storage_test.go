package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	storage, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
	}

	return storage, cleanup
}

func TestNew_FileDatabaseReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "brook.db")

	s, err := New(ctx, path)
	require.NoError(t, err)

	uid, err := s.CreateCredential(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// migrations are idempotent and data survives a restart
	s, err = New(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	cred, err := s.GetCredentialByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, cred.UID)
}

func TestNew_ForeignKeysEnabled(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	var enabled int
	require.NoError(t, s.DB().QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestStorage_Ping(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(ctx))
}
