package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoad(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	at := time.UnixMilli(time.Now().UnixMilli())

	want := Credential{Profile: "key-1", UID: "u1", Email: "ops@example.com", DisplayName: "Ops", RefreshToken: "rt-1", UpdatedAt: at}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, want.UID, got.UID)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestSaveReplaces(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Credential{Profile: "key-1", UID: "u1", Email: "a@example.com", RefreshToken: "rt-1"}))
	require.NoError(t, s.Save(ctx, Credential{Profile: "key-1", UID: "u2", Email: "b@example.com", RefreshToken: "rt-2"}))

	got, err := s.Load(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.UID)
	assert.Equal(t, "rt-2", got.RefreshToken)
}

func TestLoadMissingAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, Credential{Profile: "key-1", UID: "u1", RefreshToken: "rt-1"}))
	require.NoError(t, s.Delete(ctx, "key-1"))
	require.NoError(t, s.Delete(ctx, "key-1"))

	_, err = s.Load(ctx, "key-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresToken(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.Save(context.Background(), Credential{Profile: "key-1"}))
}

func TestReopenKeepsCredentialsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, Credential{Profile: "key-1", UID: "u1", RefreshToken: "rt-1"}))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UID)
}
