package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todosync/internal/config"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"mem":    NewMemStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "store")),
		"sqlite": sq,
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, KeyAccessToken)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, KeyAccessToken, `{"access_token":"a"}`))
			v, err := s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.Equal(t, `{"access_token":"a"}`, v)

			require.NoError(t, s.Set(ctx, KeyAccessToken, "b"))
			v, err = s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.Equal(t, "b", v)

			require.NoError(t, s.Delete(ctx, KeyAccessToken))
			_, err = s.Get(ctx, KeyAccessToken)
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting an absent key is fine.
			assert.NoError(t, s.Delete(ctx, KeyAccessToken))
		})
	}
}

func TestFileStore_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s := NewFileStore(dir)
	require.NoError(t, s.Set(context.Background(), KeyUserInfo, "{}"))

	info, err := os.Stat(filepath.Join(dir, KeyUserInfo))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	s := NewFileStore(t.TempDir())
	err := s.Set(context.Background(), "../escape", "x")
	assert.ErrorContains(t, err, "invalid key")
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyDefaultListID, "list-1"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(ctx, KeyDefaultListID)
	require.NoError(t, err)
	assert.Equal(t, "list-1", v)
}

func TestOpen_SelectsBackend(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), Store: config.StoreFile}
	s, err := Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	cfg.Store = config.StoreSQLite
	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLiteStore{}, s)

	cfg.Store = "bogus"
	_, err = Open(cfg)
	assert.Error(t, err)
}
