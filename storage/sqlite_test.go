package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "bookshelf-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteGetMissingKey(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), NamespaceSettings, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSetOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, Put(ctx, s, NamespaceLastAccess, "7", int64(100)))
	require.NoError(t, Put(ctx, s, NamespaceLastAccess, "7", int64(250)))

	got, err := Lookup[int64](ctx, s, NamespaceLastAccess, "7")
	require.NoError(t, err)
	assert.Equal(t, int64(250), got)
}

func TestSQLiteKeysAreNamespacedAndOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, Put(ctx, s, NamespaceBookmarkState, "b", 1))
	require.NoError(t, Put(ctx, s, NamespaceBookmarkState, "a", 2))
	require.NoError(t, Put(ctx, s, NamespaceBookmark, "c", "other namespace"))

	keys, err := s.Keys(ctx, NamespaceBookmarkState)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	keys, err = s.Keys(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLiteDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, Put(ctx, s, NamespaceBookmark, "x", "value"))
	require.NoError(t, s.Delete(ctx, NamespaceBookmark, "x"))
	require.NoError(t, s.Delete(ctx, NamespaceBookmark, "x"))

	_, err := s.Get(ctx, NamespaceBookmark, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrFallsBackOnMissingAndUndecodable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Equal(t, 7, GetOr(ctx, s, NamespaceSettings, KeyDownloadSortMethod, 7))

	require.NoError(t, s.Set(ctx, NamespaceSettings, KeyDownloadSortMethod, []byte(`"not a number"`)))
	assert.Equal(t, 7, GetOr(ctx, s, NamespaceSettings, KeyDownloadSortMethod, 7))
}
