package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bookshelf/engine"
	"bookshelf/storage"
	"bookshelf/types"

	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestRegistry(t *testing.T) (*Registry, *SnapshotPublisher, *engine.Local) {
	t.Helper()
	eng := engine.NewLocal(nil)
	pub := NewSnapshotPublisher()
	t.Cleanup(pub.Close)
	prefs := LoadPreferences(context.Background(), nil)
	return NewRegistry(eng, prefs, pub), pub, eng
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "bookshelf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func published(t *testing.T, pub *SnapshotPublisher) types.DownloadSnapshot {
	t.Helper()
	snap, ok := pub.Downloads().Value()
	require.True(t, ok, "no download snapshot published")
	return snap
}

func ids(entries []types.DownloadEntry) []int {
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func entry(id int, name string, count, total int) types.DownloadEntry {
	return types.DownloadEntry{
		ID:              id,
		DownloadData:    types.DownloadData{Name: name, APIName: "api"},
		DownloadedCount: count,
		DownloadedTotal: total,
	}
}

func progress(count, total int, state types.DownloadState) types.DownloadProgress {
	return types.DownloadProgress{Count: count, Total: total, State: state}
}
