package services

import (
	"context"
	"errors"
	"fmt"

	"bookshelf/storage"
	"bookshelf/types"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultLibraryWorkers bounds concurrent persistence lookups of a library load
const DefaultLibraryWorkers = 8

// LibraryLoader reads bookmarked results from persistence
type LibraryLoader struct {
	store   storage.Store
	workers int
}

// NewLibraryLoader creates a loader running at most workers lookups at once
func NewLibraryLoader(store storage.Store, workers int) *LibraryLoader {
	if workers <= 0 {
		workers = DefaultLibraryWorkers
	}
	return &LibraryLoader{store: store, workers: workers}
}

// Load returns every bookmarked result whose read state equals state, in
// ascending id order. Ids whose state or cached result cannot be read are
// dropped. Only a failure to enumerate the bookmarks is returned as an error.
func (l *LibraryLoader) Load(ctx context.Context, state types.ReadType) ([]types.ResultCached, error) {
	if l.store == nil {
		return nil, nil
	}

	ids, err := l.store.Keys(ctx, storage.NamespaceBookmarkState)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w: %w", ErrTransientIO, err)
	}

	results := make([]*types.ResultCached, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := l.resolve(gctx, id, state)
			if err != nil {
				log.Debug().Err(err).Str("id", id).Msg("Dropping unresolved library entry")
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.ResultCached, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// resolve returns nil, nil when id has a different read state
func (l *LibraryLoader) resolve(ctx context.Context, id string, state types.ReadType) (*types.ResultCached, error) {
	stored, err := storage.Lookup[int](ctx, l.store, storage.NamespaceBookmarkState, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientIO, err)
	}
	if stored != state.PrefValue() {
		return nil, nil
	}

	r, err := storage.Lookup[types.ResultCached](ctx, l.store, storage.NamespaceBookmark, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientIO, err)
	}
	if r.ID == "" {
		r.ID = id
	}
	return &r, nil
}

// Bookmark stores result under state. ReadTypeNone removes the bookmark.
func (l *LibraryLoader) Bookmark(ctx context.Context, result types.ResultCached, state types.ReadType) error {
	if l.store == nil {
		return nil
	}
	if result.ID == "" {
		return errors.New("bookmark requires an id")
	}

	if state == types.ReadTypeNone {
		if err := l.store.Delete(ctx, storage.NamespaceBookmarkState, result.ID); err != nil {
			return fmt.Errorf("%w: %w", ErrTransientIO, err)
		}
		if err := l.store.Delete(ctx, storage.NamespaceBookmark, result.ID); err != nil {
			return fmt.Errorf("%w: %w", ErrTransientIO, err)
		}
		return nil
	}

	if err := storage.Put(ctx, l.store, storage.NamespaceBookmark, result.ID, result); err != nil {
		return fmt.Errorf("%w: %w", ErrTransientIO, err)
	}
	if err := storage.Put(ctx, l.store, storage.NamespaceBookmarkState, result.ID, state.PrefValue()); err != nil {
		return fmt.Errorf("%w: %w", ErrTransientIO, err)
	}
	return nil
}
