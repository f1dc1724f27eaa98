package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bookshelf/storage"
	"bookshelf/types"

	"github.com/rs/zerolog/log"
)

// DefaultSortMethod is used for a view with no stored preference
const DefaultSortMethod = types.SortLastAccess

// Preferences caches the sort method of each view and persists changes.
// Last-access timestamps are cached as they are read.
type Preferences struct {
	store storage.Store

	mu      sync.RWMutex
	methods map[types.View]types.SortMethod

	accessMu sync.RWMutex
	access   map[string]int64
}

// LoadPreferences reads the stored sort methods. store may be nil, in which
// case preferences live in memory only.
func LoadPreferences(ctx context.Context, store storage.Store) *Preferences {
	p := &Preferences{
		store:  store,
		access: make(map[string]int64),
		methods: map[types.View]types.SortMethod{
			types.ViewDownloads: DefaultSortMethod,
			types.ViewLibrary:   DefaultSortMethod,
		},
	}
	if store == nil {
		return p
	}

	for view := range p.methods {
		key, _ := sortKey(view)
		p.methods[view] = storage.GetOr(ctx, store, storage.NamespaceSettings, key, DefaultSortMethod)
	}
	log.Debug().
		Stringer("downloads", p.methods[types.ViewDownloads]).
		Stringer("library", p.methods[types.ViewLibrary]).
		Msg("Loaded sort preferences")
	return p
}

// SortMethod returns the active method of view
func (p *Preferences) SortMethod(view types.View) types.SortMethod {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.methods[view]
}

// SetSortMethod changes and persists the method of view
func (p *Preferences) SetSortMethod(ctx context.Context, view types.View, method types.SortMethod) error {
	key, err := sortKey(view)
	if err != nil {
		return err
	}

	if p.store != nil {
		if err := storage.Put(ctx, p.store, storage.NamespaceSettings, key, method); err != nil {
			return fmt.Errorf("failed to persist sort method: %w: %w", ErrTransientIO, err)
		}
	}

	p.mu.Lock()
	p.methods[view] = method
	p.mu.Unlock()
	return nil
}

// LastAccess returns a lookup of the last-access timestamps bound to ctx.
// Missing or unreadable timestamps read as 0. Stamps found in the store, or
// known to be missing, are served from the cache afterwards.
func (p *Preferences) LastAccess(ctx context.Context) LastAccessFunc {
	if p.store == nil {
		return func(string) int64 { return 0 }
	}
	return func(id string) int64 {
		p.accessMu.RLock()
		stamp, ok := p.access[id]
		p.accessMu.RUnlock()
		if ok {
			return stamp
		}

		stamp, err := storage.Lookup[int64](ctx, p.store, storage.NamespaceLastAccess, id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Debug().Err(err).Str("id", id).Msg("Failed to read last access")
			return 0
		}

		p.accessMu.Lock()
		p.access[id] = stamp
		p.accessMu.Unlock()
		return stamp
	}
}

// ForgetAccess drops the cached last-access stamp of id so the next lookup
// reads the store again
func (p *Preferences) ForgetAccess(id string) {
	p.accessMu.Lock()
	delete(p.access, id)
	p.accessMu.Unlock()
}

func sortKey(view types.View) (string, error) {
	switch view {
	case types.ViewDownloads:
		return storage.KeyDownloadSortMethod, nil
	case types.ViewLibrary:
		return storage.KeyLibrarySortMethod, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
}
