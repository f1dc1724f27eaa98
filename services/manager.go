package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"bookshelf/engine"
	"bookshelf/storage"
	"bookshelf/types"

	"github.com/rs/zerolog/log"
)

// resumeThreshold is the percentage above which a paused download is worth resuming
const resumeThreshold = 90.0

// DownloadManager is the command and observation surface over the download registry
type DownloadManager interface {
	Publisher() *SnapshotPublisher
	Downloads(ctx context.Context, method *types.SortMethod) types.DownloadSnapshot
	Entry(id int) (types.DownloadEntry, bool)
	SortMethod(view types.View) types.SortMethod
	SetSortMethod(ctx context.Context, view types.View, method types.SortMethod) error
	RequestRefresh()
	Regenerate(ctx context.Context, id int) error
	DeleteWork(ctx context.Context, id int) error
	ResumeCard(ctx context.Context, id int) error
	ResumeNearlyComplete(ctx context.Context) (int, error)
	LoadLibrary(ctx context.Context, state types.ReadType) (types.LibrarySnapshot, error)
	Bookmark(ctx context.Context, result types.ResultCached, state types.ReadType) error
	Close()
}

// Options tunes a DownloadManager
type Options struct {
	QueueSize      int
	LibraryWorkers int
}

// downloadManager wires the registry, its event subscriptions and the library loader
type downloadManager struct {
	eng      engine.Engine
	prefs    *Preferences
	pub      *SnapshotPublisher
	registry *Registry
	subs     *Subscriptions
	library  *LibraryLoader

	libMu      sync.Mutex
	libEntries []types.ResultCached
	libState   types.ReadType
	libLoaded  bool

	closeOnce sync.Once
}

// NewDownloadManager loads sort preferences, subscribes to eng and queues the
// initial refresh. store may be nil.
func NewDownloadManager(ctx context.Context, eng engine.Engine, store storage.Store, opts Options) DownloadManager {
	prefs := LoadPreferences(ctx, store)
	pub := NewSnapshotPublisher()
	registry := NewRegistry(eng, prefs, pub)

	return &downloadManager{
		eng:      eng,
		prefs:    prefs,
		pub:      pub,
		registry: registry,
		subs:     Subscribe(eng, registry, opts.QueueSize),
		library:  NewLibraryLoader(store, opts.LibraryWorkers),
	}
}

// Publisher returns the snapshot streams
func (m *downloadManager) Publisher() *SnapshotPublisher {
	return m.pub
}

// Downloads returns the current entries sorted by method, or by the active method when nil
func (m *downloadManager) Downloads(ctx context.Context, method *types.SortMethod) types.DownloadSnapshot {
	active := m.prefs.SortMethod(types.ViewDownloads)
	if method != nil {
		active = *method
	}
	return m.registry.Snapshot(ctx, active)
}

// Entry returns the current entry for id
func (m *downloadManager) Entry(id int) (types.DownloadEntry, bool) {
	return m.registry.Entry(id)
}

func (m *downloadManager) SortMethod(view types.View) types.SortMethod {
	return m.prefs.SortMethod(view)
}

// SetSortMethod persists method for view and republishes that view
func (m *downloadManager) SetSortMethod(ctx context.Context, view types.View, method types.SortMethod) error {
	if view == types.ViewLibrary {
		method = LibrarySortMethod(method)
	}
	if err := m.prefs.SetSortMethod(ctx, view, method); err != nil {
		return err
	}

	switch view {
	case types.ViewDownloads:
		m.registry.Resort()
	case types.ViewLibrary:
		m.libMu.Lock()
		defer m.libMu.Unlock()
		if m.libLoaded {
			m.publishLibraryLocked(ctx)
		}
	}
	return nil
}

func (m *downloadManager) RequestRefresh() {
	m.subs.RequestRefresh()
}

// Regenerate asks the engine to rebuild the epub of id. The entry is marked
// generating for the duration of the call, including when it fails.
func (m *downloadManager) Regenerate(ctx context.Context, id int) error {
	entry, ok := m.registry.Entry(id)
	if !ok {
		return fmt.Errorf("regenerate %d: %w", id, ErrNotFound)
	}

	release := m.registry.Generating(id)
	defer release()

	if err := m.eng.Regenerate(ctx, id, entry.DownloadedCount, entry.Author, entry.Name, entry.APIName); err != nil {
		log.Error().Err(err).Int("id", id).Str("name", entry.Name).Msg("Failed to regenerate epub")
		return fmt.Errorf("regenerate %q: %w: %w", entry.Name, ErrOperationFailure, err)
	}
	m.prefs.ForgetAccess(strconv.Itoa(id))
	return nil
}

// DeleteWork asks the engine to delete the work behind id. The registry is
// updated by the refresh the engine emits afterwards.
func (m *downloadManager) DeleteWork(ctx context.Context, id int) error {
	entry, ok := m.registry.Entry(id)
	if !ok {
		return fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}

	if err := m.eng.DeleteWork(ctx, entry.Author, entry.Name, entry.APIName); err != nil {
		log.Error().Err(err).Int("id", id).Str("name", entry.Name).Msg("Failed to delete work")
		return fmt.Errorf("delete %q: %w: %w", entry.Name, ErrOperationFailure, err)
	}
	return nil
}

// ResumeCard asks the engine to resume the download of id
func (m *downloadManager) ResumeCard(ctx context.Context, id int) error {
	if _, ok := m.registry.Entry(id); !ok {
		return fmt.Errorf("resume %d: %w", id, ErrNotFound)
	}
	if err := m.eng.Resume(ctx, id); err != nil {
		return fmt.Errorf("resume %d: %w: %w", id, ErrOperationFailure, err)
	}
	return nil
}

// ResumeNearlyComplete resumes every unfinished download above the resume
// threshold and returns how many were resumed
func (m *downloadManager) ResumeNearlyComplete(ctx context.Context) (int, error) {
	snap := m.registry.Snapshot(ctx, types.SortDefault)

	var (
		resumed int
		errs    []error
	)
	for _, e := range snap.Entries {
		if e.DownloadedTotal <= 0 || e.DownloadedCount >= e.DownloadedTotal {
			continue
		}
		if e.Percentage() <= resumeThreshold {
			continue
		}
		if err := m.eng.Resume(ctx, e.ID); err != nil {
			errs = append(errs, fmt.Errorf("resume %d: %w", e.ID, err))
			continue
		}
		resumed++
	}

	if len(errs) > 0 {
		return resumed, fmt.Errorf("%w: %w", ErrOperationFailure, errors.Join(errs...))
	}
	log.Info().Int("resumed", resumed).Msg("Resumed nearly complete downloads")
	return resumed, nil
}

// LoadLibrary loads the bookmarks in state, publishes them and returns the snapshot
func (m *downloadManager) LoadLibrary(ctx context.Context, state types.ReadType) (types.LibrarySnapshot, error) {
	entries, err := m.library.Load(ctx, state)
	if err != nil {
		return types.LibrarySnapshot{}, err
	}

	m.libMu.Lock()
	defer m.libMu.Unlock()

	m.libEntries = entries
	m.libState = state
	m.libLoaded = true
	return m.publishLibraryLocked(ctx), nil
}

// Bookmark stores result under state and reloads the library view if one is loaded
func (m *downloadManager) Bookmark(ctx context.Context, result types.ResultCached, state types.ReadType) error {
	if err := m.library.Bookmark(ctx, result, state); err != nil {
		return err
	}

	m.libMu.Lock()
	loaded, current := m.libLoaded, m.libState
	m.libMu.Unlock()

	if loaded {
		if _, err := m.LoadLibrary(ctx, current); err != nil {
			return err
		}
	}
	return nil
}

// Close detaches from the engine and ends every subscription. Safe to call more than once.
func (m *downloadManager) Close() {
	m.closeOnce.Do(func() {
		m.subs.Close()
		m.pub.Close()
	})
}

func (m *downloadManager) publishLibraryLocked(ctx context.Context) types.LibrarySnapshot {
	method := LibrarySortMethod(m.prefs.SortMethod(types.ViewLibrary))
	snap := types.LibrarySnapshot{
		Entries:    SortLibrary(m.libEntries, method, m.prefs.LastAccess(ctx)),
		SortMethod: method,
		ReadState:  m.libState,
	}
	m.pub.PublishLibrary(snap)
	return snap
}
