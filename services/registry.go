package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"bookshelf/engine"
	"bookshelf/types"

	"github.com/rs/zerolog/log"
)

// Registry is the single source of truth for tracked downloads. Every
// mutation is serialized by one lock and followed by a publish of the sorted
// entries. Each publish carries the version assigned under the lock, so a
// snapshot sorted late never replaces a newer one.
type Registry struct {
	eng   engine.Engine
	prefs *Preferences
	pub   *SnapshotPublisher

	mu      sync.Mutex
	entries map[int]*types.DownloadEntry
	order   []int
	version uint64
}

// NewRegistry creates an empty registry reading upstream data from eng
func NewRegistry(eng engine.Engine, prefs *Preferences, pub *SnapshotPublisher) *Registry {
	return &Registry{
		eng:     eng,
		prefs:   prefs,
		pub:     pub,
		entries: make(map[int]*types.DownloadEntry),
	}
}

// ApplyMetadata overwrites the descriptive fields of id, creating the entry if needed
func (r *Registry) ApplyMetadata(id int, data types.DownloadData) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.DownloadData = data
	} else {
		r.insertLocked(types.DownloadEntry{
			ID:           id,
			DownloadData: data,
			State:        types.DownloadStateNothing,
		})
	}
	version, entries := r.copyLocked()
	r.mu.Unlock()

	r.publish(version, entries)
}

// ApplyProgress overwrites the progress fields of id. Progress for an id the
// registry does not hold is dropped, but a snapshot is published regardless.
func (r *Registry) ApplyProgress(id int, progress types.DownloadProgress) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.DownloadedCount = progress.Count
		e.DownloadedTotal = progress.Total
		e.State = progress.State
		e.ETA = progress.EstimatedTime()
	} else {
		log.Debug().Int("id", id).Msg("Dropping progress for unknown download")
	}
	version, entries := r.copyLocked()
	r.mu.Unlock()

	r.publish(version, entries)
}

// FullRefresh rebuilds the registry from the engine's metadata and progress
// maps. Ids the engine no longer has metadata for are dropped. An id with
// metadata but no progress is not inserted, and an entry already held for
// such an id is kept as is. Surviving entries keep their position and their
// generating flag; new ids are appended in ascending order.
func (r *Registry) FullRefresh() {
	var (
		version uint64
		entries []types.DownloadEntry
	)

	// Engine lock first, then ours
	r.eng.ReadDownloadInfo(func(data map[int]types.DownloadData, progress map[int]types.DownloadProgress) {
		r.mu.Lock()
		defer r.mu.Unlock()

		rebuilt := make(map[int]*types.DownloadEntry, len(data))
		order := make([]int, 0, len(data))
		build := func(id int) {
			d, ok := data[id]
			if !ok {
				return
			}
			p, ok := progress[id]
			if !ok {
				if old, held := r.entries[id]; held {
					rebuilt[id] = old
					order = append(order, id)
				}
				return
			}
			e := &types.DownloadEntry{
				ID:              id,
				DownloadData:    d,
				DownloadedCount: p.Count,
				DownloadedTotal: p.Total,
				ETA:             p.EstimatedTime(),
				State:           p.State,
			}
			if old, ok := r.entries[id]; ok {
				e.Generating = old.Generating
			}
			rebuilt[id] = e
			order = append(order, id)
		}

		for _, id := range r.order {
			build(id)
		}
		fresh := make([]int, 0)
		for id := range data {
			if _, known := r.entries[id]; !known {
				fresh = append(fresh, id)
			}
		}
		slices.Sort(fresh)
		for _, id := range fresh {
			build(id)
		}

		r.entries = rebuilt
		r.order = order
		version, entries = r.copyLocked()
	})

	log.Debug().Int("entries", len(entries)).Msg("Rebuilt download registry")
	r.publish(version, entries)
}

// BeginGenerating marks id as having a regenerate in flight
func (r *Registry) BeginGenerating(id int) {
	r.setGenerating(id, true)
}

// EndGenerating clears the in-flight mark of id
func (r *Registry) EndGenerating(id int) {
	r.setGenerating(id, false)
}

// Generating marks id as generating and returns the func that clears the
// mark. The returned func is safe to call more than once.
//
//	release := registry.Generating(id)
//	defer release()
func (r *Registry) Generating(id int) (release func()) {
	r.BeginGenerating(id)
	return sync.OnceFunc(func() { r.EndGenerating(id) })
}

// Entry returns a copy of the entry for id
func (r *Registry) Entry(id int) (types.DownloadEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return types.DownloadEntry{}, false
	}
	return e.Clone(), true
}

// Snapshot returns the entries sorted by method. The copy is taken under the
// lock and sorted after it is released.
func (r *Registry) Snapshot(ctx context.Context, method types.SortMethod) types.DownloadSnapshot {
	r.mu.Lock()
	_, entries := r.copyLocked()
	r.mu.Unlock()

	return types.DownloadSnapshot{
		Entries:    SortDownloads(entries, method, r.prefs.LastAccess(ctx)),
		SortMethod: method,
	}
}

// Resort publishes the current entries again, sorted by the active method
func (r *Registry) Resort() {
	r.mu.Lock()
	version, entries := r.copyLocked()
	r.mu.Unlock()

	r.publish(version, entries)
}

// Len returns the number of entries
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) setGenerating(id int, generating bool) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.Generating = generating
	} else {
		log.Debug().Int("id", id).Bool("generating", generating).Msg("Generating flag for unknown download")
	}
	version, entries := r.copyLocked()
	r.mu.Unlock()

	r.publish(version, entries)
}

func (r *Registry) insertLocked(e types.DownloadEntry) {
	if _, dup := r.entries[e.ID]; dup {
		panic(fmt.Sprintf("registry: duplicate download id %d", e.ID))
	}
	r.entries[e.ID] = &e
	r.order = append(r.order, e.ID)
}

// copyLocked bumps the version and copies the entries in insertion order
func (r *Registry) copyLocked() (uint64, []types.DownloadEntry) {
	r.version++
	out := make([]types.DownloadEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].Clone())
	}
	return r.version, out
}

func (r *Registry) publish(version uint64, entries []types.DownloadEntry) {
	method := r.prefs.SortMethod(types.ViewDownloads)
	snap := types.DownloadSnapshot{
		Entries:    SortDownloads(entries, method, r.prefs.LastAccess(context.Background())),
		SortMethod: method,
	}
	r.pub.PublishDownloads(version, snap)
}
