package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"bookshelf/storage"
	"bookshelf/types"

	"github.com/rs/zerolog/log"
)

var _ Engine = (*Local)(nil)

// Local is an in-process engine. Producers push metadata and progress into it
// and it republishes them as events, the way a real downloader would.
type Local struct {
	infoMu   sync.RWMutex
	data     map[int]types.DownloadData
	progress map[int]types.DownloadProgress
	started  map[int]progressMark

	progressBus *Bus[types.ProgressEvent]
	dataBus     *Bus[types.MetadataEvent]
	refreshBus  *Bus[types.RefreshEvent]

	store storage.Store
	now   func() time.Time
}

// progressMark is the first observed progress point, used for ETA estimation
type progressMark struct {
	at    time.Time
	count int
}

// NewLocal creates an in-process engine. store records last-access times and may be nil.
func NewLocal(store storage.Store) *Local {
	return &Local{
		data:        make(map[int]types.DownloadData),
		progress:    make(map[int]types.DownloadProgress),
		started:     make(map[int]progressMark),
		progressBus: NewBus[types.ProgressEvent](),
		dataBus:     NewBus[types.MetadataEvent](),
		refreshBus:  NewBus[types.RefreshEvent](),
		store:       store,
		now:         time.Now,
	}
}

func (l *Local) ProgressChanged() EventSource[types.ProgressEvent] { return l.progressBus }
func (l *Local) DataChanged() EventSource[types.MetadataEvent]     { return l.dataBus }
func (l *Local) DataRefreshed() EventSource[types.RefreshEvent]    { return l.refreshBus }

// ReadDownloadInfo implements Engine
func (l *Local) ReadDownloadInfo(fn func(data map[int]types.DownloadData, progress map[int]types.DownloadProgress)) {
	l.infoMu.RLock()
	defer l.infoMu.RUnlock()
	fn(l.data, l.progress)
}

// UpdateMetadata stores metadata for id and emits a data-changed event
func (l *Local) UpdateMetadata(id int, data types.DownloadData) {
	l.infoMu.Lock()
	l.data[id] = data
	l.infoMu.Unlock()

	l.dataBus.Emit(types.MetadataEvent{ID: id, Data: data})
}

// UpdateProgress stores progress for id and emits a progress event.
// The ETA is derived from the rate observed since the first update.
func (l *Local) UpdateProgress(id, count, total int, state types.DownloadState) {
	now := l.now()

	l.infoMu.Lock()
	mark, ok := l.started[id]
	if !ok || count < mark.count {
		mark = progressMark{at: now, count: count}
		l.started[id] = mark
	}
	p := types.DownloadProgress{
		Count: count,
		Total: total,
		State: state,
		ETA:   etaFunc(mark, now, count, total),
	}
	l.progress[id] = p
	l.infoMu.Unlock()

	l.progressBus.Emit(types.ProgressEvent{ID: id, Progress: p})
}

// Refresh emits a refresh signal without changing any data
func (l *Local) Refresh() {
	l.refreshBus.Emit(types.RefreshEvent{})
}

// Regenerate records the access and reports the work as rebuilt.
// Building the epub itself is done elsewhere.
func (l *Local) Regenerate(ctx context.Context, id, count int, author, name, apiName string) error {
	l.infoMu.RLock()
	_, ok := l.data[id]
	l.infoMu.RUnlock()
	if !ok {
		return fmt.Errorf("regenerate %q: %w", name, ErrUnknownWork)
	}

	log.Info().Int("id", id).Int("chapters", count).Str("name", name).Str("author", author).Str("api", apiName).
		Msg("Regenerating epub")

	if l.store == nil {
		return nil
	}
	if err := storage.Put(ctx, l.store, storage.NamespaceLastAccess, strconv.Itoa(id), l.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to record last access for %q: %w", name, err)
	}
	return nil
}

// DeleteWork forgets every work matching author, name and apiName, then emits a refresh
func (l *Local) DeleteWork(ctx context.Context, author, name, apiName string) error {
	var removed []int

	l.infoMu.Lock()
	for id, d := range l.data {
		if d.Author == author && d.Name == name && d.APIName == apiName {
			delete(l.data, id)
			delete(l.progress, id)
			delete(l.started, id)
			removed = append(removed, id)
		}
	}
	l.infoMu.Unlock()

	if len(removed) == 0 {
		return fmt.Errorf("delete %q by %q: %w", name, author, ErrUnknownWork)
	}

	log.Info().Ints("ids", removed).Str("name", name).Msg("Deleted work")
	l.refreshBus.Emit(types.RefreshEvent{ID: removed[0]})
	return nil
}

// Resume puts an unfinished work back into the pending state
func (l *Local) Resume(ctx context.Context, id int) error {
	l.infoMu.RLock()
	p, ok := l.progress[id]
	l.infoMu.RUnlock()
	if !ok {
		return fmt.Errorf("resume %d: %w", id, ErrUnknownWork)
	}
	if p.State == types.DownloadStateDownloading || p.State == types.DownloadStatePending {
		return nil
	}

	l.UpdateProgress(id, p.Count, p.Total, types.DownloadStatePending)
	return nil
}

func etaFunc(mark progressMark, now time.Time, count, total int) func() string {
	return func() string {
		done := count - mark.count
		elapsed := now.Sub(mark.at)
		if done <= 0 || elapsed <= 0 || total <= count {
			return ""
		}
		perItem := elapsed / time.Duration(done)
		remaining := perItem * time.Duration(total-count)
		return remaining.Round(time.Second).String()
	}
}
