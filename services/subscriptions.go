package services

import (
	"sync"

	"bookshelf/engine"
	"bookshelf/types"

	"github.com/rs/zerolog/log"
)

// DefaultQueueSize is the buffer of each event stream when none is configured
const DefaultQueueSize = 256

// eventQueue applies events of one stream on its own goroutine. Enqueue never
// blocks: when the buffer is full the event is applied on a fresh goroutine.
type eventQueue[T any] struct {
	name  string
	apply func(T)

	mu       sync.RWMutex
	closed   bool
	events   chan T
	done     chan struct{}
	overflow sync.WaitGroup
}

func newEventQueue[T any](name string, size int, apply func(T)) *eventQueue[T] {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &eventQueue[T]{
		name:   name,
		apply:  apply,
		events: make(chan T, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *eventQueue[T]) run() {
	defer close(q.done)
	for event := range q.events {
		q.apply(event)
	}
}

func (q *eventQueue[T]) enqueue(event T) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return
	}
	select {
	case q.events <- event:
	default:
		log.Warn().Str("stream", q.name).Msg("Event queue full, applying out of band")
		q.overflow.Add(1)
		go func() {
			defer q.overflow.Done()
			q.apply(event)
		}()
	}
}

// close stops accepting events and waits until every accepted one was applied
func (q *eventQueue[T]) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.events)
	q.mu.Unlock()

	<-q.done
	q.overflow.Wait()
}

// Subscriptions binds the registry to the engine's three event streams
type Subscriptions struct {
	eng engine.Engine

	progressToken engine.Token
	dataToken     engine.Token
	refreshToken  engine.Token

	progress *eventQueue[types.ProgressEvent]
	data     *eventQueue[types.MetadataEvent]
	refresh  *eventQueue[types.RefreshEvent]

	closeOnce sync.Once
}

// Subscribe attaches registry handlers to eng and queues an initial full refresh
func Subscribe(eng engine.Engine, registry *Registry, queueSize int) *Subscriptions {
	s := &Subscriptions{
		eng: eng,
		progress: newEventQueue("progress", queueSize, func(e types.ProgressEvent) {
			registry.ApplyProgress(e.ID, e.Progress)
		}),
		data: newEventQueue("metadata", queueSize, func(e types.MetadataEvent) {
			registry.ApplyMetadata(e.ID, e.Data)
		}),
		refresh: newEventQueue("refresh", queueSize, func(types.RefreshEvent) {
			registry.FullRefresh()
		}),
	}

	s.progressToken = eng.ProgressChanged().Subscribe(s.progress.enqueue)
	s.dataToken = eng.DataChanged().Subscribe(s.data.enqueue)
	s.refreshToken = eng.DataRefreshed().Subscribe(s.refresh.enqueue)

	s.RequestRefresh()
	return s
}

// RequestRefresh queues a full resync with the engine
func (s *Subscriptions) RequestRefresh() {
	s.refresh.enqueue(types.RefreshEvent{})
}

// Close detaches from the engine and drains the queues. Safe to call more than once.
func (s *Subscriptions) Close() {
	s.closeOnce.Do(func() {
		s.eng.ProgressChanged().Unsubscribe(s.progressToken)
		s.eng.DataChanged().Unsubscribe(s.dataToken)
		s.eng.DataRefreshed().Unsubscribe(s.refreshToken)

		s.progress.close()
		s.data.close()
		s.refresh.close()
	})
}
