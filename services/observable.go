package services

import (
	"sync"

	"github.com/google/uuid"
)

// Observable holds the latest value of a stream. New subscribers receive the
// current value first, then every later value. Subscriber channels hold one
// value; a slow subscriber only ever sees the newest one.
type Observable[T any] struct {
	mu      sync.Mutex
	value   T
	has     bool
	version uint64
	closed  bool
	subs    map[uuid.UUID]chan T
}

// NewObservable creates an observable with no value
func NewObservable[T any]() *Observable[T] {
	return &Observable[T]{subs: make(map[uuid.UUID]chan T)}
}

// Publish stores v if version is newer than the stored one and notifies
// subscribers. It reports whether v was accepted.
func (o *Observable[T]) Publish(version uint64, v T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || (o.has && version <= o.version) {
		return false
	}
	o.version = version
	o.store(v)
	return true
}

// Set stores v unconditionally as the next version
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.version++
	o.store(v)
}

// Value returns the latest value and whether one was ever published
func (o *Observable[T]) Value() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value, o.has
}

// Subscribe returns a channel receiving the current value, if any, and every
// later one. The channel is closed by Unsubscribe or Close.
func (o *Observable[T]) Subscribe() (uuid.UUID, <-chan T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := uuid.New()
	ch := make(chan T, 1)
	if o.closed {
		close(ch)
		return id, ch
	}
	if o.has {
		ch <- o.value
	}
	o.subs[id] = ch
	return id, ch
}

// Unsubscribe closes and forgets the subscriber. Unknown ids are ignored.
func (o *Observable[T]) Unsubscribe(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ch, ok := o.subs[id]; ok {
		delete(o.subs, id)
		close(ch)
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (o *Observable[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
}

func (o *Observable[T]) store(v T) {
	o.value = v
	o.has = true
	for _, ch := range o.subs {
		select {
		case ch <- v:
		default:
			// Replace the stale value nobody has read yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
