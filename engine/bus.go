package engine

import (
	"sync"

	"github.com/google/uuid"
)

// Token identifies a handler attached to a Bus
type Token = uuid.UUID

// EventSource is the subscribe side of an event stream
type EventSource[T any] interface {
	Subscribe(handler func(T)) Token
	Unsubscribe(token Token)
}

// Bus fans an event out to every attached handler. The zero value is ready to use.
type Bus[T any] struct {
	mu       sync.RWMutex
	handlers map[Token]func(T)
}

// NewBus creates a new event bus
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{handlers: make(map[Token]func(T))}
}

// Subscribe attaches handler and returns the token used to detach it
func (b *Bus[T]) Subscribe(handler func(T)) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers == nil {
		b.handlers = make(map[Token]func(T))
	}
	token := uuid.New()
	b.handlers[token] = handler
	return token
}

// Unsubscribe detaches the handler behind token. Unknown tokens are ignored.
func (b *Bus[T]) Unsubscribe(token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, token)
}

// Emit delivers event to every attached handler on the caller's goroutine.
// Handlers run outside the bus lock so they may subscribe or unsubscribe.
func (b *Bus[T]) Emit(event T) {
	b.mu.RLock()
	handlers := make([]func(T), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Len returns the number of attached handlers
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
