// Package eventbus provides an in-memory fan-out of events to live
// subscribers.
package eventbus

import "sync"

// Bus provides pub/sub for events of type T.
type Bus[T any] interface {
	Subscribe() chan T
	Unsubscribe(ch chan T)
	Publish(event T)
}

// InMemoryBus is the default in-memory Bus implementation.
type InMemoryBus[T any] struct {
	mu   sync.RWMutex
	subs []chan T
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus[T any]() *InMemoryBus[T] {
	return &InMemoryBus[T]{}
}

// Subscribe creates a channel that receives every event published from now on.
func (b *InMemoryBus[T]) Subscribe() chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, 64)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (b *InMemoryBus[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends event to all subscribers without blocking.
func (b *InMemoryBus[T]) Publish(event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is too slow.
		}
	}
}
