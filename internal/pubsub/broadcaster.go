// Package pubsub fans published snapshots out to subscribers.
package pubsub

import "sync"

// Broadcaster delivers every published value to all subscribers without
// blocking the publisher; a subscriber that falls behind misses values.
// It keeps the most recent value so new subscribers get an immediate sample.
type Broadcaster[T any] struct {
	mu       sync.RWMutex
	subs     map[int]chan T
	nextID   int
	last     T
	haveLast bool
	closed   bool
}

func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T)}
}

// Subscribe returns a subscription id and a channel. The channel is closed
// by Unsubscribe or Close.
func (b *Broadcaster[T]) Subscribe(buffer int) (int, <-chan T) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan T, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return -1, ch
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.haveLast {
		ch <- b.last
	}
	return id, ch
}

func (b *Broadcaster[T]) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish replaces the latest value and offers it to every subscriber.
// After Close it does nothing.
func (b *Broadcaster[T]) Publish(v T) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = v
	b.haveLast = true
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Last returns the latest published value.
func (b *Broadcaster[T]) Last() (T, bool) {
	if b == nil {
		var zero T
		return zero, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.haveLast
}

func (b *Broadcaster[T]) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Last keeps returning the final
// value.
func (b *Broadcaster[T]) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
