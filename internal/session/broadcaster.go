package session

import (
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Broadcaster fans values out to any number of subscribers. Sends never
// block: a subscriber whose buffer is full loses its oldest value, so the
// most recent state always gets through.
type Broadcaster[T any] struct {
	mu        sync.Mutex
	listeners []chan T
	closed    bool
}

// Subscribe registers a listener. The returned cancel function removes it and
// closes the channel; it is safe to call more than once.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.listeners = append(b.listeners, ch)
	return ch, func() { b.remove(ch) }
}

func (b *Broadcaster[T]) remove(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends v to every listener.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, listener := range b.listeners {
		select {
		case listener <- v:
			continue
		default:
		}
		// Buffer full, drop the oldest value.
		select {
		case <-listener:
		default:
		}
		select {
		case listener <- v:
		default:
		}
	}
}

// Close closes every listener. Later subscribers receive a closed channel.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, listener := range b.listeners {
		close(listener)
	}
	b.listeners = nil
}

// Len returns the number of active listeners.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
