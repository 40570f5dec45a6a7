package sse

import (
	"sync"
)

// subscriberBuffer is the per-connection backlog. A connection that stops
// draining loses messages past this point instead of stalling the router.
const subscriberBuffer = 16

// Channel fans messages out to every live connection of one client.
type Channel[T any] struct {
	mu          sync.RWMutex
	subscribers map[<-chan T]chan T
}

// NewChannel creates an empty channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{
		subscribers: make(map[<-chan T]chan T),
	}
}

// Subscribe registers a new connection and returns its receive side.
func (c *Channel[T]) Subscribe() <-chan T {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan T, subscriberBuffer)
	c.subscribers[ch] = ch
	return ch
}

// Unsubscribe removes a connection and closes its channel.
func (c *Channel[T]) Unsubscribe(ch <-chan T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if writeCh, exists := c.subscribers[ch]; exists {
		delete(c.subscribers, ch)
		close(writeCh)
	}
}

// UnsubscribeAll closes every connection and clears the registry.
func (c *Channel[T]) UnsubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, writeCh := range c.subscribers {
		close(writeCh)
	}
	clear(c.subscribers)
}

// Broadcast delivers message to every connection that still has buffer
// space. Returns how many connections received it.
func (c *Channel[T]) Broadcast(message T) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	delivered := 0
	for _, writeCh := range c.subscribers {
		select {
		case writeCh <- message:
			delivered++
		default:
		}
	}
	return delivered
}

// IsIdle reports whether no connection is attached.
func (c *Channel[T]) IsIdle() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers) == 0
}
