package sse

import (
	"sync"
)

// Hub keys delivery channels by client id. The event router sends through
// Send; each live server-push connection attaches with Attach. A client
// with no attached connection simply misses the message (live notification,
// not a mailbox).
type Hub[T any] struct {
	mu       sync.RWMutex
	channels map[string]*Channel[T]
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		channels: make(map[string]*Channel[T]),
	}
}

// Attach registers a live connection for clientID and returns its channel.
func (h *Hub[T]) Attach(clientID string) <-chan T {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.channels[clientID]
	if !ok {
		c = NewChannel[T]()
		h.channels[clientID] = c
	}
	return c.Subscribe()
}

// Detach removes a connection; the client's entry goes away with its last
// connection.
func (h *Hub[T]) Detach(clientID string, ch <-chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.channels[clientID]
	if !ok {
		return
	}
	c.Unsubscribe(ch)
	if c.IsIdle() {
		delete(h.channels, clientID)
	}
}

// Send delivers message to every live connection of clientID. Returns how
// many connections received it; zero when the client is not attached.
func (h *Hub[T]) Send(clientID string, message T) int {
	h.mu.RLock()
	c, ok := h.channels[clientID]
	h.mu.RUnlock()

	if !ok {
		return 0
	}
	return c.Broadcast(message)
}

// Close detaches every connection.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.channels {
		c.UnsubscribeAll()
	}
	clear(h.channels)
}
