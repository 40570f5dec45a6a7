package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubSendReachesOnlyTargetClient(t *testing.T) {
	h := NewHub[string]()

	alice := h.Attach("alice")
	bob := h.Attach("bob")

	assert.Equal(t, 1, h.Send("alice", "for alice"))
	assert.Equal(t, "for alice", <-alice)
	assert.Len(t, bob, 0)
}

func TestHubSendToUnknownClient(t *testing.T) {
	h := NewHub[string]()
	assert.Equal(t, 0, h.Send("ghost", "anyone?"))
}

func TestHubMultipleConnectionsPerClient(t *testing.T) {
	h := NewHub[string]()

	first := h.Attach("alice")
	second := h.Attach("alice")

	assert.Equal(t, 2, h.Send("alice", "both tabs"))
	assert.Equal(t, "both tabs", <-first)
	assert.Equal(t, "both tabs", <-second)
}

func TestHubDetach(t *testing.T) {
	h := NewHub[string]()

	first := h.Attach("alice")
	second := h.Attach("alice")

	h.Detach("alice", first)
	assert.Equal(t, 1, h.Send("alice", "still here"))
	assert.Equal(t, "still here", <-second)

	// Detaching the last connection drops the client entirely.
	h.Detach("alice", second)
	assert.Equal(t, 0, h.Send("alice", "gone"))

	// Detaching an unknown client is a no-op.
	h.Detach("ghost", first)
}

func TestHubClose(t *testing.T) {
	h := NewHub[string]()
	ch := h.Attach("alice")

	h.Close()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Send("alice", "closed"))
}
