package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSubscribeBroadcast(t *testing.T) {
	c := NewChannel[string]()
	assert.True(t, c.IsIdle())

	ch1 := c.Subscribe()
	ch2 := c.Subscribe()
	assert.False(t, c.IsIdle())

	assert.Equal(t, 2, c.Broadcast("hello"))
	assert.Equal(t, "hello", <-ch1)
	assert.Equal(t, "hello", <-ch2)
}

func TestChannelBroadcastSkipsFullSubscriber(t *testing.T) {
	c := NewChannel[int]()
	slow := c.Subscribe()
	fast := c.Subscribe()

	for i := 0; i < subscriberBuffer; i++ {
		c.Broadcast(i)
		<-fast
	}
	// slow's buffer is now full; only fast receives.
	assert.Equal(t, 1, c.Broadcast(99))
	assert.Equal(t, 99, <-fast)
	assert.Len(t, slow, subscriberBuffer)
}

func TestChannelUnsubscribe(t *testing.T) {
	c := NewChannel[string]()
	ch := c.Subscribe()

	c.Unsubscribe(ch)
	assert.True(t, c.IsIdle())

	_, open := <-ch
	assert.False(t, open)

	// Unsubscribing twice is harmless.
	c.Unsubscribe(ch)

	assert.Equal(t, 0, c.Broadcast("nobody home"))
}

func TestChannelUnsubscribeAll(t *testing.T) {
	c := NewChannel[string]()
	ch1 := c.Subscribe()
	ch2 := c.Subscribe()

	c.UnsubscribeAll()
	require.True(t, c.IsIdle())

	_, open := <-ch1
	assert.False(t, open)
	_, open = <-ch2
	assert.False(t, open)
}
