package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func drain(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelA()
	defer cancelB()

	h.Broadcast()

	assert.True(t, drain(a))
	assert.True(t, drain(b))
}

func TestBroadcastCoalesces(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	// a burst while the subscriber is busy collapses into one signal
	h.Broadcast()
	h.Broadcast()
	h.Broadcast()

	assert.True(t, drain(ch))
	select {
	case <-ch:
		t.Fatal("expected coalesced signals, got a second one")
	default:
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Len())

	cancel()
	cancel() // safe to call twice
	assert.Equal(t, 0, h.Len())

	h.Broadcast()
	select {
	case <-ch:
		t.Fatal("cancelled subscriber still received a signal")
	default:
	}
}

func TestBroadcastWithNoSubscribers(t *testing.T) {
	h := NewHub()
	h.Broadcast() // must not panic or block
	assert.Equal(t, 0, h.Len())
}
