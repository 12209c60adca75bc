// Package realtime delivers "an appointment was inserted" signals from the
// database to live feeds. Notifications are table-wide on purpose: every
// subscriber re-runs its own filtered query, so the query engine's
// participant predicate remains the only visibility boundary.
package realtime

import "sync"

// Hub fans an invalidation signal out to all subscribers. Signals carry no
// payload; a subscriber that misses one because it is still processing the
// previous one loses nothing, the refetch covers all changes.
type Hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan struct{}]struct{})}
}

// Subscribe registers a subscriber. The returned cancel func must be called
// when the owning view goes away; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Broadcast signals all subscribers without blocking. A subscriber whose
// buffer already holds a pending signal is skipped; signals coalesce.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
