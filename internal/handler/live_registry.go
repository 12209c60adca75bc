package handler

import (
	"context"
	"sync"

	"appointment-management-api/internal/feed"
)

// liveStream is one open listing stream: the feed it drives, the viewer who
// owns it and the connection context its refreshes run under.
type liveStream struct {
	feed     *feed.Feed
	viewerID string
	ctx      context.Context
}

// liveRegistry indexes open streams by id so control requests arriving on a
// separate connection can reach them.
type liveRegistry struct {
	mu      sync.Mutex
	streams map[string]*liveStream
}

func newLiveRegistry() *liveRegistry {
	return &liveRegistry{streams: make(map[string]*liveStream)}
}

func (r *liveRegistry) add(id string, s *liveStream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[id] = s
}

func (r *liveRegistry) get(id string) (*liveStream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	return s, ok
}

func (r *liveRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, id)
}

func (r *liveRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}
