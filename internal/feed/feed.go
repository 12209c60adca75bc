// Package feed holds the live view state of one authenticated viewer's
// appointment listing: current search/status/page, the last good page, a
// debounced search input and a staleness guard for overlapping fetches.
// One feed lives exactly as long as the connection that owns it.
package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"appointment-management-api/internal/model"
	"appointment-management-api/internal/query"
)

// Fetcher is satisfied by *query.Engine.
type Fetcher interface {
	Fetch(ctx context.Context, p query.Params) (*query.Page, error)
}

type Feed struct {
	engine Fetcher

	mu      sync.Mutex
	params  query.Params
	current *query.Page

	// seq orders fetches; a response whose sequence number is no longer
	// the latest issued one is discarded instead of overwriting state.
	seq atomic.Uint64

	search  *Debouncer
	updates chan *query.Page
	errs    chan error
}

// New builds a feed with the given initial listing state. quiet is the
// debounce quiet period for search input.
func New(engine Fetcher, initial query.Params, quiet time.Duration) *Feed {
	return &Feed{
		engine:  engine,
		params:  initial,
		search:  NewDebouncer(quiet),
		updates: make(chan *query.Page, 1),
		errs:    make(chan error, 1),
	}
}

// Updates delivers refreshed pages, latest-wins: a slow consumer only ever
// sees the most recent page.
func (f *Feed) Updates() <-chan *query.Page { return f.updates }

// Errs delivers fetch failures so the owner can surface a notification.
// The previous page is always kept on failure.
func (f *Feed) Errs() <-chan error { return f.errs }

// Current returns the last successfully fetched page, or nil before the
// first refresh completes.
func (f *Feed) Current() *query.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Params returns a copy of the current listing state.
func (f *Feed) Params() query.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

// Refresh re-runs the query with the current state. If a newer refresh was
// issued while this one was in flight, its response is discarded.
func (f *Feed) Refresh(ctx context.Context) error {
	seq := f.seq.Add(1)

	f.mu.Lock()
	params := f.params
	f.mu.Unlock()

	page, err := f.engine.Fetch(ctx, params)
	if err != nil {
		// a superseded fetch stays silent either way: a newer refresh
		// already succeeded or will report its own failure
		if seq == f.seq.Load() {
			offer(f.errs, err)
		}
		return err
	}

	f.mu.Lock()
	if seq != f.seq.Load() {
		// superseded by a newer request
		f.mu.Unlock()
		return nil
	}
	f.current = page
	f.mu.Unlock()

	offer(f.updates, page)
	return nil
}

// SetSearch records a keystroke. The refresh fires once the quiet period
// passes with no further keystrokes, using only the final term; every new
// term resets the listing to page 1.
func (f *Feed) SetSearch(ctx context.Context, term string) {
	f.search.Trigger(func() {
		f.mu.Lock()
		f.params.Search = term
		f.params.Page = 1
		f.mu.Unlock()
		if err := f.Refresh(ctx); err != nil {
			log.WithError(err).Warn("search refresh failed")
		}
	})
}

// SetStatus changes the status filter and resets to page 1.
func (f *Feed) SetStatus(ctx context.Context, status model.Status) error {
	f.mu.Lock()
	f.params.Status = status
	f.params.Page = 1
	f.mu.Unlock()
	return f.Refresh(ctx)
}

// SetPage moves to another page of the current query.
func (f *Feed) SetPage(ctx context.Context, page int) error {
	f.mu.Lock()
	f.params.Page = page
	f.mu.Unlock()
	return f.Refresh(ctx)
}

// Run services invalidation signals until ctx is cancelled. Each signal
// re-runs the current query; the participant/search/status predicate stays
// the single source of truth for what the viewer sees.
func (f *Feed) Run(ctx context.Context, invalidations <-chan struct{}) {
	defer f.search.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-invalidations:
			if err := f.Refresh(ctx); err != nil {
				log.WithError(err).Warn("live refresh failed, keeping previous page")
			}
		}
	}
}

// offer replaces any pending value instead of blocking the producer.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
