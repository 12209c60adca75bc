// Package query implements the appointment listing pipeline: it turns the
// viewer's current listing state into one store query, then classifies the
// fetched page into upcoming and past buckets against a single time
// snapshot.
package query

import (
	"context"
	"time"

	"appointment-management-api/internal/model"
	"appointment-management-api/internal/store"
)

type Sort string

const (
	SortAscending  Sort = "asc"
	SortDescending Sort = "desc"
)

// Params is the full listing state of one viewer. Pages are 1-based.
type Params struct {
	ViewerID string
	Search   string
	Status   model.Status // empty means no status filter
	Page     int
	Sort     Sort
}

// Page is one fetched window. Upcoming and Past partition Items: they are
// disjoint and their union is the whole page, classified against the same
// snapshot (FetchedAt).
type Page struct {
	Items      []model.Appointment
	Upcoming   []model.Appointment
	Past       []model.Appointment
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
	FetchedAt  time.Time
}

// Searcher is the slice of the store the engine consumes.
type Searcher interface {
	SearchAppointments(ctx context.Context, f store.AppointmentFilter) ([]model.Appointment, int, error)
}

type Engine struct {
	store    Searcher
	pageSize int
	now      func() time.Time
}

func NewEngine(s Searcher, pageSize int) *Engine {
	return &Engine{store: s, pageSize: pageSize, now: time.Now}
}

func (e *Engine) PageSize() int { return e.pageSize }

// Fetch runs one listing query. The participant predicate is applied in the
// store regardless of any other filter, so rows the viewer does not belong
// to can never reach a caller.
func (e *Engine) Fetch(ctx context.Context, p Params) (*Page, error) {
	page := p.Page
	if page < 1 {
		page = 1
	}

	items, total, err := e.store.SearchAppointments(ctx, store.AppointmentFilter{
		ViewerID:   p.ViewerID,
		Search:     p.Search,
		Status:     p.Status,
		Limit:      e.pageSize,
		Offset:     (page - 1) * e.pageSize,
		Descending: p.Sort == SortDescending,
	})
	if err != nil {
		return nil, err
	}

	// one snapshot for the whole page, so a row cannot land in both
	// buckets or in neither while the page is being classified
	now := e.now()
	out := &Page{
		Items:      items,
		TotalCount: total,
		TotalPages: (total + e.pageSize - 1) / e.pageSize,
		Page:       page,
		PageSize:   e.pageSize,
		FetchedAt:  now,
	}
	for _, a := range items {
		if a.UpcomingAt(now) {
			out.Upcoming = append(out.Upcoming, a)
		} else {
			out.Past = append(out.Past, a)
		}
	}
	return out, nil
}
