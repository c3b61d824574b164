// Package events is the kiosk's read-only view of the event catalogue.
package events

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"kiosk/internal/backend"
	"kiosk/internal/domain"
	dErrors "kiosk/pkg/domain-errors"
)

//go:generate mockgen -source=directory.go -destination=mocks/mocks.go -package=mocks EventSource

// EventSource is the part of the upstream API the directory reads from.
type EventSource interface {
	ListEvents(ctx context.Context, q backend.EventQuery) (*backend.EventPage, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
}

// StatusAll disables the status filter.
const StatusAll = "all"

// Filter narrows a listing. Every dimension that is set must match.
type Filter struct {
	Status   string
	Category string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// Validate normalizes the filter and rejects values the upstream would not accept.
func (f *Filter) Validate() error {
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	f.Category = strings.TrimSpace(f.Category)
	if f.Status != "" && f.Status != StatusAll && !domain.EventStatus(f.Status).Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "status must be one of upcoming, active, finished or all")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "limit and offset must not be negative")
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return dErrors.New(dErrors.CodeBadRequest, "date_to must not be before date_from")
	}
	return nil
}

// Matches reports whether e satisfies every set dimension of the filter.
// DateTo covers the whole day.
func (f Filter) Matches(e domain.Event) bool {
	if f.Status != "" && f.Status != StatusAll && string(e.Status) != f.Status {
		return false
	}
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	if f.DateFrom != nil && e.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !e.Date.Before(f.DateTo.Add(24*time.Hour)) {
		return false
	}
	return true
}

func (f Filter) query() backend.EventQuery {
	return backend.EventQuery{
		Status:   f.Status,
		Category: f.Category,
		DateFrom: f.DateFrom,
		DateTo:   f.DateTo,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
}

// Listing is one page of events.
type Listing struct {
	Events []domain.Event
	Total  int
	// Degraded is set when the events came from the offline backend.
	Degraded bool
}

// Directory lists and looks up events.
type Directory struct {
	source EventSource
	logger *slog.Logger
}

type Option func(*Directory)

func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) {
		if l != nil {
			d.logger = l
		}
	}
}

func New(source EventSource, opts ...Option) *Directory {
	d := &Directory{source: source, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// List returns the events matching f. The filter is applied again locally so
// the result holds even against an upstream that ignores some parameters.
func (d *Directory) List(ctx context.Context, f Filter) (*Listing, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	page, err := d.source.ListEvents(ctx, f.query())
	if err != nil {
		return nil, backend.ToDomain(err)
	}

	matched := lo.Filter(page.Events, func(e domain.Event, _ int) bool { return f.Matches(e) })
	total := len(matched)
	if dropped := len(page.Events) - len(matched); dropped > 0 {
		d.logger.WarnContext(ctx, "upstream returned events outside the filter",
			"dropped", dropped,
			"status", f.Status,
			"category", f.Category,
		)
	} else if page.Pagination != nil {
		total = page.Pagination.Total
	}
	return &Listing{Events: matched, Total: total, Degraded: page.Degraded}, nil
}

// Selectable lists the events a visitor can register for: not full, not finished.
func (d *Directory) Selectable(ctx context.Context, f Filter) (*Listing, error) {
	listing, err := d.List(ctx, f)
	if err != nil {
		return nil, err
	}
	listing.Events = lo.Filter(listing.Events, func(e domain.Event, _ int) bool { return e.Selectable() })
	listing.Total = len(listing.Events)
	return listing, nil
}

// Get returns one event. An unknown id is a not_found domain error.
func (d *Directory) Get(ctx context.Context, id string) (*domain.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "event id is required")
	}
	event, err := d.source.GetEvent(ctx, id)
	if err != nil {
		if backend.KindOf(err) == backend.KindNotFound {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "event not found")
		}
		return nil, backend.ToDomain(err)
	}
	return event, nil
}
