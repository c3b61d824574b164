// Package backend is the kiosk's client for the cultural center REST API.
//
// Every upstream failure is returned as *Error carrying a normalized Kind, so
// workflows can show a kind-specific message and the fallback layer can tell
// availability failures from authoritative answers.
package backend

import (
	"context"
	"time"

	"kiosk/internal/domain"
)

// EventQuery mirrors the GET /events query string. Zero values are omitted.
type EventQuery struct {
	Status   string
	Category string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// EventPage is one page of events.
type EventPage struct {
	Events     []domain.Event
	Pagination *Pagination
	// Degraded is set when the page was served by the offline backend.
	Degraded bool
}

// Credentials carries an admin token to the calls that need one. It is passed
// explicitly rather than read from any shared state.
type Credentials struct {
	Token string
}

//go:generate mockgen -source=api.go -destination=mocks/mocks.go -package=mocks API

// API is the upstream contract. The HTTP client, the offline mock backend and the
// fallback router all implement it.
type API interface {
	ListEvents(ctx context.Context, q EventQuery) (*EventPage, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	RegisterForEvent(ctx context.Context, eventID string, in domain.VisitorInput) (*domain.RegistrationResult, error)
	RegisterVisitor(ctx context.Context, in domain.VisitorInput, eventID string) (*domain.RegistrationResult, error)
	CheckIn(ctx context.Context, code string) (*domain.CheckInResult, error)
	ValidateCode(ctx context.Context, code string) (*domain.CodeValidation, error)
	VisitorStats(ctx context.Context, creds Credentials) (*domain.VisitorStats, error)
	Health(ctx context.Context) error
}

// Operation names used for spans, metrics and error context.
const (
	OpListEvents       = "list_events"
	OpGetEvent         = "get_event"
	OpRegisterForEvent = "register_for_event"
	OpRegisterVisitor  = "register_visitor"
	OpCheckIn          = "check_in"
	OpValidateCode     = "validate_code"
	OpVisitorStats     = "visitor_stats"
	OpHealth           = "health"
)
