// Package mock is the offline stand-in for the cultural center backend. It
// serves the same contract as the REST API, in-process (Backend) or over HTTP
// (NewServer), on top of a memory or SQLite store seeded with example data.
package mock

import (
	"context"
	"fmt"
	"time"

	"kiosk/internal/domain"
	"kiosk/pkg/platform/sentinel"
)

// Store errors beyond the shared sentinels. Both wrap sentinel.ErrInvalidState.
var (
	ErrEventFull     = fmt.Errorf("event is full: %w", sentinel.ErrInvalidState)
	ErrEventFinished = fmt.Errorf("event has finished: %w", sentinel.ErrInvalidState)
)

// Store persists events, visitors and registrations for the mock backend.
//
// Register is atomic: it claims a seat, inserts the visitor and the registration,
// and fails with sentinel.ErrConflict if the confirmation code is already taken.
// MarkCheckedIn fails with sentinel.ErrAlreadyUsed on a second check-in.
type Store interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	PutEvent(ctx context.Context, e domain.Event) error
	Register(ctx context.Context, v domain.Visitor, r domain.Registration) error
	CodeExists(ctx context.Context, code string) (bool, error)
	FindByCode(ctx context.Context, code string) (domain.Registration, domain.Visitor, error)
	MarkCheckedIn(ctx context.Context, code string, at time.Time) (domain.Registration, error)
	Stats(ctx context.Context) (domain.VisitorStats, error)
}

func itoa(n int) string { return fmt.Sprint(n) }
