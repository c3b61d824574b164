package kiosk

import (
	"context"
	"time"
)

// DefaultSessionTTL is how long an untouched terminal session is kept.
const DefaultSessionTTL = 30 * time.Minute

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

// Store persists sessions. Implementations return sentinel.ErrNotFound for
// unknown or expired ids and sentinel.ErrConflict when a concurrent writer won
// an Execute race; the caller may retry.
type Store interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	// Execute loads the session, applies mutate to a private copy and saves it
	// only if mutate returns nil. Each save extends the session's TTL.
	Execute(ctx context.Context, id string, mutate func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}
