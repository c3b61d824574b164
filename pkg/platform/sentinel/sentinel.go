package sentinel

import "errors"

// Sentinel errors for store and upstream facts. Stores return these (optionally
// wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: session, event or confirmation code does not exist
//   - ErrConflict: uniqueness clash, e.g. a confirmation code already issued
//   - ErrAlreadyUsed: a registration was already checked in
//   - ErrInvalidState: workflow is in the wrong state for the operation
//
// Field validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
)
