package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	dErrors "kiosk/pkg/domain-errors"
)

// Kind is the normalized failure taxonomy for upstream calls.
type Kind string

const (
	// KindConnection means the upstream could not be reached at all.
	KindConnection Kind = "connection"
	// KindTimeout means the request exceeded its budget.
	KindTimeout Kind = "timeout"
	// KindNotFound is a 404.
	KindNotFound Kind = "not_found"
	// KindAuth is a 401 or 403.
	KindAuth Kind = "auth"
	// KindValidation is a local field failure. It is never produced by a network call.
	KindValidation Kind = "validation"
	// KindUnknown is anything else, including other non-2xx statuses.
	KindUnknown Kind = "unknown"
)

var userMessages = map[Kind]string{
	KindConnection: "No connection to the server. Check the network and try again.",
	KindTimeout:    "The server is taking too long to respond. Please try again.",
	KindNotFound:   "The requested information was not found.",
	KindAuth:       "You are not authorized to perform this action.",
	KindValidation: "Some fields are invalid. Please review them.",
	KindUnknown:    "An unexpected error occurred. Please try again.",
}

// UserMessage is the generic, kind-specific message shown when the upstream did not
// provide one.
func UserMessage(k Kind) string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}

// Error wraps an upstream failure with its normalized kind.
type Error struct {
	Kind Kind
	Op   string
	// Status is the HTTP status, zero for transport failures.
	Status int
	// Message is the upstream body's "message" field, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("backend %s [%s] status %d: %s", e.Op, e.Kind, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("backend %s [%s] status %d", e.Op, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("backend %s [%s]: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("backend %s [%s]", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable reports whether the failure says nothing about the request itself:
// the upstream was unreachable, too slow, or failed internally.
func (e *Error) Unavailable() bool {
	return e.Kind == KindConnection || e.Kind == KindTimeout || e.Status >= http.StatusInternalServerError
}

// KindOf extracts the kind from err, defaulting to KindUnknown.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// IsUnavailable reports whether err is an upstream availability failure.
func IsUnavailable(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Unavailable()
	}
	return false
}

// UpstreamMessage returns the message the upstream sent with a failure, if any.
func UpstreamMessage(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Message
	}
	return ""
}

// Describe returns the upstream message when present, otherwise the kind's
// generic user message.
func Describe(err error) string {
	if msg := UpstreamMessage(err); msg != "" {
		return msg
	}
	return UserMessage(KindOf(err))
}

// ToDomain translates an upstream failure into a domain error for the HTTP layer.
// Errors that are not backend errors are passed through unchanged.
func ToDomain(err error) error {
	var be *Error
	if !errors.As(err, &be) {
		return err
	}
	msg := Describe(err)
	switch {
	case be.Kind == KindNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case be.Kind == KindAuth:
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, msg)
	case be.Kind == KindTimeout:
		return dErrors.Wrap(err, dErrors.CodeUpstreamTimeout, msg)
	case be.Kind == KindValidation:
		return dErrors.Wrap(err, dErrors.CodeValidation, msg)
	case be.Unavailable():
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, msg)
	case be.Status == http.StatusConflict:
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case be.Status == http.StatusBadRequest || be.Status == http.StatusUnprocessableEntity:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, msg)
	}
}

// kindForStatus maps a non-2xx status to a kind.
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	default:
		return KindUnknown
	}
}

// classifyTransport maps a client.Do error to a kind. Deadline expiry is a timeout;
// anything else that kept the request from completing is a connection failure.
func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	return KindConnection
}
