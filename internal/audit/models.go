// Package audit records what happens at the kiosks: sessions, screen changes,
// registrations, check-ins and admin logins.
//
// Domain code calls Publisher.Emit, which never blocks on I/O. A Worker drains
// the queue into one or more sinks (structured log, memory ring, Kafka).
package audit

import (
	"context"
	"time"
)

// Category classifies events so sinks can route or sample them.
type Category string

const (
	// CategoryActivity covers visitor-facing outcomes: registrations and check-ins.
	CategoryActivity Category = "activity"
	// CategorySecurity covers admin authentication.
	CategorySecurity Category = "security"
	// CategoryOperations covers high-volume navigation and session lifecycle.
	CategoryOperations Category = "operations"
)

// Action names one kind of event.
type Action string

const (
	ActionSessionStarted        Action = "session_started"
	ActionSessionEnded          Action = "session_ended"
	ActionScreenChanged         Action = "screen_changed"
	ActionRegistrationCompleted Action = "registration_completed"
	ActionRegistrationFailed    Action = "registration_failed"
	ActionCheckInSucceeded      Action = "checkin_succeeded"
	ActionCheckInFailed         Action = "checkin_failed"
	ActionAdminLogin            Action = "admin_login"
	ActionAdminLoginFailed      Action = "admin_login_failed"
	ActionAdminLogout           Action = "admin_logout"
)

// CategoryOf returns the category an action belongs to.
func CategoryOf(a Action) Category {
	switch a {
	case ActionRegistrationCompleted, ActionRegistrationFailed, ActionCheckInSucceeded, ActionCheckInFailed:
		return CategoryActivity
	case ActionAdminLogin, ActionAdminLoginFailed, ActionAdminLogout:
		return CategorySecurity
	default:
		return CategoryOperations
	}
}

// Event is one recorded action. Visitor personal data is never stored here:
// registrations are referenced by event id and confirmation code only.
type Event struct {
	ID         string    `json:"id"`
	Category   Category  `json:"category"`
	Action     Action    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"sessionId,omitempty"`
	TerminalID string    `json:"terminalId,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Device     string    `json:"device,omitempty"`
	EventID    string    `json:"eventId,omitempty"`
	Code       string    `json:"code,omitempty"`
	Screen     string    `json:"screen,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Offline    bool      `json:"offline,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Sink persists or forwards events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}
