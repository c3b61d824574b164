package domain

import "time"

// RegistrationStatus moves from confirmed to checked-in exactly once.
type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCheckedIn RegistrationStatus = "checked-in"
)

// Registration links a visitor to an event through a confirmation code.
type Registration struct {
	ID               string             `json:"id"`
	EventID          string             `json:"eventId"`
	VisitorID        string             `json:"visitorId"`
	ConfirmationCode string             `json:"confirmationCode"`
	RegisteredAt     time.Time          `json:"registeredAt"`
	Status           RegistrationStatus `json:"status"`
	CheckedInAt      *time.Time         `json:"checkedInAt,omitempty"`
}

func (r Registration) CheckedIn() bool {
	return r.Status == RegistrationCheckedIn
}

// RegistrationResult is returned by a successful registration call.
type RegistrationResult struct {
	Visitor          Visitor      `json:"visitor"`
	Registration     Registration `json:"registration"`
	ConfirmationCode string       `json:"confirmationCode"`
	// Offline marks a registration recorded by the offline backend while the
	// upstream was unreachable.
	Offline bool `json:"offline,omitempty"`
}

// CheckInResult is returned by a successful check-in call.
type CheckInResult struct {
	Visitor     Visitor   `json:"visitor"`
	Event       *Event    `json:"event,omitempty"`
	CheckInTime time.Time `json:"checkInTime"`
	Offline     bool      `json:"offline,omitempty"`
}

// CodeValidation is the read-only lookup of a confirmation code.
type CodeValidation struct {
	Valid        bool          `json:"valid"`
	Visitor      *Visitor      `json:"visitor,omitempty"`
	Event        *Event        `json:"event,omitempty"`
	Registration *Registration `json:"registration,omitempty"`
}
