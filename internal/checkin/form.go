// Package checkin implements the confirmation code check-in workflow.
package checkin

import (
	"time"

	"github.com/google/uuid"

	"kiosk/internal/backend"
	"kiosk/internal/domain"
	"kiosk/internal/validation"
	dErrors "kiosk/pkg/domain-errors"
)

// Status of the check-in form.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusVerifying Status = "verifying"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// MessageKind tells the UI how to style the status line.
type MessageKind string

const (
	MessageInfo    MessageKind = "info"
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

const (
	MsgVerifying   = "Verifying code..."
	MsgCheckedIn   = "Check-in completed. Welcome!"
	MsgInvalidCode = "Invalid code. Please check it and try again."

	// SuccessMessageTTL is how long the success line stays up. The visitor and
	// event stay visible until the next input or Clear.
	SuccessMessageTTL = 3 * time.Second
)

var (
	ErrVerifyInFlight = dErrors.New(dErrors.CodeSubmissionInFlight, MsgVerifying)
	ErrStaleAttempt   = dErrors.New(dErrors.CodeInvalidState, "check-in was cleared while it was being verified")
)

// Form is one terminal's check-in screen state. It is stored in the kiosk
// session and must stay JSON-serializable.
type Form struct {
	Status           Status                `json:"status"`
	Code             string                `json:"code"`
	Message          string                `json:"message,omitempty"`
	MessageKind      MessageKind           `json:"messageKind,omitempty"`
	MessageExpiresAt *time.Time            `json:"messageExpiresAt,omitempty"`
	AttemptID        string                `json:"attemptId,omitempty"`
	Result           *domain.CheckInResult `json:"result,omitempty"`
}

func NewForm() *Form {
	return &Form{Status: StatusIdle}
}

// Input replaces the code with the normalized form of raw. Typing starts a new
// check-in, so any previous message and result are dropped.
func (f *Form) Input(raw string) error {
	if f.Status == StatusVerifying {
		return ErrVerifyInFlight
	}
	f.Code = validation.NormalizeCode(raw)
	f.Status = StatusIdle
	f.Result = nil
	f.clearMessage()
	return nil
}

// BeginVerify checks the code locally and moves to verifying. Codes shorter
// than the minimum never reach the network.
func (f *Form) BeginVerify() (attemptID, code string, err error) {
	if f.Status == StatusVerifying {
		return "", "", ErrVerifyInFlight
	}
	if len(f.Code) < validation.MinCodeLength {
		f.Status = StatusError
		f.setMessage(validation.MsgCodeInvalid, MessageError, nil)
		return "", "", dErrors.NewValidation(validation.MsgCodeInvalid, map[string]string{
			"code": validation.MsgCodeInvalid,
		})
	}
	f.AttemptID = uuid.NewString()
	f.Status = StatusVerifying
	f.Result = nil
	f.setMessage(MsgVerifying, MessageInfo, nil)
	return f.AttemptID, f.Code, nil
}

// Complete shows the visitor and event. The message expires after
// SuccessMessageTTL; the input is cleared for the next visitor.
func (f *Form) Complete(attemptID string, result domain.CheckInResult, now time.Time) error {
	if f.Status != StatusVerifying || f.AttemptID != attemptID {
		return ErrStaleAttempt
	}
	expires := now.Add(SuccessMessageTTL)
	f.Status = StatusSuccess
	f.Result = &result
	f.Code = ""
	f.AttemptID = ""
	f.setMessage(MsgCheckedIn, MessageSuccess, &expires)
	return nil
}

// Fail shows why the code was refused and keeps it in the field for correction.
func (f *Form) Fail(attemptID string, err error) error {
	if f.Status != StatusVerifying || f.AttemptID != attemptID {
		return ErrStaleAttempt
	}
	f.Status = StatusError
	f.AttemptID = ""
	f.setMessage(FailureMessage(err), MessageError, nil)
	return nil
}

// Clear resets the code and message. Calling it repeatedly is harmless. A
// verification still in flight becomes stale.
func (f *Form) Clear() {
	*f = *NewForm()
}

// View returns the form as it should be rendered at now, with an expired
// message removed.
func (f Form) View(now time.Time) Form {
	if f.MessageExpiresAt != nil && !now.Before(*f.MessageExpiresAt) {
		f.clearMessage()
	}
	return f
}

func (f *Form) setMessage(msg string, kind MessageKind, expires *time.Time) {
	f.Message = msg
	f.MessageKind = kind
	f.MessageExpiresAt = expires
}

func (f *Form) clearMessage() {
	f.setMessage("", "", nil)
}

// FailureMessage is the upstream message when present, otherwise a kind
// specific one for availability and auth failures, otherwise "invalid code".
func FailureMessage(err error) string {
	if msg := backend.UpstreamMessage(err); msg != "" {
		return msg
	}
	switch kind := backend.KindOf(err); kind {
	case backend.KindConnection, backend.KindTimeout, backend.KindAuth:
		return backend.UserMessage(kind)
	}
	return MsgInvalidCode
}
