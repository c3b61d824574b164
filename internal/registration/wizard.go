// Package registration implements the visitor registration wizard.
//
// The Wizard is a plain state machine with no I/O. Service performs the single
// upstream call a submission needs; the kiosk session manager glues the two
// together and persists the wizard between requests.
package registration

import (
	"github.com/google/uuid"

	"kiosk/internal/backend"
	"kiosk/internal/domain"
	"kiosk/internal/validation"
	dErrors "kiosk/pkg/domain-errors"
)

// Step is the wizard state.
type Step string

const (
	StepSelectEvent Step = "select_event"
	StepFillForm    Step = "fill_form"
	StepSubmitting  Step = "submitting"
	StepSuccess     Step = "success"
)

// User-facing messages.
const (
	MsgEventFull      = "This event is full. Please choose another one."
	MsgEventFinished  = "This event has already finished. Please choose another one."
	MsgFixFields      = "Please correct the highlighted fields."
	MsgSubmitFailed   = "We could not complete your registration. Please try again."
	MsgAlreadySending = "Your registration is being sent."
)

var (
	// ErrSubmissionInFlight is returned for any change while a submission is
	// being sent. The UI ignores it.
	ErrSubmissionInFlight = dErrors.New(dErrors.CodeSubmissionInFlight, MsgAlreadySending)
	// ErrStaleSubmission means the wizard moved on (reset, navigation) while a
	// submission was in flight; its result is discarded.
	ErrStaleSubmission = dErrors.New(dErrors.CodeInvalidState, "registration was reset while it was being sent")
)

// Wizard holds one visitor's progress through registration. It is stored in the
// kiosk session and must stay JSON-serializable.
type Wizard struct {
	Step         Step                       `json:"step"`
	Event        *domain.Event              `json:"event,omitempty"`
	Form         validation.VisitorForm     `json:"form"`
	Errors       validation.FieldErrors     `json:"errors,omitempty"`
	Message      string                     `json:"message,omitempty"`
	SubmissionID string                     `json:"submissionId,omitempty"`
	Result       *domain.RegistrationResult `json:"result,omitempty"`
}

// NewWizard starts at event selection with an empty form.
func NewWizard() *Wizard {
	return &Wizard{Step: StepSelectEvent}
}

// Submission is what BeginSubmit hands to the Service.
type Submission struct {
	ID      string
	EventID string
	Input   domain.VisitorInput
}

func invalidStep(action string, step Step) error {
	return dErrors.New(dErrors.CodeInvalidState, "cannot "+action+" during "+string(step))
}

// SelectEvent binds an event and moves to the form. Full and finished events
// are rejected and the wizard stays where it is.
func (w *Wizard) SelectEvent(event domain.Event) error {
	if w.Step == StepSubmitting {
		return ErrSubmissionInFlight
	}
	if w.Step != StepSelectEvent {
		return invalidStep("select an event", w.Step)
	}
	switch {
	case event.IsFinished():
		return dErrors.New(dErrors.CodeConflict, MsgEventFinished)
	case event.IsFull():
		return dErrors.New(dErrors.CodeConflict, MsgEventFull)
	}
	w.Event = &event
	w.Form = validation.VisitorForm{}
	w.Errors = nil
	w.Message = ""
	w.Step = StepFillForm
	return nil
}

// SetField stores a typed value and clears that field's error. Nothing is
// validated until submit.
func (w *Wizard) SetField(field, value string) error {
	if w.Step == StepSubmitting {
		return ErrSubmissionInFlight
	}
	if w.Step != StepFillForm {
		return invalidStep("edit the form", w.Step)
	}
	form, ok := w.Form.Set(field, value)
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, "unknown field "+field)
	}
	w.Form = form
	delete(w.Errors, field)
	if len(w.Errors) == 0 {
		w.Errors = nil
	}
	return nil
}

// ChangeEvent returns to event selection and discards the form.
func (w *Wizard) ChangeEvent() error {
	if w.Step == StepSubmitting {
		return ErrSubmissionInFlight
	}
	if w.Step != StepFillForm {
		return invalidStep("change the event", w.Step)
	}
	*w = *NewWizard()
	return nil
}

// BeginSubmit validates every field. Invalid forms stay in fill_form with
// per-field errors and produce no Submission.
func (w *Wizard) BeginSubmit() (*Submission, error) {
	if w.Step == StepSubmitting {
		return nil, ErrSubmissionInFlight
	}
	if w.Step != StepFillForm || w.Event == nil {
		return nil, invalidStep("submit", w.Step)
	}

	errs := validation.ValidateVisitor(w.Form)
	if !errs.Valid() {
		w.Errors = errs
		w.Message = ""
		return nil, dErrors.NewValidation(MsgFixFields, errs)
	}

	w.Errors = nil
	w.Message = ""
	w.SubmissionID = uuid.NewString()
	w.Step = StepSubmitting
	return &Submission{ID: w.SubmissionID, EventID: w.Event.ID, Input: w.Form.ToInput()}, nil
}

// Complete records a successful submission and shows the confirmation code.
func (w *Wizard) Complete(submissionID string, result domain.RegistrationResult) error {
	if w.Step != StepSubmitting || w.SubmissionID != submissionID {
		return ErrStaleSubmission
	}
	w.Result = &result
	w.SubmissionID = ""
	w.Step = StepSuccess
	return nil
}

// Fail returns to the form with a retryable message. Entered values are kept.
func (w *Wizard) Fail(submissionID string, err error) error {
	if w.Step != StepSubmitting || w.SubmissionID != submissionID {
		return ErrStaleSubmission
	}
	w.Message = FailureMessage(err)
	w.SubmissionID = ""
	w.Step = StepFillForm
	return nil
}

// Reset starts a brand-new registration with no event preselected.
func (w *Wizard) Reset() {
	*w = *NewWizard()
}

// ConfirmationCode is set once the wizard reaches success.
func (w *Wizard) ConfirmationCode() string {
	if w.Result == nil {
		return ""
	}
	return w.Result.ConfirmationCode
}

// FailureMessage turns a submission error into the text shown above the form:
// the upstream's own message when it sent one, otherwise a kind-specific one.
func FailureMessage(err error) string {
	if msg := backend.UpstreamMessage(err); msg != "" {
		return msg
	}
	switch kind := backend.KindOf(err); kind {
	case backend.KindConnection, backend.KindTimeout, backend.KindAuth, backend.KindNotFound:
		return backend.UserMessage(kind)
	}
	return MsgSubmitFailed
}
