// Package kiosk is the session shell of a kiosk terminal: which screen is up,
// the transient card selection on the home screen, and the workflow state of
// the screen being shown.
package kiosk

import (
	"time"

	"kiosk/internal/checkin"
	"kiosk/internal/registration"
	dErrors "kiosk/pkg/domain-errors"
)

// Screen is one of the top-level kiosk screens.
type Screen string

const (
	ScreenHome     Screen = "home"
	ScreenEvents   Screen = "events"
	ScreenRegister Screen = "register"
	ScreenCheckIn  Screen = "checkin"
	ScreenAdmin    Screen = "admin"
)

// Cards are the home screen shortcuts, in display order. Each one opens the
// screen of the same name.
var Cards = []Screen{ScreenEvents, ScreenRegister, ScreenCheckIn, ScreenAdmin}

func (s Screen) Valid() bool {
	switch s {
	case ScreenHome, ScreenEvents, ScreenRegister, ScreenCheckIn, ScreenAdmin:
		return true
	}
	return false
}

func (s Screen) isCard() bool {
	return s.Valid() && s != ScreenHome
}

// SelectionDuration is how long a tapped card shows as selected. It is purely
// cosmetic; navigation has already happened when it starts.
const SelectionDuration = 300 * time.Millisecond

// VisualState is consumed by the rendering layer only.
type VisualState string

const (
	VisualDefault  VisualState = "default"
	VisualHovered  VisualState = "hovered"
	VisualSelected VisualState = "selected"
	VisualPressed  VisualState = "pressed"
)

// Session is the state of one kiosk terminal. Only the workflow of the current
// screen is populated; the other one is nil.
type Session struct {
	ID            string               `json:"id"`
	TerminalID    string               `json:"terminalId,omitempty"`
	Device        string               `json:"device,omitempty"`
	Screen        Screen               `json:"screen"`
	SelectedCard  Screen               `json:"selectedCard,omitempty"`
	SelectedUntil *time.Time           `json:"selectedUntil,omitempty"`
	Registration  *registration.Wizard `json:"registration,omitempty"`
	CheckIn       *checkin.Form        `json:"checkIn,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// NewSession starts on the home screen.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Screen:    ScreenHome,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Navigate switches screens. Card selection is always reset, the workflow of
// the screen being left is discarded and the one entered starts fresh, so
// navigating to the current screen restarts its workflow.
func (s *Session) Navigate(to Screen, now time.Time) error {
	if !to.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown screen "+string(to))
	}
	s.SelectedCard = ""
	s.SelectedUntil = nil
	s.Registration = nil
	s.CheckIn = nil
	switch to {
	case ScreenRegister:
		s.Registration = registration.NewWizard()
	case ScreenCheckIn:
		s.CheckIn = checkin.NewForm()
	}
	s.Screen = to
	s.UpdatedAt = now
	return nil
}

// SelectCard navigates straight away and then marks the card selected for
// SelectionDuration.
func (s *Session) SelectCard(card Screen, now time.Time) error {
	if !card.isCard() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown card "+string(card))
	}
	if err := s.Navigate(card, now); err != nil {
		return err
	}
	until := now.Add(SelectionDuration)
	s.SelectedCard = card
	s.SelectedUntil = &until
	return nil
}

// CardState is the visual state of a home card at now. Pointer state comes
// from the terminal; pressed wins over selected, selected over hovered.
func (s *Session) CardState(card Screen, now time.Time, hovered, pressed bool) VisualState {
	switch {
	case pressed:
		return VisualPressed
	case s.SelectedCard == card && s.SelectedUntil != nil && now.Before(*s.SelectedUntil):
		return VisualSelected
	case hovered:
		return VisualHovered
	default:
		return VisualDefault
	}
}

// Wizard returns the registration wizard, which exists only on the register screen.
func (s *Session) Wizard() (*registration.Wizard, error) {
	if s.Screen != ScreenRegister || s.Registration == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "registration is not open")
	}
	return s.Registration, nil
}

// CheckInForm returns the check-in form, which exists only on the check-in screen.
func (s *Session) CheckInForm() (*checkin.Form, error) {
	if s.Screen != ScreenCheckIn || s.CheckIn == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "check-in is not open")
	}
	return s.CheckIn, nil
}
