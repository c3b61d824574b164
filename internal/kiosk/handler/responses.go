package handler

import (
	"time"

	"kiosk/internal/checkin"
	"kiosk/internal/domain"
	"kiosk/internal/kiosk"
	"kiosk/internal/registration"
)

type CardResponse struct {
	Card  kiosk.Screen      `json:"card"`
	State kiosk.VisualState `json:"state"`
}

// SessionResponse is everything the kiosk UI needs to draw the current screen.
type SessionResponse struct {
	ID           string               `json:"id"`
	Screen       kiosk.Screen         `json:"screen"`
	Cards        []CardResponse       `json:"cards,omitempty"`
	Registration *registration.Wizard `json:"registration,omitempty"`
	CheckIn      *checkin.Form        `json:"checkIn,omitempty"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// FromSession renders s as of now: expired check-in messages are dropped and
// card states are computed.
func FromSession(s *kiosk.Session, now time.Time) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID,
		Screen:       s.Screen,
		Registration: s.Registration,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Screen == kiosk.ScreenHome || s.SelectedCard != "" {
		for _, card := range kiosk.Cards {
			resp.Cards = append(resp.Cards, CardResponse{Card: card, State: s.CardState(card, now, false, false)})
		}
	}
	if s.CheckIn != nil {
		form := s.CheckIn.View(now)
		resp.CheckIn = &form
	}
	return resp
}

// CodeLookupResponse is the read-only view of a confirmation code.
type CodeLookupResponse struct {
	Valid        bool                 `json:"valid"`
	Visitor      *domain.Visitor      `json:"visitor,omitempty"`
	Event        *domain.Event        `json:"event,omitempty"`
	Registration *domain.Registration `json:"registration,omitempty"`
}

func FromCodeValidation(v *domain.CodeValidation) CodeLookupResponse {
	return CodeLookupResponse{
		Valid:        v.Valid,
		Visitor:      v.Visitor,
		Event:        v.Event,
		Registration: v.Registration,
	}
}
