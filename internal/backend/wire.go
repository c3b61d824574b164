package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"kiosk/internal/domain"
)

// ID accepts both string and numeric identifiers on the wire and always encodes
// as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// EventDTO is the upstream representation of an event. Upstreams send either
// registeredCount or availableSpots; both are written on encode.
type EventDTO struct {
	ID              ID        `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Type            string    `json:"type,omitempty"`
	Category        string    `json:"category,omitempty"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location,omitempty"`
	Capacity        int       `json:"capacity"`
	RegisteredCount *int      `json:"registeredCount,omitempty"`
	AvailableSpots  *int      `json:"availableSpots,omitempty"`
	Status          string    `json:"status,omitempty"`
	Price           float64   `json:"price"`
	Image           string    `json:"image,omitempty"`
	Duration        int       `json:"duration,omitempty"`
	Organizer       string    `json:"organizer,omitempty"`
}

// ToDomain converts the DTO. A missing or unknown status is derived from the date
// relative to now; this is the only place the derivation happens.
func (d EventDTO) ToDomain(now time.Time) domain.Event {
	registered := 0
	switch {
	case d.RegisteredCount != nil:
		registered = *d.RegisteredCount
	case d.AvailableSpots != nil:
		registered = d.Capacity - *d.AvailableSpots
	}
	registered = max(0, registered)

	status := domain.EventStatus(d.Status)
	if !status.Valid() {
		status = domain.DeriveStatus(d.Date, time.Duration(d.Duration)*time.Minute, now)
	}

	return domain.Event{
		ID:              string(d.ID),
		Title:           d.Title,
		Description:     d.Description,
		Type:            d.Type,
		Category:        d.Category,
		Date:            d.Date,
		Location:        d.Location,
		Capacity:        d.Capacity,
		RegisteredCount: registered,
		Status:          status,
		Price:           d.Price,
		Image:           d.Image,
		DurationMinutes: d.Duration,
		Organizer:       d.Organizer,
	}
}

// EventFromDomain builds the wire form of an event.
func EventFromDomain(e domain.Event) EventDTO {
	registered := e.RegisteredCount
	available := e.AvailableSpots()
	return EventDTO{
		ID:              ID(e.ID),
		Title:           e.Title,
		Description:     e.Description,
		Type:            e.Type,
		Category:        e.Category,
		Date:            e.Date,
		Location:        e.Location,
		Capacity:        e.Capacity,
		RegisteredCount: &registered,
		AvailableSpots:  &available,
		Status:          string(e.Status),
		Price:           e.Price,
		Image:           e.Image,
		Duration:        e.DurationMinutes,
		Organizer:       e.Organizer,
	}
}

type VisitorDTO struct {
	ID           ID         `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Age          int        `json:"age"`
	Gender       string     `json:"gender"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`
}

func (v VisitorDTO) ToDomain() domain.Visitor {
	out := domain.Visitor{
		ID:     string(v.ID),
		Name:   v.Name,
		Email:  v.Email,
		Phone:  v.Phone,
		Age:    v.Age,
		Gender: domain.Gender(v.Gender),
	}
	if v.RegisteredAt != nil {
		out.RegisteredAt = *v.RegisteredAt
	}
	return out
}

func VisitorFromDomain(v domain.Visitor) VisitorDTO {
	dto := VisitorDTO{
		ID:     ID(v.ID),
		Name:   v.Name,
		Email:  v.Email,
		Phone:  v.Phone,
		Age:    v.Age,
		Gender: string(v.Gender),
	}
	if !v.RegisteredAt.IsZero() {
		at := v.RegisteredAt
		dto.RegisteredAt = &at
	}
	return dto
}

type RegistrationDTO struct {
	ID               ID         `json:"id,omitempty"`
	EventID          ID         `json:"eventId"`
	VisitorID        ID         `json:"visitorId,omitempty"`
	ConfirmationCode string     `json:"confirmationCode,omitempty"`
	RegisteredAt     *time.Time `json:"registeredAt,omitempty"`
	Status           string     `json:"status,omitempty"`
	CheckedInAt      *time.Time `json:"checkedInAt,omitempty"`
}

func (r RegistrationDTO) ToDomain() domain.Registration {
	out := domain.Registration{
		ID:               string(r.ID),
		EventID:          string(r.EventID),
		VisitorID:        string(r.VisitorID),
		ConfirmationCode: r.ConfirmationCode,
		Status:           domain.RegistrationStatus(r.Status),
		CheckedInAt:      r.CheckedInAt,
	}
	if out.Status == "" {
		out.Status = domain.RegistrationConfirmed
	}
	if r.RegisteredAt != nil {
		out.RegisteredAt = *r.RegisteredAt
	}
	return out
}

func RegistrationFromDomain(r domain.Registration) RegistrationDTO {
	dto := RegistrationDTO{
		ID:               ID(r.ID),
		EventID:          ID(r.EventID),
		VisitorID:        ID(r.VisitorID),
		ConfirmationCode: r.ConfirmationCode,
		Status:           string(r.Status),
		CheckedInAt:      r.CheckedInAt,
	}
	if !r.RegisteredAt.IsZero() {
		at := r.RegisteredAt
		dto.RegisteredAt = &at
	}
	return dto
}

// Pagination as returned by GET /events.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// EventsResponse is the body of GET /events.
type EventsResponse struct {
	Events     []EventDTO  `json:"events"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// EventResponse is the body of GET /events/{id}.
type EventResponse struct {
	Event EventDTO `json:"event"`
}

// VisitorPayload is the body of POST /events/{id}/register and, with EventID set,
// POST /visitors/register.
type VisitorPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	EventID string `json:"eventId,omitempty"`
}

func PayloadFromInput(in domain.VisitorInput, eventID string) VisitorPayload {
	return VisitorPayload{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Age:     in.Age,
		Gender:  string(in.Gender),
		EventID: eventID,
	}
}

func (p VisitorPayload) ToInput() domain.VisitorInput {
	return domain.VisitorInput{
		Name:   p.Name,
		Email:  p.Email,
		Phone:  p.Phone,
		Age:    p.Age,
		Gender: domain.Gender(p.Gender),
	}
}

// RegisterResponse is the body of both registration endpoints. Some upstreams
// name the code "code".
type RegisterResponse struct {
	Visitor          *VisitorDTO      `json:"visitor,omitempty"`
	Registration     *RegistrationDTO `json:"registration,omitempty"`
	ConfirmationCode string           `json:"confirmationCode,omitempty"`
	Code             string           `json:"code,omitempty"`
}

// CheckInRequest is the body of POST /visitors/checkin.
type CheckInRequest struct {
	ConfirmationCode string `json:"confirmationCode"`
}

// CheckInResponse is the body of a successful check-in.
type CheckInResponse struct {
	Visitor     *VisitorDTO `json:"visitor,omitempty"`
	Event       *EventDTO   `json:"event,omitempty"`
	CheckInTime *time.Time  `json:"checkInTime,omitempty"`
}

// ValidateResponse is the body of GET /visitors/validate/{code}.
type ValidateResponse struct {
	Valid        bool             `json:"valid"`
	Visitor      *VisitorDTO      `json:"visitor,omitempty"`
	Event        *EventDTO        `json:"event,omitempty"`
	Registration *RegistrationDTO `json:"registration,omitempty"`
}

// StatsResponse is the body of GET /visitors/stats.
type StatsResponse struct {
	Stats domain.VisitorStats `json:"stats"`
}

// ErrorBody is the upstream error envelope.
type ErrorBody struct {
	Message string `json:"message"`
}

// itoa keeps query building readable.
func itoa(n int) string { return strconv.Itoa(n) }
