package handler

import (
	"time"

	"kiosk/internal/domain"
	"kiosk/internal/events"
)

// EventResponse is an event as the kiosk renders it, with derived seat counts.
type EventResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Type            string    `json:"type,omitempty"`
	Category        string    `json:"category"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"`
	Capacity        int       `json:"capacity"`
	RegisteredCount int       `json:"registeredCount"`
	AvailableSpots  int       `json:"availableSpots"`
	IsFull          bool      `json:"isFull"`
	Selectable      bool      `json:"selectable"`
	Status          string    `json:"status"`
	Price           float64   `json:"price"`
	Image           string    `json:"image,omitempty"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	Organizer       string    `json:"organizer,omitempty"`
}

// ListResponse is the HTTP response for GET /events.
type ListResponse struct {
	Events   []EventResponse `json:"events"`
	Total    int             `json:"total"`
	Degraded bool            `json:"degraded"`
}

func FromEvent(e domain.Event) EventResponse {
	return EventResponse{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Type:            e.Type,
		Category:        e.Category,
		Date:            e.Date,
		Location:        e.Location,
		Capacity:        e.Capacity,
		RegisteredCount: e.RegisteredCount,
		AvailableSpots:  e.AvailableSpots(),
		IsFull:          e.IsFull(),
		Selectable:      e.Selectable(),
		Status:          string(e.Status),
		Price:           e.Price,
		Image:           e.Image,
		DurationMinutes: e.DurationMinutes,
		Organizer:       e.Organizer,
	}
}

func FromListing(l *events.Listing) *ListResponse {
	resp := &ListResponse{Events: make([]EventResponse, 0, len(l.Events)), Total: l.Total, Degraded: l.Degraded}
	for _, e := range l.Events {
		resp.Events = append(resp.Events, FromEvent(e))
	}
	return resp
}
