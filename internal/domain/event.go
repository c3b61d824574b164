// Package domain holds the kiosk data model shared by workflows, the backend
// client and the mock backend.
package domain

import "time"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventUpcoming EventStatus = "upcoming"
	EventActive   EventStatus = "active"
	EventFinished EventStatus = "finished"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventUpcoming, EventActive, EventFinished:
		return true
	}
	return false
}

// Event is a scheduled activity at the cultural center. The kiosk never mutates
// it; RegisteredCount grows on the backend as registrations succeed.
type Event struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Type            string      `json:"type,omitempty"`
	Category        string      `json:"category,omitempty"`
	Date            time.Time   `json:"date"`
	Location        string      `json:"location"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registeredCount"`
	Status          EventStatus `json:"status"`
	Price           float64     `json:"price"`
	Image           string      `json:"image,omitempty"`
	DurationMinutes int         `json:"durationMinutes,omitempty"`
	Organizer       string      `json:"organizer,omitempty"`
}

// AvailableSpots is capacity minus registrations, never negative.
func (e Event) AvailableSpots() int {
	if spots := e.Capacity - e.RegisteredCount; spots > 0 {
		return spots
	}
	return 0
}

func (e Event) IsFull() bool {
	return e.AvailableSpots() == 0
}

func (e Event) IsFinished() bool {
	return e.Status == EventFinished
}

// Selectable reports whether a visitor may register for the event.
func (e Event) Selectable() bool {
	return !e.IsFull() && !e.IsFinished()
}

// DeriveStatus infers a status from the start time when the upstream omits one.
// An event is active from its start until the duration elapses and finished
// afterwards. Without a duration it is finished as soon as it starts.
func DeriveStatus(start time.Time, duration time.Duration, now time.Time) EventStatus {
	end := start.Add(max(duration, 0))
	switch {
	case now.Before(start):
		return EventUpcoming
	case now.Before(end):
		return EventActive
	default:
		return EventFinished
	}
}
