package domain

import "time"

// Gender as collected by the registration form.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Visitor is a person who registered at the kiosk.
type Visitor struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Age          int       `json:"age"`
	Gender       Gender    `json:"gender"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// VisitorInput is the validated payload submitted by the registration form.
type VisitorInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Age    int    `json:"age"`
	Gender Gender `json:"gender"`
}

// VisitorStats summarizes registrations for the admin screen.
type VisitorStats struct {
	TotalVisitors      int            `json:"totalVisitors"`
	TotalRegistrations int            `json:"totalRegistrations"`
	CheckedIn          int            `json:"checkedIn"`
	Pending            int            `json:"pending"`
	ByEvent            map[string]int `json:"byEvent"`
	ByGender           map[string]int `json:"byGender"`
}
