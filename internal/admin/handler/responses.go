package handler

import (
	"time"

	"kiosk/internal/admin"
	"kiosk/internal/audit"
	"kiosk/internal/domain"
)

type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func FromLogin(s *admin.Session) LoginResponse {
	return LoginResponse{
		Token:     s.Token,
		TokenType: "Bearer",
		Username:  s.Username,
		ExpiresAt: s.ExpiresAt,
	}
}

type MeResponse struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type StatsResponse struct {
	Stats *domain.VisitorStats `json:"stats"`
}

type ActivityResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}
