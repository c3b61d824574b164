package handler

import (
	"strings"

	dErrors "kiosk/pkg/domain-errors"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	fields := map[string]string{}
	if r.Username == "" {
		fields["username"] = "Username is required."
	}
	if r.Password == "" {
		fields["password"] = "Password is required."
	}
	if len(fields) > 0 {
		return dErrors.NewValidation("username and password are required", fields)
	}
	return nil
}
