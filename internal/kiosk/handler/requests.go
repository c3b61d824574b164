package handler

import (
	"slices"
	"strings"

	"kiosk/internal/kiosk"
	"kiosk/internal/validation"
	dErrors "kiosk/pkg/domain-errors"
)

type NavigateRequest struct {
	Screen string `json:"screen"`
}

func (r *NavigateRequest) Validate() error {
	r.Screen = strings.ToLower(strings.TrimSpace(r.Screen))
	if r.Screen == "" {
		return dErrors.New(dErrors.CodeBadRequest, "screen is required")
	}
	return nil
}

type SelectEventRequest struct {
	EventID string `json:"eventId"`
}

func (r *SelectEventRequest) Validate() error {
	r.EventID = strings.TrimSpace(r.EventID)
	if r.EventID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "eventId is required")
	}
	return nil
}

// FieldsRequest carries one or more form edits keyed by field name. Values are
// kept as typed; they are only validated on submit.
type FieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

func (r *FieldsRequest) Validate() error {
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "fields are required")
	}
	return nil
}

// edits orders the fields as the form shows them, unknown names last so the
// wizard can reject them.
func (r *FieldsRequest) edits() []kiosk.FieldValue {
	out := make([]kiosk.FieldValue, 0, len(r.Fields))
	for _, field := range validation.Fields {
		if v, ok := r.Fields[field]; ok {
			out = append(out, kiosk.FieldValue{Field: field, Value: v})
		}
	}
	var unknown []string
	for field := range r.Fields {
		if !slices.Contains(validation.Fields, field) {
			unknown = append(unknown, field)
		}
	}
	slices.Sort(unknown)
	for _, field := range unknown {
		out = append(out, kiosk.FieldValue{Field: field, Value: r.Fields[field]})
	}
	return out
}

type CodeRequest struct {
	Code string `json:"code"`
}

func (r *CodeRequest) Validate() error {
	return nil
}
