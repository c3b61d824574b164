// Package handler exposes kiosk sessions to the touchscreen UI.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kiosk/internal/domain"
	"kiosk/internal/kiosk"
	dErrors "kiosk/pkg/domain-errors"
	"kiosk/pkg/platform/httputil"
	"kiosk/pkg/requestcontext"
)

// Service is the session behaviour the handler needs.
type Service interface {
	Start(ctx context.Context) (*kiosk.Session, error)
	Get(ctx context.Context, id string) (*kiosk.Session, error)
	End(ctx context.Context, id string) error
	Navigate(ctx context.Context, id string, to kiosk.Screen) (*kiosk.Session, error)
	SelectCard(ctx context.Context, id string, card kiosk.Screen) (*kiosk.Session, error)
	SelectEvent(ctx context.Context, id, eventID string) (*kiosk.Session, error)
	SetFields(ctx context.Context, id string, fields []kiosk.FieldValue) (*kiosk.Session, error)
	ChangeEvent(ctx context.Context, id string) (*kiosk.Session, error)
	ResetRegistration(ctx context.Context, id string) (*kiosk.Session, error)
	SubmitRegistration(ctx context.Context, id string) (*kiosk.Session, error)
	SetCheckInCode(ctx context.Context, id, raw string) (*kiosk.Session, error)
	SubmitCheckIn(ctx context.Context, id string) (*kiosk.Session, error)
	ClearCheckIn(ctx context.Context, id string) (*kiosk.Session, error)
	LookupCode(ctx context.Context, code string) (*domain.CodeValidation, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the kiosk endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/kiosk/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleEnd)
			r.Post("/navigate", h.HandleNavigate)
			r.Post("/cards/{card}", h.HandleSelectCard)

			r.Post("/registration/event", h.HandleSelectEvent)
			r.Patch("/registration/fields", h.HandleSetFields)
			r.Post("/registration/change-event", h.sessionAction("change event", h.service.ChangeEvent))
			r.Post("/registration/submit", h.sessionAction("submit registration", h.service.SubmitRegistration))
			r.Post("/registration/reset", h.sessionAction("reset registration", h.service.ResetRegistration))

			r.Put("/checkin/code", h.HandleSetCode)
			r.Post("/checkin/submit", h.sessionAction("submit check-in", h.service.SubmitCheckIn))
			r.Post("/checkin/clear", h.sessionAction("clear check-in", h.service.ClearCheckIn))
		})
	})
	r.Get("/checkin/codes/{code}", h.HandleLookupCode)
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, status int, s *kiosk.Session) {
	httputil.WriteJSON(w, status, FromSession(s, requestcontext.Now(r.Context())))
}

// fail logs anything the visitor did not cause and writes the error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUpstreamUnavailable, dErrors.CodeUpstreamTimeout:
		h.logger.ErrorContext(ctx, "kiosk action failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", chi.URLParam(r, "id"),
			"action", action,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

// sessionAction adapts a body-less session operation to a handler.
func (h *Handler) sessionAction(action string, op func(context.Context, string) (*kiosk.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := op(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, action, err)
			return
		}
		h.writeSession(w, r, http.StatusOK, s)
	}
}

// HandleStart handles POST /kiosk/sessions.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Start(r.Context())
	if err != nil {
		h.fail(w, r, "start session", err)
		return
	}
	h.writeSession(w, r, http.StatusCreated, s)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get session", err)
		return
	}
	h.writeSession(w, r, http.StatusOK, s)
}

func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.service.End(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "end session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleNavigate handles POST /kiosk/sessions/{id}/navigate.
func (h *Handler) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[NavigateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	s, err := h.service.Navigate(ctx, chi.URLParam(r, "id"), kiosk.Screen(req.Screen))
	if err != nil {
		h.fail(w, r, "navigate", err)
		return
	}
	h.writeSession(w, r, http.StatusOK, s)
}

// HandleSelectCard handles POST /kiosk/sessions/{id}/cards/{card}.
func (h *Handler) HandleSelectCard(w http.ResponseWriter, r *http.Request) {
	card := kiosk.Screen(chi.URLParam(r, "card"))
	s, err := h.service.SelectCard(r.Context(), chi.URLParam(r, "id"), card)
	if err != nil {
		h.fail(w, r, "select card", err)
		return
	}
	h.writeSession(w, r, http.StatusOK, s)
}

// HandleSelectEvent handles POST /kiosk/sessions/{id}/registration/event. It
// works from the events screen too, opening registration with the event bound.
func (h *Handler) HandleSelectEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SelectEventRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	s, err := h.service.SelectEvent(ctx, chi.URLParam(r, "id"), req.EventID)
	if err != nil {
		h.fail(w, r, "select event", err)
		return
	}
	h.writeSession(w, r, http.StatusOK, s)
}

// HandleSetFields handles PATCH /kiosk/sessions/{id}/registration/fields.
func (h *Handler) HandleSetFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[FieldsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	s, err := h.service.SetFields(ctx, chi.URLParam(r, "id"), req.edits())
	if err != nil {
		h.fail(w, r, "set fields", err)
		return
	}
	h.writeSession(w, r, http.StatusOK, s)
}

// HandleSetCode handles PUT /kiosk/sessions/{id}/checkin/code.
func (h *Handler) HandleSetCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CodeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	s, err := h.service.SetCheckInCode(ctx, chi.URLParam(r, "id"), req.Code)
	if err != nil {
		h.fail(w, r, "set code", err)
		return
	}
	h.writeSession(w, r, http.StatusOK, s)
}

// HandleLookupCode handles GET /checkin/codes/{code}.
func (h *Handler) HandleLookupCode(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.LookupCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "lookup code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCodeValidation(res))
}
