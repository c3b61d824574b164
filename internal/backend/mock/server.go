package mock

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kiosk/internal/backend"
)

// Handler exposes a Backend over the REST contract the kiosk client speaks.
type Handler struct {
	backend *Backend
	logger  *slog.Logger
}

func NewHandler(b *Backend, logger *slog.Logger) *Handler {
	return &Handler{backend: b, logger: logger}
}

// Register mounts the upstream routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/events", h.handleListEvents)
	r.Get("/events/{id}", h.handleGetEvent)
	r.Post("/events/{id}/register", h.handleRegisterForEvent)
	r.Post("/visitors/register", h.handleRegisterVisitor)
	r.Post("/visitors/checkin", h.handleCheckIn)
	r.Get("/visitors/validate/{code}", h.handleValidate)
	r.Get("/visitors/stats", h.handleStats)
}

// NewServer returns a router serving the contract under /api.
func NewServer(b *Backend, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Route("/api", NewHandler(b, logger).Register)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error."
	var be *backend.Error
	if errors.As(err, &be) && be.Status != 0 {
		status = be.Status
		if be.Message != "" {
			msg = be.Message
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "mock backend request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, backend.ErrorBody{Message: msg})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Health(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := backend.EventQuery{
		Status:   q.Get("status"),
		Category: q.Get("category"),
	}
	var err error
	if query.DateFrom, err = parseDate(q.Get("date_from")); err != nil {
		writeJSON(w, http.StatusBadRequest, backend.ErrorBody{Message: "date_from must be YYYY-MM-DD."})
		return
	}
	if query.DateTo, err = parseDate(q.Get("date_to")); err != nil {
		writeJSON(w, http.StatusBadRequest, backend.ErrorBody{Message: "date_to must be YYYY-MM-DD."})
		return
	}
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.Offset, _ = strconv.Atoi(q.Get("offset"))

	page, err := h.backend.ListEvents(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := backend.EventsResponse{Events: make([]backend.EventDTO, 0, len(page.Events)), Pagination: page.Pagination}
	for _, e := range page.Events {
		resp.Events = append(resp.Events, backend.EventFromDomain(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.backend.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.EventResponse{Event: backend.EventFromDomain(*event)})
}

func decodePayload(r *http.Request) (backend.VisitorPayload, bool) {
	var p backend.VisitorPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return p, false
	}
	return p, true
}

func (h *Handler) handleRegisterForEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, backend.ErrorBody{Message: MsgInvalidVisitor})
		return
	}
	res, err := h.backend.RegisterForEvent(r.Context(), chi.URLParam(r, "id"), p.ToInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reg := backend.RegistrationFromDomain(res.Registration)
	writeJSON(w, http.StatusCreated, backend.RegisterResponse{
		Registration:     &reg,
		ConfirmationCode: res.ConfirmationCode,
	})
}

func (h *Handler) handleRegisterVisitor(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(r)
	if !ok || strings.TrimSpace(p.EventID) == "" {
		writeJSON(w, http.StatusBadRequest, backend.ErrorBody{Message: MsgInvalidVisitor})
		return
	}
	res, err := h.backend.RegisterVisitor(r.Context(), p.ToInput(), p.EventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	visitor := backend.VisitorFromDomain(res.Visitor)
	reg := backend.RegistrationFromDomain(res.Registration)
	writeJSON(w, http.StatusCreated, backend.RegisterResponse{
		Visitor:          &visitor,
		Registration:     &reg,
		ConfirmationCode: res.ConfirmationCode,
	})
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req backend.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConfirmationCode == "" {
		writeJSON(w, http.StatusBadRequest, backend.ErrorBody{Message: MsgInvalidCode})
		return
	}
	res, err := h.backend.CheckIn(r.Context(), req.ConfirmationCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	visitor := backend.VisitorFromDomain(res.Visitor)
	resp := backend.CheckInResponse{Visitor: &visitor, CheckInTime: &res.CheckInTime}
	if res.Event != nil {
		ev := backend.EventFromDomain(*res.Event)
		resp.Event = &ev
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	res, err := h.backend.ValidateCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := backend.ValidateResponse{Valid: res.Valid}
	if res.Visitor != nil {
		v := backend.VisitorFromDomain(*res.Visitor)
		resp.Visitor = &v
	}
	if res.Event != nil {
		ev := backend.EventFromDomain(*res.Event)
		resp.Event = &ev
	}
	if res.Registration != nil {
		reg := backend.RegistrationFromDomain(*res.Registration)
		resp.Registration = &reg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		creds.Token = strings.TrimSpace(token)
	}
	stats, err := h.backend.VisitorStats(r.Context(), creds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.StatsResponse{Stats: *stats})
}
