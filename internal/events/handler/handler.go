package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kiosk/internal/domain"
	"kiosk/internal/events"
	dErrors "kiosk/pkg/domain-errors"
	"kiosk/pkg/platform/httputil"
	"kiosk/pkg/requestcontext"
)

// Service is the directory behaviour the handler needs.
type Service interface {
	List(ctx context.Context, f events.Filter) (*events.Listing, error)
	Selectable(ctx context.Context, f events.Filter) (*events.Listing, error)
	Get(ctx context.Context, id string) (*domain.Event, error)
}

// Handler serves the event catalogue to the kiosk UI.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the event endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.HandleList)
	r.Get("/events/{id}", h.HandleGet)
}

// HandleList handles GET /events. selectable=true keeps only events open for
// registration.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list := h.service.List
	if r.URL.Query().Get("selectable") == "true" {
		list = h.service.Selectable
	}
	listing, err := list(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list events",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if listing.Degraded {
		h.logger.WarnContext(ctx, "events served from offline backend",
			"request_id", requestID,
			"count", len(listing.Events),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, FromListing(listing))
}

// HandleGet handles GET /events/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	event, err := h.service.Get(ctx, id)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to get event",
				"request_id", requestcontext.RequestID(ctx),
				"event_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvent(*event))
}

func parseFilter(r *http.Request) (events.Filter, error) {
	q := r.URL.Query()
	f := events.Filter{Status: q.Get("status"), Category: q.Get("category")}

	var err error
	if f.DateFrom, err = parseDate(q.Get("date_from")); err != nil {
		return f, dErrors.New(dErrors.CodeBadRequest, "date_from must be YYYY-MM-DD")
	}
	if f.DateTo, err = parseDate(q.Get("date_to")); err != nil {
		return f, dErrors.New(dErrors.CodeBadRequest, "date_to must be YYYY-MM-DD")
	}
	if f.Limit, err = parseInt(q.Get("limit")); err != nil {
		return f, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer")
	}
	if f.Offset, err = parseInt(q.Get("offset")); err != nil {
		return f, dErrors.New(dErrors.CodeBadRequest, "offset must be an integer")
	}
	return f, nil
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

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
