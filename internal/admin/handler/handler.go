// Package handler serves the admin area: login, logout, visitor statistics and
// recent kiosk activity.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kiosk/internal/admin"
	"kiosk/internal/audit"
	"kiosk/internal/domain"
	"kiosk/internal/platform/middleware"
	dErrors "kiosk/pkg/domain-errors"
	"kiosk/pkg/platform/httputil"
	"kiosk/pkg/requestcontext"
)

type Service interface {
	Login(ctx context.Context, username, password string) (*admin.Session, error)
	Authenticate(ctx context.Context, token string) (*admin.Session, error)
	Logout(ctx context.Context, session admin.Session) error
	Stats(ctx context.Context, session admin.Session) (*domain.VisitorStats, error)
	Activity(ctx context.Context, limit int) ([]audit.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin endpoints. Everything except login needs a bearer token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.service, h.logger))
			r.Post("/logout", h.HandleLogout)
			r.Get("/me", h.HandleMe)
			r.Get("/stats", h.HandleStats)
			r.Get("/activity", h.HandleActivity)
		})
	})
}

// HandleLogin handles POST /admin/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	session, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromLogin(session))
}

// HandleLogout handles POST /admin/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.service.Logout(r.Context(), *session); err != nil {
		h.fail(w, r, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /admin/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MeResponse{Username: session.Username, ExpiresAt: session.ExpiresAt})
}

// HandleStats handles GET /admin/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), *session)
	if err != nil {
		h.fail(w, r, "stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatsResponse{Stats: stats})
}

// HandleActivity handles GET /admin/activity?limit=N.
func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	events, err := h.service.Activity(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "activity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ActivityResponse{Events: events, Count: len(events)})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*admin.Session, bool) {
	session, ok := admin.SessionFrom(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin session required"))
		return nil, false
	}
	return session, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	if code := dErrors.CodeOf(err); code != dErrors.CodeUnauthorized && code != dErrors.CodeValidation {
		h.logger.ErrorContext(ctx, "admin action failed",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
