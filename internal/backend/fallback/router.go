// Package fallback puts the offline backend behind the upstream API.
//
// A call goes to the primary first. Only when the primary is unavailable
// (connection failure, timeout, 5xx) or its circuit breaker is open does the
// secondary answer. A 404, 409 or 401 from the primary is returned as is.
package fallback

import (
	"context"
	"log/slog"

	"kiosk/internal/backend"
	"kiosk/internal/domain"
	"kiosk/internal/platform/metrics"
	"kiosk/pkg/platform/circuit"
)

// Router implements backend.API over a primary and an optional secondary.
type Router struct {
	primary   backend.API
	secondary backend.API
	breaker   *circuit.Breaker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Router)

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Router) {
		if b != nil {
			r.breaker = b
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// New builds a Router. A nil secondary disables the fallback: primary errors
// are returned unchanged.
func New(primary, secondary backend.API, opts ...Option) *Router {
	r := &Router{
		primary:   primary,
		secondary: secondary,
		breaker:   circuit.New("upstream"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BreakerState reports the upstream circuit state for health output.
func (r *Router) BreakerState() circuit.State {
	return r.breaker.State()
}

// route runs call against the primary and, when that is unavailable, against the
// secondary. degraded reports whether the secondary answered.
func route[T any](ctx context.Context, r *Router, op string, call func(context.Context, backend.API) (T, error)) (res T, degraded bool, err error) {
	if r.secondary != nil && !r.breaker.AllowPrimary() {
		return serveSecondary(ctx, r, op, call, nil)
	}

	res, err = call(ctx, r.primary)
	if err == nil || !backend.IsUnavailable(err) {
		// The upstream answered, even if the answer is an error.
		_, change := r.breaker.RecordSuccess()
		r.reportChange(ctx, change)
		return res, false, err
	}

	_, change := r.breaker.RecordFailure()
	r.reportChange(ctx, change)
	if r.secondary == nil {
		return res, false, err
	}
	return serveSecondary(ctx, r, op, call, err)
}

func serveSecondary[T any](ctx context.Context, r *Router, op string, call func(context.Context, backend.API) (T, error), cause error) (T, bool, error) {
	r.metrics.IncrementFallback(op)
	attrs := []any{"operation", op}
	if cause != nil {
		attrs = append(attrs, "cause", cause, "kind", string(backend.KindOf(cause)))
	} else {
		attrs = append(attrs, "cause", "circuit open")
	}
	r.logger.WarnContext(ctx, "serving from offline backend", attrs...)

	res, err := call(ctx, r.secondary)
	if err != nil {
		var zero T
		return zero, true, err
	}
	return res, true, nil
}

func (r *Router) reportChange(ctx context.Context, change circuit.StateChange) {
	switch {
	case change.Opened:
		r.metrics.SetBreakerOpen(true)
		r.logger.WarnContext(ctx, "upstream circuit opened", "breaker", r.breaker.Name())
	case change.Closed:
		r.metrics.SetBreakerOpen(false)
		r.logger.InfoContext(ctx, "upstream circuit closed", "breaker", r.breaker.Name())
	}
}

func (r *Router) ListEvents(ctx context.Context, q backend.EventQuery) (*backend.EventPage, error) {
	page, degraded, err := route(ctx, r, backend.OpListEvents, func(ctx context.Context, api backend.API) (*backend.EventPage, error) {
		return api.ListEvents(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	page.Degraded = page.Degraded || degraded
	return page, nil
}

func (r *Router) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, _, err := route(ctx, r, backend.OpGetEvent, func(ctx context.Context, api backend.API) (*domain.Event, error) {
		return api.GetEvent(ctx, id)
	})
	return event, err
}

func (r *Router) RegisterForEvent(ctx context.Context, eventID string, in domain.VisitorInput) (*domain.RegistrationResult, error) {
	res, degraded, err := route(ctx, r, backend.OpRegisterForEvent, func(ctx context.Context, api backend.API) (*domain.RegistrationResult, error) {
		return api.RegisterForEvent(ctx, eventID, in)
	})
	if err != nil {
		return nil, err
	}
	res.Offline = res.Offline || degraded
	return res, nil
}

func (r *Router) RegisterVisitor(ctx context.Context, in domain.VisitorInput, eventID string) (*domain.RegistrationResult, error) {
	res, degraded, err := route(ctx, r, backend.OpRegisterVisitor, func(ctx context.Context, api backend.API) (*domain.RegistrationResult, error) {
		return api.RegisterVisitor(ctx, in, eventID)
	})
	if err != nil {
		return nil, err
	}
	res.Offline = res.Offline || degraded
	return res, nil
}

func (r *Router) CheckIn(ctx context.Context, code string) (*domain.CheckInResult, error) {
	res, degraded, err := route(ctx, r, backend.OpCheckIn, func(ctx context.Context, api backend.API) (*domain.CheckInResult, error) {
		return api.CheckIn(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	res.Offline = res.Offline || degraded
	return res, nil
}

func (r *Router) ValidateCode(ctx context.Context, code string) (*domain.CodeValidation, error) {
	res, _, err := route(ctx, r, backend.OpValidateCode, func(ctx context.Context, api backend.API) (*domain.CodeValidation, error) {
		return api.ValidateCode(ctx, code)
	})
	return res, err
}

func (r *Router) VisitorStats(ctx context.Context, creds backend.Credentials) (*domain.VisitorStats, error) {
	stats, _, err := route(ctx, r, backend.OpVisitorStats, func(ctx context.Context, api backend.API) (*domain.VisitorStats, error) {
		return api.VisitorStats(ctx, creds)
	})
	return stats, err
}

// Health checks the primary only; the breaker is not consulted.
func (r *Router) Health(ctx context.Context) error {
	return r.primary.Health(ctx)
}

var _ backend.API = (*Router)(nil)
