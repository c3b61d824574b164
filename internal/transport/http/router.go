// Package httptransport assembles the kiosk service router: the shared middleware
// chain, every context's handlers, /health and /metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kiosk/internal/platform/metrics"
	"kiosk/internal/platform/middleware"
	"kiosk/pkg/platform/circuit"
	"kiosk/pkg/platform/httputil"
	"kiosk/pkg/requestcontext"
)

// RouteRegistrar is implemented by every context handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// BreakerReporter exposes the upstream circuit state.
type BreakerReporter interface {
	BreakerState() circuit.State
}

// Check is a named dependency probe for /health.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	Upstream       BreakerReporter
	Checks         []Check
}

// NewRouter mounts the handlers behind the shared middleware chain.
func NewRouter(cfg Config, handlers ...RouteRegistrar) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Device)
	r.Use(middleware.TerminalID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/health", healthHandler(cfg))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.ContentTypeJSON)
		for _, h := range handlers {
			h.Register(r)
		}
	})
	return r
}

// HealthResponse is the /health body. An open upstream circuit is reported but
// does not fail the check: kiosks keep working from the offline backend.
type HealthResponse struct {
	Status   string            `json:"status"`
	Upstream string            `json:"upstream,omitempty"`
	Checks   map[string]string `json:"checks,omitempty"`
}

func healthHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok"}
		status := http.StatusOK
		if cfg.Upstream != nil {
			resp.Upstream = cfg.Upstream.BreakerState().String()
			if resp.Upstream == circuit.StateOpen.String() {
				resp.Status = "degraded"
			}
		}
		for _, c := range cfg.Checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(cfg.Checks))
			}
			if err := c.Probe(ctx); err != nil {
				cfg.Logger.WarnContext(ctx, "health check failed",
					"request_id", requestcontext.RequestID(ctx),
					"check", c.Name,
					"error", err,
				)
				resp.Checks[c.Name] = "unavailable"
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
