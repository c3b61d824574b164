package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the kiosk service. All methods are
// nil-safe so components can run without metrics in tests.
type Metrics struct {
	// Upstream REST calls by operation and outcome (ok, connection, timeout, ...)
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec

	// Calls served by the offline mock backend
	FallbackServed *prometheus.CounterVec
	BreakerOpen    prometheus.Gauge

	Registrations *prometheus.CounterVec
	CheckIns      *prometheus.CounterVec

	ActiveSessions prometheus.Gauge
	Navigations    *prometheus.CounterVec

	HTTPLatency *prometheus.HistogramVec

	AuditDropped prometheus.Counter
}

// New registers the collectors on reg. Passing a fresh registry keeps tests
// isolated from each other.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BackendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_backend_requests_total",
			Help: "Upstream REST calls by operation and outcome",
		}, []string{"operation", "outcome"}),

		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kiosk_backend_request_duration_seconds",
			Help:    "Duration of upstream REST calls",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),

		FallbackServed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_backend_fallback_total",
			Help: "Calls answered by the offline backend, by operation",
		}, []string{"operation"}),

		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiosk_backend_breaker_open",
			Help: "1 while the upstream circuit breaker is open",
		}),

		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_registrations_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),

		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_checkins_total",
			Help: "Check-in attempts by outcome",
		}, []string{"outcome"}),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiosk_sessions_active",
			Help: "Kiosk sessions created minus sessions ended",
		}),

		Navigations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_navigations_total",
			Help: "Screen changes by destination screen",
		}, []string{"screen"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kiosk_http_request_duration_seconds",
			Help:    "Duration of kiosk API requests by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status"}),

		AuditDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_audit_events_dropped_total",
			Help: "Activity events dropped because the audit queue was full",
		}),
	}
}

// ObserveBackendRequest records one upstream call.
func (m *Metrics) ObserveBackendRequest(operation, outcome string, d time.Duration) {
	if m != nil {
		m.BackendRequests.WithLabelValues(operation, outcome).Inc()
		m.BackendLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementFallback(operation string) {
	if m != nil {
		m.FallbackServed.WithLabelValues(operation).Inc()
	}
}

// SetBreakerOpen mirrors the circuit breaker state.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementCheckIn(outcome string) {
	if m != nil {
		m.CheckIns.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionEnded() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

func (m *Metrics) IncrementNavigation(screen string) {
	if m != nil {
		m.Navigations.WithLabelValues(screen).Inc()
	}
}

// ObserveHTTPRequest records a kiosk API request.
func (m *Metrics) ObserveHTTPRequest(route, method, status string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementAuditDropped() {
	if m != nil {
		m.AuditDropped.Inc()
	}
}
