package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for AuthEvents
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeAccountInactive    = "account_inactive"
	OutcomeMissingToken       = "missing_token"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeExpiredToken       = "expired_token"
	OutcomeInvalidSession     = "invalid_session"
	OutcomeExpiredSession     = "expired_session"
	OutcomeForbidden          = "forbidden"
	OutcomeError              = "error"
)

// Metrics holds the collectors exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// AuthEvents counts login and gate results, labelled by stage and outcome
	AuthEvents      *prometheus.CounterVec
	SessionsCreated prometheus.Counter
	SessionsRevoked *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rbac_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rbac_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rbac_auth_events_total",
				Help: "Authentication and authorization results",
			},
			[]string{"stage", "outcome"},
		),
		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rbac_sessions_created_total",
				Help: "Sessions created by successful logins",
			},
		),
		SessionsRevoked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rbac_sessions_revoked_total",
				Help: "Session rows removed, by reason",
			},
			[]string{"reason"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthEvents,
		m.SessionsCreated,
		m.SessionsRevoked,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Auth records one authentication or authorization result. A nil receiver
// is a no-op so services can run without metrics.
func (m *Metrics) Auth(stage, outcome string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

func (m *Metrics) SessionRevoked(reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsRevoked.WithLabelValues(reason).Add(float64(n))
}
