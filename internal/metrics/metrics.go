// Package metrics collects and exposes Prometheus metrics for the login flow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records login, provider and request metrics.
type Collector struct {
	logins            *prometheus.CounterVec
	reconciliations   prometheus.Counter
	providerCalls     *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	sessionValidation *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsanotes_logins_total",
			Help: "Completed login attempts by final stage and result.",
		}, []string{"stage", "result"}),
		reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dsanotes_login_reconciliation_candidates_total",
			Help: "Logins whose code was consumed but whose user could not be persisted.",
		}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsanotes_provider_calls_total",
			Help: "Calls to the identity provider by operation and outcome.",
		}, []string{"op", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsanotes_provider_call_duration_seconds",
			Help:    "Identity provider call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		sessionValidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsanotes_session_validations_total",
			Help: "Session validation results.",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsanotes_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.reconciliations,
		c.providerCalls,
		c.providerLatency,
		c.sessionValidation,
		c.httpStatus,
	)

	return c
}

// RecordLogin records the final stage of a login attempt.
func (c *Collector) RecordLogin(stage string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(stage, result).Inc()
}

// RecordReconciliationCandidate counts a login that failed after the code was consumed.
func (c *Collector) RecordReconciliationCandidate() {
	c.reconciliations.Inc()
}

// RecordProviderCall records the outcome and latency of a provider call.
func (c *Collector) RecordProviderCall(op, outcome string, duration time.Duration) {
	c.providerCalls.WithLabelValues(op, outcome).Inc()
	c.providerLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordSessionValidation records whether a presented session was accepted.
func (c *Collector) RecordSessionValidation(outcome string) {
	c.sessionValidation.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus records a response status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler serves the registry for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
