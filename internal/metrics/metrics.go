// Package metrics exposes Prometheus instrumentation for the service
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sgisi-platform/go-core/internal/policy"
	"github.com/sgisi-platform/go-core/pkg/types"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	decisionsTotal  *prometheus.CounterVec
	signInsTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers the service metrics
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authz_decisions_total",
				Help:      "Authorization decisions by entity, operation and effect",
			},
			[]string{"entity", "operation", "effect"},
		),
		signInsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signin_attempts_total",
				Help:      "Password sign-in attempts by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method, route and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		registry: registry,
	}

	registry.MustRegister(m.decisionsTotal, m.signInsTotal, m.requestDuration)
	return m
}

// RecordDecision implements policy.Recorder
func (m *Metrics) RecordDecision(ctx context.Context, req *policy.Request, d types.Decision) {
	m.decisionsTotal.WithLabelValues(
		string(req.Kind), string(req.Op), string(d.Effect),
	).Inc()
}

// RecordSignIn counts a sign-in attempt outcome ("success", "failure",
// "throttled")
func (m *Metrics) RecordSignIn(outcome string) {
	m.signInsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
