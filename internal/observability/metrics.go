// Package observability owns the process's Prometheus registry and
// OpenTelemetry tracer provider.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "taskroom"

// Metrics holds the metric vectors recorded by the HTTP layer, the backend
// client, the local database wrapper and the outbox worker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	BackendCallsTotal   *prometheus.CounterVec
	BackendCallDuration *prometheus.HistogramVec
	DBQueryDuration     *prometheus.HistogramVec
	SlowQueriesTotal    prometheus.Counter
	OutboxEntriesTotal  *prometheus.CounterVec
	OutboxBacklog       *prometheus.GaugeVec
}

// NewMetrics creates the metric vectors on a fresh registry, plus the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BackendCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "backend_calls_total",
			Help:      "Calls made to the hosted backend",
		}, []string{"service", "method", "status_code"}),
		BackendCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Latency of hosted backend calls in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),
		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Latency of local SQLite statements in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"op"}),
		SlowQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "db_slow_queries_total",
			Help:      "Local SQLite statements slower than the slow-query threshold",
		}),
		OutboxEntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "outbox_attempts_total",
			Help:      "Outbox entry attempts by action type and outcome",
		}, []string{"action_type", "outcome"}),
		OutboxBacklog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "outbox_entries",
			Help:      "Outbox entries by status, as of the last worker tick",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BackendCallsTotal,
		m.BackendCallDuration,
		m.DBQueryDuration,
		m.SlowQueriesTotal,
		m.OutboxEntriesTotal,
		m.OutboxBacklog,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveBackend records one call to the hosted backend. status is 0 when
// the call failed before a response arrived.
func (m *Metrics) ObserveBackend(service, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendCallsTotal.WithLabelValues(service, method, strconv.Itoa(status)).Inc()
	m.BackendCallDuration.WithLabelValues(service, method).Observe(d.Seconds())
}

// ObserveQuery records one local database statement.
func (m *Metrics) ObserveQuery(op string, d time.Duration, slow bool) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(op).Observe(d.Seconds())
	if slow {
		m.SlowQueriesTotal.Inc()
	}
}

// ObserveOutbox records the outcome of one outbox attempt.
func (m *Metrics) ObserveOutbox(actionType, outcome string) {
	if m == nil {
		return
	}
	m.OutboxEntriesTotal.WithLabelValues(actionType, outcome).Inc()
}

// SetOutboxBacklog replaces the per-status outbox gauge with counts.
// Statuses missing from counts drop out of the exposition.
func (m *Metrics) SetOutboxBacklog(counts map[string]int) {
	if m == nil {
		return
	}
	m.OutboxBacklog.Reset()
	for status, n := range counts {
		m.OutboxBacklog.WithLabelValues(status).Set(float64(n))
	}
}
