// Package metrics exposes Prometheus instrumentation for the graph engine and
// its HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taggraph"

// Metrics holds every collector. Each instance owns its registry so tests can
// create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	EventsDropped     *prometheus.CounterVec
	RecountRuns       *prometheus.CounterVec
	RecountCorrected  prometheus.Counter
	SSEClients        prometheus.GaugeFunc
}

// New creates the collectors. sseClients may be nil.
func New(sseClients func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome kind",
		}, []string{"operation", "kind"}),

		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status",
		}, []string{"route", "method", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_events_dropped_total",
			Help:      "Events dropped because a queue was full",
		}, []string{"event_type"}),

		RecountRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recount_runs_total",
			Help:      "Usage-count reconciliation runs by result",
		}, []string{"result"}),

		RecountCorrected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recount_corrected_tags_total",
			Help:      "Tags whose stored usage count was corrected",
		}),
	}

	if sseClients != nil {
		m.SSEClients = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected event stream clients",
		}, func() float64 { return float64(sseClients()) })
	}

	return m
}

// ObserveOperation records one engine call. kind is empty on success.
func (m *Metrics) ObserveOperation(op, kind string, elapsed time.Duration) {
	if kind == "" {
		kind = "OK"
	}
	m.Operations.WithLabelValues(op, kind).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// EventDropped implements the SSE manager's drop hook.
func (m *Metrics) EventDropped(eventType string) {
	m.EventsDropped.WithLabelValues(eventType).Inc()
}

// ObserveRecount records a reconciliation run.
func (m *Metrics) ObserveRecount(corrected int, err error) {
	if err != nil {
		m.RecountRuns.WithLabelValues("error").Inc()
		return
	}
	m.RecountRuns.WithLabelValues("ok").Inc()
	m.RecountCorrected.Add(float64(corrected))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
