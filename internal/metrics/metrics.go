// Package metrics holds the prometheus collectors for pipeline and HTTP outcomes.
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

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	verdicts        *prometheus.CounterVec
	throttles       *prometheus.CounterVec
	persistFailures prometheus.Counter
	stageDuration   *prometheus.HistogramVec
	originality     prometheus.Histogram
	httpRequests    *prometheus.CounterVec
}

// New registers collectors on a private registry so tests can build many instances.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "musigent_requests_total",
			Help: "Pipeline requests by entry point and outcome.",
		}, []string{"kind", "outcome"}),
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "musigent_verdicts_total",
			Help: "Quality gate verdicts by mode and approval.",
		}, []string{"mode", "approved"}),
		throttles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "musigent_throttled_total",
			Help: "Jingle requests refused by the usage policy.",
		}, []string{"limit"}),
		persistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "musigent_ledger_failures_total",
			Help: "Failed ledger appends.",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "musigent_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		originality: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "musigent_originality_score",
			Help:    "Computed originality scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "musigent_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) RecordRequest(kind, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordVerdict(mode string, approved bool, originality *float64) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(mode, strconv.FormatBool(approved)).Inc()
	if originality != nil {
		m.originality.Observe(*originality)
	}
}

func (m *Metrics) RecordThrottle(limit string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(limit).Inc()
}

func (m *Metrics) RecordPersistenceFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
