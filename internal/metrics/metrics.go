// Package metrics holds the Prometheus collectors for retrieval and decisions.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "waypoint"

// Metrics is a private registry plus the collectors the core writes to.
type Metrics struct {
	Registry *prometheus.Registry

	decisions     *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	decisionTime  *prometheus.HistogramVec
	searches      *prometheus.CounterVec
	searchTime    prometheus.Histogram
	reranks       *prometheus.CounterVec
	usageDropped  prometheus.Counter
	eventsDropped prometheus.Counter
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decision calls by decision name and result source.",
		}, []string{"decision", "source"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_fallbacks_total",
			Help:      "Fallback executions by decision name and reason.",
		}, []string{"decision", "reason"}),
		decisionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Wall time of decision calls including fallback.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"decision"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Memory searches by whether the vector step ran.",
		}, []string{"vector"}),
		searchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Wall time of memory searches.",
			Buckets:   prometheus.DefBuckets,
		}),
		reranks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reranks_total",
			Help:      "Rerank attempts by outcome (ok, failed, skipped).",
		}, []string{"outcome"}),
		usageDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_increments_failed_total",
			Help:      "Usage count increments that failed and were dropped.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Domain events that could not be published.",
		}),
	}
	reg.MustRegister(
		m.decisions, m.fallbacks, m.decisionTime,
		m.searches, m.searchTime, m.reranks,
		m.usageDropped, m.eventsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Decision records one completed decision call.
func (m *Metrics) Decision(name, source, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(name, source).Inc()
	if reason != "" {
		m.fallbacks.WithLabelValues(name, reason).Inc()
	}
	m.decisionTime.WithLabelValues(name).Observe(elapsed.Seconds())
}

// Search records one retrieval call.
func (m *Metrics) Search(usedVector bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "false"
	if usedVector {
		label = "true"
	}
	m.searches.WithLabelValues(label).Inc()
	m.searchTime.Observe(elapsed.Seconds())
}

// Rerank records a rerank outcome: ok, failed or skipped.
func (m *Metrics) Rerank(outcome string) {
	if m == nil {
		return
	}
	m.reranks.WithLabelValues(outcome).Inc()
}

// UsageDropped counts a failed best-effort usage increment.
func (m *Metrics) UsageDropped() {
	if m == nil {
		return
	}
	m.usageDropped.Inc()
}

// EventDropped counts a domain event that failed to publish.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
