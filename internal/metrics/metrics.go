// Package metrics exposes Prometheus instruments for collector and briefer runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "researchbriefing"

// Drop reasons.
const (
	ReasonMissingKey  = "missing_key"
	ReasonAlreadySeen = "already_notified"
)

// Briefing results.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Metrics groups the instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	itemsBuffered  *prometheus.CounterVec
	itemsDropped   *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	briefings      *prometheus.CounterVec
	bufferItems    prometheus.Gauge
	runDuration    *prometheus.HistogramVec
}

// New registers every instrument on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		itemsBuffered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_buffered_total",
			Help:      "Items appended to the daily buffer, by category.",
		}, []string{"category"}),
		itemsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_dropped_total",
			Help:      "Fetched items that were not buffered, by reason.",
		}, []string{"reason"}),
		sourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Failed source fetches, by source.",
		}, []string{"source"}),
		briefings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefings_total",
			Help:      "Briefing deliveries, by result.",
		}, []string{"result"}),
		bufferItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_items",
			Help:      "Items currently held in the daily buffer.",
		}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of collector and briefer runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
	}
}

// Registry returns the registry the instruments live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ItemsBuffered(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsBuffered.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) ItemsDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsDropped.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) Briefing(result string) {
	if m == nil {
		return
	}
	m.briefings.WithLabelValues(result).Inc()
}

func (m *Metrics) BufferSize(n int) {
	if m == nil {
		return
	}
	m.bufferItems.Set(float64(n))
}

// ObserveRun records how long a run of mode took.
func (m *Metrics) ObserveRun(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(mode).Observe(seconds)
}
