// Package metrics defines the Prometheus metric collectors used across the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a timecloud process.
type Metrics struct {
	TokensIngestedTotal   prometheus.Counter
	EvictionsTotal        prometheus.Counter
	SnapshotsEmittedTotal prometheus.Counter
	WindowSize            prometheus.Gauge
	DistinctWords         prometheus.Gauge
	TokensFilteredTotal   *prometheus.CounterVec
	DocumentsLoadedTotal  prometheus.Counter
	RenderDuration        *prometheus.HistogramVec
	RenderErrorsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates all collectors and registers them on a fresh registry, so
// several instances can coexist in one process (tests, embedded use).
func New() *Metrics {
	m := &Metrics{
		TokensIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "timecloud_tokens_ingested_total",
				Help: "Total number of tokens ingested into the sliding window.",
			},
		),
		EvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "timecloud_window_evictions_total",
				Help: "Total number of tokens evicted from the front of the window.",
			},
		),
		SnapshotsEmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "timecloud_snapshots_emitted_total",
				Help: "Total number of snapshots emitted by processing runs.",
			},
		),
		WindowSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "timecloud_window_size",
				Help: "Current number of tokens in the sliding window.",
			},
		),
		DistinctWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "timecloud_window_distinct_words",
				Help: "Number of distinct tokens in the sliding window.",
			},
		),
		TokensFilteredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timecloud_tokens_filtered_total",
				Help: "Word candidates discarded by the tokenizer, by reason.",
			},
			[]string{"reason"},
		),
		DocumentsLoadedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "timecloud_documents_loaded_total",
				Help: "Total article documents loaded from the corpus.",
			},
		),
		RenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timecloud_render_duration_seconds",
				Help:    "Time spent rendering a single snapshot.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"renderer"},
		),
		RenderErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timecloud_render_errors_total",
				Help: "Total render failures by renderer.",
			},
			[]string{"renderer"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.TokensIngestedTotal,
		m.EvictionsTotal,
		m.SnapshotsEmittedTotal,
		m.WindowSize,
		m.DistinctWords,
		m.TokensFilteredTotal,
		m.DocumentsLoadedTotal,
		m.RenderDuration,
		m.RenderErrorsTotal,
	)

	return m
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
