package pipeline

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the executor's prometheus collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	skippedTotal prometheus.Counter
	activeRuns   prometheus.Gauge
	pixelsTotal  prometheus.Counter
}

// NewMetrics creates the collectors and registers them together with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_pipeline_runs_total",
			Help: "Total pipeline runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "image_pipeline_run_duration_seconds",
			Help:    "Duration of each pipeline run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_pipeline_steps_total",
			Help: "Total transformation steps by key and status.",
		}, []string{"key", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "image_pipeline_step_duration_seconds",
			Help:    "Duration of each transformation step.",
			Buckets: prometheus.DefBuckets,
		}, []string{"key"}),
		skippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_pipeline_unknown_keys_total",
			Help: "Configuration keys that matched no registered transformation.",
		}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "image_pipeline_active_runs",
			Help: "Current number of pipeline runs in progress.",
		}),
		pixelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_pipeline_pixels_processed_total",
			Help: "Total input pixels across successful runs.",
		}),
	}

	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.stepsTotal,
		m.stepDuration,
		m.skippedTotal,
		m.activeRuns,
		m.pixelsTotal,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The observe helpers accept a nil receiver so the executor can run without
// metrics.

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

func (m *Metrics) runFinished(status string, elapsed time.Duration, pixels int) {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if status == statusOK {
		m.pixelsTotal.Add(float64(pixels))
	}
}

func (m *Metrics) stepFinished(key, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(key, status).Inc()
	m.stepDuration.WithLabelValues(key).Observe(elapsed.Seconds())
}

func (m *Metrics) keySkipped() {
	if m == nil {
		return
	}
	m.skippedTotal.Inc()
}
