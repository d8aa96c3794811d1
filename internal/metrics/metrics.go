// Package metrics exports simulation counters in the Prometheus text format.
// A batch job has no scrape endpoint, so the registry is written to a
// textfile for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

// Metrics holds the run counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	PathsSimulated *prometheus.CounterVec
	PathsUnstable  *prometheus.CounterVec
	Batches        *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
}

// New creates and registers the metric set under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lmmarrears"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PathsSimulated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "paths_simulated_total",
			Help:      "Paths simulated, accepted or discarded.",
		}, []string{"measure"}),
		PathsUnstable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "paths_unstable_total",
			Help:      "Paths discarded after a numerical instability.",
		}, []string{"measure"}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "batches_total",
			Help:      "Completed path batches.",
		}, []string{"measure"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one simulation run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"measure"}),
	}
	m.registry.MustRegister(m.PathsSimulated, m.PathsUnstable, m.Batches, m.RunDuration)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// BatchCompleted records one finished batch.
func (m *Metrics) BatchCompleted(measure models.Measure, accepted, unstable int) {
	label := string(measure)
	m.PathsSimulated.WithLabelValues(label).Add(float64(accepted + unstable))
	m.PathsUnstable.WithLabelValues(label).Add(float64(unstable))
	m.Batches.WithLabelValues(label).Inc()
}

// RunCompleted records the duration of a run.
func (m *Metrics) RunCompleted(measure models.Measure, duration time.Duration) {
	m.RunDuration.WithLabelValues(string(measure)).Observe(duration.Seconds())
}

// WriteTextfile writes the registry to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
