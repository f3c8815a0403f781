package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IdentifyMetrics tracks vision model calls.
type IdentifyMetrics struct {
	Results  *prometheus.CounterVec
	Duration prometheus.Histogram
	Batches  prometheus.Histogram
}

// NewIdentifyMetrics creates and registers the identification metrics.
func NewIdentifyMetrics(registry prometheus.Registerer) (*IdentifyMetrics, error) {
	m := &IdentifyMetrics{
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birddex_identifications_total",
			Help: "Identification results, by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "birddex_identification_duration_seconds",
			Help:    "Duration of a single image identification in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		Batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "birddex_identification_batch_images",
			Help:    "Number of images submitted together.",
			Buckets: []float64{1, 2, 4, 8, 16, 32},
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register identification metrics: %w", err)
	}
	return m, nil
}

// ObserveResult records one image result. It matches the identify.Observer
// signature once the outcome is converted to its string form.
func (m *IdentifyMetrics) ObserveResult(outcome string, elapsed time.Duration) {
	m.Results.WithLabelValues(outcome).Inc()
	m.Duration.Observe(elapsed.Seconds())
}

// ObserveBatch records the size of a multi-image request
func (m *IdentifyMetrics) ObserveBatch(images int) {
	m.Batches.Observe(float64(images))
}

// Collect implements the prometheus.Collector interface.
func (m *IdentifyMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Results.Collect(ch)
	m.Duration.Collect(ch)
	m.Batches.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *IdentifyMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Results.Describe(ch)
	m.Duration.Describe(ch)
	m.Batches.Describe(ch)
}
