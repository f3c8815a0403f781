// Package metrics provides the Prometheus collectors of each birddex component.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LogbookMetrics covers sighting writes, reference loads and push notifications.
type LogbookMetrics struct {
	SightingsSaved    prometheus.Counter
	SightingsRejected *prometheus.CounterVec
	SightingsDeleted  prometheus.Counter
	StoreErrors       *prometheus.CounterVec
	CatalogSpecies    prometheus.Gauge
	CatalogLoadTime   prometheus.Histogram
	AchievementsNew   *prometheus.CounterVec
	PushesSent        *prometheus.CounterVec
}

// NewLogbookMetrics creates and registers the logbook metrics.
func NewLogbookMetrics(registry prometheus.Registerer) (*LogbookMetrics, error) {
	m := &LogbookMetrics{
		SightingsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birddex_sightings_saved_total",
			Help: "Total number of sightings recorded.",
		}),
		SightingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birddex_sightings_rejected_total",
			Help: "Sightings rejected before writing, by reason.",
		}, []string{"reason"}),
		SightingsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birddex_sightings_deleted_total",
			Help: "Total number of sighting rows deleted.",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birddex_store_errors_total",
			Help: "Sighting store transport failures, by operation.",
		}, []string{"operation"}),
		CatalogSpecies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "birddex_catalog_species",
			Help: "Number of species in the loaded reference list.",
		}),
		CatalogLoadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "birddex_catalog_load_duration_seconds",
			Help:    "Time spent loading the reference list.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		AchievementsNew: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birddex_achievements_unlocked_total",
			Help: "Achievements newly unlocked after a save, by name.",
		}, []string{"achievement"}),
		PushesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birddex_push_notifications_total",
			Help: "Push notifications sent, by result.",
		}, []string{"result"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register logbook metrics: %w", err)
	}
	return m, nil
}

// ObserveCatalogLoad records a reference load
func (m *LogbookMetrics) ObserveCatalogLoad(species int, elapsed time.Duration) {
	m.CatalogSpecies.Set(float64(species))
	m.CatalogLoadTime.Observe(elapsed.Seconds())
}

// RecordRejected counts a rejected save; reason is a sighting error kind.
func (m *LogbookMetrics) RecordRejected(reason string) {
	m.SightingsRejected.WithLabelValues(reason).Inc()
}

// RecordStoreError counts a transport failure of operation (list, save, delete).
func (m *LogbookMetrics) RecordStoreError(operation string) {
	m.StoreErrors.WithLabelValues(operation).Inc()
}

// RecordUnlocked counts newly unlocked achievements
func (m *LogbookMetrics) RecordUnlocked(names []string) {
	for _, name := range names {
		m.AchievementsNew.WithLabelValues(name).Inc()
	}
}

// RecordPush counts a push notification attempt
func (m *LogbookMetrics) RecordPush(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.PushesSent.WithLabelValues(result).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *LogbookMetrics) Collect(ch chan<- prometheus.Metric) {
	m.SightingsSaved.Collect(ch)
	m.SightingsRejected.Collect(ch)
	m.SightingsDeleted.Collect(ch)
	m.StoreErrors.Collect(ch)
	m.CatalogSpecies.Collect(ch)
	m.CatalogLoadTime.Collect(ch)
	m.AchievementsNew.Collect(ch)
	m.PushesSent.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *LogbookMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.SightingsSaved.Describe(ch)
	m.SightingsRejected.Describe(ch)
	m.SightingsDeleted.Describe(ch)
	m.StoreErrors.Describe(ch)
	m.CatalogSpecies.Describe(ch)
	m.CatalogLoadTime.Describe(ch)
	m.AchievementsNew.Describe(ch)
	m.PushesSent.Describe(ch)
}
