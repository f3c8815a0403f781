// Package observability bundles the Prometheus collectors of birddex behind
// one registry and serves them at /metrics.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtleson01/bird-app/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Logbook  *metrics.LogbookMetrics
	Identify *metrics.IdentifyMetrics
	Wiki     *metrics.WikiMetrics
	MQTT     *metrics.MQTTMetrics
}

// NewMetrics creates a Metrics with its own registry, including the Go
// runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logbook, err := metrics.NewLogbookMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create logbook metrics: %w", err)
	}
	identify, err := metrics.NewIdentifyMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create identification metrics: %w", err)
	}
	wiki, err := metrics.NewWikiMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create wiki metrics: %w", err)
	}
	mqtt, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Logbook:  logbook,
		Identify: identify,
		Wiki:     wiki,
		MQTT:     mqtt,
	}, nil
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
