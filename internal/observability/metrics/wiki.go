package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WikiMetrics contains the metrics of Wikipedia lookups and sprite generation.
type WikiMetrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	Sprites         *prometheus.CounterVec

	mu      sync.Mutex
	started map[*http.Request]time.Time
}

// NewWikiMetrics creates and registers the Wikipedia metrics.
func NewWikiMetrics(registry prometheus.Registerer) (*WikiMetrics, error) {
	m := &WikiMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birddex_wiki_requests_total",
			Help: "Outbound Wikipedia requests, by HTTP status or error.",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "birddex_wiki_request_duration_seconds",
			Help:    "Duration of outbound Wikipedia requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Sprites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birddex_sprites_total",
			Help: "Sprite generation results per species.",
		}, []string{"result"}),
		started: make(map[*http.Request]time.Time),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register wiki metrics: %w", err)
	}
	return m, nil
}

// BeforeRequest is an httpclient before-request hook
func (m *WikiMetrics) BeforeRequest(req *http.Request) {
	m.mu.Lock()
	m.started[req] = time.Now()
	m.mu.Unlock()
}

// AfterResponse is an httpclient after-response hook
func (m *WikiMetrics) AfterResponse(req *http.Request, resp *http.Response, err error) {
	m.mu.Lock()
	start, ok := m.started[req]
	delete(m.started, req)
	m.mu.Unlock()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	m.Requests.WithLabelValues(status).Inc()
	if ok {
		m.RequestDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordSprite counts one species result: created, existed, missing or failed.
func (m *WikiMetrics) RecordSprite(result string) {
	m.Sprites.WithLabelValues(result).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *WikiMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Requests.Collect(ch)
	m.RequestDuration.Collect(ch)
	m.Sprites.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *WikiMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Requests.Describe(ch)
	m.RequestDuration.Describe(ch)
	m.Sprites.Describe(ch)
}
