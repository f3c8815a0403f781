package metrics

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogbookMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewLogbookMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SightingsSaved.Inc()
	m.RecordRejected("duplicate")
	m.RecordRejected("duplicate")
	m.RecordRejected("validation")
	m.RecordStoreError("save")
	m.RecordUnlocked([]string{"첫 만남", "초보 탐조가"})
	m.RecordPush(nil)
	m.RecordPush(errors.New("boom"))
	m.ObserveCatalogLoad(522, 30*time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.SightingsSaved), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SightingsRejected.WithLabelValues("duplicate")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SightingsRejected.WithLabelValues("validation")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StoreErrors.WithLabelValues("save")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AchievementsNew.WithLabelValues("첫 만남")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PushesSent.WithLabelValues("error")), 0)
	assert.InDelta(t, 522, testutil.ToFloat64(m.CatalogSpecies), 0)
}

func TestRegisterTwiceFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewIdentifyMetrics(registry)
	require.NoError(t, err)
	_, err = NewIdentifyMetrics(registry)
	require.Error(t, err)
}

func TestIdentifyMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewIdentifyMetrics(registry)
	require.NoError(t, err)

	m.ObserveResult("identified", 2*time.Second)
	m.ObserveResult("error", time.Second)
	m.ObserveBatch(2)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Results.WithLabelValues("identified")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Results.WithLabelValues("error")), 0)

	count, err := testutil.GatherAndCount(registry, "birddex_identification_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWikiMetricsHooks(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewWikiMetrics(registry)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "https://ko.wikipedia.org/w/api.php", http.NoBody)
	require.NoError(t, err)

	m.BeforeRequest(req)
	m.AfterResponse(req, &http.Response{StatusCode: http.StatusOK}, nil)
	m.BeforeRequest(req)
	m.AfterResponse(req, nil, errors.New("dial tcp: refused"))
	m.RecordSprite("created")

	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Sprites.WithLabelValues("created")), 0)
	assert.Empty(t, m.started)
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	m.ObservePublish(120, 5*time.Millisecond, nil)
	m.ObservePublish(0, 0, errors.New("not connected"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesDelivered), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)
}
