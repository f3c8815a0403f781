package logbook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/identify"
	"github.com/turtleson01/bird-app/internal/notification"
	"github.com/turtleson01/bird-app/internal/observability/metrics"
	"github.com/turtleson01/bird-app/internal/progress"
	"github.com/turtleson01/bird-app/internal/reference"
	"github.com/turtleson01/bird-app/internal/sighting"
	"github.com/turtleson01/bird-app/internal/sprite"
)

var fixedNow = time.Date(2025, 5, 3, 9, 30, 15, 0, time.UTC)

func testCatalog() *reference.Catalog {
	return reference.NewCatalog([]reference.Row{
		{Name: "참새", Family: "참새과", ScientificName: "Passer montanus"},
		{Name: "까치", Family: "까마귀과", ScientificName: "Pica serica"},
		{Name: "직박구리", Family: "직박구리과"},
	})
}

type capturePublisher struct {
	mu       sync.Mutex
	payloads []string
}

func (c *capturePublisher) Publish(_ context.Context, _, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

type fixture struct {
	svc       *Service
	table     *sighting.MemoryTable
	published *capturePublisher
	metrics   *metrics.LogbookMetrics
	idMetrics *metrics.IdentifyMetrics
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	table := sighting.NewMemoryTable()
	store := sighting.NewStore(table, testCatalog(), sighting.Policy{
		AllowUncatalogued: true,
		ReservedNames:     identify.SentinelNames(),
	}, nil, sighting.WithClock(func() time.Time { return fixedNow }))

	registry := prometheus.NewRegistry()
	lm, err := metrics.NewLogbookMetrics(registry)
	require.NoError(t, err)
	im, err := metrics.NewIdentifyMetrics(registry)
	require.NoError(t, err)

	pub := &capturePublisher{}
	base := []Option{
		WithRarity(progress.NewRarityTable(map[string][]string{"rare": {"까치"}})),
		WithNotifier(notification.NewService(nil, pub, nil)),
		WithMetrics(lm, im),
		WithClock(func() time.Time { return fixedNow }),
	}
	return &fixture{
		svc:       New(store, nil, append(base, opts...)...),
		table:     table,
		published: pub,
		metrics:   lm,
		idMetrics: im,
	}
}

func TestSaveReportsUnlockedAchievements(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	res, err := f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "참새"}})
	require.NoError(t, err)
	assert.Equal(t, "참새", res.Sighting.SpeciesName)
	assert.Equal(t, []string{progress.FirstSightingName}, res.Unlocked)
	assert.Equal(t, 60, res.Experience.TotalXP)
	assert.Equal(t, 1, res.Experience.Level)

	res, err = f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "까치"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"희귀종 발견"}, res.Unlocked)
	assert.Equal(t, []string{progress.FirstSightingName, "희귀종 발견"}, res.Achievements)
	assert.Equal(t, 140, res.Experience.TotalXP)
	assert.Equal(t, 2, res.Experience.Level)

	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.SightingsSaved), 0)
	require.Len(t, f.published.payloads, 2)
	assert.Contains(t, f.published.payloads[1], `"species":"까치"`)
	assert.Contains(t, f.published.payloads[1], `"unlocked":["희귀종 발견"]`)
}

func TestSaveWithCallerKnownSet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	_, err := f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "참새"}})
	require.NoError(t, err)

	// a caller that never showed anything sees every current achievement as new
	res, err := f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "직박구리"}, Known: []string{}})
	require.NoError(t, err)
	assert.Equal(t, []string{progress.FirstSightingName}, res.Unlocked)
}

func TestSaveRejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	_, err := f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "참새"}})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "참 새"}})
	assert.Equal(t, sighting.KindDuplicate, sighting.KindOf(err))

	_, err = f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: identify.UnidentifiableName}})
	assert.Equal(t, sighting.KindValidation, sighting.KindOf(err))

	_, err = f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "  "}})
	assert.Equal(t, sighting.KindValidation, sighting.KindOf(err))

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.SightingsRejected.WithLabelValues("duplicate")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.SightingsRejected.WithLabelValues("validation")), 0)
	assert.Len(t, f.published.payloads, 1, "rejected saves are not announced")
}

func TestDeleteAnnounces(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	for _, name := range []string{"참새", "까치"} {
		_, err := f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: name}})
		require.NoError(t, err)
	}

	n, err := f.svc.Delete(ctx, []string{"까치", "없는새"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, f.published.payloads, 3)
	assert.Contains(t, f.published.payloads[2], `"type":"sighting.deleted"`)

	n, err = f.svc.Delete(ctx, []string{"없는새"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.published.payloads, 3, "no-op deletes are not announced")

	list, err := f.svc.Sightings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "참새", list[0].SpeciesName)
}

func TestProgressRecomputesAfterDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	_, err := f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "까치"}})
	require.NoError(t, err)

	p, err := f.svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats.Catalogued)
	assert.InDelta(t, 100.0/3, p.Stats.ProgressPercent, 1e-9)
	require.Len(t, p.Achievements, 2)
	assert.Equal(t, "희귀종 발견", p.Achievements[1].Name)
	assert.Len(t, p.Locked, len(f.svc.Definitions())-2)

	_, err = f.svc.Delete(ctx, []string{"까치"})
	require.NoError(t, err)

	p, err = f.svc.Progress(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.Achievements)
	assert.Equal(t, 0, p.Experience.TotalXP)
	assert.Equal(t, 1, p.Experience.Level)
}

func TestDexAndMap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(sprite.Path(dir, 2), []byte("png"), 0o600))

	f := newFixture(t, WithSpriteDir(dir))
	ctx := t.Context()
	_, err := f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{
		Name:     "까치",
		Location: sighting.Coordinates(37.5, 127.0, "올림픽공원"),
	}})
	require.NoError(t, err)
	_, err = f.svc.Save(ctx, SaveRequest{SaveRequest: sighting.SaveRequest{Name: "참새"}})
	require.NoError(t, err)

	dex, err := f.svc.Dex(ctx)
	require.NoError(t, err)
	require.Len(t, dex, 3)
	assert.True(t, dex[0].Collected)
	assert.True(t, dex[1].Collected)
	assert.False(t, dex[2].Collected)
	assert.Nil(t, dex[2].Sighting)
	assert.Equal(t, progress.TierRare, dex[1].Rarity)
	assert.Equal(t, filepath.Join(dir, "2.png"), dex[1].SpritePath)
	assert.Empty(t, dex[0].SpritePath)

	points, err := f.svc.MapPoints(ctx)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "까치", points[0].Species)
	assert.InDelta(t, 37.5, points[0].Lat, 1e-9)
	assert.Equal(t, "올림픽공원", points[0].Place)
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	fake := identify.IdentifierFunc(func(_ context.Context, img identify.Image, p identify.Prompt) (string, error) {
		if img.Name == "b.jpg" {
			return "", errors.NewStd("quota exceeded")
		}
		if strings.Contains(p.Text, "까치가 아니라") {
			return "물까치 | 꼬리가 푸릅니다", nil
		}
		return "까치 | 흑백 깃털", nil
	})

	f := newFixture(t, WithIdentifier(fake, identify.WithConcurrency(2)))
	images := []identify.Image{{Name: "a.jpg", Data: []byte{1}}, {Name: "b.jpg", Data: []byte{2}}}

	results, err := f.svc.Identify(t.Context(), images, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "까치", results[0].Name)
	assert.Equal(t, identify.OutcomeError, results[1].Outcome)

	results, err = f.svc.Identify(t.Context(), images[:1], "까치가 아니라 물까치 같아요")
	require.NoError(t, err)
	assert.Equal(t, "물까치", results[0].Name)

	assert.InDelta(t, 2, testutil.ToFloat64(f.idMetrics.Results.WithLabelValues("identified")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.idMetrics.Results.WithLabelValues("error")), 0)
}

func TestIdentifyDisabled(t *testing.T) {
	t.Parallel()

	_, err := newFixture(t).svc.Identify(t.Context(), nil, "")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.ErrorIs(t, err, ErrIdentificationDisabled)
}

func TestIdentificationDisabledMatchesOnlyItself(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"missing gemini key", errors.Newf("gemini api key is required").
			Component("identify").
			Category(errors.CategoryConfiguration).
			Build()},
		{"bad store backend", errors.Newf("unknown store backend %q", "csv").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()},
		{"plain error", errors.NewStd("photo identification is not configured")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.NotErrorIs(t, tt.err, ErrIdentificationDisabled)
		})
	}
}

type summaryFunc func(ctx context.Context, title string) (string, error)

func (f summaryFunc) Summary(ctx context.Context, title string) (string, error) { return f(ctx, title) }

func TestSummary(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithSummaries(summaryFunc(func(_ context.Context, title string) (string, error) {
		return title + "는 흔한 텃새이다.", nil
	})))

	sp, text, err := f.svc.Summary(t.Context(), "참 새")
	require.NoError(t, err)
	assert.Equal(t, 1, sp.Ordinal)
	assert.Equal(t, "참새는 흔한 텃새이다.", text)

	_, _, err = f.svc.Summary(t.Context(), "없는새")
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}
