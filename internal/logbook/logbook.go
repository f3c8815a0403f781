// Package logbook is the interaction layer of birddex. It ties the reference
// catalog, the sighting store, progress calculation, identification and
// notifications together for the CLI and the HTTP API.
package logbook

import (
	"context"
	"slices"
	"time"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/identify"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/notification"
	"github.com/turtleson01/bird-app/internal/observability/metrics"
	"github.com/turtleson01/bird-app/internal/progress"
	"github.com/turtleson01/bird-app/internal/reference"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// SummaryFetcher returns a short text about a species
type SummaryFetcher interface {
	Summary(ctx context.Context, title string) (string, error)
}

// Service runs logbook interactions. It holds no per-user state; callers
// that track seen achievements pass them in.
type Service struct {
	store      *sighting.Store
	rarity     progress.RarityTable
	defs       []progress.Definition
	xp         progress.XPConfig
	identifier identify.Identifier
	fanout     []identify.FanoutOption
	notifier   *notification.Service
	summaries  SummaryFetcher
	spriteDir  string
	metrics    *metrics.LogbookMetrics
	idMetrics  *metrics.IdentifyMetrics
	now        func() time.Time
	log        logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithRarity sets the rarity table; achievements default to DefaultDefinitions of it.
func WithRarity(r progress.RarityTable) Option {
	return func(s *Service) { s.rarity = r }
}

// WithDefinitions replaces the achievement definitions
func WithDefinitions(defs []progress.Definition) Option {
	return func(s *Service) { s.defs = defs }
}

// WithXP sets the experience configuration
func WithXP(cfg progress.XPConfig) Option {
	return func(s *Service) { s.xp = cfg }
}

// WithIdentifier enables photo identification
func WithIdentifier(id identify.Identifier, opts ...identify.FanoutOption) Option {
	return func(s *Service) {
		s.identifier = id
		s.fanout = opts
	}
}

// WithNotifier announces saves and deletes
func WithNotifier(n *notification.Service) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSummaries enables species summaries
func WithSummaries(f SummaryFetcher) Option {
	return func(s *Service) { s.summaries = f }
}

// WithSpriteDir sets where generated sprites are looked up
func WithSpriteDir(dir string) Option {
	return func(s *Service) { s.spriteDir = dir }
}

// WithMetrics records logbook and identification metrics
func WithMetrics(lb *metrics.LogbookMetrics, id *metrics.IdentifyMetrics) Option {
	return func(s *Service) {
		s.metrics = lb
		s.idMetrics = id
	}
}

// WithClock overrides the time source of events
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over store
func New(store *sighting.Store, log logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	s := &Service{
		store: store,
		xp:    progress.DefaultXPConfig(),
		now:   time.Now,
		log:   log.Module("logbook"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defs == nil {
		s.defs = progress.DefaultDefinitions(s.rarity)
	}
	return s
}

// Catalog returns the species reference
func (s *Service) Catalog() *reference.Catalog {
	return s.store.Catalog()
}

// Definitions returns the achievement definitions in use
func (s *Service) Definitions() []progress.Definition {
	return s.defs
}

// Rarity returns the rarity table
func (s *Service) Rarity() progress.RarityTable {
	return s.rarity
}

// Sightings lists every sighting in ordinal order
func (s *Service) Sightings(ctx context.Context) ([]sighting.Sighting, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		s.recordStoreError("list")
		return nil, err
	}
	return list, nil
}

// SaveRequest is a sighting to record. Known lists the achievements the
// caller has already shown; nil means "compare with the state before the save".
type SaveRequest struct {
	sighting.SaveRequest
	Known []string
}

// SaveResult is a recorded sighting with the derived state after the save.
type SaveResult struct {
	Sighting     sighting.Sighting
	Achievements []string
	Unlocked     []string // achievements not in Known
	Experience   progress.Experience
}

// Save records a sighting and reports the achievements it unlocked.
// Notification failures are logged and never fail the save.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	saved, err := s.store.Save(ctx, req.SaveRequest)
	if err != nil {
		s.recordSaveError(err)
		return SaveResult{}, err
	}
	if s.metrics != nil {
		s.metrics.SightingsSaved.Inc()
	}

	all, err := s.store.List(ctx)
	if err != nil {
		// the row is written; report it without derived state
		s.recordStoreError("list")
		s.log.Warn("sighting saved but progress could not be read", logger.String("species", saved.SpeciesName), logger.Error(err))
		return SaveResult{Sighting: saved}, nil
	}

	catalog := s.Catalog()
	achievements := progress.ComputeAchievements(all, catalog, s.defs)
	known := req.Known
	if known == nil {
		before := slices.DeleteFunc(slices.Clone(all), func(sg sighting.Sighting) bool {
			return sg.SpeciesName == saved.SpeciesName
		})
		known = progress.ComputeAchievements(before, catalog, s.defs)
	}
	res := SaveResult{
		Sighting:     saved,
		Achievements: achievements,
		Unlocked:     progress.NewlyUnlocked(known, achievements),
		Experience:   progress.ComputeExperience(all, achievements, s.rarity, s.xp),
	}
	if s.metrics != nil {
		s.metrics.RecordUnlocked(res.Unlocked)
	}

	s.log.Info("sighting recorded",
		logger.String("species", saved.SpeciesName),
		logger.Bool("catalogued", saved.Catalogued),
		logger.Strings("unlocked", res.Unlocked),
		logger.Int("level", res.Experience.Level))

	family, _ := catalog.Family(saved.SpeciesName)
	s.announce(ctx, notification.SightingSaved(saved, family, res.Unlocked, res.Experience.Level))
	return res, nil
}

// Delete removes every sighting of names and returns the number of rows removed.
func (s *Service) Delete(ctx context.Context, names []string) (int, error) {
	n, err := s.store.Delete(ctx, names)
	if err != nil {
		s.recordStoreError("delete")
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if s.metrics != nil {
		s.metrics.SightingsDeleted.Add(float64(n))
	}
	s.log.Info("sightings deleted", logger.Strings("names", names), logger.Int("rows", n))
	s.announce(ctx, notification.SightingsDeleted(names, s.now()))
	return n, nil
}

func (s *Service) announce(ctx context.Context, ev notification.Event) {
	if !s.notifier.Enabled() {
		return
	}
	if err := s.notifier.Announce(ctx, ev); err != nil {
		s.log.Warn("notification failed", logger.String("event", string(ev.Type)), logger.Error(err))
	}
}

func (s *Service) recordSaveError(err error) {
	kind := sighting.KindOf(err)
	if kind == sighting.KindTransport {
		s.recordStoreError("save")
		s.log.Error("failed to save sighting", logger.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordRejected(kind.String())
	}
	s.log.Debug("sighting rejected", logger.String("reason", kind.String()), logger.Error(err))
}

func (s *Service) recordStoreError(op string) {
	if s.metrics != nil {
		s.metrics.RecordStoreError(op)
	}
}

// Summary returns the encyclopedia summary of a species. Unknown species
// are a not-found error; a missing page is reported by the fetcher.
func (s *Service) Summary(ctx context.Context, name string) (reference.Species, string, error) {
	sp, ok := s.Catalog().Lookup(name)
	if !ok {
		return reference.Species{}, "", errors.Newf("species %q is not in the reference list", name).
			Component("logbook").
			Category(errors.CategoryNotFound).
			Build()
	}
	if s.summaries == nil {
		return sp, "", nil
	}
	text, err := s.summaries.Summary(ctx, sp.Name)
	if err != nil {
		return sp, "", err
	}
	return sp, text, nil
}
