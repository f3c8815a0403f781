package logbook

import (
	"context"
	"os"
	"time"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/identify"
	"github.com/turtleson01/bird-app/internal/progress"
	"github.com/turtleson01/bird-app/internal/sighting"
	"github.com/turtleson01/bird-app/internal/sprite"
)

// ErrIdentificationDisabled is wrapped in a configuration error when no
// identifier is configured
var ErrIdentificationDisabled = errors.NewStd("photo identification is not configured")

// Progress is the derived state of the whole logbook.
type Progress struct {
	Stats        progress.Stats
	Achievements []progress.Definition // unlocked, in display order
	Locked       []progress.Definition
	Experience   progress.Experience
}

// Progress recomputes stats, achievements and experience from the store.
func (s *Service) Progress(ctx context.Context) (Progress, error) {
	all, err := s.Sightings(ctx)
	if err != nil {
		return Progress{}, err
	}
	catalog := s.Catalog()
	names := progress.ComputeAchievements(all, catalog, s.defs)

	p := Progress{
		Stats:      progress.ComputeStats(all, catalog, s.rarity),
		Experience: progress.ComputeExperience(all, names, s.rarity, s.xp),
	}
	unlocked := make(map[string]struct{}, len(names))
	for _, name := range names {
		unlocked[name] = struct{}{}
		if def, ok := progress.Lookup(s.defs, name); ok {
			p.Achievements = append(p.Achievements, def)
		}
	}
	for _, def := range s.defs {
		if _, ok := unlocked[def.Name]; !ok {
			p.Locked = append(p.Locked, def)
		}
	}
	return p, nil
}

// DexEntry is one cell of the collection grid.
type DexEntry struct {
	Ordinal        int
	Name           string
	Family         string
	ScientificName string
	Rarity         progress.Tier
	Collected      bool
	Sighting       *sighting.Sighting
	SpritePath     string // empty when no sprite was generated
}

// Dex lists every catalog species in ordinal order with its collected state.
func (s *Service) Dex(ctx context.Context) ([]DexEntry, error) {
	all, err := s.Sightings(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]sighting.Sighting, len(all))
	for _, sg := range all {
		byName[sg.SpeciesName] = sg
	}

	species := s.Catalog().Species()
	entries := make([]DexEntry, 0, len(species))
	for _, sp := range species {
		e := DexEntry{
			Ordinal:        sp.Ordinal,
			Name:           sp.Name,
			Family:         sp.Family,
			ScientificName: sp.ScientificName,
			Rarity:         s.rarity.Tier(sp.Name),
		}
		if sg, ok := byName[sp.Name]; ok {
			e.Collected = true
			e.Sighting = &sg
		}
		if s.spriteDir != "" {
			path := sprite.Path(s.spriteDir, sp.Ordinal)
			if _, err := os.Stat(path); err == nil {
				e.SpritePath = path
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// MapPoint is a sighting with coordinates
type MapPoint struct {
	Species    string
	Ordinal    int
	Lat        float64
	Lon        float64
	Place      string
	RecordedAt time.Time
}

// MapPoints returns the sightings that have coordinates, in ordinal order.
func (s *Service) MapPoints(ctx context.Context) ([]MapPoint, error) {
	all, err := s.Sightings(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]MapPoint, 0, len(all))
	for _, sg := range all {
		if !sg.Location.HasCoordinates() {
			continue
		}
		points = append(points, MapPoint{
			Species:    sg.SpeciesName,
			Ordinal:    sg.Ordinal,
			Lat:        *sg.Location.Lat,
			Lon:        *sg.Location.Lon,
			Place:      sg.Location.Place,
			RecordedAt: sg.RecordedAt,
		})
	}
	return points, nil
}

// Identify identifies images in parallel. followup carries the user's
// objection when an earlier answer is re-examined.
func (s *Service) Identify(ctx context.Context, images []identify.Image, followup string) ([]identify.Result, error) {
	if s.identifier == nil {
		return nil, errors.New(ErrIdentificationDisabled).
			Component("logbook").
			Category(errors.CategoryConfiguration).
			Build()
	}
	opts := append([]identify.FanoutOption{identify.WithLogger(s.log)}, s.fanout...)
	if s.idMetrics != nil {
		s.idMetrics.ObserveBatch(len(images))
		opts = append(opts, identify.WithObserver(func(o identify.Outcome, d time.Duration) {
			s.idMetrics.ObserveResult(o.String(), d)
		}))
	}
	return identify.IdentifyAll(ctx, s.identifier, images, followup, opts...), nil
}
