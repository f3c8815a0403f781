package sighting

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/reference"
)

// Sentinel errors, matched with errors.Is or classified with KindOf.
var (
	ErrEmptyName     = errors.NewStd("species name is empty")
	ErrUnregistrable = errors.NewStd("name is an identification placeholder and cannot be registered")
	ErrUncatalogued  = errors.NewStd("species is not in the reference list")
	ErrDuplicate     = errors.NewStd("species is already recorded")
)

// Kind classifies a Store error for callers that need to branch on it.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindUncatalogued
	KindDuplicate
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindUncatalogued:
		return "uncatalogued"
	case KindDuplicate:
		return "duplicate"
	default:
		return "transport"
	}
}

// KindOf returns the kind of err. Any error that is not a validation,
// uncatalogued or duplicate error is a transport error.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyName), errors.Is(err, ErrUnregistrable):
		return KindValidation
	case errors.Is(err, ErrUncatalogued):
		return KindUncatalogued
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	default:
		return KindTransport
	}
}

// Policy controls which names Save accepts.
type Policy struct {
	// AllowUncatalogued stores names missing from the reference instead of rejecting them.
	AllowUncatalogued bool
	// ReservedNames are never stored, e.g. identification placeholders.
	ReservedNames []string
}

// SaveRequest is a sighting to record
type SaveRequest struct {
	Name     string
	Sex      Sex
	Location Location
}

// Store reads and writes sightings through a Table.
type Store struct {
	table    Table
	catalog  *reference.Catalog
	policy   Policy
	reserved map[string]struct{}
	now      func() time.Time
	log      logger.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for RecordedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store. A nil or empty catalog makes every species uncatalogued.
func NewStore(table Table, catalog *reference.Catalog, policy Policy, log logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	s := &Store{
		table:    table,
		catalog:  catalog,
		policy:   policy,
		reserved: make(map[string]struct{}, len(policy.ReservedNames)),
		now:      time.Now,
		log:      log.Module("sighting"),
	}
	for _, name := range policy.ReservedNames {
		s.reserved[reference.NormalizeName(name)] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the reference the store resolves ordinals against
func (s *Store) Catalog() *reference.Catalog {
	return s.catalog
}

// List returns every sighting, one per species, sorted by reference ordinal.
// Uncatalogued species come last in table order. An empty table or one
// missing the name column yields an empty list.
func (s *Store) List(ctx context.Context) ([]Sighting, error) {
	sh, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return s.sightings(sh), nil
}

func (s *Store) sightings(sh *sheet) []Sighting {
	loc := s.now().Location()
	seen := make(map[string]struct{}, len(sh.rows))
	out := make([]Sighting, 0, len(sh.rows))

	for _, row := range sh.rows {
		sg := sh.decode(row, loc)
		if sg.SpeciesName == "" {
			continue
		}
		if _, dup := seen[sg.SpeciesName]; dup {
			continue
		}
		seen[sg.SpeciesName] = struct{}{}
		sg.Ordinal, sg.Catalogued = s.resolve(sg.SpeciesName)
		out = append(out, sg)
	}

	slices.SortStableFunc(out, func(a, b Sighting) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})
	return out
}

func (s *Store) resolve(name string) (int, bool) {
	if ordinal, ok := s.catalog.Ordinal(name); ok {
		return ordinal, true
	}
	return UncataloguedOrdinal, false
}

// Save validates and appends a sighting, returning the stored record.
func (s *Store) Save(ctx context.Context, req SaveRequest) (Sighting, error) {
	name := reference.NormalizeName(req.Name)
	if name == "" {
		return Sighting{}, s.rejection(ErrEmptyName, errors.CategoryValidation, req.Name)
	}
	if _, reserved := s.reserved[name]; reserved {
		return Sighting{}, s.rejection(ErrUnregistrable, errors.CategoryValidation, name)
	}

	ordinal, catalogued := s.resolve(name)
	if !catalogued && !s.policy.AllowUncatalogued {
		return Sighting{}, s.rejection(ErrUncatalogued, errors.CategoryNotFound, name)
	}

	sh, err := s.read(ctx)
	if err != nil {
		return Sighting{}, err
	}
	for _, row := range sh.rows {
		if sh.name(row) == name {
			return Sighting{}, s.rejection(ErrDuplicate, errors.CategoryConflict, name)
		}
	}

	sex := req.Sex
	if sex == "" {
		sex = SexUnspecified
	}
	sg := Sighting{
		SpeciesName: name,
		Sex:         sex,
		RecordedAt:  s.now().Truncate(time.Second),
		Location:    req.Location,
		Ordinal:     ordinal,
		Catalogued:  catalogued,
	}
	sh.appendSighting(sg)

	if err := s.write(ctx, sh, "save"); err != nil {
		return Sighting{}, err
	}

	fields := []logger.Field{
		logger.String("species", name),
		logger.Bool("catalogued", catalogued),
	}
	if catalogued {
		fields = append(fields, logger.Int("ordinal", ordinal))
	} else {
		s.log.Warn("saved species missing from the reference", logger.String("species", name))
	}
	s.log.Info("sighting saved", fields...)
	return sg, nil
}

// Delete removes every row whose species is in names with a single table
// replacement and returns how many rows were removed. Nothing is written
// when no row matches.
func (s *Store) Delete(ctx context.Context, names []string) (int, error) {
	targets := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = reference.NormalizeName(n); n != "" {
			targets[n] = struct{}{}
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	sh, err := s.read(ctx)
	if err != nil {
		return 0, err
	}

	kept := sh.rows[:0:0]
	for _, row := range sh.rows {
		if _, drop := targets[sh.name(row)]; drop {
			continue
		}
		kept = append(kept, row)
	}
	removed := len(sh.rows) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	sh.rows = kept

	if err := s.write(ctx, sh, "delete"); err != nil {
		return 0, err
	}
	s.log.Info("sightings deleted", logger.Int("rows", removed), logger.Int("requested", len(targets)))
	return removed, nil
}

func (s *Store) read(ctx context.Context) (*sheet, error) {
	raw, err := s.table.ReadAll(ctx)
	if err != nil {
		s.log.Error("failed to read sighting table", logger.Error(err))
		return nil, errors.New(fmt.Errorf("read sightings: %w", err)).
			Component("sighting").
			Context("operation", "read").
			Build()
	}
	return parseSheet(raw), nil
}

func (s *Store) write(ctx context.Context, sh *sheet, operation string) error {
	if err := s.table.ReplaceAll(ctx, sh.values()); err != nil {
		s.log.Error("failed to write sighting table", logger.String("operation", operation), logger.Error(err))
		return errors.New(fmt.Errorf("write sightings: %w", err)).
			Component("sighting").
			Context("operation", operation).
			Build()
	}
	return nil
}

func (s *Store) rejection(sentinel error, category errors.ErrorCategory, name string) error {
	err := errors.New(fmt.Errorf("%w: %q", sentinel, name)).
		Component("sighting").
		Category(category).
		Context("species", name).
		Build()
	s.log.Debug("sighting rejected", logger.String("species", name), logger.String("reason", sentinel.Error()))
	return err
}
