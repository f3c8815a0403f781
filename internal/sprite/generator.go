package sprite

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/reference"
)

// Defaults match the look of the original sprite set.
const (
	DefaultWidth     = 48
	DefaultScale     = 4
	DefaultThumbSize = 1000
)

// Path returns where the sprite of the species with ordinal is stored
func Path(dir string, ordinal int) string {
	return filepath.Join(dir, strconv.Itoa(ordinal)+".png")
}

// Config configures a Generator
type Config struct {
	OutputDir string
	Width     int
	Scale     int
	ThumbSize int
	Overwrite bool // regenerate sprites that already exist
}

// Report lists what a Generate run did, by species name.
type Report struct {
	Created []string
	Existed []string
	Missing []string // no page or no lead image
	Failed  map[string]error
}

// Generator builds sprites for catalog species.
type Generator struct {
	wiki     *Wiki
	cfg      Config
	log      logger.Logger
	observer func(result string)
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithResultObserver is called once per species with created, existed,
// missing or failed.
func WithResultObserver(fn func(result string)) GeneratorOption {
	return func(g *Generator) { g.observer = fn }
}

// NewGenerator creates a Generator
func NewGenerator(wiki *Wiki, cfg Config, log logger.Logger, opts ...GeneratorOption) *Generator {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.ThumbSize <= 0 {
		cfg.ThumbSize = DefaultThumbSize
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	g := &Generator{wiki: wiki, cfg: cfg, log: log.Module("sprite")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates a sprite for every species. Species without an image are
// skipped and a failure for one species does not stop the run. Only context
// cancellation and an unusable output directory abort it.
func (g *Generator) Generate(ctx context.Context, species []reference.Species) (Report, error) {
	report := Report{Failed: make(map[string]error)}
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return report, errors.New(fmt.Errorf("create sprite directory: %w", err)).
			Component("sprite").
			Category(errors.CategoryFileIO).
			Context("path", g.cfg.OutputDir).
			Build()
	}

	start := time.Now()
	for _, sp := range species {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := g.generateOne(ctx, sp)
		switch result {
		case "created":
			report.Created = append(report.Created, sp.Name)
			g.log.Info("sprite created", logger.Int("ordinal", sp.Ordinal), logger.String("species", sp.Name))
		case "existed":
			report.Existed = append(report.Existed, sp.Name)
		case "missing":
			report.Missing = append(report.Missing, sp.Name)
			g.log.Debug("no wikipedia image", logger.String("species", sp.Name))
		default:
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed[sp.Name] = err
			g.log.Warn("sprite generation failed", logger.String("species", sp.Name), logger.Error(err))
		}
		if g.observer != nil {
			g.observer(result)
		}
	}

	g.log.Info("sprite generation finished",
		logger.Int("created", len(report.Created)),
		logger.Int("existed", len(report.Existed)),
		logger.Int("missing", len(report.Missing)),
		logger.Int("failed", len(report.Failed)),
		logger.Duration("elapsed", time.Since(start)))
	return report, nil
}

func (g *Generator) generateOne(ctx context.Context, sp reference.Species) (string, error) {
	path := Path(g.cfg.OutputDir, sp.Ordinal)
	if !g.cfg.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return "existed", nil
		}
	}

	thumb, err := g.thumbnail(ctx, sp)
	if errors.Is(err, ErrNotFound) {
		return "missing", nil
	}
	if err != nil {
		return "failed", err
	}

	data, err := g.wiki.Download(ctx, thumb)
	if err != nil {
		return "failed", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "failed", errors.New(fmt.Errorf("decode image of %s: %w", sp.Name, err)).
			Component("sprite").
			Category(errors.CategoryFileParsing).
			Build()
	}

	if err := writePNG(path, Pixelate(img, g.cfg.Width, g.cfg.Scale)); err != nil {
		return "failed", err
	}
	return "created", nil
}

// thumbnail looks the species up by Korean name, then by scientific name.
func (g *Generator) thumbnail(ctx context.Context, sp reference.Species) (string, error) {
	src, err := g.wiki.Thumbnail(ctx, sp.Name, g.cfg.ThumbSize)
	if errors.Is(err, ErrNotFound) && sp.ScientificName != "" {
		return g.wiki.Thumbnail(ctx, sp.ScientificName, g.cfg.ThumbSize)
	}
	return src, err
}

func writePNG(path string, img image.Image) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.New(err).Component("sprite").Category(errors.CategoryFileIO).Build()
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.New(err).Component("sprite").Category(errors.CategoryFileIO).Build()
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.New(err).Component("sprite").Category(errors.CategoryFileIO).Build()
	}
	return os.Rename(tmp, path)
}
