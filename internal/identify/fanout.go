package identify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
)

// DefaultConcurrency bounds parallel calls when no limit is given
const DefaultConcurrency = 4

// Observer is told about every finished identification
type Observer func(outcome Outcome, elapsed time.Duration)

type fanoutConfig struct {
	concurrency int
	timeout     time.Duration
	log         logger.Logger
	observer    Observer
}

// FanoutOption configures IdentifyAll
type FanoutOption func(*fanoutConfig)

// WithConcurrency limits the number of calls in flight
func WithConcurrency(n int) FanoutOption {
	return func(c *fanoutConfig) { c.concurrency = n }
}

// WithTimeout bounds each call. Zero means no per-call timeout.
func WithTimeout(d time.Duration) FanoutOption {
	return func(c *fanoutConfig) { c.timeout = d }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) FanoutOption {
	return func(c *fanoutConfig) { c.log = log }
}

// WithObserver registers an Observer
func WithObserver(fn Observer) FanoutOption {
	return func(c *fanoutConfig) { c.observer = fn }
}

// IdentifyAll identifies every image in parallel. results[i] always belongs
// to images[i]. A failed call becomes an OutcomeError result for that image
// only; the others are unaffected.
func IdentifyAll(ctx context.Context, identifier Identifier, images []Image, followup string, opts ...FanoutOption) []Result {
	cfg := fanoutConfig{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = DefaultConcurrency
	}
	if cfg.log == nil {
		cfg.log = logger.NewDiscardLogger()
	}
	log := cfg.log.Module("identify")

	prompt := FormatRequest(followup)
	results := make([]Result, len(images))

	var g errgroup.Group
	g.SetLimit(cfg.concurrency)
	for i, img := range images {
		g.Go(func() error {
			start := time.Now()
			results[i] = identifyOne(ctx, identifier, img, prompt, cfg.timeout)
			if cfg.observer != nil {
				cfg.observer(results[i].Outcome, time.Since(start))
			}
			if results[i].Err != nil {
				log.Warn("image identification failed",
					logger.Int("index", i),
					logger.String("image", img.Name),
					logger.Error(results[i].Err))
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("identification batch finished", logger.Int("images", len(images)), logger.Bool("followup", prompt.Followup != ""))
	return results
}

func identifyOne(ctx context.Context, identifier Identifier, img Image, prompt Prompt, timeout time.Duration) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = ErrorResult(errors.Newf("identifier panicked: %v", r).
				Component("identify").
				Category(errors.CategoryIdentification).
				Build())
		}
	}()

	if err := ctx.Err(); err != nil {
		return ErrorResult(err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if len(img.Data) == 0 {
		return ErrorResult(errors.New(fmt.Errorf("image %q is empty", img.Name)).
			Component("identify").
			Category(errors.CategoryValidation).
			Build())
	}

	raw, err := identifier.Identify(ctx, img, prompt)
	if err != nil {
		return ErrorResult(err)
	}
	return ParseResponse(raw)
}
