// Package app assembles the birddex components from Settings. The CLI
// commands and the HTTP server share one App per process.
package app

import (
	"context"
	"time"

	"github.com/turtleson01/bird-app/internal/buildinfo"
	"github.com/turtleson01/bird-app/internal/conf"
	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/httpclient"
	"github.com/turtleson01/bird-app/internal/identify"
	"github.com/turtleson01/bird-app/internal/logbook"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/mqtt"
	"github.com/turtleson01/bird-app/internal/notification"
	"github.com/turtleson01/bird-app/internal/observability"
	"github.com/turtleson01/bird-app/internal/progress"
	"github.com/turtleson01/bird-app/internal/reference"
	"github.com/turtleson01/bird-app/internal/sighting"
	"github.com/turtleson01/bird-app/internal/sprite"
)

const pushTimeout = 10 * time.Second

// App holds the wired components
type App struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Log      logger.Logger
	Metrics  *observability.Metrics
	Catalog  *reference.Catalog
	Store    *sighting.Store
	Logbook  *logbook.Service
	Wiki     *sprite.Wiki
	HTTP     *httpclient.Client
	Notifier *notification.Service

	closers []func() error
}

// Option configures Open
type Option func(*options)

type options struct {
	table   sighting.Table
	httpCfg *httpclient.Config
	ident   identify.Identifier
	needsID bool
}

// WithTable uses table instead of opening the configured backend
func WithTable(t sighting.Table) Option {
	return func(o *options) { o.table = t }
}

// WithHTTPConfig overrides the outbound HTTP client configuration
func WithHTTPConfig(cfg httpclient.Config) Option {
	return func(o *options) { o.httpCfg = &cfg }
}

// WithIdentifier uses id instead of the configured Gemini model
func WithIdentifier(id identify.Identifier) Option {
	return func(o *options) { o.ident = id }
}

// RequireIdentifier makes Open fail when no identifier can be built,
// instead of running with identification disabled.
func RequireIdentifier() Option {
	return func(o *options) { o.needsID = true }
}

// Open builds every component from settings. Close releases them.
func Open(ctx context.Context, settings *conf.Settings, build *buildinfo.Context, log logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	if err := errors.InitSentry(settings.Sentry.DSN, build.GetVersion()); err != nil {
		log.Warn("telemetry disabled", logger.Error(err))
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	a := &App{
		Settings: settings,
		Build:    build,
		Log:      log,
		Metrics:  m,
	}

	loader := reference.NewLoader(log, reference.WithObserver(func(_ string, species int, elapsed time.Duration) {
		m.Logbook.ObserveCatalogLoad(species, elapsed)
	}))
	a.Catalog = loader.Load(settings.Reference.Path)
	if a.Catalog.Empty() {
		log.Warn("species reference is empty; every name is uncatalogued",
			logger.String("path", settings.Reference.Path))
	}

	table := o.table
	if table == nil {
		t, closeFn, err := OpenTable(ctx, settings.Store, log)
		if err != nil {
			return nil, err
		}
		table = t
		a.addCloser(closeFn)
	}
	a.Store = sighting.NewStore(table, a.Catalog, sighting.Policy{
		AllowUncatalogued: settings.Catalog.AllowUncatalogued,
		ReservedNames:     identify.SentinelNames(),
	}, log)

	httpCfg := httpclient.DefaultConfig()
	if o.httpCfg != nil {
		httpCfg = *o.httpCfg
	}
	a.HTTP = httpclient.New(&httpCfg)
	a.HTTP.SetBeforeRequestHook(m.Wiki.BeforeRequest)
	a.HTTP.SetAfterResponseHook(m.Wiki.AfterResponse)
	a.addCloser(func() error { a.HTTP.Close(); return nil })
	a.Wiki = sprite.NewWiki(a.HTTP, settings.Sprite.Language, settings.Sprite.RateLimit, log)

	rarity := progress.NewRarityTable(settings.Progress.Rarity)
	lbOpts := []logbook.Option{
		logbook.WithRarity(rarity),
		logbook.WithXP(progress.XPConfigFromSettings(settings.Progress.XP, settings.Progress.AchievementBonus, settings.Progress.XPPerLevel)),
		logbook.WithSummaries(a.Wiki),
		logbook.WithSpriteDir(settings.Sprite.OutputDir),
		logbook.WithMetrics(m.Logbook, m.Identify),
	}

	id, err := a.identifier(ctx, o)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if id != nil {
		lbOpts = append(lbOpts, logbook.WithIdentifier(id,
			identify.WithConcurrency(settings.Identify.Concurrency),
			identify.WithTimeout(settings.Identify.Timeout)))
	}

	notifier, err := a.notifier(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Notifier = notifier
	lbOpts = append(lbOpts, logbook.WithNotifier(notifier))

	a.Logbook = logbook.New(a.Store, log, lbOpts...)
	return a, nil
}

func (a *App) identifier(ctx context.Context, o options) (identify.Identifier, error) {
	if o.ident != nil {
		return o.ident, nil
	}
	if a.Settings.Identify.APIKey == "" {
		if o.needsID {
			return nil, errors.New(logbook.ErrIdentificationDisabled).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("setting", "identify.apikey").
				Build()
		}
		a.Log.Debug("photo identification disabled: no API key")
		return nil, nil
	}
	return identify.NewGeminiIdentifier(ctx, identify.GeminiConfig{
		APIKey: a.Settings.Identify.APIKey,
		Model:  a.Settings.Identify.Model,
	}, a.Log)
}

// notifier builds push and MQTT delivery. A broker that cannot be reached
// at startup is logged; paho keeps reconnecting in the background.
func (a *App) notifier(ctx context.Context) (*notification.Service, error) {
	var pusher notification.Pusher
	if len(a.Settings.Notification.URLs) > 0 {
		p, err := notification.NewShoutrrrPusher(a.Settings.Notification.URLs, pushTimeout)
		if err != nil {
			return nil, err
		}
		pusher = p
	}

	var publisher notification.Publisher
	if a.Settings.MQTT.Enabled {
		cfg := mqtt.DefaultConfig()
		cfg.Broker = a.Settings.MQTT.Broker
		cfg.Username = a.Settings.MQTT.Username
		cfg.Password = a.Settings.MQTT.Password
		if a.Settings.MQTT.ClientID != "" {
			cfg.ClientID = a.Settings.MQTT.ClientID
		}
		if a.Settings.MQTT.Topic != "" {
			cfg.Topic = a.Settings.MQTT.Topic
		}
		client := mqtt.NewClient(cfg, a.Log, mqtt.WithObserver(a.Metrics.MQTT))
		if err := client.Connect(ctx); err != nil {
			a.Log.Warn("MQTT broker unavailable", logger.String("broker", cfg.Broker), logger.Error(err))
		}
		a.addCloser(func() error { client.Disconnect(); return nil })
		publisher = client
	}

	return notification.NewService(pusher, publisher, a.Log,
		notification.WithPushObserver(a.Metrics.Logbook.RecordPush)), nil
}

// SpriteGenerator returns a generator writing to the configured directory.
func (a *App) SpriteGenerator(overwrite bool) *sprite.Generator {
	s := a.Settings.Sprite
	return sprite.NewGenerator(a.Wiki, sprite.Config{
		OutputDir: s.OutputDir,
		Width:     s.Width,
		Scale:     s.Scale,
		ThumbSize: s.ThumbSize,
		Overwrite: overwrite,
	}, a.Log, sprite.WithResultObserver(a.Metrics.Wiki.RecordSprite))
}

func (a *App) addCloser(fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}

// Close releases every component in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
