package app

import (
	"context"

	"github.com/turtleson01/bird-app/internal/buildinfo"
	"github.com/turtleson01/bird-app/internal/conf"
	"github.com/turtleson01/bird-app/internal/logger"
)

// Context is shared by the CLI commands. The root command fills it in
// before any subcommand runs.
type Context struct {
	ConfigPath string
	Debug      bool
	Build      *buildinfo.Context

	Settings *conf.Settings
	Log      logger.Logger

	// Options are passed to every Open
	Options []Option

	central *logger.CentralLogger
}

// NewContext creates an uninitialized Context
func NewContext(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}

// Init loads settings and starts logging. Settings or Log set beforehand
// are kept, so tests can inject them.
func (c *Context) Init() error {
	if c.Settings == nil {
		settings, err := conf.Load(c.ConfigPath)
		if err != nil {
			return err
		}
		c.Settings = settings
	}
	if c.Debug {
		c.Settings.Debug = true
		c.Settings.Logging.DefaultLevel = "debug"
		if c.Settings.Logging.Console != nil {
			c.Settings.Logging.Console.Level = "debug"
		}
	}

	if c.Log == nil {
		central, err := logger.NewCentralLogger(&c.Settings.Logging)
		if err != nil {
			return err
		}
		c.central = central
		c.Log = central.Module("birddex")
	}
	return nil
}

// WithApp opens an App for the duration of fn
func (c *Context) WithApp(ctx context.Context, fn func(*App) error, opts ...Option) error {
	all := append(append([]Option{}, c.Options...), opts...)
	a, err := Open(ctx, c.Settings, c.Build, c.Log, all...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			c.Log.Warn("failed to close resources", logger.Error(cerr))
		}
	}()
	return fn(a)
}

// Close flushes the log
func (c *Context) Close() error {
	if c.central == nil {
		return nil
	}
	return c.central.Close()
}
