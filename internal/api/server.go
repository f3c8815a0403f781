package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/turtleson01/bird-app/internal/api/middleware"
	v1 "github.com/turtleson01/bird-app/internal/api/v1"
	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logbook"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/observability"
)

// Server is the HTTP server of birddex.
type Server struct {
	echo      *echo.Echo
	config    *Config
	svc       *logbook.Service
	metrics   *observability.Metrics
	spriteDir string
	log       logger.Logger

	apiController *v1.Controller
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics serves the registry at /metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSpriteDir serves generated sprites under /sprites.
func WithSpriteDir(dir string) ServerOption {
	return func(s *Server) {
		s.spriteDir = dir
	}
}

// New creates a new HTTP server over the logbook service.
func New(config *Config, svc *logbook.Service, log logger.Logger, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_config").
			Build()
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	s := &Server{
		config: config,
		svc:    svc,
		log:    log.Module("server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("metrics", s.metrics != nil),
		logger.String("sprite_dir", s.spriteDir))
	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		return c.Path() == "/metrics"
	}))
	s.echo.Use(mw.NewCORS(s.config.AllowedOrigins))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders())
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.apiController = v1.New(s.echo, s.svc, s.log)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
	if s.spriteDir != "" {
		s.echo.Static(v1.SpriteURLPrefix, s.spriteDir)
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves HTTP until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", logger.String("address", s.config.Address()))
		if err := s.echo.Start(s.config.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("address", s.config.Address()).
			Build()
	case <-ctx.Done():
	}

	s.log.Info("Shutdown signal received, initiating graceful shutdown")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	s.log.Info("Server shutdown complete", logger.Duration("elapsed", time.Since(start)))
	return nil
}
