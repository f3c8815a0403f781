// Package api provides the HTTP server of birddex. The JSON endpoints live in
// the v1 subpackage.
package api

import (
	"fmt"
	"time"

	"github.com/turtleson01/bird-app/internal/conf"
	"github.com/turtleson01/bird-app/internal/errors"
)

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	// Server binding
	Host string // Host to bind to (empty for all interfaces)
	Port string // Port to listen on

	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration // Maximum duration for reading request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum time to wait for next request
	ShutdownTimeout time.Duration // Maximum time to wait for graceful shutdown

	// Limits
	BodyLimit string // Maximum request body size, photo uploads included

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       "20M",
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	if settings == nil {
		return cfg
	}
	cfg.Host = settings.WebServer.Host
	if settings.WebServer.Port != "" {
		cfg.Port = settings.WebServer.Port
	}
	if settings.WebServer.BodyLimit != "" {
		cfg.BodyLimit = settings.WebServer.BodyLimit
	}
	if len(settings.WebServer.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = settings.WebServer.AllowedOrigins
	}
	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return invalidConfig("port is required")
	}
	if c.ReadTimeout <= 0 {
		return invalidConfig("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return invalidConfig("write timeout must be positive")
	}
	if c.BodyLimit == "" {
		return invalidConfig("body limit is required")
	}
	return nil
}

func invalidConfig(msg string) error {
	return errors.Newf("%s", msg).
		Component("api").
		Category(errors.CategoryConfiguration).
		Build()
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	if c.Host == "" {
		return ":" + c.Port
	}
	return c.Host + ":" + c.Port
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, body_limit=%s, debug=%v", c.Address(), c.BodyLimit, c.Debug)
}
