// Package conf loads birddex settings from the embedded defaults, an optional
// YAML file and BIRDDEX_* environment variables.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/turtleson01/bird-app/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Store backends
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

// Settings is the root configuration
type Settings struct {
	Debug        bool
	Reference    ReferenceSettings
	Catalog      CatalogSettings
	Store        StoreSettings
	Identify     IdentifySettings
	Progress     ProgressSettings
	Sprite       SpriteSettings
	WebServer    WebServerSettings
	Notification NotificationSettings
	MQTT         MQTTSettings
	Sentry       SentrySettings
	Logging      logger.LoggingConfig
}

// ReferenceSettings locates the species master list
type ReferenceSettings struct {
	Path string // CSV file, any of UTF-8, CP949 or UTF-16
}

// CatalogSettings controls how names outside the master list are treated
type CatalogSettings struct {
	AllowUncatalogued bool // accept and store names missing from the reference
}

// StoreSettings selects the sighting table backend
type StoreSettings struct {
	Backend string // sheets, sqlite, mysql or memory
	Sheets  SheetsSettings
	SQLite  SQLiteSettings
	MySQL   MySQLSettings
}

// SheetsSettings configures the Google Sheets backend
type SheetsSettings struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string // service account JSON
}

// SQLiteSettings configures the SQLite backend
type SQLiteSettings struct {
	Path string
}

// MySQLSettings configures the MySQL backend
type MySQLSettings struct {
	DSN string
}

// IdentifySettings configures the vision model
type IdentifySettings struct {
	APIKey      string
	Model       string
	Concurrency int           // parallel requests for multi-image identification
	Timeout     time.Duration // per request
}

// ProgressSettings tunes experience and rarity
type ProgressSettings struct {
	XPPerLevel       int
	AchievementBonus int
	XP               map[string]int      // tier name -> xp per sighting
	Rarity           map[string][]string // tier name -> species names
}

// SpriteSettings configures the pixel sprite generator
type SpriteSettings struct {
	OutputDir string
	Width     int     // downscale width in pixels
	Scale     int     // nearest-neighbour upscale factor
	ThumbSize int     // requested Wikipedia thumbnail size
	RateLimit float64 // requests per second
	Language  string  // wikipedia language subdomain
}

// WebServerSettings configures the JSON API
type WebServerSettings struct {
	Host           string
	Port           string
	BodyLimit      string   // maximum request body, e.g. "20M"
	AllowedOrigins []string // CORS origins
}

// NotificationSettings lists shoutrrr service URLs
type NotificationSettings struct {
	URLs []string
}

// MQTTSettings configures sighting event publishing
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	DSN string
}

// Load builds settings from defaults, the config file and the environment.
// An empty configPath searches the working directory and the user config
// directory; a missing file is not an error.
func Load(configPath string) (*Settings, error) {
	v, err := initViper(configPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

func initViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("fatal error reading config file: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	for _, path := range DefaultConfigPaths() {
		v.AddConfigPath(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error reading config file: %w", err)
		}
	}
	return v, nil
}

// DefaultConfigPaths returns the directories searched for config.yaml.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "birddex"))
	}
	return paths
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() []byte {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return data
}

// WriteDefaultConfig writes the embedded defaults to path, refusing to
// overwrite an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(path, DefaultConfig(), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return nil
}

// SaveYAMLConfig writes settings to configPath through a temporary file so a
// crash never leaves a truncated config behind. Comments are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (s *Settings) Redacted() *Settings {
	c := *s
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return "********"
	}
	c.Identify.APIKey = mask(s.Identify.APIKey)
	c.MQTT.Password = mask(s.MQTT.Password)
	c.Store.MySQL.DSN = mask(s.Store.MySQL.DSN)
	c.Sentry.DSN = mask(s.Sentry.DSN)
	c.Notification.URLs = nil
	for _, u := range s.Notification.URLs {
		scheme, _, _ := strings.Cut(u, "://")
		c.Notification.URLs = append(c.Notification.URLs, scheme+"://********")
	}
	return &c
}
