package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding maps one config key to an environment variable
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "BIRDDEX_DEBUG", validateEnvBool},
		{"reference.path", "BIRDDEX_REFERENCE_PATH", nil},
		{"catalog.allowuncatalogued", "BIRDDEX_CATALOG_ALLOWUNCATALOGUED", validateEnvBool},

		{"store.backend", "BIRDDEX_STORE_BACKEND", validateEnvBackend},
		{"store.sheets.spreadsheetid", "BIRDDEX_SHEETS_SPREADSHEETID", nil},
		{"store.sheets.sheetname", "BIRDDEX_SHEETS_SHEETNAME", nil},
		{"store.sheets.credentialsfile", "BIRDDEX_SHEETS_CREDENTIALSFILE", nil},
		{"store.sqlite.path", "BIRDDEX_SQLITE_PATH", nil},
		{"store.mysql.dsn", "BIRDDEX_MYSQL_DSN", nil},

		{"identify.apikey", "BIRDDEX_IDENTIFY_APIKEY", nil},
		{"identify.model", "BIRDDEX_IDENTIFY_MODEL", nil},
		{"identify.concurrency", "BIRDDEX_IDENTIFY_CONCURRENCY", validateEnvPositiveInt},

		{"webserver.host", "BIRDDEX_WEBSERVER_HOST", nil},
		{"webserver.port", "BIRDDEX_WEBSERVER_PORT", validateEnvPort},

		{"mqtt.enabled", "BIRDDEX_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "BIRDDEX_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "BIRDDEX_MQTT_USERNAME", nil},
		{"mqtt.password", "BIRDDEX_MQTT_PASSWORD", nil},

		{"sentry.dsn", "BIRDDEX_SENTRY_DSN", validateEnvURL},
		{"logging.level", "BIRDDEX_LOG_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars binds every environment variable and reports invalid values together.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvPort(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("must be between 1 and 65535")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validateEnvBackend(value string) error {
	switch value {
	case BackendSheets, BackendSQLite, BackendMySQL, BackendMemory:
		return nil
	}
	return fmt.Errorf("must be one of sheets, sqlite, mysql, memory")
}

func validateEnvLogLevel(value string) error {
	switch value {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}
