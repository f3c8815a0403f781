package conf

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Tier names accepted in progress.xp and progress.rarity
var knownTiers = []string{"common", "rare", "epic", "legendary"}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings checks every section and returns all problems at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}
	add := func(err error) {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	add(validateStoreSettings(&settings.Store))
	add(validateIdentifySettings(&settings.Identify))
	add(validateProgressSettings(&settings.Progress))
	add(validateSpriteSettings(&settings.Sprite))
	add(validateWebServerSettings(&settings.WebServer))
	add(validateMQTTSettings(&settings.MQTT))

	if settings.Reference.Path == "" {
		ve.Errors = append(ve.Errors, "reference.path must not be empty")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateStoreSettings(s *StoreSettings) error {
	switch s.Backend {
	case BackendSheets:
		var missing []string
		if s.Sheets.SpreadsheetID == "" {
			missing = append(missing, "spreadsheetid")
		}
		if s.Sheets.SheetName == "" {
			missing = append(missing, "sheetname")
		}
		if len(missing) > 0 {
			return fmt.Errorf("store.sheets requires %s", strings.Join(missing, ", "))
		}
	case BackendSQLite:
		if s.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path must not be empty")
		}
	case BackendMySQL:
		if s.MySQL.DSN == "" {
			return fmt.Errorf("store.mysql.dsn must not be empty")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("store.backend %q is not one of sheets, sqlite, mysql, memory", s.Backend)
	}
	return nil
}

func validateIdentifySettings(s *IdentifySettings) error {
	if s.Concurrency < 1 {
		return fmt.Errorf("identify.concurrency must be at least 1")
	}
	if s.Model == "" {
		return fmt.Errorf("identify.model must not be empty")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("identify.timeout must not be negative")
	}
	return nil
}

func validateProgressSettings(s *ProgressSettings) error {
	if s.XPPerLevel < 1 {
		return fmt.Errorf("progress.xpperlevel must be at least 1")
	}
	if s.AchievementBonus < 0 {
		return fmt.Errorf("progress.achievementbonus must not be negative")
	}
	for tier, xp := range s.XP {
		if !isKnownTier(tier) {
			return fmt.Errorf("progress.xp has unknown tier %q", tier)
		}
		if xp < 0 {
			return fmt.Errorf("progress.xp.%s must not be negative", tier)
		}
	}
	for tier := range s.Rarity {
		if !isKnownTier(tier) {
			return fmt.Errorf("progress.rarity has unknown tier %q", tier)
		}
	}
	return nil
}

func validateSpriteSettings(s *SpriteSettings) error {
	if s.Width < 1 || s.Scale < 1 {
		return fmt.Errorf("sprite.width and sprite.scale must be at least 1")
	}
	if s.RateLimit <= 0 {
		return fmt.Errorf("sprite.ratelimit must be positive")
	}
	return nil
}

func validateWebServerSettings(s *WebServerSettings) error {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port %q is not a valid port", s.Port)
	}
	return nil
}

func validateMQTTSettings(s *MQTTSettings) error {
	if s.Enabled && s.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

func isKnownTier(tier string) bool {
	return slices.Contains(knownTiers, tier)
}
