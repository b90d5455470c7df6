package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends the dashboard can read the ledger from.
var validBackends = []string{"memory", "csv", "xlsx", "sqlite", "sheets"}

// Sources the sync worker can copy the ledger from.
var validSyncSources = []string{"csv", "xlsx", "sheets"}

var validLogLevels = []string{"debug", "info", "warn", "error"}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string
	// LedgerFile is the .csv or .xlsx ledger for the file backends and sync sources.
	LedgerFile string
	// LedgerSheet names the worksheet inside an .xlsx ledger; empty means the first.
	LedgerSheet string
	// SeedDir holds an optional ledger.csv for the memory backend.
	SeedDir string

	// Database
	SQLiteDBPath string

	// AMQP; an empty URL disables sync requests.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredFile string

	// Worker
	SyncSource   string
	SyncInterval time.Duration

	// LedgerCacheTTL is how long a loaded ledger is reused; zero disables caching.
	LedgerCacheTTL time.Duration

	// Discord alerts; both must be set to enable them.
	DiscordBotToken  string
	DiscordChannelID string

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: strings.ToLower(getEnv("DATA_BACKEND", "memory")),
		LedgerFile:  getEnv("LEDGER_FILE", ""),
		LedgerSheet: getEnv("LEDGER_SHEET", ""),
		SeedDir:     getEnv("LEDGER_SEED_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_ledger"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:           getEnv("GOOGLE_SHEET_NAME", "Movimientos"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		SyncSource:   strings.ToLower(getEnv("SYNC_SOURCE", "csv")),
		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		LedgerCacheTTL: getEnvDuration("LEDGER_CACHE_TTL", 30*time.Second),

		DiscordBotToken:  getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID: getEnv("DISCORD_CHANNEL_ID", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// AMQPEnabled reports whether sync requests can be published or consumed.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// DiscordEnabled reports whether negative balance alerts go to Discord.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordChannelID != ""
}

// Validate checks the settings the dashboard server needs and returns every
// problem found in a single error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	errors = append(errors, c.validateLedgerSource(c.DataBackend, "backend")...)

	if c.LedgerCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid ledger cache TTL %v: must not be negative", c.LedgerCacheTTL))
	} else if c.LedgerCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid ledger cache TTL %v: must be at most 24 hours", c.LedgerCacheTTL))
	}

	errors = append(errors, c.validateCommon()...)
	return combine(errors)
}

// ValidateSync checks the settings the sync worker needs.
func (c *Config) ValidateSync() error {
	var errors []string

	if !slices.Contains(validSyncSources, c.SyncSource) {
		errors = append(errors, fmt.Sprintf("invalid sync source '%s': must be one of %v", c.SyncSource, validSyncSources))
	}
	errors = append(errors, c.validateLedgerSource(c.SyncSource, "sync source")...)
	errors = append(errors, c.validateLedgerSource("sqlite", "sync target")...)

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if (c.DiscordBotToken == "") != (c.DiscordChannelID == "") {
		errors = append(errors, "DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}

	errors = append(errors, c.validateCommon()...)
	return combine(errors)
}

// validateLedgerSource checks the settings a given ledger kind depends on.
func (c *Config) validateLedgerSource(kind, role string) []string {
	var errors []string
	switch kind {
	case "csv", "xlsx":
		if c.LedgerFile == "" {
			errors = append(errors, fmt.Sprintf("LEDGER_FILE is required when using %s %s", kind, role))
		} else if _, err := os.Stat(c.LedgerFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("ledger file does not exist: %s", c.LedgerFile))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, fmt.Sprintf("SQLite database path cannot be empty when using sqlite %s", role))
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, fmt.Sprintf("Google Spreadsheet ID is required when using sheets %s", role))
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredFile == "" {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets")
		}
		if f := c.GoogleServiceAccountFile; f != "" {
			if _, err := os.Stat(f); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", f))
			}
		}
	}
	return errors
}

func (c *Config) validateCommon() []string {
	var errors []string

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}
	return errors
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
