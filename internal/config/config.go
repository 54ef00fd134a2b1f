package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP servers
	Port           string
	APIPort        string
	RequestTimeout time.Duration
	RateLimitRPM   int
	CORSOrigin     string

	// Backend selection for the tracker UI
	DataBackend string
	BackendURL  string

	// Presentation
	Currency        string
	DisplayTimezone string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncPrefetch  int
	RowCacheTTL   time.Duration
	SyncOnStartup bool

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		APIPort:        getEnv("API_PORT", "5000"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 7*time.Second),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		CORSOrigin:     getEnv("CORS_ALLOW_ORIGIN", "*"),

		DataBackend: getEnv("DATA_BACKEND", "http"),
		BackendURL:  getEnv("BACKEND_URL", "http://127.0.0.1:5000"),

		Currency:        getEnv("CURRENCY", "PLN"),
		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "Local"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budget.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncPrefetch:  getEnvInt("SYNC_PREFETCH", 10),
		RowCacheTTL:   getEnvDuration("ROW_CACHE_TTL", 10*time.Minute),
		SyncOnStartup: getEnvBool("SYNC_ON_STARTUP", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Location resolves DisplayTimezone, falling back to the process local zone.
func (c *Config) Location() *time.Location {
	if c.DisplayTimezone == "" || c.DisplayTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate validates the configuration shared by every binary and returns
// all problems at once.
func (c *Config) Validate() error {
	var errors []string

	errors = append(errors, validatePort("port", c.Port)...)
	errors = append(errors, validatePort("API port", c.APIPort)...)

	validBackends := []string{"http", "sqlite", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "http" {
		if u, err := url.Parse(c.BackendURL); err != nil || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid backend URL '%s': must be an absolute URL", c.BackendURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid backend URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}

	if c.DataBackend == "sqlite" {
		errors = append(errors, c.validateSQLitePath()...)
	}

	if c.RequestTimeout < 100*time.Millisecond || c.RequestTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be between 100ms and 5m", c.RequestTimeout))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if strings.TrimSpace(c.Currency) == "" {
		errors = append(errors, "currency label cannot be empty")
	}
	if c.DisplayTimezone != "" && c.DisplayTimezone != "Local" {
		if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid display timezone '%s': %v", c.DisplayTimezone, err))
		}
	}

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

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateAPI checks what the REST backend needs on top of Validate.
func (c *Config) ValidateAPI() error {
	if errs := c.validateSQLitePath(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateWorker checks what the sheets sync worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the sync worker")
	}
	// Without a spreadsheet the worker mirrors into memory.
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SyncPrefetch < 1 || c.SyncPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync prefetch %d: must be between 1 and 1000", c.SyncPrefetch))
	}
	if c.RowCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid row cache TTL %v: must be at least 1 second", c.RowCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSQLitePath() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
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
