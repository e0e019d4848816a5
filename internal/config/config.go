package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"payouts/internal/core"
	"payouts/internal/sheets/google"
)

type Config struct {
	// Pipeline
	Workers  int
	Policy   string
	Currency string
	Locale   string
	Sort     string

	LogLevel string

	// AMQP; notifications are off when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	SheetsCacheTTL        time.Duration
	SheetsCacheSize       int
}

func Load() *Config {
	cfg := &Config{
		Workers:  getEnvInt("PAYOUTS_WORKERS", 4),
		Policy:   getEnv("PAYOUTS_POLICY", string(core.AllocateReportMonth)),
		Currency: strings.ToUpper(getEnv("PAYOUTS_CURRENCY", "CNY")),
		Locale:   getEnv("PAYOUTS_LOCALE", "en"),
		Sort:     getEnv("PAYOUTS_SORT", string(core.SortByOccupancy)),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "payouts"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "batch_ready"),

		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		SheetsCacheTTL:        getEnvDuration("SHEETS_CACHE_TTL", 5*time.Minute),
		SheetsCacheSize:       getEnvInt("SHEETS_CACHE_SIZE", 32),
	}

	return cfg
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if c.Workers < 1 || c.Workers > 64 {
		errors = append(errors, fmt.Sprintf("invalid workers %d: must be between 1 and 64", c.Workers))
	}

	if _, err := core.ParsePolicy(c.Policy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid policy '%s': must be one of [%s %s]",
			c.Policy, core.AllocateReportMonth, core.AllocateStayMonths))
	}

	if _, err := core.ParseSortKey(c.Sort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid sort '%s': %v", c.Sort, err))
	}

	if _, err := currency.ParseISO(c.Currency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be an ISO 4217 code", c.Currency))
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
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

	if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if c.SheetsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid sheets cache TTL %v: must not be negative", c.SheetsCacheTTL))
	}
	if c.SheetsCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sheets cache size %d: must be at least 1", c.SheetsCacheSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// NotifyEnabled reports whether batch notifications can be published.
func (c *Config) NotifyEnabled() bool {
	return c.AMQPURL != ""
}

// GoogleOptions returns the Sheets client options this config describes.
func (c *Config) GoogleOptions() google.Options {
	return google.Options{
		CredentialsJSON: c.GoogleCredentialsJSON,
		CredentialsFile: c.GoogleCredentialsFile,
		CacheTTL:        c.SheetsCacheTTL,
		CacheSize:       c.SheetsCacheSize,
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
