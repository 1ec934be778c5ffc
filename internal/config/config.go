package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "ledger/internal/log"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port string
	// WritesPerMinute caps state-changing API requests per client.
	WritesPerMinute int

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// AMQP; an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reminders
	DueSoonHorizonDays   int
	ReminderScanInterval time.Duration

	// Month summary cache
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration

	// Backups
	BackupDir         string
	BackupS3Bucket    string
	BackupS3Region    string
	BackupS3Endpoint  string
	BackupS3AccessKey string
	BackupS3SecretKey string
	BackupS3Prefix    string

	// Google Sheets summary sink
	GoogleSpreadsheetID      string
	GoogleSummarySheetName   string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		WritesPerMinute: getEnvInt("WRITES_PER_MINUTE", 60),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		DueSoonHorizonDays:   getEnvInt("DUE_SOON_HORIZON_DAYS", 5),
		ReminderScanInterval: getEnvDuration("REMINDER_SCAN_INTERVAL", time.Hour),

		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 256),
		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 10*time.Minute),

		BackupDir:         getEnv("BACKUP_DIR", "./backups"),
		BackupS3Bucket:    getEnv("BACKUP_S3_BUCKET", ""),
		BackupS3Region:    getEnv("BACKUP_S3_REGION", "us-east-1"),
		BackupS3Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
		BackupS3AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
		BackupS3SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		BackupS3Prefix:    getEnv("BACKUP_S3_PREFIX", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSummarySheetName:   getEnv("GOOGLE_SUMMARY_SHEET_NAME", "Summary"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// SheetsEnabled reports whether month summaries can be pushed to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.WritesPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid WRITES_PER_MINUTE %d: must be at least 1", c.WritesPerMinute))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
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

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
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

	if c.DueSoonHorizonDays < 0 {
		errors = append(errors, fmt.Sprintf("invalid due-soon horizon %d: must not be negative", c.DueSoonHorizonDays))
	} else if c.DueSoonHorizonDays > 366 {
		errors = append(errors, fmt.Sprintf("invalid due-soon horizon %d: must be at most 366 days", c.DueSoonHorizonDays))
	}

	if c.ReminderScanInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reminder scan interval %v: must be at least 1 second", c.ReminderScanInterval))
	} else if c.ReminderScanInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reminder scan interval %v: must be at most 24 hours", c.ReminderScanInterval))
	}

	if c.SummaryCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must not be negative", c.SummaryCacheSize))
	}
	if c.SummaryCacheSize > 0 && c.SummaryCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be positive when the cache is enabled", c.SummaryCacheTTL))
	}

	if c.BackupS3Bucket == "" && c.BackupDir == "" {
		errors = append(errors, "either BACKUP_DIR or BACKUP_S3_BUCKET must be provided")
	}
	if c.BackupS3Bucket != "" {
		if c.BackupS3Region == "" {
			errors = append(errors, "S3 region is required when BACKUP_S3_BUCKET is provided")
		}
		if (c.BackupS3AccessKey == "") != (c.BackupS3SecretKey == "") {
			errors = append(errors, "BACKUP_S3_ACCESS_KEY and BACKUP_S3_SECRET_KEY must be provided together")
		}
		if c.BackupS3Endpoint != "" {
			if u, err := url.Parse(c.BackupS3Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
				errors = append(errors, fmt.Sprintf("invalid S3 endpoint '%s': must be an absolute URL", c.BackupS3Endpoint))
			}
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleSummarySheetName == "" {
			errors = append(errors, "Google summary sheet name is required when GOOGLE_SPREADSHEET_ID is provided")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
