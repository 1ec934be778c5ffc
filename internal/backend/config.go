package backend

import (
	"fmt"

	"ledger/internal/backup"
	"ledger/internal/config"
	gsheet "ledger/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		SummaryCacheSize: appConfig.SummaryCacheSize,
		SummaryCacheTTL:  appConfig.SummaryCacheTTL,

		Sheets: gsheet.Config{
			SpreadsheetID:      appConfig.GoogleSpreadsheetID,
			SummarySheetName:   appConfig.GoogleSummarySheetName,
			ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			ServiceAccountFile: appConfig.GoogleServiceAccountFile,
		},

		BackupDir: appConfig.BackupDir,
		S3: backup.S3Config{
			Bucket:    appConfig.BackupS3Bucket,
			Region:    appConfig.BackupS3Region,
			Endpoint:  appConfig.BackupS3Endpoint,
			AccessKey: appConfig.BackupS3AccessKey,
			SecretKey: appConfig.BackupS3SecretKey,
			Prefix:    appConfig.BackupS3Prefix,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	if c.SummaryCacheSize > 0 && c.SummaryCacheTTL <= 0 {
		return fmt.Errorf("summary cache TTL must be positive")
	}
	if c.S3.Bucket == "" && c.BackupDir == "" {
		return fmt.Errorf("a backup directory or S3 bucket is required")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
