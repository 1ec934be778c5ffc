package backend

import (
	"context"
	"time"

	"ledger/internal/backup"
	"ledger/internal/cache"
	"ledger/internal/services"
	"ledger/internal/sheets"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/storage"
)

// Backend bundles the services and adapters one process runs with.
type Backend struct {
	Store     storage.Store
	Ledger    *services.LedgerService
	Users     *services.UserService
	Summaries *cache.SummaryCache
	// Publisher is nil when no broker is configured.
	Publisher services.EventPublisher
	Sheets    sheets.SummaryWriter
	Backups   backup.Sink
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Month summary cache; zero size disables it
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration

	// Month summary sink; empty spreadsheet ID keeps summaries in memory
	Sheets gsheet.Config

	// Backup sink; a bucket selects S3 over the local directory
	BackupDir string
	S3        backup.S3Config
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
