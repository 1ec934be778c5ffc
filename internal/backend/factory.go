package backend

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/backup"
	"ledger/internal/cache"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/sheets"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/sheets/memory"
	"ledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the store and assembles the services around it. On
// error every resource opened so far is released.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)

	b := &Backend{Store: store}
	opts := []services.Option{}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			closers = append(closers, client.Close)
			b.Publisher = client
			opts = append(opts, services.WithPublisher(client))
		}
	}

	if config.SummaryCacheSize > 0 {
		b.Summaries = cache.NewSummaryCache(config.SummaryCacheSize, config.SummaryCacheTTL)
		manager := cache.NewManager()
		manager.Register(b.Summaries)
		manager.StartCleanup(config.SummaryCacheTTL)
		closers = append(closers, func() error {
			manager.Stop()
			return nil
		})
		opts = append(opts, services.WithSummaryCache(b.Summaries))
	}

	b.Ledger = services.NewLedgerService(store, opts...)
	b.Users = services.NewUserService(store)

	if b.Sheets, err = f.createSheets(ctx, config.Sheets); err != nil {
		_ = cleanup()
		return nil, err
	}
	if b.Backups, err = f.createBackupSink(ctx, config); err != nil {
		_ = cleanup()
		return nil, err
	}

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"events_enabled", b.Publisher != nil,
		"summary_cache", config.SummaryCacheSize)

	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return store, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheets(ctx context.Context, cfg gsheet.Config) (sheets.SummaryWriter, error) {
	if cfg.SpreadsheetID == "" {
		return memory.New(), nil
	}
	cli, err := gsheet.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets summary sink")
	return cli, nil
}

func (f *DefaultFactory) createBackupSink(ctx context.Context, config Config) (backup.Sink, error) {
	if config.S3.Bucket == "" {
		return backup.NewDirSink(config.BackupDir), nil
	}
	sink, err := backup.NewS3Sink(ctx, config.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 backup sink: %w", err)
	}
	f.logger.Info("Initialized S3 backup sink", "bucket", config.S3.Bucket)
	return sink, nil
}
