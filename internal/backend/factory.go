package backend

import (
	"context"
	"fmt"
	"time"

	"sitebook/internal/log"
	"sitebook/internal/sheets"
	"sitebook/internal/sheets/file"
	gsheet "sitebook/internal/sheets/google"
	"sitebook/internal/sheets/memory"
	"sitebook/internal/storage"
)

const defaultProbeTimeout = 10 * time.Second

// remote is a backend that can prove it is reachable.
type remote interface {
	sheets.Backend
	Ping(ctx context.Context) error
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger    *log.Logger
	newSheets func(ctx context.Context, opts gsheet.Options) (remote, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		newSheets: func(ctx context.Context, opts gsheet.Options) (remote, error) {
			return gsheet.New(ctx, opts)
		},
	}
}

// CreateBackend implements Factory.CreateBackend. In auto mode the
// spreadsheet is used when it is configured and answers a ping; otherwise
// the local file store is used.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case Auto:
		return f.createAutoBackend(ctx, config)
	case Sheets:
		return f.createSheetsBackend(ctx, config)
	case File:
		return f.createFileBackend(config)
	case SQLite:
		return f.createSQLiteBackend(config)
	case Memory:
		f.logger.Warn("Using in-memory backend, data is lost on exit")
		return &Result{Backend: memory.New(), Type: Memory}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createAutoBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Google.Configured() {
		f.logger.Info("Spreadsheet not configured, using local files")
		return f.createFileBackend(config)
	}
	res, err := f.createSheetsBackend(ctx, config)
	if err != nil {
		f.logger.Warn("Spreadsheet unavailable, falling back to local files", log.FieldError, err)
		return f.createFileBackend(config)
	}
	return res, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := f.newSheets(ctx, config.Google)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	timeout := config.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := cli.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("spreadsheet not reachable: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.Google.SpreadsheetID)
	return &Result{Backend: cli, Type: Sheets}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*Result, error) {
	store, err := file.New(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file backend: %w", err)
	}
	f.logger.Info("Initialized file backend", "data_directory", config.DataDir)
	return &Result{Backend: store, Type: File}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, "schema_version", repo.SchemaVersion())
	return &Result{Backend: repo, Type: SQLite, Cleanup: repo.Close}, nil
}
