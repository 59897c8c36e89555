// Package cli holds the bootstrap shared by cmd/sitebook and
// cmd/sitebook-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sitebook/internal/amqp"
	"sitebook/internal/backend"
	"sitebook/internal/config"
	"sitebook/internal/ledger"
	"sitebook/internal/log"
	"sitebook/internal/services"
	"sitebook/internal/settings"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from config and makes it the default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Component = component
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it with check.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(check func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := check(cfg); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App is the wired service stack shared by the server and the worker.
type App struct {
	Service *services.LedgerService
	Backend *backend.Result
	AMQP    *amqp.Client
}

// Close releases the backend and the AMQP connection.
func (a *App) Close() error {
	var first error
	if a.AMQP != nil {
		first = a.AMQP.Close()
	}
	if err := a.Backend.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// InitApp selects the backend and builds the ledger service. AMQP is
// connected when configured; failing to connect only disables events.
func InitApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, err
	}

	app := &App{Backend: res}
	var events services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			app.AMQP = client
			events = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	app.Service = services.NewLedgerService(
		ledger.NewStore(res.Backend, cfg.LedgerCacheTTL, logger),
		settings.NewStore(res.Backend, cfg.LedgerCacheTTL, logger),
		events,
		logger,
		services.Config{ReportFont: cfg.ReportFontFile},
	)
	logger.Info("Backend ready", log.FieldBackend, res.Type.String())
	return app, nil
}

// GracefulShutdown returns a context cancelled on SIGINT/SIGTERM. cleanup
// runs once the signal arrives, bounded by timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
