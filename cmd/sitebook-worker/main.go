package main

import (
	"context"
	"errors"
	"os"
	"time"

	"sitebook/internal/amqp"
	"sitebook/internal/cli"
	"sitebook/internal/config"
	"sitebook/internal/log"
	"sitebook/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting sitebook-worker", log.FieldOperation, log.OpStartup)

	initCtx, initCancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	app, err := cli.InitApp(initCtx, cfg, logger)
	initCancel()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer app.Close()
	if app.AMQP == nil {
		logger.Error("AMQP is not reachable, nothing to consume")
		os.Exit(1)
	}

	snapshots := worker.NewSnapshotWorker(app.Service, cfg.BackupDir, cfg.BackupKeep, logger)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Each snapshot gets its own store deadline.
	handler := func(ctx context.Context, msg *amqp.LedgerChanged) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		return snapshots.HandleLedgerChanged(ctx, msg)
	}

	logger.Info("Consuming ledger changes", "queue", cfg.AMQPQueue, log.FieldFile, cfg.BackupDir)
	if err := app.AMQP.ConsumeLedgerChanged(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
