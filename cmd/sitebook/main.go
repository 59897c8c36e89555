package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"sitebook/internal/cli"
	"sitebook/internal/config"
	apphttp "sitebook/internal/http"
	"sitebook/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	initCtx, initCancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	app, err := cli.InitApp(initCtx, cfg, logger)
	initCancel()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer app.Close()

	srv, err := apphttp.NewServer(":"+cfg.Port, app.Service, apphttp.Options{
		Logger:       logger,
		StoreTimeout: cfg.StoreTimeout,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 60 * time.Second
	srv.WriteTimeout = cfg.StoreTimeout + 30*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting sitebook server", "port", cfg.Port, log.FieldBackend, app.Backend.Type.String(), log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
