package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/backend"
	"ledgerdash/internal/cli"
	"ledgerdash/internal/config"
	apphttp "ledgerdash/internal/http"
	"ledgerdash/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, log.FieldBackend, backendCfg.Type)
		os.Exit(1)
	}

	opts := apphttp.Options{
		CacheTTL: cfg.LedgerCacheTTL,
		Logger:   logger.WithComponent(log.ComponentHTTP),
	}

	// Sync requests are optional; the dashboard stays read-only without a broker.
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, sync requests disabled", "error", err)
		} else {
			opts.Publisher = amqpClient
			logger.Info("Sync requests enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, result.Source, opts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		if err := result.Close(); err != nil {
			logger.Error("Failed to close data backend", "error", err)
		}
	})

	logger.Info("Starting ledgerdash server", "port", cfg.Port, log.FieldBackend, backendCfg.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
