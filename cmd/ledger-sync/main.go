package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/backend"
	"ledgerdash/internal/cli"
	"ledgerdash/internal/config"
	"ledgerdash/internal/log"
	"ledgerdash/internal/notify"
	"ledgerdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateSync)
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting ledger-sync", "source", cfg.SyncSource, "interval", cfg.SyncInterval)

	sourceCfg, err := backend.SyncSourceFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid sync source configuration", "error", err)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), sourceCfg)
	if err != nil {
		logger.Error("Failed to initialize sync source", "error", err, log.FieldBackend, sourceCfg.Type)
		os.Exit(1)
	}
	defer source.Close()

	store := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer store.Close()

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.DiscordEnabled() {
		discord, err := notify.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID)
		if err != nil {
			logger.Error("Failed to initialize Discord notifier", "error", err)
			os.Exit(1)
		}
		notifier = discord
		logger.Info("Discord alerts enabled", "channel_id", cfg.DiscordChannelID)
	}

	syncWorker := worker.NewSyncWorker(source.Source, store, notifier)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - only periodic syncs will run")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// A failed startup sync is retried on the next tick.
	if _, err := syncWorker.Sync(ctx, "startup"); err != nil {
		logger.Error("Startup sync failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeSyncRequests(gctx, syncWorker.HandleSyncRequest)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Sync worker stopped", "error", err)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
