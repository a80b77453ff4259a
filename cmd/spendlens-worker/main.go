package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlens/internal/amqp"
	"spendlens/internal/cli"
	"spendlens/internal/config"
	"spendlens/internal/log"
	"spendlens/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout)
	cfg := cli.LoadAndValidateConfig(bootLogger, (*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout).WithComponent(log.ComponentWorker)

	logger.Info("Starting spendlens-worker",
		log.FieldOperation, log.OpStartup,
		"queue", cfg.AMQPQueue,
		"db_path", cfg.SQLiteDBPath)

	store, err := cli.OpenRunStore(logger, cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open run store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Run store ready", "schema_version", store.SchemaVersion())

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), cfg.AMQPConnectTimeout+5*time.Second)
	client, err := amqp.NewClient(connectCtx, amqp.Config{
		URL:            cfg.AMQPURL,
		Exchange:       cfg.AMQPExchange,
		Queue:          cfg.AMQPQueue,
		ConnectTimeout: cfg.AMQPConnectTimeout,
	}, logger.WithComponent(log.ComponentAMQP).Slog())
	cancelConnect()
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	runWorker := worker.NewRunWorker(client, store, logger.Slog())

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runWorker.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				processed, failed := runWorker.Stats()
				stored, err := store.CountRuns(ctx)
				if err != nil {
					logger.Warn("Failed to count stored runs", "error", err)
				}
				logger.Info("Worker stats", "processed", processed, "failed", failed, "stored_runs", stored)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	<-done

	processed, failed := runWorker.Stats()
	logger.Info("Worker stopped gracefully", "processed", processed, "failed", failed)
}
