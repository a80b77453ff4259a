package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlens/internal/backend"
	"spendlens/internal/cache"
	"spendlens/internal/cli"
	apphttp "spendlens/internal/http"
	"spendlens/internal/log"
	"spendlens/internal/services"
	"spendlens/internal/statement"
)

const (
	cacheCleanupInterval  = time.Minute
	recorderCheckInterval = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout)
	cfg := cli.LoadAndValidateConfig(bootLogger, nil)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	logger.Info("Starting spendlens",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"run_recorder", cfg.RunRecorder,
		"max_upload_bytes", cfg.MaxUploadBytes,
		"cors_any_origin", cfg.AllowsAnyOrigin())

	recorderCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid recorder configuration", "error", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.AMQPConnectTimeout+5*time.Second)
	recorder, err := backend.NewFactory(logger.WithComponent(log.ComponentRecorder).Slog()).CreateRecorder(startCtx, recorderCfg)
	cancelStart()
	if err != nil {
		logger.Error("Failed to create run recorder", "error", err, "run_recorder", cfg.RunRecorder)
		os.Exit(1)
	}

	results := cache.NewLRUCache[*statement.Result](cfg.ResultCacheSize, cfg.ResultCacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	cacheManager.Register(results)
	cacheManager.StartCleanup(cacheCleanupInterval)

	svc := services.NewStatementService(
		statement.NewPipeline(statement.DefaultRules()),
		services.WithResultCache(results),
		services.WithRecorder(recorder.Recorder),
		services.WithLogger(logger.WithComponent(log.ComponentStatement)),
	)

	srv := apphttp.NewServer(svc, apphttp.Options{
		Addr:               ":" + cfg.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		Ready:              recorder.Ready,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := recorder.Cleanup(); err != nil {
			logger.Error("Run recorder cleanup error", "error", err)
		}
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		watchRecorder(ctx, logger, recorder.Ready)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}

// watchRecorder logs when the run recorder stops or resumes accepting runs.
func watchRecorder(ctx context.Context, logger *log.Logger, ready backend.ReadyFunc) {
	ticker := time.NewTicker(recorderCheckInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := ready(checkCtx)
			cancel()

			switch {
			case err != nil && healthy:
				logger.Warn("Run recorder unavailable, runs will not be recorded", "error", err)
			case err == nil && !healthy:
				logger.Info("Run recorder available again")
			}
			healthy = err == nil
		}
	}
}
