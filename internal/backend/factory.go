package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendlens/internal/amqp"
	"spendlens/internal/storage"
)

// DefaultFactory builds the recorders backed by internal/storage and
// internal/amqp.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateRecorder(ctx context.Context, config Config) (*RecorderResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case NoneRecorder:
		f.logger.Info("Run recording disabled")
		return &RecorderResult{
			Recorder: Discard{},
			Ready:    func(context.Context) error { return nil },
			Cleanup:  func() error { return nil },
		}, nil
	case SQLiteRecorder:
		return f.createSQLiteRecorder(config)
	case AMQPRecorder:
		return f.createAMQPRecorder(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported run recorder: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteRecorder(config Config) (*RecorderResult, error) {
	repo, err := storage.NewRunRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite run store: %w", err)
	}

	f.logger.Info("Recording runs to SQLite", "db_path", config.SQLiteDBPath)

	return &RecorderResult{
		Recorder: repo,
		Ready:    repo.Ping,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createAMQPRecorder(ctx context.Context, config Config) (*RecorderResult, error) {
	client, err := amqp.NewClient(ctx, amqp.Config{
		URL:            config.AMQPURL,
		Exchange:       config.AMQPExchange,
		Queue:          config.AMQPQueue,
		ConnectTimeout: config.AMQPConnectTimeout,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}

	f.logger.Info("Publishing runs to AMQP", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)

	return &RecorderResult{
		Recorder: client,
		Ready: func(context.Context) error {
			if !client.Healthy() {
				return fmt.Errorf("AMQP connection is closed")
			}
			return nil
		},
		Cleanup: client.Close,
	}, nil
}
