package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"spendlens/internal/amqp"
	"spendlens/internal/core"
)

// RunStore persists run summaries.
type RunStore interface {
	RecordRun(ctx context.Context, run core.RunSummary) error
}

// RunConsumer delivers queued run messages to a handler until it fails or
// ctx ends.
type RunConsumer interface {
	ConsumeRuns(ctx context.Context, handler amqp.RunHandler) error
}

// RunWorker moves run summaries from the queue into the run store.
type RunWorker struct {
	consumer RunConsumer
	store    RunStore
	logger   *slog.Logger

	// maxRetryInterval caps the wait between consumer restarts.
	maxRetryInterval time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

func NewRunWorker(consumer RunConsumer, store RunStore, logger *slog.Logger) *RunWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunWorker{
		consumer:         consumer,
		store:            store,
		logger:           logger,
		maxRetryInterval: 30 * time.Second,
	}
}

// HandleRunMessage validates and stores one message.
func (w *RunWorker) HandleRunMessage(ctx context.Context, msg *amqp.RunMessage) error {
	run := msg.Summary()
	if err := run.Validate(); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("invalid run %q: %w", msg.ID, err)
	}
	if err := w.store.RecordRun(ctx, run); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("store run %s: %w", run.ID, err)
	}

	w.processed.Add(1)
	topCategory := ""
	if top := run.TopCategories(); len(top) > 0 {
		topCategory = top[0].Name
	}
	w.logger.InfoContext(ctx, "Run stored",
		"run_id", run.ID,
		"endpoint", run.Endpoint,
		"rows_in", run.RowsIn,
		"rows_out", run.RowsOut,
		"dropped", run.Dropped(),
		"top_category", topCategory,
		"lag_ms", time.Since(msg.PublishedAt).Milliseconds())
	return nil
}

// Run consumes until ctx is cancelled, restarting the consumer with
// exponential backoff whenever it stops with an error.
func (w *RunWorker) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(time.Second, w.maxRetryInterval)
	b.MaxInterval = w.maxRetryInterval
	b.MaxElapsedTime = 0

	for {
		started := time.Now()
		err := w.consumer.ConsumeRuns(ctx, w.HandleRunMessage)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("consumer stopped")
		}
		// a consumer that ran for a while is healthy again
		if time.Since(started) > w.maxRetryInterval {
			b.Reset()
		}

		wait := b.NextBackOff()
		w.logger.WarnContext(ctx, "Run consumer stopped, restarting", "error", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// Stats returns how many messages were stored and how many failed.
func (w *RunWorker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}
