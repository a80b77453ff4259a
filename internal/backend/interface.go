package backend

import (
	"context"
	"time"

	"spendlens/internal/core"
)

// Recorder receives run summaries. It matches services.RunRecorder.
type Recorder interface {
	RecordRun(ctx context.Context, run core.RunSummary) error
}

// CleanupFunc releases the resources behind a recorder.
type CleanupFunc func() error

// ReadyFunc reports whether the recorder can accept runs right now.
type ReadyFunc func(ctx context.Context) error

// RecorderResult is a recorder plus its lifecycle hooks. Ready and Cleanup are
// never nil.
type RecorderResult struct {
	Recorder Recorder
	Ready    ReadyFunc
	Cleanup  CleanupFunc
}

// Factory builds the run recorder selected by configuration.
type Factory interface {
	CreateRecorder(ctx context.Context, config Config) (*RecorderResult, error)
}

// Config holds what the recorder backends need.
type Config struct {
	Type RecorderType

	SQLiteDBPath string

	AMQPURL            string
	AMQPExchange       string
	AMQPQueue          string
	AMQPConnectTimeout time.Duration
}

// RecorderType names a run recorder backend.
type RecorderType string

const (
	NoneRecorder   RecorderType = "none"
	SQLiteRecorder RecorderType = "sqlite"
	AMQPRecorder   RecorderType = "amqp"
)

func (rt RecorderType) String() string {
	return string(rt)
}

func (rt RecorderType) IsValid() bool {
	switch rt {
	case NoneRecorder, SQLiteRecorder, AMQPRecorder:
		return true
	default:
		return false
	}
}

// Discard drops every run.
type Discard struct{}

func (Discard) RecordRun(context.Context, core.RunSummary) error { return nil }
