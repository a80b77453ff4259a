package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"spendlens/internal/cache"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/statement"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	recordTimeout = 5 * time.Second
)

// RunRecorder receives a summary of every categorization run. Implementations
// live in internal/storage and internal/amqp.
type RunRecorder interface {
	RecordRun(ctx context.Context, run core.RunSummary) error
}

// Upload is one uploaded statement file.
type Upload struct {
	Filename string
	Data     []byte
	Endpoint string
}

// Categorized is the pipeline output for one upload.
type Categorized struct {
	RunID    string
	Digest   string
	CacheHit bool
	*statement.Result
}

// Page is the paginated response of the upload endpoint.
type Page struct {
	Transactions    []statement.Record `json:"transactions"`
	CategorySummary []statement.Record `json:"category_summary"`
	Total           int                `json:"total"`
	Limit           int                `json:"limit"`
	Offset          int                `json:"offset"`
}

// ViewFunc is an aggregation over a categorized table.
type ViewFunc func(*statement.Table, statement.Capabilities) []statement.Record

// Metrics are process-lifetime counters.
type Metrics struct {
	Runs        int64
	Failures    int64
	RowsIn      int64
	RowsOut     int64
	RecordFails int64
	Cache       cache.Stats
}

// StatementService parses uploads, runs the categorization pipeline and
// reports each run to a RunRecorder. Identical uploads are served from an LRU
// keyed by content digest.
type StatementService struct {
	pipeline *statement.Pipeline
	results  cache.Cache[*statement.Result]
	recorder RunRecorder
	logger   *log.Logger
	events   *log.StructuredLogger
	now      func() time.Time
	newID    func() string

	runs        atomic.Int64
	failures    atomic.Int64
	rowsIn      atomic.Int64
	rowsOut     atomic.Int64
	recordFails atomic.Int64
}

type ServiceOption func(*StatementService)

func WithResultCache(c cache.Cache[*statement.Result]) ServiceOption {
	return func(s *StatementService) { s.results = c }
}

func WithRecorder(r RunRecorder) ServiceOption {
	return func(s *StatementService) { s.recorder = r }
}

func WithLogger(l *log.Logger) ServiceOption {
	return func(s *StatementService) { s.logger = l }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *StatementService) { s.now = now }
}

func NewStatementService(pipeline *statement.Pipeline, opts ...ServiceOption) *StatementService {
	s := &StatementService{
		pipeline: pipeline,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentStatement)
	}
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// Categorize parses and categorizes one upload.
func (s *StatementService) Categorize(ctx context.Context, up Upload) (*Categorized, error) {
	start := s.now()
	if len(up.Data) == 0 {
		s.failures.Add(1)
		return nil, statement.ErrEmptyUpload
	}

	sum := sha256.Sum256(up.Data)
	digest := hex.EncodeToString(sum[:])

	res, hit := s.lookup(digest)
	if !hit {
		table, err := statement.ReadCSV(bytes.NewReader(up.Data))
		if err != nil {
			s.failures.Add(1)
			return nil, fmt.Errorf("read %q: %w", up.Filename, err)
		}
		r := s.pipeline.Run(table)
		res = &r
		if s.results != nil {
			s.results.Set(digest, res)
		}
	}

	out := &Categorized{
		RunID:    s.newID(),
		Digest:   digest,
		CacheHit: hit,
		Result:   res,
	}
	duration := s.now().Sub(start)

	s.runs.Add(1)
	s.rowsIn.Add(int64(res.RowsIn))
	s.rowsOut.Add(int64(res.RowsOut()))

	s.events.LogRunCompleted(ctx, out.RunID, up.Endpoint, res.RowsIn, res.RowsOut(),
		res.DroppedZeroDebit, res.DroppedTax, duration.Milliseconds(), hit)
	s.logger.DebugContext(ctx, "Engine pass",
		log.FieldRunID, out.RunID,
		"preassigned", res.Stats.Preassigned,
		"by_rule", res.Stats.ByRule,
		"by_fallback", res.Stats.ByFallback,
		"defaulted", res.Stats.Defaulted)

	s.record(ctx, core.RunSummary{
		ID:               out.RunID,
		Filename:         up.Filename,
		Digest:           digest,
		Endpoint:         up.Endpoint,
		RowsIn:           res.RowsIn,
		RowsOut:          res.RowsOut(),
		DroppedZeroDebit: res.DroppedZeroDebit,
		DroppedTax:       res.DroppedTax,
		Categories:       res.CategoryCounts(),
		DurationMs:       duration.Milliseconds(),
		CreatedAt:        start.UTC(),
	})
	return out, nil
}

// Aggregate categorizes an upload and applies view to the result.
func (s *StatementService) Aggregate(ctx context.Context, up Upload, view ViewFunc) ([]statement.Record, error) {
	c, err := s.Categorize(ctx, up)
	if err != nil {
		return nil, err
	}
	return view(c.Table, c.Capabilities), nil
}

// Page slices the categorized table. limit and offset are clamped first.
func (s *StatementService) Page(c *Categorized, limit, offset int, summary ViewFunc) Page {
	limit, offset = ClampPage(limit, offset)
	p := Page{
		Transactions: c.Table.Slice(offset, limit).Records(),
		Total:        c.Table.Len(),
		Limit:        limit,
		Offset:       offset,
	}
	if summary != nil {
		p.CategorySummary = summary(c.Table, c.Capabilities)
	}
	if p.CategorySummary == nil {
		p.CategorySummary = []statement.Record{}
	}
	return p
}

// ClampPage forces limit into [1, MaxLimit] and offset to at least 0.
func ClampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *StatementService) Metrics() Metrics {
	m := Metrics{
		Runs:        s.runs.Load(),
		Failures:    s.failures.Load(),
		RowsIn:      s.rowsIn.Load(),
		RowsOut:     s.rowsOut.Load(),
		RecordFails: s.recordFails.Load(),
	}
	if s.results != nil {
		m.Cache = s.results.Stats()
	}
	return m
}

func (s *StatementService) lookup(digest string) (*statement.Result, bool) {
	if s.results == nil {
		return nil, false
	}
	return s.results.Get(digest)
}

// record hands the run to the recorder. Failures are logged and counted but
// never returned to the caller.
func (s *StatementService) record(ctx context.Context, run core.RunSummary) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.recorder.RecordRun(ctx, run); err != nil {
		s.recordFails.Add(1)
		s.events.LogError(ctx, "Failed to record run", err, log.OpRecord,
			log.NewFields().WithRun(run.ID, run.Endpoint, run.RowsIn, run.RowsOut, run.DroppedZeroDebit, run.DroppedTax))
	}
}
