package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendlens/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunRepository stores run summaries in the statement_runs table.
type RunRepository struct {
	db      *sql.DB
	version uint
	logger  *slog.Logger
}

func NewRunRepository(dbPath string, logger *slog.Logger) (*RunRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("SQLite run store ready", "path", dbPath, "schema_version", version)

	return &RunRepository{db: db, version: version, logger: logger}, nil
}

func (r *RunRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *RunRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *RunRepository) SchemaVersion() uint {
	return r.version
}

// RecordRun inserts run. A run whose id is already stored is ignored, so
// redelivered queue messages do not create duplicates.
func (r *RunRepository) RecordRun(ctx context.Context, run core.RunSummary) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	categories := run.Categories
	if categories == nil {
		categories = map[string]int{}
	}
	encoded, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO statement_runs (
			id, filename, digest, endpoint, rows_in, rows_out,
			dropped_zero_debit, dropped_tax, categories, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Filename, run.Digest, run.Endpoint, run.RowsIn, run.RowsOut,
		run.DroppedZeroDebit, run.DroppedTax, string(encoded), run.DurationMs,
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		r.logger.DebugContext(ctx, "Run already stored", "run_id", run.ID)
		return nil
	}
	r.logger.DebugContext(ctx, "Run stored", "run_id", run.ID, "endpoint", run.Endpoint, "rows_out", run.RowsOut)
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]core.RunSummary, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, digest, endpoint, rows_in, rows_out,
		       dropped_zero_debit, dropped_tax, categories, duration_ms, created_at
		FROM statement_runs
		ORDER BY created_at DESC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []core.RunSummary
	for rows.Next() {
		var (
			run        core.RunSummary
			categories string
			createdAt  string
		)
		if err := rows.Scan(&run.ID, &run.Filename, &run.Digest, &run.Endpoint, &run.RowsIn, &run.RowsOut,
			&run.DroppedZeroDebit, &run.DroppedTax, &categories, &run.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(categories), &run.Categories); err != nil {
			return nil, fmt.Errorf("decode categories of run %s: %w", run.ID, err)
		}
		if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// CountRuns returns how many runs are stored.
func (r *RunRepository) CountRuns(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM statement_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
