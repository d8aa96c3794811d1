package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

// SQLiteRecorder persists run summaries to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			created_at  INTEGER NOT NULL,
			fingerprint TEXT,
			dynamics    TEXT,
			seed        INTEGER,
			notional    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS estimates (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL REFERENCES runs(run_id),
			period_index INTEGER NOT NULL,
			period_start REAL,
			period_end   REAL,
			measure      TEXT,
			value        REAL,
			std_error    REAL,
			paths        INTEGER,
			analytic     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_estimates_run ON estimates(run_id)`,

		`CREATE TABLE IF NOT EXISTS diagnostics (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL REFERENCES runs(run_id),
			measure        TEXT,
			paths          INTEGER,
			accepted_paths INTEGER,
			unstable_paths INTEGER,
			batches        INTEGER,
			partial        INTEGER,
			duration_ms    INTEGER
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes the run, its per-period estimates and diagnostics in one
// transaction.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *RunSummary) (err error) {
	if run == nil || run.Comparison == nil {
		return errors.New("recorder: empty run summary")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := run.Comparison
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, created_at, fingerprint, dynamics, seed, notional)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.RunID, c.CreatedAt.Unix(), run.Fingerprint, string(c.Dynamics), c.Seed, c.Notional); err != nil {
		return fmt.Errorf("insert run %s: %w", c.RunID, err)
	}

	for _, row := range c.Rows {
		for _, e := range []struct {
			measure models.Measure
			est     *models.Estimate
		}{{models.MeasureTerminal, row.Terminal}, {models.MeasureSpot, row.Spot}} {
			if e.est == nil {
				continue
			}
			if _, err = tx.ExecContext(ctx, `INSERT INTO estimates
				(run_id, period_index, period_start, period_end, measure, value, std_error, paths, analytic)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.RunID, row.PeriodIndex, row.PeriodStart, row.PeriodEnd, string(e.measure),
				e.est.Value, e.est.StandardError, e.est.Paths, row.Analytic); err != nil {
				return fmt.Errorf("insert estimate %d/%s: %w", row.PeriodIndex, e.measure, err)
			}
		}
	}

	for _, d := range c.Diagnostics {
		partial := 0
		if d.Partial {
			partial = 1
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO diagnostics
			(run_id, measure, paths, accepted_paths, unstable_paths, batches, partial, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.RunID, string(d.Measure), d.Paths, d.AcceptedPaths, d.UnstablePaths, d.Batches, partial, d.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("insert diagnostics %s: %w", d.Measure, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug("run recorded", "run_id", c.RunID, "periods", len(c.Rows))
	return nil
}

// ListRuns returns the most recent runs first.
func (r *SQLiteRecorder) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT r.run_id, r.created_at, r.fingerprint, r.dynamics, r.seed,
			(SELECT COUNT(DISTINCT period_index) FROM estimates e WHERE e.run_id = r.run_id)
		FROM runs r ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info      RunInfo
			createdAt int64
			dynamics  string
		)
		if err := rows.Scan(&info.RunID, &createdAt, &info.Fingerprint, &dynamics, &info.Seed, &info.Periods); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		info.CreatedAt = time.Unix(createdAt, 0).UTC()
		info.Dynamics = models.Dynamics(dynamics)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
