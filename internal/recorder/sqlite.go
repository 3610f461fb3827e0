package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"MarketPulse/internal/model"
)

// SQLiteRecorder persists ingest history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so that dashboards can read while an ingest job writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingest_jobs (
			job_id        TEXT PRIMARY KEY,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER,
			status        TEXT NOT NULL,
			total         INTEGER,
			succeeded     INTEGER,
			failed        INTEGER,
			log_path      TEXT,
			progress_path TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_jobs_started ON ingest_jobs(started_at)`,

		`CREATE TABLE IF NOT EXISTS ingest_symbols (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			rows      INTEGER,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_symbols_job ON ingest_symbols(job_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordIngestJob inserts or updates a job row keyed by its id.
func (r *SQLiteRecorder) RecordIngestJob(job *model.IngestJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished sql.NullInt64
	if !job.FinishedAt.IsZero() {
		finished = sql.NullInt64{Int64: job.FinishedAt.Unix(), Valid: true}
	}
	_, err := r.db.Exec(`INSERT INTO ingest_jobs
		(job_id, started_at, finished_at, status, total, succeeded, failed, log_path, progress_path)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(job_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status      = excluded.status,
			total       = excluded.total,
			succeeded   = excluded.succeeded,
			failed      = excluded.failed`,
		job.ID, job.StartedAt.Unix(), finished, string(job.Status),
		job.Total, job.Succeeded, job.Failed, job.LogPath, job.ProgressPath,
	)
	return err
}

func (r *SQLiteRecorder) RecordSymbolResult(res *SymbolResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := res.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO ingest_symbols
		(job_id, timestamp, symbol, rows, error)
		VALUES (?,?,?,?,?)`,
		res.JobID, at.Unix(), res.Symbol, res.Rows, res.Err,
	)
	return err
}

// RecentIngestJobs returns up to limit jobs, most recently started first.
func (r *SQLiteRecorder) RecentIngestJobs(limit int) ([]model.IngestJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT job_id, started_at, finished_at, status, total, succeeded, failed,
		log_path, progress_path
		FROM ingest_jobs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingest jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.IngestJob
	for rows.Next() {
		var (
			j        model.IngestJob
			started  int64
			finished sql.NullInt64
			status   string
		)
		if err := rows.Scan(&j.ID, &started, &finished, &status, &j.Total, &j.Succeeded, &j.Failed,
			&j.LogPath, &j.ProgressPath); err != nil {
			return nil, fmt.Errorf("scan ingest job: %w", err)
		}
		j.StartedAt = time.Unix(started, 0).UTC()
		if finished.Valid {
			j.FinishedAt = time.Unix(finished.Int64, 0).UTC()
		}
		j.Status = model.IngestStatus(status)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
