// Package history persists a local ledger of bulk tag runs in SQLite.
// The ledger is write-behind bookkeeping for the operator ("what did I run
// last week, and how did it end") — resuming an in-flight job never reads
// it; that state round-trips through the job context codec instead.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Run state constants for the runs.state column.
const (
	StateSubmitted  = "submitted"  // job started, outcome unknown
	StateNoop       = "noop"       // nothing needed submitting
	StateReconciled = "reconciled" // terminal summary recorded
	StateDegraded   = "degraded"   // terminal summary from the fallback path
)

// Run is one row of the ledger.
type Run struct {
	ID        string // uuid assigned at submission
	CreatedAt time.Time
	Action    string
	Tag       string
	Query     string
	JobID     string // platform bulk operation ID, empty for no-op runs
	State     string
	Total     int
	Updated   int
	Failed    int
	Skipped   int
}

// Store is the SQLite-backed run ledger.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the ledger database at dbPath and
// applies pending schema migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}

	// Sole writer; avoids SQLITE_BUSY from concurrent connections.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSubmission inserts a new run row in the submitted (or noop) state.
func (s *Store) RecordSubmission(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, action, tag, query, job_id, state, total, updated, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339), run.Action, run.Tag, run.Query,
		run.JobID, run.State, run.Total, run.Updated, run.Failed, run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("history: recording submission: %w", err)
	}

	s.logger.Debug("run recorded",
		slog.String("run_id", run.ID),
		slog.String("state", run.State),
	)

	return nil
}

// RecordOutcome updates the most recent submitted run for jobID with its
// reconciled counts. Updating zero rows is not an error: a run submitted
// from another machine has no local row.
func (s *Store) RecordOutcome(ctx context.Context, jobID, state string, updated, failed, skipped int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, updated = ?, failed = ?, skipped = ?
		 WHERE id = (
			SELECT id FROM runs WHERE job_id = ? AND state = ? ORDER BY created_at DESC LIMIT 1
		 )`,
		state, updated, failed, skipped, jobID, StateSubmitted,
	)
	if err != nil {
		return fmt.Errorf("history: recording outcome: %w", err)
	}

	n, _ := res.RowsAffected() //nolint:errcheck // sqlite driver supports RowsAffected
	s.logger.Debug("outcome recorded",
		slog.String("job_id", jobID),
		slog.Int64("rows", n),
	)

	return nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, action, tag, query, job_id, state, total, updated, failed, skipped
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var (
			r         Run
			createdAt string
		)

		if err := rows.Scan(&r.ID, &createdAt, &r.Action, &r.Tag, &r.Query,
			&r.JobID, &r.State, &r.Total, &r.Updated, &r.Failed, &r.Skipped); err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}

		if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
			r.CreatedAt = t
		}

		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating runs: %w", err)
	}

	return runs, nil
}
