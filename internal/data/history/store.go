// Package history persists check results in SQLite so repeated grading runs
// of a submission can be compared.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates the database file and its directory when missing. busyTimeout
// falls back to two seconds when zero.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	// WAL keeps the watch-mode writer from blocking a concurrent reader.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores the records of one run atomically. Saving a run again
// replaces the rows of checks it already has.
func (s *Store) SaveRun(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `
INSERT INTO check_results (
  run_id, submission, check_name, kind, passed, points_deducted, feedback, ts_utc
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, check_name) DO UPDATE SET
  submission=excluded.submission,
  kind=excluded.kind,
  passed=excluded.passed,
  points_deducted=excluded.points_deducted,
  feedback=excluded.feedback,
  ts_utc=excluded.ts_utc
`
	now := time.Now().UTC()
	return s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, r := range records {
			if strings.TrimSpace(r.RunID) == "" {
				_ = tx.Rollback()
				return fmt.Errorf("record %q has no run id", r.Check)
			}
			submission := strings.TrimSpace(r.Submission)
			if submission == "" {
				submission = "default"
			}
			ts := r.Timestamp
			if ts.IsZero() {
				ts = now
			}
			if _, err := tx.Exec(query,
				r.RunID,
				submission,
				r.Check,
				r.Kind,
				r.Passed,
				r.PointsDeducted,
				r.Feedback,
				ts.UTC().Format(time.RFC3339Nano),
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadRuns summarizes every run of submission since the given time, oldest
// first.
func (s *Store) LoadRuns(submission string, since time.Time) ([]RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	submission = strings.TrimSpace(submission)
	if submission == "" {
		submission = "default"
	}

	query := `
SELECT run_id, submission, MIN(ts_utc), COUNT(*),
  SUM(CASE WHEN passed THEN 0 ELSE 1 END), SUM(points_deducted)
FROM check_results
WHERE submission = ?`
	args := []any{submission}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " GROUP BY run_id, submission ORDER BY MIN(ts_utc) ASC, run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var (
			tsRaw string
			run   RunSummary
		)
		if err := rows.Scan(&run.RunID, &run.Submission, &tsRaw, &run.Checks, &run.Failed, &run.PointsDeducted); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LoadRun returns the records of one run ordered by check name.
func (s *Store) LoadRun(runID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load run", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT run_id, submission, check_name, kind, passed, points_deducted, feedback, ts_utc
FROM check_results WHERE run_id = ? ORDER BY check_name ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			tsRaw string
			r     Record
		)
		if err := rows.Scan(&r.RunID, &r.Submission, &r.Check, &r.Kind, &r.Passed, &r.PointsDeducted, &r.Feedback, &tsRaw); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse record timestamp %q: %w", tsRaw, err)
		}
		r.Timestamp = ts.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return records, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store is closed")
	}
	return s.db.PingContext(ctx)
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
