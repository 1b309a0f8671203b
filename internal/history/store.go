// Package history records query runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Status is the lifecycle status of a recorded run.
type Status string

// Run statuses.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguousID is returned by FindRun when a prefix matches several runs.
var ErrAmbiguousID = errors.New("run id prefix is ambiguous")

// Run is one query execution against an endpoint.
type Run struct {
	ID          string
	Endpoint    string
	Query       string
	Status      Status
	Error       string
	ResultBytes int
	StartedAt   time.Time
	CompletedAt *time.Time
	Duration    time.Duration
}

// Store persists runs.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates a store that logs to logger. A nil logger discards.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the database at path and applies migrations.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create history directory: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping history database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.logger.Debug("history opened", slog.String("path", path))
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun records a new running query.
func (s *Store) StartRun(ctx context.Context, endpoint, query string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        uuid.New().String(),
		Endpoint:  endpoint,
		Query:     query,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, endpoint, query, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Endpoint, run.Query, string(run.Status), run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// CompleteRun marks a run as finished. A non-empty errMsg marks it failed.
func (s *Store) CompleteRun(ctx context.Context, id, errMsg string, resultBytes int, duration time.Duration) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	status := StatusSucceeded
	var errVal sql.NullString
	if errMsg != "" {
		status = StatusFailed
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, result_bytes = ?, completed_at = ?, duration_ms = ? WHERE id = ?`,
		string(status), errVal, resultBytes, time.Now().UTC().UnixMilli(), duration.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, endpoint, query, status, error, result_bytes, started_at, completed_at, duration_ms
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// FindRun retrieves a run by its full id or a unique id prefix, as shown
// in abbreviated listings.
func (s *Store) FindRun(ctx context.Context, idPrefix string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if idPrefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(idPrefix), idPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idPrefix)
	case 1:
		return s.GetRun(ctx, ids[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, idPrefix)
	}
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run. A non-empty endpoint filters by endpoint name.
func (s *Store) ListRuns(ctx context.Context, endpoint string, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, endpoint, query, status, error, result_bytes, started_at, completed_at, duration_ms
		 FROM runs
		 WHERE ? = '' OR endpoint = ?
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`, endpoint, endpoint, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune deletes all but the keep most recent runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run         Run
		status      string
		errMsg      sql.NullString
		startedAt   int64
		completedAt sql.NullInt64
		durationMs  int64
	)
	if err := sc.Scan(&run.ID, &run.Endpoint, &run.Query, &status, &errMsg,
		&run.ResultBytes, &startedAt, &completedAt, &durationMs); err != nil {
		return nil, err
	}

	run.Status = Status(status)
	run.Error = errMsg.String
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		run.CompletedAt = &t
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}
