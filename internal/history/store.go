package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"shotscribe/internal/config"
	"shotscribe/internal/services"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultListLimit        = 20
	maxErrorMessageLength   = 2000

	// timeLayout is fixed width so started_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Open opens the history database configured for cfg.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "config is nil", nil)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath initializes or connects to the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Start inserts a running row. A run ID is generated when run.ID is empty.
func (s *Store) Start(ctx context.Context, run Run) (Run, error) {
	if run.Command == "" {
		return Run{}, errors.New("history: command is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Status = StatusRunning
	run.StartedAt = s.now().UTC()
	run.FinishedAt = time.Time{}

	err := s.exec(ctx,
		`INSERT INTO runs (id, command, url, cache_key, template, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Command), run.URL, run.CacheKey, run.Template,
		string(run.Status), run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("history: insert run: %w", err)
	}
	return run, nil
}

// Finish records the outcome of a started run.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	status := StatusSucceeded
	var kind, message string
	if outcome.Err != nil {
		status = StatusFailed
		kind = services.FailureKind(outcome.Err)
		message = outcome.Err.Error()
		if len(message) > maxErrorMessageLength {
			message = message[:maxErrorMessageLength]
		}
	}
	finished := s.now().UTC().Format(timeLayout)

	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, failure_kind = ?, error_message = ?, warnings = ?,
             markdown_path = ?, html_path = ?, finished_at = ? WHERE id = ?`,
			string(status), kind, message, outcome.Warnings,
			outcome.MarkdownPath, outcome.HTMLPath, finished, id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("history: finish run %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("history: run %s: %w", id, services.ErrNotFound)
	}
	return nil
}

// Get returns the run with id, or services.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("history: run %s: %w", id, services.ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("history: get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first. A non-positive limit uses 20.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, selectRuns+" ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return runs, nil
}

// Clear deletes every row and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM runs")
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("history: clear: %w", err)
	}
	return removed, nil
}

const selectRuns = `SELECT id, command, url, cache_key, template, status, failure_kind,
    error_message, warnings, markdown_path, html_path, started_at, finished_at FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run               Run
		command, status   string
		started, finished string
	)
	if err := row.Scan(
		&run.ID, &command, &run.URL, &run.CacheKey, &run.Template, &status, &run.FailureKind,
		&run.ErrorMessage, &run.Warnings, &run.MarkdownPath, &run.HTMLPath, &started, &finished,
	); err != nil {
		return Run{}, err
	}
	run.Command = Command(command)
	run.Status = Status(status)
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
