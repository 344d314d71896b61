// Package history persists run outcomes to a local SQLite database so past
// runs can be listed and inspected after the fact. Recording failures never
// fail a run; the command layer logs and moves on.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/stagehand/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// stderrExcerptCap bounds how much captured error output is kept per task.
const stderrExcerptCap = 2048

// defaultRecentLimit is how many runs List returns when the caller passes a
// non-positive limit.
const defaultRecentLimit = 20

// ErrRunNotFound is returned when no recorded run matches the requested id.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one recorded run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	TotalFiles int
	TotalTasks int
	Done       int
	Failed     int
	TimedOut   int
	Skipped    int
	Cancelled  bool
	RolledBack bool
	ExitCode   int
}

// TaskRecord is one task's recorded outcome within a run.
type TaskRecord struct {
	TaskID        string
	Group         string
	Command       string
	FileCount     int
	Status        string
	ExitCode      *int
	Duration      time.Duration
	SkipReason    string
	StderrExcerpt string
}

// Store manages the SQLite database holding run history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the history database at dbPath and
// initializes the schema. Parent directories are created for file-based
// databases; ":memory:" is supported for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so the remaining statements wait on locks instead
	// of failing when another stagehand is mid-write.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on
// lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.dbPath
}

// RecordRun writes one run and all of its task outcomes in a single
// transaction.
func (s *Store) RecordRun(ctx context.Context, startedAt time.Time, result *models.RunResult, rolledBack bool) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	counts := result.StatusCounts()
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, started_at, duration_ms, total_files, total_tasks, done, failed, timed_out, skipped, cancelled, rolled_back, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		startedAt,
		result.Duration.Milliseconds(),
		result.TotalFiles,
		len(result.Tasks),
		counts[models.StatusDone],
		counts[models.StatusFailed],
		counts[models.StatusTimedOut],
		counts[models.StatusSkipped],
		result.Cancelled,
		rolledBack,
		result.ExitCode(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_tasks
		(run_id, task_id, group_name, command, file_count, status, exit_code, duration_ms, skip_reason, stderr_excerpt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare task insert: %w", err)
	}
	defer stmt.Close()

	for i := range result.Tasks {
		task := &result.Tasks[i]

		var exitCode sql.NullInt64
		if task.ExitCode != nil {
			exitCode = sql.NullInt64{Int64: int64(*task.ExitCode), Valid: true}
		}

		excerpt := task.Stderr
		if len(excerpt) > stderrExcerptCap {
			excerpt = excerpt[:stderrExcerptCap]
		}

		if _, err := stmt.ExecContext(ctx,
			result.RunID,
			task.ID,
			task.Group,
			task.Command,
			len(task.Targets),
			task.Status.String(),
			exitCode,
			task.Duration().Milliseconds(),
			task.SkipReason,
			excerpt,
		); err != nil {
			return fmt.Errorf("insert task %s: %w", task.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run record: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first. A non-positive
// limit selects the default.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, started_at, duration_ms, total_files, total_tasks, done, failed, timed_out, skipped, cancelled, rolled_back, exit_code
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, record)
	}
	return runs, rows.Err()
}

// FindRun returns the run whose id matches exactly, or uniquely by prefix so
// short ids from the listing work.
func (s *Store) FindRun(ctx context.Context, id string) (*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, started_at, duration_ms, total_files, total_tasks, done, failed, timed_out, skipped, cancelled, rolled_back, exit_code
		FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC LIMIT 2`, id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var matches []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if record.ID == id {
			return &record, nil
		}
		matches = append(matches, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run id %q is ambiguous, give more characters", id)
	}
}

// RunTasks returns a run's task outcomes in recorded (plan) order.
func (s *Store) RunTasks(ctx context.Context, runID string) ([]TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		task_id, group_name, command, file_count, status, exit_code, duration_ms, skip_reason, stderr_excerpt
		FROM run_tasks WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var task TaskRecord
		var exitCode sql.NullInt64
		var durationMS int64
		if err := rows.Scan(
			&task.TaskID,
			&task.Group,
			&task.Command,
			&task.FileCount,
			&task.Status,
			&exitCode,
			&durationMS,
			&task.SkipReason,
			&task.StderrExcerpt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			task.ExitCode = &code
		}
		task.Duration = time.Duration(durationMS) * time.Millisecond
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// scanRun reads one runs row.
func scanRun(rows *sql.Rows) (RunRecord, error) {
	var record RunRecord
	var durationMS int64
	if err := rows.Scan(
		&record.ID,
		&record.StartedAt,
		&durationMS,
		&record.TotalFiles,
		&record.TotalTasks,
		&record.Done,
		&record.Failed,
		&record.TimedOut,
		&record.Skipped,
		&record.Cancelled,
		&record.RolledBack,
		&record.ExitCode,
	); err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	record.Duration = time.Duration(durationMS) * time.Millisecond
	return record, nil
}
