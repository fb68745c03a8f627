package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"luster/internal/config"
)

// Store is the authoritative process-wide job registry, backed by SQLite.
// It is safe for concurrent readers and writers; the HTTP handlers write
// through the dispatcher while monitor goroutines read and persist
// terminal transitions.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the jobs database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the jobs database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Create inserts a new job in the received state. The job's CreatedAt and
// UpdatedAt are assigned here. Reusing an identifier fails with
// ErrDuplicateJob.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id required")
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusReceived
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, status, original_filename, input_path, result_path,
            error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Status,
		nullableString(job.OriginalFilename),
		nullableString(job.InputPath),
		nullableString(job.ResultPath),
		nullableString(job.ErrorMessage),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job snapshot by identifier. Returns nil when unknown.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Transition applies a status change, enforcing the monotonic lifecycle
// ordering inside a transaction. resultPath is recorded only for
// completed and errMsg only for failed; the opposing field is cleared so
// the invariants in the data model hold.
func (s *Store) Transition(ctx context.Context, id string, next Status, resultPath, errMsg string) (*Job, error) {
	if _, ok := statusSet[next]; !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read current status: %w", err)
	}

	from := Status(current)
	if from == next {
		// Idempotent: concurrent monitors may both observe the artifact.
		return s.GetByID(ctx, id)
	}
	if !from.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
	}

	switch next {
	case StatusCompleted:
		errMsg = ""
	case StatusFailed:
		resultPath = ""
	default:
		resultPath = ""
		errMsg = ""
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, result_path = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		next,
		nullableString(resultPath),
		nullableString(errMsg),
		now.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return s.GetByID(ctx, id)
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided) ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: jobs.id")
}
