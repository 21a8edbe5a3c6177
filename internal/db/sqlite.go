// Package db provides SQLite storage implementation.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/afuentes/agendo/internal/task"
)

// SQLite implements task.Repository using SQLite.
type SQLite struct {
	db *sql.DB
}

// New creates a new SQLite repository and runs migrations.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

const taskColumns = `id, title, notes, start_time, end_time, completed_at, created_at`

// CreateTask adds a new task to the repository.
func (s *SQLite) CreateTask(ctx context.Context, t *task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (title, notes, start_time, end_time, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		t.Title,
		t.Notes,
		formatTime(t.StartTime),
		formatTime(t.EndTime),
		formatTime(t.CompletedAt),
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	t.ID = id

	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLite) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

// ListTasks returns all tasks ordered by creation.
func (s *SQLite) ListTasks(ctx context.Context) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at, id`
	return s.queryTasks(ctx, query)
}

// ListScheduledBetween returns incomplete tasks whose slot intersects
// [from, to). Timestamps are stored in UTC RFC3339, so lexicographic
// comparison is chronological.
func (s *SQLite) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*task.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE completed_at IS NULL
		  AND start_time IS NOT NULL
		  AND start_time < ?
		  AND end_time > ?
		ORDER BY start_time
	`
	return s.queryTasks(ctx, query,
		to.UTC().Format(time.RFC3339),
		from.UTC().Format(time.RFC3339),
	)
}

// ListUnscheduled returns incomplete tasks with no committed slot.
func (s *SQLite) ListUnscheduled(ctx context.Context) ([]*task.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE completed_at IS NULL AND start_time IS NULL
		ORDER BY created_at, id
	`
	return s.queryTasks(ctx, query)
}

// ListOverdue returns incomplete tasks whose slot ended before now.
func (s *SQLite) ListOverdue(ctx context.Context, now time.Time) ([]*task.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE completed_at IS NULL
		  AND end_time IS NOT NULL
		  AND end_time < ?
		ORDER BY end_time
	`
	return s.queryTasks(ctx, query, now.UTC().Format(time.RFC3339))
}

// UpdateSchedule commits a time slot and cleaned title in one write.
func (s *SQLite) UpdateSchedule(ctx context.Context, id int64, start, end time.Time, title string) (*task.Task, error) {
	if title == "" {
		return nil, task.ErrEmptyTitle
	}
	if !end.After(start) {
		return nil, task.ErrEndBeforeStart
	}

	query := `UPDATE tasks SET start_time = ?, end_time = ?, title = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		title,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task schedule: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, task.ErrTaskNotFound
	}

	return s.GetTask(ctx, id)
}

// ClearSchedule removes a task's committed slot.
func (s *SQLite) ClearSchedule(ctx context.Context, id int64) error {
	query := `UPDATE tasks SET start_time = NULL, end_time = NULL WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clearing task schedule: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

// CompleteTask marks a task as done at the given time.
func (s *SQLite) CompleteTask(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE tasks SET completed_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("completing task: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	var (
		t           task.Task
		startTime   sql.NullString
		endTime     sql.NullString
		completedAt sql.NullString
		createdAt   string
	)

	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Notes,
		&startTime,
		&endTime,
		&completedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if t.StartTime, err = parseNullTime(startTime); err != nil {
		return nil, fmt.Errorf("parsing start time: %w", err)
	}
	if t.EndTime, err = parseNullTime(endTime); err != nil {
		return nil, fmt.Errorf("parsing end time: %w", err)
	}
	if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parsing completed time: %w", err)
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created time: %w", err)
	}

	return &t, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
