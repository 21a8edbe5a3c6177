package task

import (
	"context"
	"time"
)

// Repository defines the storage interface for tasks.
type Repository interface {
	// CreateTask adds a new task to the repository.
	CreateTask(ctx context.Context, task *Task) error

	// GetTask retrieves a task by ID. Returns ErrTaskNotFound if missing.
	GetTask(ctx context.Context, id int64) (*Task, error)

	// ListTasks returns all tasks, scheduled or not.
	ListTasks(ctx context.Context) ([]*Task, error)

	// ListScheduledBetween returns incomplete tasks whose slot intersects
	// [from, to).
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*Task, error)

	// ListUnscheduled returns incomplete tasks with no committed slot.
	ListUnscheduled(ctx context.Context) ([]*Task, error)

	// ListOverdue returns incomplete tasks whose slot ended before now.
	ListOverdue(ctx context.Context, now time.Time) ([]*Task, error)

	// UpdateSchedule commits a time slot and cleaned title in one write.
	// Returns the updated task.
	UpdateSchedule(ctx context.Context, id int64, start, end time.Time, title string) (*Task, error)

	// ClearSchedule removes a task's committed slot.
	ClearSchedule(ctx context.Context, id int64) error

	// CompleteTask marks a task as done at the given time.
	CompleteTask(ctx context.Context, id int64, at time.Time) error

	// Close releases any resources held by the repository.
	Close() error
}
