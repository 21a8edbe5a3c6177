// Package task defines the core domain types for agendo.
package task

import (
	"errors"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrEmptyTitle     = errors.New("title cannot be empty")
	ErrEndBeforeStart = errors.New("end time must be after start time")
	ErrUnpairedTimes  = errors.New("start and end time must be set together")
)

// Domain errors.
var (
	ErrTaskNotFound = errors.New("task not found")
)

// Task represents a single to-do item. StartTime and EndTime are set as a
// pair when the task is scheduled; both nil means unscheduled.
type Task struct {
	ID          int64
	Title       string
	Notes       string
	StartTime   *time.Time
	EndTime     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// New creates a new unscheduled Task with validation.
func New(title, notes string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	return &Task{
		Title:     title,
		Notes:     notes,
		CreatedAt: time.Now(),
	}, nil
}

// Validate checks the time pair invariant.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if (t.StartTime == nil) != (t.EndTime == nil) {
		return ErrUnpairedTimes
	}
	if t.StartTime != nil && !t.EndTime.After(*t.StartTime) {
		return ErrEndBeforeStart
	}
	return nil
}

// Scheduled returns true if the task has a committed time slot.
func (t *Task) Scheduled() bool {
	return t.StartTime != nil && t.EndTime != nil
}

// Completed returns true if the task has been marked done.
func (t *Task) Completed() bool {
	return t.CompletedAt != nil
}

// Duration returns the scheduled duration in minutes, or 0 if unscheduled
// or the time pair is malformed.
func (t *Task) Duration() int {
	if !t.Scheduled() {
		return 0
	}
	d := t.EndTime.Sub(*t.StartTime)
	if d <= 0 {
		return 0
	}
	return int(d.Minutes())
}

// Overdue returns true if the task is scheduled, not completed, and its
// slot ended before now.
func (t *Task) Overdue(now time.Time) bool {
	if t.Completed() || !t.Scheduled() {
		return false
	}
	return t.EndTime.Before(now)
}

// Overlaps returns true if both tasks are scheduled and their slots share
// any time. Slots are half-open: [start, end).
func (t *Task) Overlaps(other *Task) bool {
	if other == nil || !t.Scheduled() || !other.Scheduled() {
		return false
	}
	return t.StartTime.Before(*other.EndTime) && other.StartTime.Before(*t.EndTime)
}
