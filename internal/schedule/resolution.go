package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/afuentes/agendo/internal/task"
)

// State is the conflict-resolution workflow state of a Run.
type State string

const (
	// StateIdle means the run is not suspended: it has either completed
	// or has just resumed after a resolution.
	StateIdle State = "idle"
	// StateAwaitingResolution means a specific-time candidate conflicted
	// and the run is suspended until Resolve is called.
	StateAwaitingResolution State = "awaiting_resolution"
	// StateResolving is the transient state while a resolution applies.
	StateResolving State = "resolving"
	// StateAborted is terminal: the run ended early, either cancelled or
	// after a storage failure. Prior commits stay committed.
	StateAborted State = "aborted"
)

// Resolution is a user's answer to a scheduling conflict.
type Resolution string

const (
	// ResolveCancel discards the conflict and the rest of the batch.
	ResolveCancel Resolution = "cancel"
	// ResolveScheduleAnyway commits the task at its specified time
	// regardless of the overlap.
	ResolveScheduleAnyway Resolution = "schedule_anyway"
	// ResolveMoveMovable relocates the overlapping tasks to new slots and
	// then commits the new task at its specified time.
	ResolveMoveMovable Resolution = "move_movable_tasks"
	// ResolveReschedule gives up on the specified time and places the new
	// task at the next free slot instead.
	ResolveReschedule Resolution = "reschedule_new_task"
)

// Workflow errors.
var (
	ErrNotSuspended      = errors.New("run is not awaiting a conflict resolution")
	ErrUnknownResolution = errors.New("unknown conflict resolution")
)

// Conflict describes why a run suspended: the candidate task, its
// specified slot, and the overlapping intervals partitioned by whether
// the engine may relocate them.
type Conflict struct {
	Task       *task.Task
	CleanTitle string
	At         time.Time
	Duration   int
	Movable    []Interval
	Immovable  []Interval
}

// Run is one scheduling run: the remaining candidates, the occupied
// timeline, and the workflow state. A Run is not safe for concurrent
// use; commits are strictly sequential by design.
type Run struct {
	engine   *Engine
	log      *zap.Logger
	mode     Mode
	timeline *Timeline
	cursor   time.Time
	state    State
	conflict *Conflict

	pendingTimed    []Candidate
	pendingFlexible []Candidate

	// Scheduled holds batch tasks committed so far, Moved holds existing
	// tasks relocated by a move_movable_tasks resolution, and Skipped
	// holds batch tasks left unscheduled because no slot was found.
	Scheduled []*task.Task
	Moved     []*task.Task
	Skipped   []*task.Task
}

// State returns the workflow state.
func (r *Run) State() State {
	return r.state
}

// Conflict returns the pending conflict, or nil when not suspended.
func (r *Run) Conflict() *Conflict {
	return r.conflict
}

// Done returns true when the run has finished placing its batch.
func (r *Run) Done() bool {
	return r.state == StateAborted ||
		(r.state == StateIdle && len(r.pendingTimed) == 0 && len(r.pendingFlexible) == 0)
}

// Timeline exposes the run's occupied-interval set, primarily for tests
// and summaries.
func (r *Run) Timeline() *Timeline {
	return r.timeline
}

// advance places candidates until the batch is exhausted or a
// specific-time candidate conflicts. Specific-time candidates go first;
// flexible candidates then follow a moving cursor.
func (r *Run) advance(ctx context.Context) error {
	for len(r.pendingTimed) > 0 {
		c := r.pendingTimed[0]

		// A specified time outside business hours or inside the lunch
		// block is never honored: committed starts must stay within the
		// scheduling window. The task is placed at the nearest valid slot
		// after the requested time instead.
		if !r.engine.rules.WithinBusinessHours(c.At) || r.engine.rules.InLunch(c.At) {
			r.pendingTimed = r.pendingTimed[1:]
			r.log.Warn("specified time outside the scheduling window, relocating",
				zap.Int64("task_id", c.Task.ID),
				zap.Time("requested", c.At))
			slot, err := FindSlot(r.engine.rules, c.At, c.Duration, r.timeline)
			if errors.Is(err, ErrNoSlot) {
				r.Skipped = append(r.Skipped, c.Task)
				r.log.Warn("no slot near the specified time, leaving task unscheduled",
					zap.Int64("task_id", c.Task.ID), zap.String("title", c.CleanTitle))
				continue
			}
			if err := r.commit(ctx, c, slot.Start, slot.Minutes); err != nil {
				return err
			}
			continue
		}

		movable, immovable := Detect(c.At, c.Duration, r.timeline)
		if len(movable)+len(immovable) > 0 {
			r.conflict = &Conflict{
				Task:       c.Task,
				CleanTitle: c.CleanTitle,
				At:         c.At,
				Duration:   c.Duration,
				Movable:    movable,
				Immovable:  immovable,
			}
			r.state = StateAwaitingResolution
			r.log.Info("run suspended on conflict",
				zap.Int64("task_id", c.Task.ID),
				zap.Time("at", c.At),
				zap.Int("movable", len(movable)),
				zap.Int("immovable", len(immovable)))
			return nil
		}
		r.pendingTimed = r.pendingTimed[1:]
		if err := r.commit(ctx, c, c.At, c.Duration); err != nil {
			return err
		}
	}

	for len(r.pendingFlexible) > 0 {
		c := r.pendingFlexible[0]
		r.pendingFlexible = r.pendingFlexible[1:]

		slot, err := FindSlot(r.engine.rules, r.cursor, c.Duration, r.timeline)
		if errors.Is(err, ErrNoSlot) {
			r.Skipped = append(r.Skipped, c.Task)
			r.log.Warn("no slot within horizon, leaving task unscheduled",
				zap.Int64("task_id", c.Task.ID), zap.String("title", c.CleanTitle))
			continue
		}
		if slot.Capped(c.Duration) {
			r.log.Warn("slot capped to fit business day",
				zap.Int64("task_id", c.Task.ID),
				zap.Int("requested_minutes", c.Duration),
				zap.Int("slot_minutes", slot.Minutes))
		}
		if err := r.commit(ctx, c, slot.Start, slot.Minutes); err != nil {
			return err
		}
		r.cursor = slot.End()
	}

	r.state = StateIdle
	return nil
}

// commit writes a placement through storage and appends it to the
// timeline. A storage failure aborts the rest of the run; prior commits
// are not rolled back.
func (r *Run) commit(ctx context.Context, c Candidate, start time.Time, minutes int) error {
	end := start.Add(time.Duration(minutes) * time.Minute)
	updated, err := r.engine.repo.UpdateSchedule(ctx, c.Task.ID, start, end, c.CleanTitle)
	if err != nil {
		r.state = StateAborted
		return fmt.Errorf("committing task %d: %w", c.Task.ID, err)
	}
	r.timeline.Add(Interval{
		Start:   start,
		End:     end,
		Title:   c.CleanTitle,
		Movable: true,
		TaskID:  c.Task.ID,
	})
	r.Scheduled = append(r.Scheduled, updated)
	r.log.Info("task scheduled",
		zap.Int64("task_id", c.Task.ID),
		zap.String("title", c.CleanTitle),
		zap.Time("start", start),
		zap.Time("end", end))
	return nil
}

// Resolve applies a conflict resolution and resumes the run. It returns
// ErrNotSuspended unless the run is awaiting a resolution. After a
// successful resolution the run continues on its own and either
// completes, suspends on the next conflict, or aborts on a storage
// failure.
func (r *Run) Resolve(ctx context.Context, resolution Resolution) error {
	if r.state != StateAwaitingResolution || r.conflict == nil {
		return ErrNotSuspended
	}

	r.state = StateResolving
	conflict := r.conflict
	r.conflict = nil
	c := r.pendingTimed[0]
	r.pendingTimed = r.pendingTimed[1:]

	switch resolution {
	case ResolveCancel:
		r.pendingTimed = nil
		r.pendingFlexible = nil
		r.state = StateAborted
		r.log.Info("run cancelled at conflict", zap.Int64("task_id", c.Task.ID))
		return nil

	case ResolveScheduleAnyway:
		if err := r.commit(ctx, c, c.At, c.Duration); err != nil {
			return err
		}

	case ResolveMoveMovable:
		if err := r.moveMovable(ctx, c, conflict); err != nil {
			return err
		}

	case ResolveReschedule:
		slot, err := FindSlot(r.engine.rules, c.At, c.Duration, r.timeline)
		if errors.Is(err, ErrNoSlot) {
			r.Skipped = append(r.Skipped, c.Task)
			r.log.Warn("no alternative slot for conflicting task, leaving unscheduled",
				zap.Int64("task_id", c.Task.ID))
		} else {
			if err := r.commit(ctx, c, slot.Start, slot.Minutes); err != nil {
				return err
			}
		}

	default:
		// Restore the suspension so the caller can try again.
		r.pendingTimed = append([]Candidate{c}, r.pendingTimed...)
		r.conflict = conflict
		r.state = StateAwaitingResolution
		return fmt.Errorf("%w: %q", ErrUnknownResolution, resolution)
	}

	return r.advance(ctx)
}

// moveMovable relocates every movable conflicting task to a new slot,
// then commits the new task at its specified time. The new slot is
// reserved on the timeline first so a displaced task cannot land back on
// it.
func (r *Run) moveMovable(ctx context.Context, c Candidate, conflict *Conflict) error {
	end := c.At.Add(time.Duration(c.Duration) * time.Minute)

	for _, iv := range conflict.Movable {
		r.timeline.RemoveTask(iv.TaskID)
	}
	r.timeline.Add(Interval{
		Start:   c.At,
		End:     end,
		Title:   c.CleanTitle,
		Movable: true,
		TaskID:  c.Task.ID,
	})

	for _, iv := range conflict.Movable {
		slot, err := FindSlot(r.engine.rules, c.At, iv.Minutes(), r.timeline)
		if errors.Is(err, ErrNoSlot) {
			// Nowhere to put it: the task stays where it was. The user
			// already chose to displace it, so the new task still wins its
			// slot and the overlap is reported instead of failing the run.
			r.timeline.Add(iv)
			r.log.Warn("no slot for displaced task, leaving it in place",
				zap.Int64("task_id", iv.TaskID), zap.String("title", iv.Title))
			continue
		}

		moved, err := r.engine.repo.UpdateSchedule(ctx, iv.TaskID, slot.Start, slot.End(), iv.Title)
		if err != nil {
			r.state = StateAborted
			return fmt.Errorf("moving task %d: %w", iv.TaskID, err)
		}
		r.timeline.Add(Interval{
			Start:   slot.Start,
			End:     slot.End(),
			Title:   iv.Title,
			Movable: true,
			TaskID:  iv.TaskID,
		})
		r.Moved = append(r.Moved, moved)
		r.log.Info("task moved out of the way",
			zap.Int64("task_id", iv.TaskID),
			zap.Time("new_start", slot.Start))
	}

	// The timeline already reserves the new slot; persist the task itself.
	updated, err := r.engine.repo.UpdateSchedule(ctx, c.Task.ID, c.At, end, c.CleanTitle)
	if err != nil {
		r.state = StateAborted
		return fmt.Errorf("committing task %d: %w", c.Task.ID, err)
	}
	r.Scheduled = append(r.Scheduled, updated)
	return nil
}
