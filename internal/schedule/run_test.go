package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/afuentes/agendo/internal/calendar"
	"github.com/afuentes/agendo/internal/parse"
	"github.com/afuentes/agendo/internal/task"
)

type updateCall struct {
	id    int64
	start time.Time
	end   time.Time
	title string
}

// fakeRepo records schedule writes and serves a fixed set of existing
// scheduled tasks.
type fakeRepo struct {
	existing []*task.Task
	updates  []updateCall
	cleared  []int64
	failID   int64 // UpdateSchedule fails for this task id
}

func (f *fakeRepo) CreateTask(context.Context, *task.Task) error { return nil }

func (f *fakeRepo) GetTask(context.Context, int64) (*task.Task, error) {
	return nil, task.ErrTaskNotFound
}

func (f *fakeRepo) ListTasks(context.Context) ([]*task.Task, error) { return nil, nil }

func (f *fakeRepo) ListScheduledBetween(context.Context, time.Time, time.Time) ([]*task.Task, error) {
	return f.existing, nil
}

func (f *fakeRepo) ListUnscheduled(context.Context) ([]*task.Task, error) { return nil, nil }

func (f *fakeRepo) ListOverdue(context.Context, time.Time) ([]*task.Task, error) { return nil, nil }

func (f *fakeRepo) UpdateSchedule(_ context.Context, id int64, start, end time.Time, title string) (*task.Task, error) {
	if f.failID != 0 && id == f.failID {
		return nil, errors.New("disk full")
	}
	f.updates = append(f.updates, updateCall{id: id, start: start, end: end, title: title})
	return &task.Task{ID: id, Title: title, StartTime: &start, EndTime: &end}, nil
}

func (f *fakeRepo) ClearSchedule(_ context.Context, id int64) error {
	f.cleared = append(f.cleared, id)
	return nil
}

func (f *fakeRepo) CompleteTask(context.Context, int64, time.Time) error { return nil }

func (f *fakeRepo) Close() error { return nil }

type fakeEvents struct {
	events []calendar.Event
	err    error
}

func (f *fakeEvents) Events(context.Context, time.Time, time.Time) ([]calendar.Event, error) {
	return f.events, f.err
}

type fakeEstimator struct{ minutes int }

func (f *fakeEstimator) Estimate(context.Context, string, string) int { return f.minutes }

type failingParser struct{}

func (failingParser) Parse(string, time.Time) (parse.Result, error) {
	return parse.Result{}, errors.New("parser exploded")
}

func newTestEngine(repo task.Repository, events EventSource, est DurationEstimator) *Engine {
	return NewEngine(repo, parse.New(), est, events, DefaultRules(), zap.NewNop())
}

func newTask(id int64, title string) *task.Task {
	return &task.Task{ID: id, Title: title, CreatedAt: monday(8, 0)}
}

func scheduledTask(id int64, title string, start, end time.Time) *task.Task {
	return &task.Task{ID: id, Title: title, StartTime: &start, EndTime: &end}
}

func TestRunBatch_PlacesFlexibleSequentially(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Write report"), newTask(2, "Review design")},
		ModeToday, monday(9, 0))
	require.NoError(t, err)

	assert.True(t, run.Done())
	assert.Equal(t, StateIdle, run.State())
	require.Len(t, repo.updates, 2)

	assert.Equal(t, monday(9, 0), repo.updates[0].start)
	assert.Equal(t, monday(9, 30), repo.updates[0].end)
	assert.Equal(t, monday(9, 30), repo.updates[1].start)
	assert.Equal(t, monday(10, 0), repo.updates[1].end)
	assert.Len(t, run.Scheduled, 2)
}

func TestRunBatch_TimedAndEmailTasksGoFirst(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{
			newTask(1, "Write report"),
			newTask(2, "Reply to emails"),
			newTask(3, "Standup at 11am"),
		},
		ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.True(t, run.Done())
	require.Len(t, repo.updates, 3)

	// The specific-time task commits first, then the quick email task,
	// then the remaining flexible work.
	assert.Equal(t, int64(3), repo.updates[0].id)
	assert.Equal(t, monday(11, 0), repo.updates[0].start)
	assert.Equal(t, "Standup", repo.updates[0].title)

	assert.Equal(t, int64(2), repo.updates[1].id)
	assert.Equal(t, monday(9, 0), repo.updates[1].start)
	assert.Equal(t, monday(9, 15), repo.updates[1].end)

	assert.Equal(t, int64(1), repo.updates[2].id)
	assert.Equal(t, monday(9, 15), repo.updates[2].start)
}

func TestRunBatch_UsesEstimatorForUnhintedTasks(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, &fakeEstimator{minutes: 50})

	_, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Refactor importer")}, ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.Len(t, repo.updates, 1)

	// 50 minutes rounds up to the next slot boundary.
	assert.Equal(t, monday(10, 0), repo.updates[0].end)
}

func TestRunBatch_ExplicitDurationBeatsEstimator(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, &fakeEstimator{minutes: 240})

	_, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Refactor importer for 45m")}, ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, monday(9, 45), repo.updates[0].end)
	assert.Equal(t, "Refactor importer", repo.updates[0].title)
}

func TestRunBatch_ParserFailureFallsBackToRawTitle(t *testing.T) {
	repo := &fakeRepo{}
	engine := NewEngine(repo, failingParser{}, nil, nil, DefaultRules(), zap.NewNop())

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Ship it at 10am")}, ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.True(t, run.Done())
	require.Len(t, repo.updates, 1)

	// No hints survive a parser failure: the task is flexible and keeps
	// its raw title.
	assert.Equal(t, "Ship it at 10am", repo.updates[0].title)
	assert.Equal(t, monday(9, 0), repo.updates[0].start)
}

func TestRunBatch_SpecifiedTimeRoundsToSlotBoundary(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Sync at 10:10am")}, ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.True(t, run.Done())
	require.Len(t, repo.updates, 1)

	assert.Equal(t, monday(10, 15), repo.updates[0].start)
	assert.Zero(t, repo.updates[0].start.Minute()%SlotMinutes)
}

func TestRunBatch_SpecifiedTimeInLunchRelocates(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Call dentist at 12:45pm")}, ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.True(t, run.Done())
	require.Len(t, repo.updates, 1)

	// A requested start inside the lunch block is never honored; the task
	// lands at the first valid slot after it.
	assert.Equal(t, monday(13, 30), repo.updates[0].start)
	assert.False(t, DefaultRules().InLunch(repo.updates[0].start))
}

func TestRunBatch_SpecifiedTimeOutsideHoursRelocates(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Check pipeline at 7am")}, ModeToday, monday(6, 0))
	require.NoError(t, err)
	require.True(t, run.Done())
	require.Len(t, repo.updates, 1)

	assert.Equal(t, monday(9, 0), repo.updates[0].start)
	assert.True(t, DefaultRules().WithinBusinessHours(repo.updates[0].start))
}

func TestRunBatch_TomorrowStartsAtNextBusinessDay(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, nil)

	_, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Write report")}, ModeTomorrow, monday(10, 0))
	require.NoError(t, err)
	require.Len(t, repo.updates, 1)

	tuesday := time.Date(2025, 1, 7, 9, 0, 0, 0, time.Local)
	assert.Equal(t, tuesday, repo.updates[0].start)
}

func TestRunBatch_OverduePreservesDurationAndClearsSlot(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, nil)

	friday := time.Date(2025, 1, 3, 0, 0, 0, 0, time.Local)
	overdue := scheduledTask(9, "Quarterly review",
		friday.Add(10*time.Hour), friday.Add(11*time.Hour))

	_, err := engine.RunBatch(context.Background(),
		[]*task.Task{overdue}, ModeOverdue, monday(9, 0))
	require.NoError(t, err)

	assert.Equal(t, []int64{9}, repo.cleared)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, monday(9, 0), repo.updates[0].start)
	assert.Equal(t, monday(10, 0), repo.updates[0].end, "original 60-minute duration is kept")
}

func TestRunBatch_CalendarFetchFailureAbortsBeforeAnyCommit(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, &fakeEvents{err: errors.New("upstream 503")}, nil)

	_, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Write report")}, ModeToday, monday(9, 0))
	require.Error(t, err)
	assert.Empty(t, repo.updates)
}

func TestRunBatch_CalendarEventsAreObstacles(t *testing.T) {
	repo := &fakeRepo{}
	events := &fakeEvents{events: []calendar.Event{
		{Title: "All hands", Start: monday(9, 0), End: monday(10, 30)},
	}}
	engine := newTestEngine(repo, events, nil)

	_, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Write report")}, ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, monday(10, 30), repo.updates[0].start)
}

func TestRunBatch_SkipsTaskWhenHorizonExhausted(t *testing.T) {
	var blocked []calendar.Event
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.Local)
	for i := 0; i < HorizonDays+2; i++ {
		d := day.AddDate(0, 0, i)
		blocked = append(blocked, calendar.Event{
			Title: "offsite",
			Start: time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, time.Local),
			End:   time.Date(d.Year(), d.Month(), d.Day(), 17, 0, 0, 0, time.Local),
		})
	}

	repo := &fakeRepo{}
	engine := newTestEngine(repo, &fakeEvents{events: blocked}, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Write report")}, ModeToday, monday(9, 0))
	require.NoError(t, err)

	assert.True(t, run.Done())
	assert.Empty(t, repo.updates)
	require.Len(t, run.Skipped, 1)
	assert.Equal(t, int64(1), run.Skipped[0].ID)
}

func TestRunBatch_StorageFailureAbortsRun(t *testing.T) {
	repo := &fakeRepo{failID: 1}
	engine := newTestEngine(repo, nil, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Write report"), newTask(2, "Review design")},
		ModeToday, monday(9, 0))
	require.Error(t, err)
	require.NotNil(t, run)

	assert.Equal(t, StateAborted, run.State())
	assert.True(t, run.Done())
	assert.Empty(t, repo.updates, "no further commits after the failure")
}

func TestRunBatch_SuspendsOnTimedConflict(t *testing.T) {
	repo := &fakeRepo{existing: []*task.Task{
		scheduledTask(50, "Deep work", monday(10, 0), monday(10, 30)),
	}}
	engine := newTestEngine(repo, nil, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Call with Ana at 10am")}, ModeToday, monday(9, 0))
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingResolution, run.State())
	assert.False(t, run.Done())
	require.NotNil(t, run.Conflict())
	assert.Equal(t, monday(10, 0), run.Conflict().At)
	require.Len(t, run.Conflict().Movable, 1)
	assert.Equal(t, int64(50), run.Conflict().Movable[0].TaskID)
	assert.Empty(t, run.Conflict().Immovable)
	assert.Empty(t, repo.updates, "nothing commits while suspended")
}

func TestResolve_RequiresSuspendedRun(t *testing.T) {
	repo := &fakeRepo{}
	engine := newTestEngine(repo, nil, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{newTask(1, "Write report")}, ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.True(t, run.Done())

	err = run.Resolve(context.Background(), ResolveCancel)
	assert.ErrorIs(t, err, ErrNotSuspended)
}

func suspendedRun(t *testing.T, repo *fakeRepo, events EventSource) *Run {
	t.Helper()
	engine := newTestEngine(repo, events, nil)
	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{
			newTask(1, "Call with Ana at 10am"),
			newTask(2, "Write report"),
		},
		ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.Equal(t, StateAwaitingResolution, run.State())
	return run
}

func TestResolve_CancelAbortsRemainingBatch(t *testing.T) {
	repo := &fakeRepo{existing: []*task.Task{
		scheduledTask(50, "Deep work", monday(10, 0), monday(10, 30)),
	}}
	run := suspendedRun(t, repo, nil)

	require.NoError(t, run.Resolve(context.Background(), ResolveCancel))

	assert.Equal(t, StateAborted, run.State())
	assert.True(t, run.Done())
	assert.Empty(t, repo.updates, "cancel drops the conflicting task and the rest of the batch")
}

func TestResolve_ScheduleAnywayCommitsDespiteOverlap(t *testing.T) {
	repo := &fakeRepo{existing: []*task.Task{
		scheduledTask(50, "Deep work", monday(10, 0), monday(10, 30)),
	}}
	run := suspendedRun(t, repo, nil)

	require.NoError(t, run.Resolve(context.Background(), ResolveScheduleAnyway))

	assert.Equal(t, StateIdle, run.State())
	assert.True(t, run.Done())
	require.Len(t, repo.updates, 2)
	assert.Equal(t, int64(1), repo.updates[0].id)
	assert.Equal(t, monday(10, 0), repo.updates[0].start)
	// The flexible task still avoids both occupied intervals.
	assert.Equal(t, int64(2), repo.updates[1].id)
	assert.Equal(t, monday(9, 0), repo.updates[1].start)
}

func TestResolve_RescheduleFindsNextFreeSlot(t *testing.T) {
	repo := &fakeRepo{existing: []*task.Task{
		scheduledTask(50, "Deep work", monday(10, 0), monday(10, 30)),
	}}
	run := suspendedRun(t, repo, nil)

	require.NoError(t, run.Resolve(context.Background(), ResolveReschedule))
	require.True(t, run.Done())

	require.Len(t, repo.updates, 2)
	assert.Equal(t, int64(1), repo.updates[0].id)
	assert.Equal(t, monday(10, 30), repo.updates[0].start, "next free slot after the occupied one")
}

func TestResolve_MoveMovableRelocatesConflictingTask(t *testing.T) {
	repo := &fakeRepo{existing: []*task.Task{
		scheduledTask(50, "Deep work", monday(10, 0), monday(10, 30)),
	}}
	events := &fakeEvents{events: []calendar.Event{
		{Title: "Dentist", Start: monday(10, 15), End: monday(10, 45)},
	}}
	run := suspendedRun(t, repo, events)

	// One movable task and one immovable event overlap the requested slot.
	require.Len(t, run.Conflict().Movable, 1)
	require.Len(t, run.Conflict().Immovable, 1)

	require.NoError(t, run.Resolve(context.Background(), ResolveMoveMovable))
	require.True(t, run.Done())

	require.Len(t, run.Moved, 1)
	moved := run.Moved[0]
	assert.Equal(t, int64(50), moved.ID)
	assert.Equal(t, monday(10, 45), *moved.StartTime,
		"displaced task lands after both the new task and the event")
	assert.Equal(t, monday(11, 15), *moved.EndTime, "displaced task keeps its 30 minutes")

	// The new task holds its requested time.
	var newTaskCall *updateCall
	for i := range repo.updates {
		if repo.updates[i].id == 1 {
			newTaskCall = &repo.updates[i]
		}
	}
	require.NotNil(t, newTaskCall)
	assert.Equal(t, monday(10, 0), newTaskCall.start)

	// The displaced task no longer overlaps anything movable.
	for _, iv := range run.Timeline().Intervals() {
		if iv.TaskID == 50 {
			assert.Equal(t, monday(10, 45), iv.Start)
		}
	}
}

func TestResolve_UnknownResolutionRestoresSuspension(t *testing.T) {
	repo := &fakeRepo{existing: []*task.Task{
		scheduledTask(50, "Deep work", monday(10, 0), monday(10, 30)),
	}}
	run := suspendedRun(t, repo, nil)

	err := run.Resolve(context.Background(), Resolution("shrug"))
	require.ErrorIs(t, err, ErrUnknownResolution)

	assert.Equal(t, StateAwaitingResolution, run.State())
	require.NotNil(t, run.Conflict())

	// A valid resolution still works afterwards.
	require.NoError(t, run.Resolve(context.Background(), ResolveReschedule))
	assert.True(t, run.Done())
}

func TestRunBatch_CommittedSlotsNeverOverlap(t *testing.T) {
	repo := &fakeRepo{existing: []*task.Task{
		scheduledTask(50, "Deep work", monday(11, 0), monday(11, 45)),
	}}
	events := &fakeEvents{events: []calendar.Event{
		{Title: "All hands", Start: monday(9, 30), End: monday(10, 0)},
	}}
	engine := newTestEngine(repo, events, nil)

	run, err := engine.RunBatch(context.Background(),
		[]*task.Task{
			newTask(1, "Write report for 1h"),
			newTask(2, "Reply to emails"),
			newTask(3, "Plan sprint"),
		},
		ModeToday, monday(9, 0))
	require.NoError(t, err)
	require.True(t, run.Done())

	ivs := run.Timeline().Intervals()
	for i := 0; i < len(ivs); i++ {
		for j := i + 1; j < len(ivs); j++ {
			assert.False(t, ivs[i].Overlaps(ivs[j].Start, ivs[j].End),
				"%q and %q overlap", ivs[i].Title, ivs[j].Title)
		}
	}
	for _, u := range repo.updates {
		assert.Zero(t, u.start.Minute()%SlotMinutes,
			"start %v not slot-aligned", u.start)
	}
}
