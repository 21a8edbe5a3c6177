package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/afuentes/agendo/internal/calendar"
	"github.com/afuentes/agendo/internal/parse"
	"github.com/afuentes/agendo/internal/task"
)

// Mode selects which timeline cursor a batch starts from and how
// pre-existing timestamps on batch tasks are treated.
type Mode string

const (
	ModeToday    Mode = "today"
	ModeTomorrow Mode = "tomorrow"
	ModeSomeday  Mode = "someday"
	ModeOverdue  Mode = "overdue"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeToday, ModeTomorrow, ModeSomeday, ModeOverdue:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown scheduling mode: %q", s)
	}
}

// TitleParser extracts scheduling hints from a task title.
type TitleParser interface {
	Parse(title string, ref time.Time) (parse.Result, error)
}

// DurationEstimator guesses how long a task will take, in minutes. It
// must return a usable default instead of failing.
type DurationEstimator interface {
	Estimate(ctx context.Context, title, notes string) int
}

// EventSource fetches external calendar events for the planning window.
type EventSource interface {
	Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

// Candidate is the per-task working record built before placement.
type Candidate struct {
	Task       *task.Task
	CleanTitle string
	Duration   int // minutes
	HasTime    bool
	At         time.Time
}

// Engine places batches of tasks onto the timeline. The zero value is
// not usable; construct with NewEngine.
type Engine struct {
	repo      task.Repository
	parser    TitleParser
	estimator DurationEstimator
	events    EventSource
	rules     Rules
	log       *zap.Logger
}

// NewEngine creates an Engine. estimator and events may be nil: without
// an estimator every unestimated task defaults to DefaultDuration, and
// without an event source the timeline holds only tasks.
func NewEngine(repo task.Repository, parser TitleParser, estimator DurationEstimator, events EventSource, rules Rules, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		repo:      repo,
		parser:    parser,
		estimator: estimator,
		events:    events,
		rules:     rules,
		log:       log,
	}
}

// RunBatch drives a batch of tasks through duration resolution, sorting,
// and sequential placement. The returned Run is suspended in
// StateAwaitingResolution if a specific-time candidate conflicted with
// the timeline; call Resolve to continue. All commits within a run are
// sequential: every placement decision observes every prior commit.
func (e *Engine) RunBatch(ctx context.Context, tasks []*task.Task, mode Mode, now time.Time) (*Run, error) {
	log := e.log.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("mode", string(mode)),
	)
	log.Info("starting scheduling run", zap.Int("batch_size", len(tasks)))

	tl, err := e.seedTimeline(ctx, tasks, now)
	if err != nil {
		return nil, err
	}

	candidates, err := e.buildCandidates(ctx, tasks, mode, now)
	if err != nil {
		return nil, err
	}
	sortCandidates(candidates)

	r := &Run{
		engine:   e,
		log:      log,
		mode:     mode,
		timeline: tl,
		state:    StateIdle,
		cursor:   e.cursorFor(mode, now),
	}
	for _, c := range candidates {
		if c.HasTime {
			r.pendingTimed = append(r.pendingTimed, c)
		} else {
			r.pendingFlexible = append(r.pendingFlexible, c)
		}
	}

	if err := r.advance(ctx); err != nil {
		return r, err
	}
	return r, nil
}

// seedTimeline builds the occupied-interval set for the planning window
// (today through the horizon): committed tasks outside the batch as
// movable intervals, external calendar events as immovable ones.
func (e *Engine) seedTimeline(ctx context.Context, batch []*task.Task, now time.Time) (*Timeline, error) {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, HorizonDays)

	inBatch := make(map[int64]bool, len(batch))
	for _, t := range batch {
		inBatch[t.ID] = true
	}

	existing, err := e.repo.ListScheduledBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled tasks: %w", err)
	}

	tl := NewTimeline()
	for _, t := range existing {
		if inBatch[t.ID] || t.Completed() || !t.Scheduled() {
			continue
		}
		tl.Add(Interval{
			Start:   *t.StartTime,
			End:     *t.EndTime,
			Title:   t.Title,
			Movable: true,
			TaskID:  t.ID,
		})
	}

	if e.events != nil {
		events, err := e.events.Events(ctx, from, to)
		if err != nil {
			// Scheduling blind to calendar events would silently break the
			// no-overlap guarantee, so the run does not start.
			return nil, fmt.Errorf("fetching calendar events: %w", err)
		}
		for _, ev := range events {
			tl.Add(Interval{Start: ev.Start, End: ev.End, Title: ev.Title, Movable: false})
		}
	}

	return tl, nil
}

// buildCandidates resolves a clean title, duration, and optional specific
// time for every task in the batch. Parser failures are soft: the title
// is used as-is with no hints.
func (e *Engine) buildCandidates(ctx context.Context, tasks []*task.Task, mode Mode, now time.Time) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(tasks))
	for _, t := range tasks {
		parsed := e.parseTitle(t.Title, now)

		if mode == ModeOverdue {
			// An overdue task keeps the duration of its original slot, and
			// past time hints are never honored.
			duration := t.Duration()
			if t.Scheduled() {
				if err := e.repo.ClearSchedule(ctx, t.ID); err != nil {
					return nil, fmt.Errorf("clearing overdue task %d: %w", t.ID, err)
				}
			}
			if duration == 0 {
				duration = e.resolveDuration(ctx, parsed.CleanTitle, t.Notes, parsed.DurationMinutes)
			}
			candidates = append(candidates, Candidate{
				Task:       t,
				CleanTitle: parsed.CleanTitle,
				Duration:   clampDuration(duration),
			})
			continue
		}

		// Specified times are normalized onto the slot grid so every
		// committed start stays slot-aligned.
		at := parsed.At
		if parsed.HasTime {
			at = e.rules.RoundUp(at)
		}
		candidates = append(candidates, Candidate{
			Task:       t,
			CleanTitle: parsed.CleanTitle,
			Duration:   e.resolveDuration(ctx, parsed.CleanTitle, t.Notes, parsed.DurationMinutes),
			HasTime:    parsed.HasTime,
			At:         at,
		})
	}
	return candidates, nil
}

// parseTitle runs the title parser, degrading to no hints on failure.
func (e *Engine) parseTitle(title string, now time.Time) parse.Result {
	if e.parser == nil {
		return parse.Result{CleanTitle: title}
	}
	parsed, err := e.parser.Parse(title, now)
	if err != nil {
		e.log.Warn("title parse failed, treating as plain title",
			zap.String("title", title), zap.Error(err))
		return parse.Result{CleanTitle: title}
	}
	if parsed.CleanTitle == "" {
		parsed.CleanTitle = title
	}
	return parsed
}

// cursorFor returns where flexible placement starts for a mode.
func (e *Engine) cursorFor(mode Mode, now time.Time) time.Time {
	if mode == ModeTomorrow {
		return e.rules.BusinessStart(now.AddDate(0, 0, 1))
	}
	return now
}

// sortCandidates orders a batch for placement: specific-time candidates
// first, then quick email-pattern tasks, otherwise original order.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.HasTime != b.HasTime {
			return a.HasTime
		}
		if !a.HasTime {
			ae := emailPattern.MatchString(a.CleanTitle)
			be := emailPattern.MatchString(b.CleanTitle)
			if ae != be {
				return ae
			}
		}
		return false
	})
}
