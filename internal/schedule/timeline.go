package schedule

import (
	"sort"
	"time"
)

// Interval is one commitment on the working timeline of a scheduling run.
// Movable intervals belong to tasks owned by this application and may be
// relocated during conflict resolution; immovable intervals come from the
// external calendar and are only ever obstacles.
type Interval struct {
	Start   time.Time
	End     time.Time
	Title   string
	Movable bool
	TaskID  int64 // owning task for movable intervals, 0 otherwise
}

// Valid reports whether the interval carries a usable time pair.
// Malformed intervals are excluded from all overlap checks.
func (iv Interval) Valid() bool {
	return !iv.Start.IsZero() && !iv.End.IsZero() && iv.End.After(iv.Start)
}

// Overlaps reports whether the interval overlaps [start, end).
// Intervals are half-open: touching endpoints do not overlap.
func (iv Interval) Overlaps(start, end time.Time) bool {
	return iv.Start.Before(end) && start.Before(iv.End)
}

// Minutes returns the interval length in minutes.
func (iv Interval) Minutes() int {
	if !iv.Valid() {
		return 0
	}
	return int(iv.End.Sub(iv.Start).Minutes())
}

// Timeline is the in-memory occupied-interval set for one scheduling run.
// It is seeded once at the start of the run and mutated through this
// single handle as each placement commits, so every lookup observes all
// prior commits of the same run.
type Timeline struct {
	intervals []Interval
}

// NewTimeline creates a Timeline from the given intervals. Malformed
// intervals are dropped.
func NewTimeline(intervals ...Interval) *Timeline {
	tl := &Timeline{}
	for _, iv := range intervals {
		tl.Add(iv)
	}
	return tl
}

// Add inserts an interval, keeping the set sorted by start time.
// Malformed intervals are ignored.
func (tl *Timeline) Add(iv Interval) {
	if !iv.Valid() {
		return
	}
	i := sort.Search(len(tl.intervals), func(i int) bool {
		return tl.intervals[i].Start.After(iv.Start)
	})
	tl.intervals = append(tl.intervals, Interval{})
	copy(tl.intervals[i+1:], tl.intervals[i:])
	tl.intervals[i] = iv
}

// RemoveTask removes the interval owned by the given task, returning it.
func (tl *Timeline) RemoveTask(taskID int64) (Interval, bool) {
	if taskID == 0 {
		return Interval{}, false
	}
	for i, iv := range tl.intervals {
		if iv.TaskID == taskID {
			tl.intervals = append(tl.intervals[:i], tl.intervals[i+1:]...)
			return iv, true
		}
	}
	return Interval{}, false
}

// Overlapping returns the intervals overlapping [start, end) in start
// order.
func (tl *Timeline) Overlapping(start, end time.Time) []Interval {
	var out []Interval
	for _, iv := range tl.intervals {
		if iv.Overlaps(start, end) {
			out = append(out, iv)
		}
	}
	return out
}

// Intervals returns a copy of the set in start order.
func (tl *Timeline) Intervals() []Interval {
	out := make([]Interval, len(tl.intervals))
	copy(out, tl.intervals)
	return out
}

// Len returns the number of intervals in the set.
func (tl *Timeline) Len() int {
	return len(tl.intervals)
}
