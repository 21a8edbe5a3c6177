package schedule

import (
	"errors"
	"time"
)

// ErrNoSlot signals that no slot exists within the scheduling horizon.
// It is a normal outcome, not a failure: callers leave the task
// unscheduled and continue.
var ErrNoSlot = errors.New("no slot available within the scheduling horizon")

// Slot is a placement returned by FindSlot. Minutes may be less than the
// requested duration when the slot was capped to fit the remaining
// business day.
type Slot struct {
	Start   time.Time
	Minutes int
}

// End returns the slot's end time.
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.Minutes) * time.Minute)
}

// Capped reports whether the slot is shorter than the requested duration.
func (s Slot) Capped(requestedMinutes int) bool {
	return s.Minutes < requestedMinutes
}

// FindSlot returns the earliest slot-aligned start at or after `after`
// where a task of the given duration fits within business hours without
// overlapping the timeline. The search is bounded at HorizonDays past
// `after`.
//
// A duration longer than the remainder of a business day is capped to
// what fits that day rather than pushed to the next: a long task takes
// the rest of the day instead of failing outright.
func FindSlot(rules Rules, after time.Time, durationMinutes int, tl *Timeline) (Slot, error) {
	if durationMinutes <= 0 {
		durationMinutes = SlotMinutes
	}
	horizon := after.AddDate(0, 0, HorizonDays)

	cand := rules.AlignForward(after)
	for !cand.After(horizon) {
		if rules.CrossesLunch(cand, durationMinutes) {
			cand = rules.AlignForward(rules.LunchEndAt(cand))
			continue
		}

		effective := durationMinutes
		if fit := rules.MinutesToDayEnd(cand); effective > fit {
			effective = fit
		}
		if effective < SlotMinutes {
			cand = rules.AlignForward(rules.NextBusinessStart(cand))
			continue
		}

		end := cand.Add(time.Duration(effective) * time.Minute)
		if overlapping := tl.Overlapping(cand, end); len(overlapping) > 0 {
			// Resume just past the earliest blocking interval.
			next := rules.RoundUp(overlapping[0].End)
			if !next.After(cand) {
				next = cand.Add(SlotMinutes * time.Minute)
			}
			cand = rules.AlignForward(next)
			continue
		}

		return Slot{Start: cand, Minutes: effective}, nil
	}

	return Slot{}, ErrNoSlot
}
