// Package schedule implements the auto-scheduling engine: business-hour
// rules, slot finding over an occupied timeline, conflict detection, and
// the batch orchestrator with its conflict-resolution workflow.
package schedule

import (
	"strings"
	"time"

	"github.com/afuentes/agendo/internal/config"
)

// SlotMinutes is the scheduling granularity. Every committed slot starts
// on a boundary of this size.
const SlotMinutes = 15

// HorizonDays bounds every slot search and the timeline seeding window.
const HorizonDays = 14

// Rules encodes the time windows tasks may be scheduled into. Clock
// values are minutes since midnight in the local day of the time being
// tested.
type Rules struct {
	Workdays   map[time.Weekday]bool
	DayStart   int
	DayEnd     int
	LunchStart int // LunchStart == LunchEnd means no lunch block
	LunchEnd   int
}

// weekdayNames maps config weekday names to time.Weekday values.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DefaultRules returns the standard 09:00-17:00 Mon-Fri window with a
// 12:30-13:30 lunch block.
func DefaultRules() Rules {
	return Rules{
		Workdays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		DayStart:   9 * 60,
		DayEnd:     17 * 60,
		LunchStart: 12*60 + 30,
		LunchEnd:   13*60 + 30,
	}
}

// RulesFromConfig builds Rules from the schedule section of the config.
// The config is assumed validated.
func RulesFromConfig(cfg *config.Config) Rules {
	r := Rules{
		Workdays: make(map[time.Weekday]bool),
		DayStart: clockMinutes(cfg.Schedule.DayStart),
		DayEnd:   clockMinutes(cfg.Schedule.DayEnd),
	}
	for _, name := range cfg.Schedule.Workdays {
		if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
			r.Workdays[wd] = true
		}
	}
	if cfg.HasLunch() {
		r.LunchStart = clockMinutes(cfg.Schedule.LunchStart)
		r.LunchEnd = clockMinutes(cfg.Schedule.LunchEnd)
	}
	return r
}

// clockMinutes parses "HH:MM" to minutes since midnight.
func clockMinutes(s string) int {
	if len(s) < 5 {
		return 0
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h*60 + m
}

// HasLunch returns true if a lunch block is configured.
func (r Rules) HasLunch() bool {
	return r.LunchEnd > r.LunchStart
}

// IsWorkday returns true if t falls on a configured workday.
func (r Rules) IsWorkday(t time.Time) bool {
	return r.Workdays[t.Weekday()]
}

// RoundUp rounds t up to the next slot boundary. Times already on a
// boundary are returned unchanged.
func (r Rules) RoundUp(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	rem := t.Minute() % SlotMinutes
	if rem == 0 {
		return t
	}
	return t.Add(time.Duration(SlotMinutes-rem) * time.Minute)
}

// clockAt returns the given minutes-since-midnight clock on t's date.
func clockAt(t time.Time, minutes int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), minutes/60, minutes%60, 0, 0, t.Location())
}

// BusinessStart returns the business-day start on t's date.
func (r Rules) BusinessStart(t time.Time) time.Time {
	return clockAt(t, r.DayStart)
}

// BusinessEnd returns the business-day end on t's date.
func (r Rules) BusinessEnd(t time.Time) time.Time {
	return clockAt(t, r.DayEnd)
}

// NextBusinessStart returns the business start of the first workday
// strictly after t's date.
func (r Rules) NextBusinessStart(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for range 7 {
		if r.IsWorkday(next) {
			return r.BusinessStart(next)
		}
		next = next.AddDate(0, 0, 1)
	}
	// Unreachable with at least one workday configured.
	return r.BusinessStart(t.AddDate(0, 0, 1))
}

// AlignForward moves t onto the earliest slot boundary that lies within
// business hours on a workday: round up, jump to business start if the
// day has not begun, and jump to the next workday if the day is over or
// is not a workday.
func (r Rules) AlignForward(t time.Time) time.Time {
	c := r.RoundUp(t)
	for {
		if !r.IsWorkday(c) {
			c = r.NextBusinessStart(c)
			continue
		}
		if c.Before(r.BusinessStart(c)) {
			c = r.BusinessStart(c)
			continue
		}
		if !c.Before(r.BusinessEnd(c)) {
			c = r.NextBusinessStart(c)
			continue
		}
		return c
	}
}

// CrossesLunch returns true if a slot of the given duration starting at t
// would overlap the lunch block on t's date.
func (r Rules) CrossesLunch(t time.Time, durationMinutes int) bool {
	if !r.HasLunch() {
		return false
	}
	lunchStart := clockAt(t, r.LunchStart)
	lunchEnd := clockAt(t, r.LunchEnd)
	end := t.Add(time.Duration(durationMinutes) * time.Minute)
	return t.Before(lunchEnd) && lunchStart.Before(end)
}

// LunchEndAt returns the end of the lunch block on t's date.
func (r Rules) LunchEndAt(t time.Time) time.Time {
	return clockAt(t, r.LunchEnd)
}

// InLunch returns true if t falls inside the lunch block on t's date.
func (r Rules) InLunch(t time.Time) bool {
	if !r.HasLunch() {
		return false
	}
	return !t.Before(clockAt(t, r.LunchStart)) && t.Before(clockAt(t, r.LunchEnd))
}

// MinutesToDayEnd returns how many minutes remain between t and business
// end on t's date. Negative values mean t is past business end.
func (r Rules) MinutesToDayEnd(t time.Time) int {
	return int(r.BusinessEnd(t).Sub(t).Minutes())
}

// WithinBusinessHours returns true if t lies in [business start, business
// end) on a workday.
func (r Rules) WithinBusinessHours(t time.Time) bool {
	if !r.IsWorkday(t) {
		return false
	}
	return !t.Before(r.BusinessStart(t)) && t.Before(r.BusinessEnd(t))
}
