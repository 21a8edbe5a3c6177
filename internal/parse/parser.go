// Package parse extracts scheduling hints from task titles: an explicit
// clock time, a day word, and a duration, plus the cleaned title with the
// hints stripped.
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result holds the hints extracted from one title.
type Result struct {
	CleanTitle      string
	HasTime         bool
	At              time.Time // resolved against the reference date
	HasDay          bool
	HasDuration     bool
	DurationMinutes int
}

// weekdayMap maps weekday names to time.Weekday values.
var weekdayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var (
	// "for 45m", "for 1.5 hours", "90min"
	durationPattern = regexp.MustCompile(`(?i)\b(?:for\s+)?(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes)\b`)

	// "at 3pm", "at 15:00", "@ 9:30am"
	atTimePattern = regexp.MustCompile(`(?i)(?:\bat|@)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

	// bare "3:30pm" / "15:00"
	clockPattern = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)

	// "on tuesday", "tomorrow", "next monday"
	dayPattern = regexp.MustCompile(`(?i)\b(?:(?:on|by)\s+)?(?:(next)[\s-])?(today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

	spacePattern = regexp.MustCompile(`\s+`)
)

// Parser extracts scheduling hints from task titles.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts hints from title, resolving day and time against ref.
// A time hint without a day hint resolves to ref's date. Parse never
// fails; unrecognizable input simply yields no hints.
func (p *Parser) Parse(title string, ref time.Time) (Result, error) {
	res := Result{}
	rest := title

	rest, minutes, hasDur := extractDuration(rest)
	res.HasDuration = hasDur
	res.DurationMinutes = minutes

	rest, day, hasDay := extractDay(rest, ref)
	res.HasDay = hasDay

	rest, clockMin, hasTime := extractTime(rest)
	res.HasTime = hasTime

	if hasTime {
		base := ref
		if hasDay {
			base = day
		}
		res.At = time.Date(base.Year(), base.Month(), base.Day(),
			clockMin/60, clockMin%60, 0, 0, ref.Location())
	}

	res.CleanTitle = cleanTitle(rest, title)
	return res, nil
}

// extractDuration pulls the first duration hint out of s, returning the
// remaining text and the duration in minutes.
func extractDuration(s string) (rest string, minutes int, ok bool) {
	m := durationPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return s, 0, false
	}
	value, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
	if err != nil || value <= 0 {
		return s, 0, false
	}
	unit := strings.ToLower(s[m[4]:m[5]])
	if strings.HasPrefix(unit, "h") {
		minutes = int(value * 60)
	} else {
		minutes = int(value)
	}
	if minutes <= 0 {
		return s, 0, false
	}
	return s[:m[0]] + " " + s[m[1]:], minutes, true
}

// extractDay pulls the first day word out of s, resolving it to a date
// relative to ref. Weekday names resolve to the next occurrence, always
// in the future; the "next" prefix pushes a same-week match one week out.
func extractDay(s string, ref time.Time) (rest string, day time.Time, ok bool) {
	m := dayPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return s, time.Time{}, false
	}
	hasNext := m[2] >= 0
	word := strings.ToLower(s[m[4]:m[5]])
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	switch word {
	case "today":
		day = today
	case "tomorrow":
		day = today.AddDate(0, 0, 1)
	default:
		// Weekday names resolve to the next occurrence; a name matching
		// today's weekday means a week out. The "next" prefix pushes a
		// same-week match one further week out.
		target := weekdayMap[word]
		daysUntil := int(target) - int(today.Weekday())
		if daysUntil <= 0 {
			daysUntil += 7
		} else if hasNext {
			daysUntil += 7
		}
		day = today.AddDate(0, 0, daysUntil)
	}
	return s[:m[0]] + " " + s[m[1]:], day, true
}

// extractTime pulls the first clock-time hint out of s, returning minutes
// since midnight.
func extractTime(s string) (rest string, minutes int, ok bool) {
	m := atTimePattern.FindStringSubmatchIndex(s)
	if m == nil {
		m = clockPattern.FindStringSubmatchIndex(s)
		if m == nil {
			return s, 0, false
		}
	}

	hour, _ := strconv.Atoi(s[m[2]:m[3]])
	minute := 0
	if m[4] >= 0 {
		minute, _ = strconv.Atoi(s[m[4]:m[5]])
	}
	meridiem := ""
	if m[6] >= 0 {
		meridiem = strings.ToLower(s[m[6]:m[7]])
	}

	// A bare "at 3" with no meridiem and no minutes is too ambiguous to
	// honor ("at 3 stores" reads the same); require one or the other.
	if meridiem == "" && m[4] < 0 {
		return s, 0, false
	}

	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return s, 0, false
	}

	return s[:m[0]] + " " + s[m[1]:], hour*60 + minute, true
}

// cleanTitle collapses whitespace and trims leftover separators after
// hint removal, falling back to the original title if nothing remains.
func cleanTitle(stripped, original string) string {
	s := spacePattern.ReplaceAllString(stripped, " ")
	s = strings.Trim(s, " -,:;")
	if s == "" {
		return strings.TrimSpace(original)
	}
	return s
}
