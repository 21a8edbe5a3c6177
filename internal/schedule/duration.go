package schedule

import (
	"context"
	"regexp"
)

// Duration resolution defaults, in minutes.
const (
	DefaultDuration = 30
	EmailDuration   = 15
	SlideDuration   = 30
	MaxDuration     = 8 * 60
)

var (
	emailPattern = regexp.MustCompile(`(?i)\b(e-?mails?|reply|respond|inbox)\b`)
	slidePattern = regexp.MustCompile(`(?i)\b(slides?|deck|presentation|powerpoint|ppt|keynote)\b`)
)

// resolveDuration picks a duration for a candidate. Title patterns win
// over an explicit hint, the hint wins over the estimator, and the
// estimator falls back to DefaultDuration when absent.
func (e *Engine) resolveDuration(ctx context.Context, cleanTitle, notes string, hintMinutes int) int {
	switch {
	case emailPattern.MatchString(cleanTitle):
		return EmailDuration
	case slidePattern.MatchString(cleanTitle):
		return SlideDuration
	case hintMinutes > 0:
		return clampDuration(hintMinutes)
	case e.estimator != nil:
		return clampDuration(e.estimator.Estimate(ctx, cleanTitle, notes))
	default:
		return DefaultDuration
	}
}

// clampDuration rounds up to the slot granularity and bounds the result
// to [SlotMinutes, MaxDuration].
func clampDuration(minutes int) int {
	if minutes <= 0 {
		return DefaultDuration
	}
	if rem := minutes % SlotMinutes; rem != 0 {
		minutes += SlotMinutes - rem
	}
	if minutes < SlotMinutes {
		minutes = SlotMinutes
	}
	if minutes > MaxDuration {
		minutes = MaxDuration
	}
	return minutes
}
