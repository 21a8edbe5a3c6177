// Package calendar provides the external calendar event model and an
// HTTP client for fetching events. Events are read-only: the scheduling
// engine treats them as immovable obstacles.
package calendar

import "time"

// Event is a provider-independent calendar event.
type Event struct {
	Title string    `json:"title"`
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// Valid reports whether the event carries a usable time pair. Events
// with missing or inverted timestamps are ignored by the engine.
func (e Event) Valid() bool {
	return !e.Start.IsZero() && !e.End.IsZero() && e.End.After(e.Start)
}
