package schedule

import "time"

// Detect partitions the timeline intervals overlapping a candidate slot
// [at, at+duration) into those the engine may relocate (tasks) and those
// it may not (external calendar events). Malformed intervals never
// participate.
func Detect(at time.Time, durationMinutes int, tl *Timeline) (movable, immovable []Interval) {
	end := at.Add(time.Duration(durationMinutes) * time.Minute)
	for _, iv := range tl.Overlapping(at, end) {
		if iv.Movable {
			movable = append(movable, iv)
		} else {
			immovable = append(immovable, iv)
		}
	}
	return movable, immovable
}
