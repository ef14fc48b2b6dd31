package calendar

import "time"

// TimeOfDay is a coarse bucket used to pick recommendations.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// TimeOfDayAt buckets the local hour of t: [5,12) morning, [12,18) afternoon, otherwise evening.
func TimeOfDayAt(t time.Time, loc *time.Location) TimeOfDay {
	if loc == nil {
		loc = time.Local
	}
	hour := t.In(loc).Hour()
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	default:
		return Evening
	}
}
