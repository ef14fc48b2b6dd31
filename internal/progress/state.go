package progress

import (
	"time"

	"github.com/steppy/steppy-service/internal/calendar"
)

// DefaultKey is the storage key of the single-user progress blob.
const DefaultKey = "steppy_progress"

// Completion is one recorded task completion.
type Completion struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	CompletedAt time.Time `json:"completedAt"`
	Category    string    `json:"category"`
	Duration    int       `json:"duration"`
}

// DayCount is the number of completions on one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// State is the persisted progress blob. Only CompletedTasks is authoritative;
// the other fields are derived and recomputed on every load and read.
type State struct {
	TotalCompleted int            `json:"totalCompleted"`
	TodayCompleted int            `json:"todayCompleted"`
	CurrentStreak  int            `json:"currentStreak"`
	CategoryStats  map[string]int `json:"categoryStats"`
	WeeklyActivity []DayCount     `json:"weeklyActivity"`
	CompletedTasks []Completion   `json:"completedTasks"`
}

// Stats summarises completion counts.
type Stats struct {
	Today    int `json:"today"`
	ThisWeek int `json:"thisWeek"`
	Total    int `json:"total"`
	Streak   int `json:"streak"`
}

func emptyState() State {
	return State{CategoryStats: map[string]int{}, WeeklyActivity: []DayCount{}, CompletedTasks: []Completion{}}
}

// derive rebuilds every derived field of s from its completions as of now.
func derive(completed []Completion, now time.Time, loc *time.Location) State {
	s := emptyState()
	s.CompletedTasks = append(s.CompletedTasks, completed...)
	s.TotalCompleted = len(completed)

	todayKey := calendar.Key(now, loc)
	perDay := make(map[string]int, len(completed))
	timestamps := make([]time.Time, 0, len(completed))
	for _, c := range completed {
		key := calendar.Key(c.CompletedAt, loc)
		perDay[key]++
		if key == todayKey {
			s.TodayCompleted++
		}
		s.CategoryStats[c.Category]++
		timestamps = append(timestamps, c.CompletedAt)
	}

	for _, key := range calendar.LastNDays(now, loc, 7) {
		s.WeeklyActivity = append(s.WeeklyActivity, DayCount{Date: key, Count: perDay[key]})
	}
	s.CurrentStreak = calendar.Streak(timestamps, now, loc)
	return s
}
