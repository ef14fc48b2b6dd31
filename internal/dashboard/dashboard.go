// Package dashboard folds a user's recent history into the dashboard view.
package dashboard

import (
	"time"

	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/growth"
)

// defaultDurationSeconds is charged for activities that carry no duration.
const defaultDurationSeconds = 60

// TrendDays is the fixed length of the weekly trend.
const TrendDays = 7

// DailySummary describes today.
type DailySummary struct {
	TotalMinutes     int      `json:"total_minutes"`
	CategoriesActive []string `json:"categories_active"`
	StreakDays       int      `json:"streak_days"`
}

// TrendPoint is the minutes logged on one day.
type TrendPoint struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

// BadgeCounts is the number of badge records held per family.
type BadgeCounts struct {
	Continuity int `json:"continuity"`
	Challenge  int `json:"challenge"`
	Balance    int `json:"balance"`
}

// Summary is the dashboard payload.
type Summary struct {
	DailySummary DailySummary `json:"daily_summary"`
	WeeklyTrend  []TrendPoint `json:"weekly_trend"`
	Badges       BadgeCounts  `json:"badges"`
}

// Input is the history to aggregate. Nil slices are treated as empty.
type Input struct {
	Activities []growth.Activity
	Metrics    []growth.GrowthMetric
	Badges     []growth.BadgeEarned
}

// Aggregate builds the dashboard as of now using loc as the calendar-day boundary.
func Aggregate(in Input, now time.Time, loc *time.Location) Summary {
	todayKey := calendar.Key(now, loc)

	summary := Summary{
		DailySummary: DailySummary{CategoriesActive: []string{}},
		WeeklyTrend:  make([]TrendPoint, 0, TrendDays),
	}

	seen := make(map[string]struct{})
	for _, a := range in.Activities {
		if calendar.Key(a.CompletedAt, loc) != todayKey {
			continue
		}
		summary.DailySummary.TotalMinutes += Minutes(a.DurationSeconds)
		if _, ok := seen[a.Category]; !ok && a.Category != "" {
			seen[a.Category] = struct{}{}
			summary.DailySummary.CategoriesActive = append(summary.DailySummary.CategoriesActive, a.Category)
		}
	}
	summary.DailySummary.StreakDays = calendar.Streak(growth.CompletionTimes(in.Activities), now, loc)

	perDay := make(map[string]int, len(in.Metrics))
	for _, m := range in.Metrics {
		perDay[m.Date] += m.TotalMinutes
	}
	for _, key := range calendar.LastNDays(now, loc, TrendDays) {
		summary.WeeklyTrend = append(summary.WeeklyTrend, TrendPoint{Date: key, Minutes: perDay[key]})
	}

	for _, b := range in.Badges {
		switch b.Type {
		case growth.BadgeContinuity:
			summary.Badges.Continuity++
		case growth.BadgeChallenge:
			summary.Badges.Challenge++
		case growth.BadgeBalance:
			summary.Badges.Balance++
		}
	}

	return summary
}

// Minutes converts a duration to whole minutes, rounding up. Non-positive durations count as one minute.
func Minutes(durationSeconds int) int {
	if durationSeconds <= 0 {
		durationSeconds = defaultDurationSeconds
	}
	return (durationSeconds + 59) / 60
}
