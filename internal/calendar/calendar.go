// Package calendar holds the single definition of "calendar day" shared by the
// tracker, the badge evaluator and the dashboard aggregator.
package calendar

import (
	"sort"
	"time"
)

// DateLayout is the wire and storage format for a calendar date.
const DateLayout = "2006-01-02"

// LoadLocation resolves a timezone name. Empty or "Local" means the process local zone;
// unknown names fall back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Day truncates t to midnight of its civil date in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Key formats the civil date of t in loc as YYYY-MM-DD.
func Key(t time.Time, loc *time.Location) string {
	return Day(t, loc).Format(DateLayout)
}

// AddDays moves a day value by n civil days, staying on midnight across DST changes.
func AddDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, day.Location())
}

// WeekStart returns midnight of the Sunday starting the week that contains t.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	day := Day(t, loc)
	return AddDays(day, -int(day.Weekday()))
}

// LastNDays returns the keys of the n days ending today, oldest first.
func LastNDays(now time.Time, loc *time.Location, n int) []string {
	today := Day(now, loc)
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, AddDays(today, -i).Format(DateLayout))
	}
	return keys
}

// Streak counts consecutive days with activity, ending today or yesterday.
// A most recent activity older than yesterday yields zero.
func Streak(timestamps []time.Time, now time.Time, loc *time.Location) int {
	if len(timestamps) == 0 {
		return 0
	}

	seen := make(map[string]time.Time, len(timestamps))
	for _, ts := range timestamps {
		day := Day(ts, loc)
		seen[day.Format(DateLayout)] = day
	}
	days := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	today := Day(now, loc)
	yesterday := AddDays(today, -1)
	if !days[0].Equal(today) && !days[0].Equal(yesterday) {
		return 0
	}

	streak := 0
	expected := days[0]
	for _, day := range days {
		if !day.Equal(expected) {
			break
		}
		streak++
		expected = AddDays(expected, -1)
	}
	return streak
}
