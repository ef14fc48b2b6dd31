package coach

import (
	"time"

	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/dashboard"
)

// Static data served when every collaborator has failed.

var mockCards = []catalog.Task{
	{
		ID:               "mock_learning_001",
		Category:         "learning",
		Title:            "Learn one new word",
		Description:      "Pick one word and make it stick.",
		EstimatedSeconds: 60,
		Difficulty:       catalog.DifficultyEasy,
		Content:          "Innovation: a new idea, method or device.",
	},
	{
		ID:               "mock_health_001",
		Category:         "health",
		Title:            "Morning stretch",
		Description:      "Wake your body up with a one-minute stretch.",
		EstimatedSeconds: 60,
		Difficulty:       catalog.DifficultyEasy,
		Content:          "Roll your neck, circle your shoulders, then reach up slowly.",
	},
	{
		ID:               "mock_productivity_001",
		Category:         "productivity",
		Title:            "One efficiency idea",
		Description:      "Think of one way to speed up something you do every day.",
		EstimatedSeconds: 60,
		Difficulty:       catalog.DifficultyMedium,
		Content:          "Find the slowest step of today's work and sketch a fix.",
	},
}

var mockTrendMinutes = [dashboard.TrendDays]int{2, 4, 3, 5, 2, 3, 3}

func mockToday(userID string) TodayResponse {
	cards := make([]catalog.Task, len(mockCards))
	copy(cards, mockCards)
	return TodayResponse{
		UserID: userID,
		Cards:  cards,
		Recommendations: Recommendations{
			Primary:           "Learning",
			BalanceSuggestion: "Health has been quiet lately.",
		},
		Source: SourceMock,
	}
}

// mockDashboard keeps the weekly trend anchored on today so its shape stays valid.
func mockDashboard(now time.Time, loc *time.Location) dashboard.Summary {
	trend := make([]dashboard.TrendPoint, 0, dashboard.TrendDays)
	for i, key := range calendar.LastNDays(now, loc, dashboard.TrendDays) {
		trend = append(trend, dashboard.TrendPoint{Date: key, Minutes: mockTrendMinutes[i]})
	}
	return dashboard.Summary{
		DailySummary: dashboard.DailySummary{
			TotalMinutes:     3,
			CategoriesActive: []string{"learning", "health"},
			StreakDays:       5,
		},
		WeeklyTrend: trend,
		Badges:      dashboard.BadgeCounts{Continuity: 2, Challenge: 1, Balance: 3},
	}
}
