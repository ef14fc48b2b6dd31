package coach

import (
	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/growth"
	"github.com/steppy/steppy-service/internal/progress"
)

// Source tells which tier of the fallback chain produced a today response.
type Source string

const (
	SourceAI       Source = "ai"
	SourceTemplate Source = "template"
	SourceMock     Source = "mock"
)

// Recommendations is the advice text shown above today's cards.
type Recommendations struct {
	Primary           string `json:"primary"`
	BalanceSuggestion string `json:"balance_suggestion"`
}

// TodayResponse is today's card set for a user.
type TodayResponse struct {
	UserID          string          `json:"user_id"`
	Cards           []catalog.Task  `json:"cards"`
	NextTask        *catalog.Task   `json:"next_task,omitempty"`
	Recommendations Recommendations `json:"recommendations"`
	Source          Source          `json:"source"`
}

// SubmitResult is the outcome reported by the client.
type SubmitResult struct {
	Completed  bool              `json:"completed"`
	Confidence growth.Confidence `json:"confidence" validate:"required,oneof=low medium high"`
}

// SubmitRequest reports one finished task.
type SubmitRequest struct {
	TaskID          string        `json:"task_id" validate:"required"`
	DurationSeconds int           `json:"duration_seconds" validate:"required,gt=0"`
	Result          *SubmitResult `json:"result" validate:"required"`
	Timestamp       string        `json:"timestamp" validate:"required"`
}

// SubmitResponse is returned after a submission is recorded.
type SubmitResponse struct {
	Success        bool     `json:"success"`
	BadgesEarned   []string `json:"badges_earned"`
	StreakUpdated  int      `json:"streak_updated"`
	NextSuggestion string   `json:"next_suggestion"`
}

// ProgressResponse exposes a user's progress tracker.
type ProgressResponse struct {
	UserID string         `json:"user_id"`
	Stats  progress.Stats `json:"stats"`
	State  progress.State `json:"state"`
}

// PreferencesRequest updates a user's profile preferences. A nil Nickname keeps the stored one.
type PreferencesRequest struct {
	Nickname            *string  `json:"nickname" validate:"omitempty,max=64"`
	CategoryPreferences []string `json:"category_preferences" validate:"required,min=1,max=6,dive,required"`
}
