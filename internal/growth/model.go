// Package growth holds the persisted records of a user's growth history and the
// repositories that store them.
package growth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRecord is returned when a record misses required fields.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInvalidPageToken is returned for malformed pagination cursors.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// BadgeType is a badge family.
type BadgeType string

const (
	BadgeContinuity BadgeType = "continuity"
	BadgeChallenge  BadgeType = "challenge"
	BadgeBalance    BadgeType = "balance"
)

// BadgeTypes lists the families in display order.
var BadgeTypes = []BadgeType{BadgeContinuity, BadgeChallenge, BadgeBalance}

// Confidence is the self-reported confidence attached to a completion.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Valid reports whether c is a known confidence.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	default:
		return false
	}
}

// Source tells where an activity came from.
type Source string

const (
	SourceApp    Source = "app"
	SourceImport Source = "import"
)

// ActivityResult is the outcome reported for a completion.
type ActivityResult struct {
	Completed  bool       `json:"completed" firestore:"completed"`
	Confidence Confidence `json:"confidence" firestore:"confidence"`
}

// Activity is an append-only completion record.
type Activity struct {
	ID              string         `json:"id" firestore:"-"`
	UserID          string         `json:"user_id" firestore:"user_id"`
	TaskID          string         `json:"task_id" firestore:"task_id"`
	Category        string         `json:"category" firestore:"category"`
	TaskTitle       string         `json:"task_title" firestore:"task_title"`
	TaskDescription string         `json:"task_description" firestore:"task_description"`
	StartedAt       time.Time      `json:"started_at" firestore:"started_at"`
	CompletedAt     time.Time      `json:"completed_at" firestore:"completed_at"`
	DurationSeconds int            `json:"duration_seconds" firestore:"duration_seconds"`
	Result          ActivityResult `json:"result" firestore:"result"`
	Source          Source         `json:"source" firestore:"source"`
	CreatedAt       time.Time      `json:"created_at" firestore:"created_at"`
}

// GrowthMetric aggregates one user's day in one category.
type GrowthMetric struct {
	UserID        string    `json:"user_id" firestore:"user_id"`
	Date          string    `json:"date" firestore:"date"`
	Category      string    `json:"category" firestore:"category"`
	TotalMinutes  int       `json:"total_minutes" firestore:"total_minutes"`
	ActivityCount int       `json:"activity_count" firestore:"activity_count"`
	StreakDays    int       `json:"streak_days" firestore:"streak_days"`
	BalanceScore  float64   `json:"balance_score" firestore:"balance_score"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updated_at"`
}

// Key identifies the metric row.
func (m GrowthMetric) Key() string {
	return m.Date + "_" + m.Category
}

// BadgeEarned records that a user reached a badge level. Created at most once per (user, type, level).
type BadgeEarned struct {
	ID       string         `json:"id" firestore:"-"`
	UserID   string         `json:"user_id" firestore:"user_id"`
	Type     BadgeType      `json:"badge_type" firestore:"badge_type"`
	Level    int            `json:"badge_level" firestore:"badge_level"`
	EarnedAt time.Time      `json:"earned_at" firestore:"earned_at"`
	Metadata map[string]any `json:"metadata,omitempty" firestore:"metadata"`
}

// Key identifies the badge level for idempotent creation.
func (b BadgeEarned) Key() string {
	return fmt.Sprintf("%s_%d", b.Type, b.Level)
}

// User is a profile. Missing users resolve to DefaultUser.
type User struct {
	ID                  string    `json:"id" firestore:"-"`
	Nickname            string    `json:"nickname" firestore:"nickname"`
	CategoryPreferences []string  `json:"category_preferences" firestore:"category_preferences"`
	Timezone            string    `json:"timezone" firestore:"timezone"`
	CreatedAt           time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" firestore:"updated_at"`
}

// DefaultUser is the profile used when a user has no stored record.
func DefaultUser(userID string) *User {
	return &User{
		ID:                  userID,
		Nickname:            "Guest",
		CategoryPreferences: []string{"health", "learning", "mindfulness"},
	}
}

// ActivityPage is one page of activity history, newest first.
type ActivityPage struct {
	Items         []Activity `json:"items"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

// Repository is the persistence collaborator for growth records.
type Repository interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	SaveUser(ctx context.Context, user User) error

	CreateActivity(ctx context.Context, activity Activity) error
	// ListActivities returns activities completed at or after since, newest first.
	ListActivities(ctx context.Context, userID string, since time.Time) ([]Activity, error)
	ListActivitiesPage(ctx context.Context, userID string, pageSize int, pageToken string) (ActivityPage, error)

	UpsertGrowthMetric(ctx context.Context, metric GrowthMetric) error
	// ListGrowthMetrics returns metrics dated on or after sinceDate (YYYY-MM-DD), oldest first.
	ListGrowthMetrics(ctx context.Context, userID string, sinceDate string) ([]GrowthMetric, error)

	ListBadges(ctx context.Context, userID string) ([]BadgeEarned, error)
	// CreateBadge stores the badge unless the same (type, level) exists. created reports which happened.
	CreateBadge(ctx context.Context, badge BadgeEarned) (created bool, err error)

	Ping(ctx context.Context) error
}

func validateActivity(a Activity) error {
	switch {
	case a.UserID == "":
		return fmt.Errorf("%w: activity user id is required", ErrInvalidRecord)
	case a.TaskID == "":
		return fmt.Errorf("%w: activity task id is required", ErrInvalidRecord)
	case a.CompletedAt.IsZero():
		return fmt.Errorf("%w: activity completion time is required", ErrInvalidRecord)
	case a.Result.Confidence != "" && !a.Result.Confidence.Valid():
		return fmt.Errorf("%w: unknown confidence %q", ErrInvalidRecord, a.Result.Confidence)
	}
	return nil
}

func validateMetric(m GrowthMetric) error {
	if m.UserID == "" || m.Date == "" || m.Category == "" {
		return fmt.Errorf("%w: metric needs user, date and category", ErrInvalidRecord)
	}
	return nil
}

func validateBadge(b BadgeEarned) error {
	if b.UserID == "" || b.Type == "" || b.Level < 1 || b.Level > 5 {
		return fmt.Errorf("%w: badge needs user, type and a level in 1..5", ErrInvalidRecord)
	}
	return nil
}

// CompletionTimes returns the completion instants of activities reported as completed.
func CompletionTimes(activities []Activity) []time.Time {
	out := make([]time.Time, 0, len(activities))
	for _, a := range activities {
		if a.Result.Completed {
			out = append(out, a.CompletedAt)
		}
	}
	return out
}
