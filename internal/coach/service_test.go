package coach

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steppy/steppy-service/internal/cache"
	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/growth"
	"github.com/steppy/steppy-service/internal/recommend"
	"github.com/steppy/steppy-service/internal/selector"
)

var errDown = errors.New("datastore unavailable")

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRecommender struct {
	calls int
	tasks []catalog.Task
	err   error
}

func (f *fakeRecommender) Recommend(context.Context, recommend.Request) ([]catalog.Task, error) {
	f.calls++
	return f.tasks, f.err
}

type failingRepo struct{ err error }

func (f failingRepo) GetUser(context.Context, string) (*growth.User, error) { return nil, f.err }
func (f failingRepo) SaveUser(context.Context, growth.User) error           { return f.err }
func (f failingRepo) CreateActivity(context.Context, growth.Activity) error { return f.err }
func (f failingRepo) ListActivities(context.Context, string, time.Time) ([]growth.Activity, error) {
	return nil, f.err
}
func (f failingRepo) ListActivitiesPage(context.Context, string, int, string) (growth.ActivityPage, error) {
	return growth.ActivityPage{}, f.err
}
func (f failingRepo) UpsertGrowthMetric(context.Context, growth.GrowthMetric) error { return f.err }
func (f failingRepo) ListGrowthMetrics(context.Context, string, string) ([]growth.GrowthMetric, error) {
	return nil, f.err
}
func (f failingRepo) ListBadges(context.Context, string) ([]growth.BadgeEarned, error) {
	return nil, f.err
}
func (f failingRepo) CreateBadge(context.Context, growth.BadgeEarned) (bool, error) {
	return false, f.err
}
func (f failingRepo) Ping(context.Context) error { return f.err }

// 09:00 UTC is morning.
var start = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, repo growth.Repository, primary recommend.Recommender, clock *stepClock) *Service {
	t.Helper()
	return NewService(Options{
		Repo:     repo,
		Catalog:  catalog.Default(),
		Selector: selector.New(rand.New(rand.NewPCG(1, 2))),
		Primary:  primary,
		Clock:    clock,
		Location: time.UTC,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func task(t *testing.T, id string) catalog.Task {
	t.Helper()
	task, ok := catalog.Default().TaskByID(id)
	require.True(t, ok, id)
	return task
}

func submission(taskID string, seconds int, at time.Time) SubmitRequest {
	return SubmitRequest{
		TaskID:          taskID,
		DurationSeconds: seconds,
		Result:          &SubmitResult{Completed: true, Confidence: growth.ConfidenceHigh},
		Timestamp:       at.Format(time.RFC3339),
	}
}

func TestTodayUsesPrimaryRecommender(t *testing.T) {
	primary := &fakeRecommender{tasks: []catalog.Task{task(t, "creativity_01")}}
	svc := newService(t, growth.NewMemoryRepository(), primary, &stepClock{now: start})

	resp := svc.Today(context.Background(), "")

	assert.Equal(t, DefaultUserID, resp.UserID)
	assert.Equal(t, SourceAI, resp.Source)
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "creativity_01", resp.Cards[0].ID)
	assert.Equal(t, "Learning", resp.Recommendations.Primary)
	assert.Equal(t, "Start with one small step today!", resp.Recommendations.BalanceSuggestion)
	assert.NotNil(t, resp.NextTask)

	svc.Today(context.Background(), "")
	assert.Equal(t, 1, primary.calls, "second call is served from cache")
}

func TestTodayFallsBackToTemplate(t *testing.T) {
	primary := &fakeRecommender{err: recommend.ErrNoRecommendations}
	svc := newService(t, growth.NewMemoryRepository(), primary, &stepClock{now: start})

	resp := svc.Today(context.Background(), "u1")

	assert.Equal(t, SourceTemplate, resp.Source)
	require.Len(t, resp.Cards, 2)
	assert.Equal(t, "learning_01", resp.Cards[0].ID)
	assert.Equal(t, "health_03", resp.Cards[1].ID)
}

func TestTodaySkipsPrimaryWhenRepositoryFails(t *testing.T) {
	primary := &fakeRecommender{tasks: []catalog.Task{task(t, "creativity_01")}}
	svc := newService(t, failingRepo{err: errDown}, primary, &stepClock{now: start})

	resp := svc.Today(context.Background(), "u1")

	assert.Equal(t, SourceTemplate, resp.Source)
	assert.Zero(t, primary.calls)
}

func TestTodayFallsBackToStaticCards(t *testing.T) {
	svc := NewService(Options{
		Repo:     failingRepo{err: errDown},
		Catalog:  catalog.Default(),
		Template: &fakeRecommender{err: errors.New("template broken")},
		Clock:    &stepClock{now: start},
		Location: time.UTC,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	resp := svc.Today(context.Background(), "u1")

	assert.Equal(t, SourceMock, resp.Source)
	assert.Equal(t, "u1", resp.UserID)
	assert.Len(t, resp.Cards, 3)
}

func TestSubmitValidation(t *testing.T) {
	svc := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	valid := submission("health_01", 60, start)

	tests := []struct {
		name   string
		mutate func(*SubmitRequest)
		want   error
	}{
		{"missing task", func(r *SubmitRequest) { r.TaskID = "" }, ErrInvalidSubmission},
		{"zero duration", func(r *SubmitRequest) { r.DurationSeconds = 0 }, ErrInvalidSubmission},
		{"negative duration", func(r *SubmitRequest) { r.DurationSeconds = -5 }, ErrInvalidSubmission},
		{"missing result", func(r *SubmitRequest) { r.Result = nil }, ErrInvalidSubmission},
		{"bad confidence", func(r *SubmitRequest) { r.Result = &SubmitResult{Completed: true, Confidence: "sure"} }, ErrInvalidSubmission},
		{"missing timestamp", func(r *SubmitRequest) { r.Timestamp = "" }, ErrInvalidSubmission},
		{"bad timestamp", func(r *SubmitRequest) { r.Timestamp = "yesterday" }, ErrInvalidSubmission},
		{"unknown task", func(r *SubmitRequest) { r.TaskID = "nope_99" }, ErrUnknownTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := svc.Submit(context.Background(), "u1", req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitThreeConsecutiveDaysEarnsContinuityOnce(t *testing.T) {
	clock := &stepClock{now: start}
	svc := newService(t, growth.NewMemoryRepository(), nil, clock)
	ctx := context.Background()

	var resp SubmitResponse
	var err error
	for day := 0; day < 3; day++ {
		if day > 0 {
			clock.advance(24 * time.Hour)
		}
		resp, err = svc.Submit(ctx, "u1", submission("health_01", 60, clock.Now()))
		require.NoError(t, err)
	}

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"Continuity ★1"}, resp.BadgesEarned)
	assert.Equal(t, 3, resp.StreakUpdated)
	assert.Equal(t, "Congratulations! You earned a new badge!", resp.NextSuggestion)

	again, err := svc.Submit(ctx, "u1", submission("health_01", 60, clock.Now()))
	require.NoError(t, err)
	assert.Empty(t, again.BadgesEarned)
	assert.Equal(t, 3, again.StreakUpdated)
}

func TestSubmitUpdatesDashboard(t *testing.T) {
	clock := &stepClock{now: start}
	svc := newService(t, growth.NewMemoryRepository(), nil, clock)
	ctx := context.Background()

	before := svc.Dashboard(ctx, "u1")
	assert.Zero(t, before.DailySummary.TotalMinutes)

	resp, err := svc.Submit(ctx, "u1", submission("health_01", 180, start))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.StreakUpdated)
	assert.Equal(t, "Today's goal is reached. See you tomorrow!", resp.NextSuggestion)

	after := svc.Dashboard(ctx, "u1")
	assert.Equal(t, 3, after.DailySummary.TotalMinutes)
	assert.Equal(t, []string{"health"}, after.DailySummary.CategoriesActive)
	assert.Equal(t, 1, after.DailySummary.StreakDays)
	require.Len(t, after.WeeklyTrend, 7)
	assert.Equal(t, "2026-03-10", after.WeeklyTrend[6].Date)
	assert.Equal(t, 3, after.WeeklyTrend[6].Minutes)
}

func TestSubmitAccumulatesGrowthMetric(t *testing.T) {
	repo := growth.NewMemoryRepository()
	svc := newService(t, repo, nil, &stepClock{now: start})
	ctx := context.Background()

	_, err := svc.Submit(ctx, "u1", submission("health_01", 60, start))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "u1", submission("health_02", 90, start))
	require.NoError(t, err)

	metrics, err := repo.ListGrowthMetrics(ctx, "u1", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, 3, metrics[0].TotalMinutes)
	assert.Equal(t, 2, metrics[0].ActivityCount)
	assert.Equal(t, 1, metrics[0].StreakDays)
	assert.Zero(t, metrics[0].BalanceScore)
}

func TestSubmitFallsBackToTrackerStreak(t *testing.T) {
	clock := &stepClock{now: start}
	svc := newService(t, failingRepo{err: errDown}, nil, clock)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "u1", submission("health_01", 60, clock.Now()))
	require.NoError(t, err)
	clock.advance(24 * time.Hour)
	resp, err := svc.Submit(ctx, "u1", submission("learning_01", 60, clock.Now()))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.BadgesEarned)
	assert.Equal(t, 2, resp.StreakUpdated)
}

func TestSubmitKeepsSubmittedTimestamp(t *testing.T) {
	svc := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	ctx := context.Background()
	yesterday := start.Add(-24 * time.Hour)

	resp, err := svc.Submit(ctx, "u1", submission("health_01", 60, yesterday))
	require.NoError(t, err)

	progress := svc.Progress(ctx, "u1")
	require.Len(t, progress.State.CompletedTasks, 1)
	assert.True(t, progress.State.CompletedTasks[0].CompletedAt.Equal(yesterday))
	assert.Zero(t, progress.Stats.Today)
	assert.Equal(t, resp.StreakUpdated, progress.Stats.Streak)
	assert.Equal(t, 1, progress.Stats.Streak)
}

func TestSubmitIncompleteIsNotTracked(t *testing.T) {
	svc := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	req := submission("health_01", 60, start)
	req.Result.Completed = false

	resp, err := svc.Submit(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, "No worries. You'll get it next time!", resp.NextSuggestion)
	assert.Zero(t, resp.StreakUpdated)
	assert.Zero(t, svc.Progress(context.Background(), "u1").Stats.Total)
}

func TestSubmitInvalidatesOnlyItsUser(t *testing.T) {
	svc := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	ctx := context.Background()
	for _, id := range []string{"1", "u:1"} {
		svc.Today(ctx, id)
		svc.Dashboard(ctx, id)
	}

	_, err := svc.Submit(ctx, "1", submission("health_01", 60, start))
	require.NoError(t, err)

	_, ok := svc.todayCache.Get(cache.TodayKey("1"))
	assert.False(t, ok)
	_, ok = svc.dashCache.Get(cache.DashboardKey("1"))
	assert.False(t, ok)
	_, ok = svc.todayCache.Get(cache.TodayKey("u:1"))
	assert.True(t, ok)
	_, ok = svc.dashCache.Get(cache.DashboardKey("u:1"))
	assert.True(t, ok)
}

func TestTrackerIsKeptForTheUser(t *testing.T) {
	clock := &stepClock{now: start}
	svc := newService(t, growth.NewMemoryRepository(), nil, clock)
	ctx := context.Background()

	first := svc.tracker(ctx, "u1")
	_, err := svc.Submit(ctx, "u1", submission("health_01", 60, clock.Now()))
	require.NoError(t, err)
	clock.advance(2 * time.Hour)
	_, err = svc.Submit(ctx, "u1", submission("learning_01", 60, clock.Now()))
	require.NoError(t, err)

	assert.Same(t, first, svc.tracker(ctx, "u1"))
	assert.NotSame(t, first, svc.tracker(ctx, "u2"))
	assert.Equal(t, 2, svc.Progress(ctx, "u1").Stats.Total)
}

func TestDashboardFallsBackToStaticData(t *testing.T) {
	svc := newService(t, failingRepo{err: errDown}, nil, &stepClock{now: start})

	got := svc.Dashboard(context.Background(), "u1")

	require.Len(t, got.WeeklyTrend, 7)
	assert.Equal(t, "2026-03-04", got.WeeklyTrend[0].Date)
	assert.Equal(t, "2026-03-10", got.WeeklyTrend[6].Date)
	assert.Equal(t, 5, got.DailySummary.StreakDays)
}

func TestProgressAndReset(t *testing.T) {
	svc := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	ctx := context.Background()

	_, err := svc.Submit(ctx, "u1", submission("health_01", 60, start))
	require.NoError(t, err)

	got := svc.Progress(ctx, "u1")
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 1, got.Stats.Today)
	assert.Equal(t, 1, got.State.CategoryStats["health"])
	assert.Zero(t, svc.Progress(ctx, "u2").Stats.Total)

	reset := svc.ResetProgress(ctx, "u1")
	assert.Zero(t, reset.Stats.Total)
	assert.Empty(t, reset.State.CompletedTasks)
}

func TestHistoryPages(t *testing.T) {
	clock := &stepClock{now: start}
	svc := newService(t, growth.NewMemoryRepository(), nil, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, "u1", submission("health_01", 60, clock.Now()))
		require.NoError(t, err)
		clock.advance(time.Minute)
	}

	first, err := svc.History(ctx, "u1", 2, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.History(ctx, "u1", 2, first.NextPageToken)
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.Empty(t, second.NextPageToken)

	_, err = svc.History(ctx, "u1", 2, "%%%")
	assert.ErrorIs(t, err, growth.ErrInvalidPageToken)
}

func TestSavePreferences(t *testing.T) {
	svc := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	ctx := context.Background()

	_, err := svc.SavePreferences(ctx, "u1", PreferencesRequest{CategoryPreferences: []string{"health", "cooking"}})
	assert.ErrorIs(t, err, ErrInvalidPreferences)

	_, err = svc.SavePreferences(ctx, "u1", PreferencesRequest{})
	assert.ErrorIs(t, err, ErrInvalidPreferences)

	nickname := "Aki"
	user, err := svc.SavePreferences(ctx, "u1", PreferencesRequest{
		Nickname:            &nickname,
		CategoryPreferences: []string{"creativity", "health", "creativity"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Aki", user.Nickname)
	assert.Equal(t, []string{"creativity", "health"}, user.CategoryPreferences)
}

func TestBalanceSuggestionPointsAtQuietPreference(t *testing.T) {
	svc := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	user := &growth.User{CategoryPreferences: []string{"health", "relationship"}}
	recent := []growth.Activity{{Category: "health"}}

	assert.Equal(t, "Relationships has been quiet this week. Try one today.", svc.balanceSuggestion(user, recent))
	assert.Equal(t, "Great consistency, keep it going!", svc.balanceSuggestion(user, append(recent, growth.Activity{Category: "relationship"})))
}

func TestCategoryNameFallsBackToTitleCase(t *testing.T) {
	svc := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	assert.Equal(t, "Deep Work", svc.categoryName("deep_work"))
	assert.Equal(t, "Mindfulness", svc.categoryName("mindfulness"))
}

func TestHealth(t *testing.T) {
	ok := newService(t, growth.NewMemoryRepository(), nil, &stepClock{now: start})
	assert.Equal(t, map[string]string{"datastore": "healthy"}, ok.Health(context.Background()))

	down := newService(t, failingRepo{err: errDown}, nil, &stepClock{now: start})
	assert.Equal(t, map[string]string{"datastore": "unhealthy"}, down.Health(context.Background()))
}
