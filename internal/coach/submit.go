package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/steppy/steppy-service/internal/badge"
	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/dashboard"
	"github.com/steppy/steppy-service/internal/growth"
)

// dailyGoalMinutes is the minutes a day should add up to before the goal counts as reached.
const dailyGoalMinutes = 3

// Submit records a task result. Validation errors are returned; collaborator failures are not:
// when the repository is unavailable the completion is still kept by the progress tracker and
// the response carries the tracker's streak and no badges.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (SubmitResponse, error) {
	userID = s.ResolveUserID(userID)

	completedAt, err := validateSubmission(req)
	if err != nil {
		return SubmitResponse{}, err
	}
	task, ok := s.catalog.TaskByID(strings.TrimSpace(req.TaskID))
	if !ok {
		return SubmitResponse{}, fmt.Errorf("%w: %s", ErrUnknownTask, req.TaskID)
	}

	defer s.invalidate(userID)

	tracker := s.tracker(ctx, userID)
	if req.Result.Completed {
		tracker.RecordCompletionAt(ctx, task.ID, task.Category, req.DurationSeconds, completedAt)
	}
	s.metrics.RecordCompletion(task.Category, req.Result.Completed)

	resp, err := s.submitPrimary(ctx, userID, task, req, completedAt)
	if err == nil {
		return resp, nil
	}

	s.logger.Warn("submit persistence failed, answering from progress tracker",
		"userId", userID, "taskId", task.ID, "error", err)
	s.metrics.RecordFallback("submit", "tracker")

	suggestion := "Nice work! Keep the streak going."
	if !req.Result.Completed {
		suggestion = nextSuggestion(false, 0, 0)
	}
	return SubmitResponse{
		Success:        true,
		BadgesEarned:   []string{},
		StreakUpdated:  tracker.Stats().Streak,
		NextSuggestion: suggestion,
	}, nil
}

func validateSubmission(req SubmitRequest) (time.Time, error) {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return time.Time{}, fmt.Errorf("%w: %s failed %q", ErrInvalidSubmission, verrs[0].Field(), verrs[0].Tag())
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	completedAt, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp must be RFC3339", ErrInvalidSubmission)
	}
	return completedAt, nil
}

func (s *Service) submitPrimary(ctx context.Context, userID string, task catalog.Task, req SubmitRequest, completedAt time.Time) (SubmitResponse, error) {
	now := s.clock.Now()

	activity := growth.Activity{
		ID:              s.ids.NewID(),
		UserID:          userID,
		TaskID:          task.ID,
		Category:        task.Category,
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
		StartedAt:       completedAt.Add(-time.Duration(req.DurationSeconds) * time.Second),
		CompletedAt:     completedAt,
		DurationSeconds: req.DurationSeconds,
		Result:          growth.ActivityResult{Completed: req.Result.Completed, Confidence: req.Result.Confidence},
		Source:          growth.SourceApp,
		CreatedAt:       now,
	}
	if err := s.repo.CreateActivity(ctx, activity); err != nil {
		return SubmitResponse{}, fmt.Errorf("create activity: %w", err)
	}

	var (
		activities []growth.Activity
		metrics    []growth.GrowthMetric
		existing   []growth.BadgeEarned
	)
	today := calendar.Day(now, s.loc)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.repo.ListActivities(gctx, userID, calendar.AddDays(today, -historyDays))
		if err != nil {
			return fmt.Errorf("list activities: %w", err)
		}
		activities = a
		return nil
	})
	g.Go(func() error {
		m, err := s.repo.ListGrowthMetrics(gctx, userID, calendar.AddDays(today, -(metricDays-1)).Format(calendar.DateLayout))
		if err != nil {
			return fmt.Errorf("list growth metrics: %w", err)
		}
		metrics = m
		return nil
	})
	g.Go(func() error {
		b, err := s.repo.ListBadges(gctx, userID)
		if err != nil {
			return fmt.Errorf("list badges: %w", err)
		}
		existing = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return SubmitResponse{}, err
	}
	activities = includeActivity(activities, activity)

	streak := calendar.Streak(growth.CompletionTimes(activities), now, s.loc)

	metrics, err := s.upsertMetric(ctx, metrics, activity, streak, now)
	if err != nil {
		return SubmitResponse{}, err
	}

	awards := s.evaluator.Evaluate(badge.Input{
		UserID:     userID,
		Existing:   existing,
		Activities: activities,
		Metrics:    metrics,
	})
	names := s.persistAwards(ctx, awards)

	todayMinutes := 0
	todayKey := calendar.Key(now, s.loc)
	for _, a := range activities {
		if calendar.Key(a.CompletedAt, s.loc) == todayKey {
			todayMinutes += dashboard.Minutes(a.DurationSeconds)
		}
	}

	return SubmitResponse{
		Success:        true,
		BadgesEarned:   names,
		StreakUpdated:  streak,
		NextSuggestion: nextSuggestion(req.Result.Completed, len(names), todayMinutes),
	}, nil
}

// upsertMetric adds activity to its (date, category) row and returns metrics with the row
// replaced. Concurrent submissions for the same row race; the last write wins.
func (s *Service) upsertMetric(ctx context.Context, metrics []growth.GrowthMetric, activity growth.Activity, streak int, now time.Time) ([]growth.GrowthMetric, error) {
	row := growth.GrowthMetric{
		UserID:   activity.UserID,
		Date:     calendar.Key(activity.CompletedAt, s.loc),
		Category: activity.Category,
	}
	idx := -1
	for i, m := range metrics {
		if m.Key() == row.Key() {
			row = m
			idx = i
			break
		}
	}
	row.UserID = activity.UserID
	row.TotalMinutes += dashboard.Minutes(activity.DurationSeconds)
	row.ActivityCount++
	row.StreakDays = streak
	row.UpdatedAt = now.UTC()

	updated := make([]growth.GrowthMetric, 0, len(metrics)+1)
	updated = append(updated, metrics...)
	if idx >= 0 {
		updated[idx] = row
	} else {
		updated = append(updated, row)
	}
	row.BalanceScore = badge.BalanceScore(updated)
	if idx >= 0 {
		updated[idx] = row
	} else {
		updated[len(updated)-1] = row
	}

	if err := s.repo.UpsertGrowthMetric(ctx, row); err != nil {
		return nil, fmt.Errorf("upsert growth metric: %w", err)
	}
	return updated, nil
}

// persistAwards stores new badges. A failed write is logged and the badge is still reported;
// the next evaluation re-checks it because creation is idempotent.
func (s *Service) persistAwards(ctx context.Context, awards []badge.Award) []string {
	names := make([]string, 0, len(awards))
	for _, award := range awards {
		created, err := s.repo.CreateBadge(ctx, award.Badge)
		switch {
		case err != nil:
			s.logger.Warn("persist badge failed",
				"userId", award.Badge.UserID, "badge", award.Badge.Key(), "error", err)
		case !created:
			continue
		}
		s.metrics.RecordBadge(string(award.Badge.Type), award.Badge.Level)
		names = append(names, award.Name)
	}
	return names
}

func includeActivity(activities []growth.Activity, activity growth.Activity) []growth.Activity {
	for _, a := range activities {
		if a.ID == activity.ID {
			return activities
		}
	}
	return append(activities, activity)
}

func nextSuggestion(completed bool, badges, todayMinutes int) string {
	switch {
	case !completed:
		return "No worries. You'll get it next time!"
	case badges > 0:
		return "Congratulations! You earned a new badge!"
	case todayMinutes < dailyGoalMinutes:
		remaining := dailyGoalMinutes - todayMinutes
		if remaining == 1 {
			return "Just 1 more minute to reach today's goal!"
		}
		return fmt.Sprintf("%d more minutes to reach today's goal!", remaining)
	default:
		return "Today's goal is reached. See you tomorrow!"
	}
}
