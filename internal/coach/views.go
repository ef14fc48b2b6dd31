package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/steppy/steppy-service/internal/cache"
	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/dashboard"
	"github.com/steppy/steppy-service/internal/growth"
)

// Dashboard returns the user's dashboard, or static data when the repository is unavailable.
func (s *Service) Dashboard(ctx context.Context, userID string) dashboard.Summary {
	userID = s.ResolveUserID(userID)

	summary, err := s.dashCache.GetOrLoad(ctx, cache.DashboardKey(userID), func(ctx context.Context) (dashboard.Summary, error) {
		return s.loadDashboard(ctx, userID)
	})
	if err != nil {
		s.logger.Warn("dashboard load failed, using static data", "userId", userID, "error", err)
		s.metrics.RecordFallback("dashboard", string(SourceMock))
		return mockDashboard(s.clock.Now(), s.loc)
	}
	return summary
}

func (s *Service) loadDashboard(ctx context.Context, userID string) (dashboard.Summary, error) {
	now := s.clock.Now()
	today := calendar.Day(now, s.loc)

	var in dashboard.Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.repo.ListActivities(gctx, userID, calendar.AddDays(today, -historyDays))
		if err != nil {
			return fmt.Errorf("list activities: %w", err)
		}
		in.Activities = a
		return nil
	})
	g.Go(func() error {
		since := calendar.AddDays(today, -(dashboard.TrendDays - 1)).Format(calendar.DateLayout)
		m, err := s.repo.ListGrowthMetrics(gctx, userID, since)
		if err != nil {
			return fmt.Errorf("list growth metrics: %w", err)
		}
		in.Metrics = m
		return nil
	})
	g.Go(func() error {
		b, err := s.repo.ListBadges(gctx, userID)
		if err != nil {
			return fmt.Errorf("list badges: %w", err)
		}
		in.Badges = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return dashboard.Summary{}, err
	}
	return dashboard.Aggregate(in, now, s.loc), nil
}

// Progress returns the user's progress tracker statistics and state.
func (s *Service) Progress(ctx context.Context, userID string) ProgressResponse {
	userID = s.ResolveUserID(userID)
	t := s.tracker(ctx, userID)
	return ProgressResponse{UserID: userID, Stats: t.Stats(), State: t.Snapshot()}
}

// ResetProgress clears the user's progress tracker and returns the emptied view.
func (s *Service) ResetProgress(ctx context.Context, userID string) ProgressResponse {
	userID = s.ResolveUserID(userID)
	t := s.tracker(ctx, userID)
	t.Reset(ctx)
	s.invalidate(userID)
	return ProgressResponse{UserID: userID, Stats: t.Stats(), State: t.Snapshot()}
}

// History returns one page of the user's activities, newest first.
func (s *Service) History(ctx context.Context, userID string, pageSize int, pageToken string) (growth.ActivityPage, error) {
	return s.repo.ListActivitiesPage(ctx, s.ResolveUserID(userID), pageSize, pageToken)
}

// SavePreferences stores the user's nickname and category preferences.
func (s *Service) SavePreferences(ctx context.Context, userID string, req PreferencesRequest) (*growth.User, error) {
	userID = s.ResolveUserID(userID)

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%w: %s failed %q", ErrInvalidPreferences, verrs[0].Field(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}

	prefs := make([]string, 0, len(req.CategoryPreferences))
	seen := make(map[string]struct{}, len(req.CategoryPreferences))
	for _, raw := range req.CategoryPreferences {
		id := strings.TrimSpace(raw)
		if _, ok := s.catalog.CategoryByID(id); !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidPreferences, raw)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		prefs = append(prefs, id)
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		user = growth.DefaultUser(userID)
	}
	user.ID = userID
	if req.Nickname != nil {
		user.Nickname = strings.TrimSpace(*req.Nickname)
	}
	user.CategoryPreferences = prefs

	if err := s.repo.SaveUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	s.invalidate(userID)

	return s.repo.GetUser(ctx, userID)
}
