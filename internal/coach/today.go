package coach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steppy/steppy-service/internal/cache"
	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/growth"
	"github.com/steppy/steppy-service/internal/recommend"
)

var errNoPrimary = errors.New("no primary recommender configured")

// Today returns the user's cards for today. It always produces a response: the recommender
// result is replaced by the time-of-day template, and that by static cards, on failure.
func (s *Service) Today(ctx context.Context, userID string) TodayResponse {
	userID = s.ResolveUserID(userID)
	if cached, ok := s.todayCache.Get(cache.TodayKey(userID)); ok {
		return cached
	}

	now := s.clock.Now()
	tod := calendar.TimeOfDayAt(now, s.loc)
	logger := s.logger.With("userId", userID, "timeOfDay", string(tod))

	resp := TodayResponse{UserID: userID}
	if next, ok := s.selector.Next(s.catalog.Tasks(), s.tracker(ctx, userID).CompletedTaskIDs()); ok {
		resp.NextTask = &next
	}

	user, recent, err := s.loadContext(ctx, userID, now)
	if err == nil {
		cards, recErr := s.recommendPrimary(ctx, recommend.Request{User: user, Recent: recent, TimeOfDay: tod})
		if recErr == nil {
			resp.Cards = cards
			resp.Source = SourceAI
			resp.Recommendations = Recommendations{
				Primary:           s.categoryName(recommend.PrimaryFocus(tod)),
				BalanceSuggestion: s.balanceSuggestion(user, recent),
			}
			s.todayCache.Set(cache.TodayKey(userID), resp)
			return resp
		}
		err = recErr
	}
	if !errors.Is(err, errNoPrimary) {
		logger.Warn("primary recommendation failed, falling back to template", "error", err)
	}

	cards, err := s.template.Recommend(ctx, recommend.Request{TimeOfDay: tod})
	if err == nil {
		s.metrics.RecordFallback("today", string(SourceTemplate))
		resp.Cards = cards
		resp.Source = SourceTemplate
		resp.Recommendations = Recommendations{
			Primary:           s.categoryName(recommend.PrimaryFocus(tod)),
			BalanceSuggestion: "Let's make today count!",
		}
		s.todayCache.Set(cache.TodayKey(userID), resp)
		return resp
	}
	logger.Warn("template recommendation failed, using static cards", "error", err)

	s.metrics.RecordFallback("today", string(SourceMock))
	mock := mockToday(userID)
	mock.NextTask = resp.NextTask
	return mock
}

func (s *Service) loadContext(ctx context.Context, userID string, now time.Time) (*growth.User, []growth.Activity, error) {
	var (
		user   *growth.User
		recent []growth.Activity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.repo.GetUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		since := calendar.AddDays(calendar.Day(now, s.loc), -(recentDays - 1))
		a, err := s.repo.ListActivities(gctx, userID, since)
		if err != nil {
			return fmt.Errorf("list recent activities: %w", err)
		}
		recent = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if user == nil {
		user = growth.DefaultUser(userID)
	}
	return user, recent, nil
}

func (s *Service) recommendPrimary(ctx context.Context, req recommend.Request) ([]catalog.Task, error) {
	if s.primary == nil {
		return nil, errNoPrimary
	}
	cards, err := s.primary.Recommend(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, recommend.ErrNoRecommendations
	}
	return cards, nil
}

// balanceSuggestion points at the first preferred category missing from the recent week.
func (s *Service) balanceSuggestion(user *growth.User, recent []growth.Activity) string {
	if len(recent) == 0 {
		return "Start with one small step today!"
	}
	touched := make(map[string]struct{}, len(recent))
	for _, a := range recent {
		touched[a.Category] = struct{}{}
	}
	for _, pref := range user.CategoryPreferences {
		if _, ok := touched[pref]; !ok {
			return fmt.Sprintf("%s has been quiet this week. Try one today.", s.categoryName(pref))
		}
	}
	return "Great consistency, keep it going!"
}
