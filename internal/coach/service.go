// Package coach orchestrates the Steppy request flows: today's cards, submissions and the
// dashboard. Every read path ends in a response; collaborator failures fall back to
// templated and then static data.
package coach

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/steppy/steppy-service/internal/badge"
	"github.com/steppy/steppy-service/internal/cache"
	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/dashboard"
	"github.com/steppy/steppy-service/internal/growth"
	"github.com/steppy/steppy-service/internal/idgen"
	"github.com/steppy/steppy-service/internal/metrics"
	"github.com/steppy/steppy-service/internal/progress"
	"github.com/steppy/steppy-service/internal/recommend"
	"github.com/steppy/steppy-service/internal/selector"
)

const (
	// DefaultUserID is used when a request carries no user.
	DefaultUserID = "demo_user_001"

	recentDays  = 7
	historyDays = 120
	metricDays  = 35
)

var validate = validator.New()

// Options carries the collaborators of a Service. Repo, Catalog and Template are required.
type Options struct {
	Repo      growth.Repository
	Catalog   *catalog.Catalog
	Selector  *selector.Selector
	Primary   recommend.Recommender
	Template  recommend.Recommender
	Evaluator *badge.Evaluator

	ProgressStore progress.Store
	TodayCache    *cache.Cache[TodayResponse]
	DashCache     *cache.Cache[dashboard.Summary]

	Clock         calendar.Clock
	Location      *time.Location
	IDs           idgen.Generator
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	DefaultUserID string
}

// Service implements the Steppy request flows.
type Service struct {
	repo      growth.Repository
	catalog   *catalog.Catalog
	selector  *selector.Selector
	primary   recommend.Recommender
	template  recommend.Recommender
	evaluator *badge.Evaluator

	store      progress.Store
	trackerMu  sync.Mutex
	trackers   map[string]*progress.Tracker // one per user, never evicted
	todayCache *cache.Cache[TodayResponse]
	dashCache  *cache.Cache[dashboard.Summary]

	clock         calendar.Clock
	loc           *time.Location
	ids           idgen.Generator
	logger        *slog.Logger
	metrics       *metrics.Metrics
	defaultUserID string
}

// NewService builds a Service, filling unset optional collaborators with defaults.
func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = calendar.SystemClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.IDs == nil {
		opts.IDs = idgen.NewUUIDGenerator()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Selector == nil {
		opts.Selector = selector.New(nil)
	}
	if opts.Template == nil {
		opts.Template = recommend.NewTemplateRecommender(opts.Catalog)
	}
	if opts.Evaluator == nil {
		opts.Evaluator = badge.NewEvaluator(badge.Options{
			Clock:         opts.Clock,
			Location:      opts.Location,
			IDs:           opts.IDs,
			CategoryCount: len(opts.Catalog.Categories()),
		})
	}
	if opts.ProgressStore == nil {
		opts.ProgressStore = progress.NewMemoryStore()
	}
	if opts.TodayCache == nil {
		opts.TodayCache = cache.New[TodayResponse](cache.DefaultSize, cache.DefaultTTL)
	}
	if opts.DashCache == nil {
		opts.DashCache = cache.New[dashboard.Summary](cache.DefaultSize, cache.DefaultTTL)
	}
	if strings.TrimSpace(opts.DefaultUserID) == "" {
		opts.DefaultUserID = DefaultUserID
	}

	return &Service{
		repo:          opts.Repo,
		catalog:       opts.Catalog,
		selector:      opts.Selector,
		primary:       opts.Primary,
		template:      opts.Template,
		evaluator:     opts.Evaluator,
		store:         opts.ProgressStore,
		trackers:      make(map[string]*progress.Tracker),
		todayCache:    opts.TodayCache,
		dashCache:     opts.DashCache,
		clock:         opts.Clock,
		loc:           opts.Location,
		ids:           opts.IDs,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		defaultUserID: opts.DefaultUserID,
	}
}

// ResolveUserID returns userID, or the configured default user when it is blank.
func (s *Service) ResolveUserID(userID string) string {
	if id := strings.TrimSpace(userID); id != "" {
		return id
	}
	return s.defaultUserID
}

// Tasks lists the catalog, optionally narrowed to one category.
func (s *Service) Tasks(category string) []catalog.Task {
	if category == "" {
		return s.catalog.Tasks()
	}
	return s.catalog.TasksByCategory(category)
}

// BadgeDefinitions lists every badge level with its condition.
func (s *Service) BadgeDefinitions() []badge.Definition {
	return badge.Definitions()
}

// Categories lists the catalog categories.
func (s *Service) Categories() []catalog.Category {
	return s.catalog.Categories()
}

// Health reports the datastore status for /healthz.
func (s *Service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := "healthy"
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Warn("datastore ping failed", "error", err)
		status = "unhealthy"
	}
	return map[string]string{"datastore": status}
}

// tracker returns the progress tracker of userID, opening it from the store on first use.
func (s *Service) tracker(ctx context.Context, userID string) *progress.Tracker {
	s.trackerMu.Lock()
	defer s.trackerMu.Unlock()

	if t, ok := s.trackers[userID]; ok {
		return t
	}
	t := progress.Open(ctx, progress.Options{
		Store:    s.store,
		Key:      progress.DefaultKey + ":" + userID,
		Clock:    s.clock,
		Location: s.loc,
		IDs:      s.ids,
		Logger:   s.logger.With("userId", userID),
	})
	s.trackers[userID] = t
	return t
}

func (s *Service) invalidate(userID string) {
	s.todayCache.Delete(cache.TodayKey(userID))
	s.dashCache.Delete(cache.DashboardKey(userID))
}

// categoryName is the display name of a category id.
func (s *Service) categoryName(id string) string {
	if c, ok := s.catalog.CategoryByID(id); ok && c.Name != "" {
		return c.Name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}
