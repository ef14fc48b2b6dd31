package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/steppy/steppy-service/internal/cache"
	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/coach"
	"github.com/steppy/steppy-service/internal/config"
	"github.com/steppy/steppy-service/internal/dashboard"
	"github.com/steppy/steppy-service/internal/growth"
	"github.com/steppy/steppy-service/internal/httpapi"
	"github.com/steppy/steppy-service/internal/metrics"
	"github.com/steppy/steppy-service/internal/progress"
	"github.com/steppy/steppy-service/internal/ratelimit"
	"github.com/steppy/steppy-service/internal/recommend"
	"github.com/steppy/steppy-service/internal/retry"
	sharedauth "github.com/steppy/steppy-service/internal/shared/auth"
	"github.com/steppy/steppy-service/internal/shared/logging"
	sharedserver "github.com/steppy/steppy-service/internal/shared/server"
)

const serviceName = "steppy-service"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.New(os.Stdout, serviceName, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	repo, cleanupRepo, err := newRepository(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("repository init error: %w", err))
	}
	defer cleanupRepo()

	store, cleanupStore, err := newProgressStore(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("progress store init error: %w", err))
	}
	defer cleanupStore()

	tasks := catalog.Default()
	m := metrics.New()

	var primary recommend.Recommender
	if cfg.GeminiEnabled() {
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = cfg.Recommend.RetryAttempts
		gemini, err := recommend.NewGeminiRecommender(ctx, tasks, recommend.GeminiConfig{
			APIKey:          cfg.Recommend.APIKey,
			Model:           cfg.Recommend.Model,
			MaxOutputTokens: cfg.Recommend.MaxOutputTokens,
			UseVertex:       cfg.Recommend.UseVertex,
			Project:         cfg.GCPProjectID,
			Location:        cfg.Recommend.Location,
			Retry:           retryCfg,
		})
		if err != nil {
			logger.Warn("falling back to template recommendations", slog.String("reason", err.Error()))
		} else {
			primary = gemini
		}
	} else {
		logger.Info("gemini not configured, serving template recommendations")
	}

	service := coach.NewService(coach.Options{
		Repo:          repo,
		Catalog:       tasks,
		Primary:       primary,
		Template:      recommend.NewTemplateRecommender(tasks),
		ProgressStore: store,
		TodayCache:    cache.New[coach.TodayResponse](cfg.Cache.Size, cfg.Cache.TTL),
		DashCache:     cache.New[dashboard.Summary](cfg.Cache.Size, cfg.Cache.TTL),
		Clock:         calendar.SystemClock(),
		Location:      calendar.LoadLocation(cfg.Timezone),
		Logger:        logger,
		Metrics:       m,
		DefaultUserID: cfg.DefaultUserID,
	})

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     sharedauth.Mode(cfg.Auth.Mode),
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	limiterCfg := ratelimit.DefaultConfig()
	if cfg.RateLimit.RPS > 0 {
		limiterCfg.Limit = rate.Limit(cfg.RateLimit.RPS)
	}
	if cfg.RateLimit.Burst > 0 {
		limiterCfg.Burst = cfg.RateLimit.Burst
	}
	limiter := ratelimit.New(limiterCfg)

	router := sharedserver.NewRouter(sharedserver.Options{
		Service:     serviceName,
		Health:      service.Health,
		Middlewares: []func(http.Handler) http.Handler{m.Middleware},
	}, func(r chi.Router) {
		r.Method(http.MethodGet, "/metrics", m.Handler())

		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier, sharedauth.AllowAnonymous()))
			r.Use(limiter.Middleware)

			httpapi.RegisterRoutes(r, service, logger)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := sharedserver.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newRepository(ctx context.Context, cfg config.Config) (growth.Repository, func(), error) {
	switch cfg.DataStore {
	case "firestore":
		databaseID := cfg.Firestore.Database
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
			databaseID = firestore.DefaultDatabaseID
		}

		client, err := firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, databaseID)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		cleanup := func() {
			_ = client.Close()
		}
		return growth.NewFirestoreRepository(client), cleanup, nil
	default:
		return growth.NewMemoryRepository(), func() {}, nil
	}
}

func newProgressStore(ctx context.Context, cfg config.Config) (progress.Store, func(), error) {
	switch cfg.Progress.Store {
	case "sqlite":
		store, err := progress.OpenSQLiteStore(ctx, cfg.Progress.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "gcs":
		store, err := progress.NewGCSStore(ctx, cfg.Progress.Bucket, "progress")
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return progress.NewMemoryStore(), func() {}, nil
	}
}
