package root

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/progress"
	"github.com/steppy/steppy-service/internal/shared/logging"
)

func resolveDBPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if env := os.Getenv("STEPPY_DB"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".steppy.db"), nil
}

func openTracker(ctx context.Context, dbPath string) (*progress.Tracker, func(), error) {
	path, err := resolveDBPath(dbPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := progress.OpenSQLiteStore(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	tracker := progress.Open(ctx, progress.Options{
		Store:    store,
		Location: calendar.LoadLocation(os.Getenv("STEPPY_TIMEZONE")),
		Logger:   logging.NewText(os.Stderr, slog.LevelWarn),
	})
	cleanup := func() {
		_ = store.Close()
	}
	return tracker, cleanup, nil
}
