// Package progress records task completions and derives today/week/streak statistics
// from a single persisted blob.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/idgen"
)

// Options configures a Tracker.
type Options struct {
	Store    Store
	Key      string
	Clock    calendar.Clock
	Location *time.Location
	IDs      idgen.Generator
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Store == nil {
		o.Store = NewMemoryStore()
	}
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.Clock == nil {
		o.Clock = calendar.SystemClock()
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.IDs == nil {
		o.IDs = idgen.NewUUIDGenerator()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Tracker owns one progress blob. Every mutation is written through to the store;
// storage failures are logged and never surfaced.
type Tracker struct {
	mu        sync.Mutex
	opts      Options
	completed []Completion
}

// Open loads the blob for opts.Key. Absent or corrupt data starts an empty history.
func Open(ctx context.Context, opts Options) *Tracker {
	opts.defaults()
	t := &Tracker{opts: opts}

	payload, err := opts.Store.Get(ctx, opts.Key)
	switch {
	case errors.Is(err, ErrNotFound):
		return t
	case err != nil:
		opts.Logger.Warn("load progress failed, starting empty", "key", opts.Key, "error", err)
		return t
	}

	var stored State
	if err := json.Unmarshal(payload, &stored); err != nil {
		opts.Logger.Warn("progress blob is corrupt, starting empty", "key", opts.Key, "error", err)
		return t
	}
	t.completed = validCompletions(stored.CompletedTasks)
	return t
}

func validCompletions(in []Completion) []Completion {
	out := make([]Completion, 0, len(in))
	for _, c := range in {
		if c.TaskID == "" || c.CompletedAt.IsZero() {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out
}

// RecordCompletion appends a completion stamped with the current time and persists the blob.
func (t *Tracker) RecordCompletion(ctx context.Context, taskID, category string, durationSeconds int) Completion {
	return t.RecordCompletionAt(ctx, taskID, category, durationSeconds, t.opts.Clock.Now())
}

// RecordCompletionAt records a completion that happened at at, keeping the history in
// time order, and persists the blob.
func (t *Tracker) RecordCompletionAt(ctx context.Context, taskID, category string, durationSeconds int, at time.Time) Completion {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := Completion{
		ID:          t.opts.IDs.NewID(),
		TaskID:      taskID,
		CompletedAt: at,
		Category:    category,
		Duration:    durationSeconds,
	}
	i := sort.Search(len(t.completed), func(i int) bool { return t.completed[i].CompletedAt.After(at) })
	t.completed = slices.Insert(t.completed, i, c)
	t.saveLocked(ctx)
	return c
}

// Snapshot returns the full state with derived fields computed for now.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return derive(t.completed, t.opts.Clock.Now(), t.opts.Location)
}

// Stats returns today, this week (since Sunday), total and streak counts.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.opts.Clock.Now()
	state := derive(t.completed, now, t.opts.Location)
	weekStart := calendar.WeekStart(now, t.opts.Location)

	thisWeek := 0
	for _, c := range t.completed {
		if !c.CompletedAt.Before(weekStart) {
			thisWeek++
		}
	}

	return Stats{
		Today:    state.TodayCompleted,
		ThisWeek: thisWeek,
		Total:    state.TotalCompleted,
		Streak:   state.CurrentStreak,
	}
}

// CategoryProgress returns completions per category.
func (t *Tracker) CategoryProgress() map[string]int {
	return t.Snapshot().CategoryStats
}

// CompletedTaskIDs lists task ids in completion order, duplicates included.
func (t *Tracker) CompletedTaskIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.completed))
	for _, c := range t.completed {
		ids = append(ids, c.TaskID)
	}
	return ids
}

// Reset clears the history and persists the empty blob.
func (t *Tracker) Reset(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed = nil
	t.saveLocked(ctx)
}

func (t *Tracker) saveLocked(ctx context.Context) {
	state := derive(t.completed, t.opts.Clock.Now(), t.opts.Location)
	payload, err := json.Marshal(state)
	if err != nil {
		t.opts.Logger.Warn("encode progress failed", "key", t.opts.Key, "error", err)
		return
	}
	if err := t.opts.Store.Put(ctx, t.opts.Key, payload); err != nil {
		t.opts.Logger.Warn("save progress failed", "key", t.opts.Key, "error", err)
	}
}
