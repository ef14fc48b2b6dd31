package progress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/idgen"
)

type mutableClock struct{ now time.Time }

func (c *mutableClock) Now() time.Time { return c.now }

type failingStore struct {
	getErr error
	putErr error
	puts   int
}

func (s *failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.getErr }

func (s *failingStore) Put(context.Context, string, []byte) error {
	s.puts++
	return s.putErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 2026-03-11 is a Wednesday.
var wednesday = time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

func newTracker(t *testing.T, store Store, clock calendar.Clock) *Tracker {
	t.Helper()
	return Open(context.Background(), Options{
		Store:    store,
		Clock:    clock,
		Location: time.UTC,
		IDs:      &idgen.Sequence{IDs: []string{"c1", "c2", "c3", "c4", "c5"}},
		Logger:   quietLogger(),
	})
}

func TestRecordCompletionAndStats(t *testing.T) {
	clock := &mutableClock{now: wednesday.AddDate(0, 0, -4)} // Saturday of the previous week
	tracker := newTracker(t, NewMemoryStore(), clock)
	ctx := context.Background()

	tracker.RecordCompletion(ctx, "health_01", "health", 60)
	clock.now = wednesday.AddDate(0, 0, -1)
	tracker.RecordCompletion(ctx, "learning_01", "learning", 180)
	clock.now = wednesday
	c := tracker.RecordCompletion(ctx, "health_02", "health", 60)
	tracker.RecordCompletion(ctx, "health_01", "health", 60)

	assert.Equal(t, "c3", c.ID)
	assert.Equal(t, Stats{Today: 2, ThisWeek: 3, Total: 4, Streak: 2}, tracker.Stats())
	assert.Equal(t, map[string]int{"health": 3, "learning": 1}, tracker.CategoryProgress())
	assert.Equal(t, []string{"health_01", "learning_01", "health_02", "health_01"}, tracker.CompletedTaskIDs())

	snap := tracker.Snapshot()
	require.Len(t, snap.WeeklyActivity, 7)
	assert.Equal(t, DayCount{Date: "2026-03-11", Count: 2}, snap.WeeklyActivity[6])
	assert.Equal(t, DayCount{Date: "2026-03-10", Count: 1}, snap.WeeklyActivity[5])
	assert.Equal(t, DayCount{Date: "2026-03-07", Count: 1}, snap.WeeklyActivity[2])
}

func TestDerivedFieldsRecomputedOnLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	stale := State{
		TotalCompleted: 99,
		TodayCompleted: 5,
		CurrentStreak:  40,
		CompletedTasks: []Completion{
			{ID: "a", TaskID: "health_01", Category: "health", CompletedAt: wednesday.AddDate(0, 0, -3)},
		},
	}
	payload, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, DefaultKey, payload))

	tracker := newTracker(t, store, &mutableClock{now: wednesday})
	assert.Equal(t, Stats{Today: 0, ThisWeek: 1, Total: 1, Streak: 0}, tracker.Stats())
}

func TestCorruptBlobStartsEmpty(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), DefaultKey, []byte("{not json")))

	tracker := newTracker(t, store, &mutableClock{now: wednesday})
	assert.Equal(t, Stats{}, tracker.Stats())
	assert.Empty(t, tracker.CompletedTaskIDs())
}

func TestStoreFailuresAreSwallowed(t *testing.T) {
	store := &failingStore{getErr: errors.New("disk gone"), putErr: errors.New("disk gone")}
	tracker := newTracker(t, store, &mutableClock{now: wednesday})

	tracker.RecordCompletion(context.Background(), "health_01", "health", 60)

	assert.Equal(t, 1, store.puts)
	assert.Equal(t, 1, tracker.Stats().Total)
}

func TestResetPersistsEmptyState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tracker := newTracker(t, store, &mutableClock{now: wednesday})
	tracker.RecordCompletion(ctx, "health_01", "health", 60)

	tracker.Reset(ctx)

	reopened := newTracker(t, store, &mutableClock{now: wednesday})
	assert.Equal(t, Stats{}, reopened.Stats())

	payload, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	var state State
	require.NoError(t, json.Unmarshal(payload, &state))
	assert.Empty(t, state.CompletedTasks)
	assert.Len(t, state.WeeklyActivity, 7)
}

func TestStreakBreaksAfterGap(t *testing.T) {
	clock := &mutableClock{now: wednesday.AddDate(0, 0, -5)}
	tracker := newTracker(t, NewMemoryStore(), clock)
	tracker.RecordCompletion(context.Background(), "health_01", "health", 60)

	clock.now = wednesday
	assert.Equal(t, 0, tracker.Stats().Streak)
}

func TestRecordCompletionAtKeepsTimeOrder(t *testing.T) {
	tracker := newTracker(t, NewMemoryStore(), &mutableClock{now: wednesday})
	ctx := context.Background()

	tracker.RecordCompletion(ctx, "health_01", "health", 60)
	tracker.RecordCompletionAt(ctx, "learning_01", "learning", 60, wednesday.AddDate(0, 0, -1))

	assert.Equal(t, []string{"learning_01", "health_01"}, tracker.CompletedTaskIDs())
	stats := tracker.Stats()
	assert.Equal(t, 1, stats.Today)
	assert.Equal(t, 2, stats.Streak)
}
