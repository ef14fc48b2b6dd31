package growth

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu         sync.RWMutex
	users      map[string]User
	activities map[string][]Activity
	metrics    map[string]map[string]GrowthMetric
	badges     map[string]map[string]BadgeEarned
}

// NewMemoryRepository returns an in-process repository for local runs and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:      make(map[string]User),
		activities: make(map[string][]Activity),
		metrics:    make(map[string]map[string]GrowthMetric),
		badges:     make(map[string]map[string]BadgeEarned),
	}
}

func (r *memoryRepository) GetUser(_ context.Context, userID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return DefaultUser(userID), nil
	}
	user.CategoryPreferences = append([]string(nil), user.CategoryPreferences...)
	return &user, nil
}

func (r *memoryRepository) SaveUser(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.CategoryPreferences = append([]string(nil), user.CategoryPreferences...)
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) CreateActivity(_ context.Context, activity Activity) error {
	if err := validateActivity(activity); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[activity.UserID] = append(r.activities[activity.UserID], activity)
	return nil
}

// sortedActivities returns a copy, newest first.
func (r *memoryRepository) sortedActivities(userID string) []Activity {
	items := append([]Activity(nil), r.activities[userID]...)
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CompletedAt.Equal(items[j].CompletedAt) {
			return items[i].CompletedAt.After(items[j].CompletedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items
}

func (r *memoryRepository) ListActivities(_ context.Context, userID string, since time.Time) ([]Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Activity
	for _, a := range r.sortedActivities(userID) {
		if a.CompletedAt.Before(since) {
			break
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *memoryRepository) ListActivitiesPage(_ context.Context, userID string, pageSize int, pageToken string) (ActivityPage, error) {
	anchor, anchorID, hasAnchor, err := decodePageToken(pageToken)
	if err != nil {
		return ActivityPage{}, err
	}
	size := normalizePageSize(pageSize)

	r.mu.RLock()
	defer r.mu.RUnlock()

	page := ActivityPage{Items: []Activity{}}
	var more bool
	for _, a := range r.sortedActivities(userID) {
		if hasAnchor {
			if a.CompletedAt.After(anchor) || (a.CompletedAt.Equal(anchor) && a.ID >= anchorID) {
				continue
			}
		}
		if len(page.Items) == size {
			more = true
			break
		}
		page.Items = append(page.Items, a)
	}
	if more {
		last := page.Items[len(page.Items)-1]
		page.NextPageToken = encodePageToken(last.CompletedAt, last.ID)
	}
	return page, nil
}

func (r *memoryRepository) UpsertGrowthMetric(_ context.Context, metric GrowthMetric) error {
	if err := validateMetric(metric); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, ok := r.metrics[metric.UserID]
	if !ok {
		rows = make(map[string]GrowthMetric)
		r.metrics[metric.UserID] = rows
	}
	rows[metric.Key()] = metric
	return nil
}

func (r *memoryRepository) ListGrowthMetrics(_ context.Context, userID string, sinceDate string) ([]GrowthMetric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []GrowthMetric
	for _, m := range r.metrics[userID] {
		if m.Date >= sinceDate {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (r *memoryRepository) ListBadges(_ context.Context, userID string) ([]BadgeEarned, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BadgeEarned, 0, len(r.badges[userID]))
	for _, b := range r.badges[userID] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EarnedAt.Before(out[j].EarnedAt) || (out[i].EarnedAt.Equal(out[j].EarnedAt) && out[i].Key() < out[j].Key()) })
	return out, nil
}

func (r *memoryRepository) CreateBadge(_ context.Context, badge BadgeEarned) (bool, error) {
	if err := validateBadge(badge); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, ok := r.badges[badge.UserID]
	if !ok {
		rows = make(map[string]BadgeEarned)
		r.badges[badge.UserID] = rows
	}
	if _, exists := rows[badge.Key()]; exists {
		return false, nil
	}
	rows[badge.Key()] = badge
	return true, nil
}

func (r *memoryRepository) Ping(context.Context) error { return nil }
