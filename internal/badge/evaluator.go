// Package badge decides which badge levels a user has newly earned.
package badge

import (
	"math"
	"time"

	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/growth"
	"github.com/steppy/steppy-service/internal/idgen"
)

// Input is the history a decision is based on.
type Input struct {
	UserID     string
	Existing   []growth.BadgeEarned
	Activities []growth.Activity
	Metrics    []growth.GrowthMetric
}

// Award is a newly earned badge level.
type Award struct {
	Badge growth.BadgeEarned
	Name  string
}

// Options configures an Evaluator.
type Options struct {
	Clock    calendar.Clock
	Location *time.Location
	IDs      idgen.Generator
	// CategoryCount is the size of the catalog's category set, used for full-coverage levels.
	CategoryCount int
}

// Evaluator computes badge awards. It does not persist anything.
type Evaluator struct {
	opts Options
}

// NewEvaluator builds an Evaluator, filling unset options with system defaults.
func NewEvaluator(opts Options) *Evaluator {
	if opts.Clock == nil {
		opts.Clock = calendar.SystemClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.IDs == nil {
		opts.IDs = idgen.NewUUIDGenerator()
	}
	return &Evaluator{opts: opts}
}

// Evaluate returns the badge levels earned by in that are not already held, in family
// then level order. Each level is checked against its own condition only.
func (e *Evaluator) Evaluate(in Input) []Award {
	now := e.opts.Clock.Now()
	today := calendar.Day(now, e.opts.Location)

	held := make(map[string]struct{}, len(in.Existing))
	for _, b := range in.Existing {
		held[b.Key()] = struct{}{}
	}

	streak := calendar.Streak(growth.CompletionTimes(in.Activities), now, e.opts.Location)
	weekly := activeCategories(in.Metrics, today, 0, 7)
	score := BalanceScore(in.Metrics)

	var awards []Award
	award := func(t growth.BadgeType, qualifies []bool, metadata map[string]any) {
		for i, ok := range qualifies {
			level := i + 1
			key := growth.BadgeEarned{Type: t, Level: level}.Key()
			if _, have := held[key]; have || !ok {
				continue
			}
			awards = append(awards, Award{
				Name: Name(t, level),
				Badge: growth.BadgeEarned{
					ID:       e.opts.IDs.NewID(),
					UserID:   in.UserID,
					Type:     t,
					Level:    level,
					EarnedAt: now,
					Metadata: metadata,
				},
			})
		}
	}

	continuity := make([]bool, len(continuityDays))
	for i, days := range continuityDays {
		continuity[i] = streak >= days
	}
	award(growth.BadgeContinuity, continuity, map[string]any{"consecutive_days": streak})

	challenge := make([]bool, 0, 5)
	for _, n := range challengeCategories {
		challenge = append(challenge, weekly >= n)
	}
	challenge = append(challenge, e.fullCoverage(in.Metrics, today, 1, 30), e.fullCoverage(in.Metrics, today, 4, 7))
	award(growth.BadgeChallenge, challenge, map[string]any{"active_categories": weekly})

	balance := []bool{weekly >= balanceLevelOneCategories}
	for _, threshold := range balanceScores {
		balance = append(balance, score >= threshold)
	}
	award(growth.BadgeBalance, balance, map[string]any{"balance_score": score, "active_categories": weekly})

	return awards
}

// fullCoverage reports whether every catalog category is active in each of the
// windows consecutive trailing windows of span days.
func (e *Evaluator) fullCoverage(metrics []growth.GrowthMetric, today time.Time, windows, span int) bool {
	if e.opts.CategoryCount <= 0 {
		return false
	}
	for w := 0; w < windows; w++ {
		if activeCategories(metrics, today, w*span, span) < e.opts.CategoryCount {
			return false
		}
	}
	return true
}

// activeCategories counts distinct categories with activity in the span days ending
// offset days before today.
func activeCategories(metrics []growth.GrowthMetric, today time.Time, offset, span int) int {
	to := calendar.AddDays(today, -offset).Format(calendar.DateLayout)
	from := calendar.AddDays(today, -offset-span+1).Format(calendar.DateLayout)

	seen := make(map[string]struct{})
	for _, m := range metrics {
		if m.ActivityCount <= 0 || m.Date < from || m.Date > to {
			continue
		}
		seen[m.Category] = struct{}{}
	}
	return len(seen)
}

// BalanceScore is the Shannon entropy (log2) of activity counts across categories.
// It is 0 for no activity or a single category.
func BalanceScore(metrics []growth.GrowthMetric) float64 {
	counts := make(map[string]int)
	total := 0
	for _, m := range metrics {
		if m.ActivityCount <= 0 {
			continue
		}
		counts[m.Category] += m.ActivityCount
		total += m.ActivityCount
	}
	if len(counts) < 2 {
		return 0
	}

	score := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		score -= p * math.Log2(p)
	}
	return score
}
