// Package recommend proposes today's task cards, either from a language model or
// from fixed time-of-day templates.
package recommend

import (
	"context"
	"errors"

	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/growth"
)

// ErrNoRecommendations is returned when a recommender produced no usable task.
var ErrNoRecommendations = errors.New("no recommendations produced")

// Request is the context a recommendation is based on.
type Request struct {
	User      *growth.User
	Recent    []growth.Activity
	TimeOfDay calendar.TimeOfDay
}

// Recommender returns between one and MaxCards catalog tasks.
type Recommender interface {
	Recommend(ctx context.Context, req Request) ([]catalog.Task, error)
}

// MaxCards bounds the number of cards returned.
const MaxCards = 5

// PrimaryFocus is the category emphasised at each time of day.
func PrimaryFocus(tod calendar.TimeOfDay) string {
	switch tod {
	case calendar.Morning:
		return "learning"
	case calendar.Afternoon:
		return "productivity"
	default:
		return "health"
	}
}
