package recommend

import (
	"context"
	"fmt"

	"github.com/steppy/steppy-service/internal/calendar"
	"github.com/steppy/steppy-service/internal/catalog"
)

var templateTaskIDs = map[calendar.TimeOfDay][]string{
	calendar.Morning:   {"learning_01", "health_03"},
	calendar.Afternoon: {"productivity_01", "productivity_02"},
	calendar.Evening:   {"mindfulness_05", "health_01"},
}

// TemplateRecommender serves a fixed pair of tasks per time of day. It needs no network.
type TemplateRecommender struct {
	catalog *catalog.Catalog
}

// NewTemplateRecommender builds a TemplateRecommender over c.
func NewTemplateRecommender(c *catalog.Catalog) *TemplateRecommender {
	return &TemplateRecommender{catalog: c}
}

func (t *TemplateRecommender) Recommend(_ context.Context, req Request) ([]catalog.Task, error) {
	ids, ok := templateTaskIDs[req.TimeOfDay]
	if !ok {
		ids = templateTaskIDs[calendar.Morning]
	}

	tasks := make([]catalog.Task, 0, len(ids))
	for _, id := range ids {
		task, ok := t.catalog.TaskByID(id)
		if !ok {
			return nil, fmt.Errorf("template task %s missing from catalog", id)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
