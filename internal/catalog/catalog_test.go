package catalog

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	categories := c.Categories()
	require.Len(t, categories, 6)
	assert.Equal(t, "health", categories[0].ID)
	assert.Len(t, c.Tasks(), 30)

	for _, cat := range categories {
		assert.Len(t, c.TasksByCategory(cat.ID), 5, cat.ID)
	}

	task, ok := c.TaskByID("productivity_05")
	require.True(t, ok)
	assert.Equal(t, 1500, task.EstimatedSeconds)
	assert.Equal(t, DifficultyHard, task.Difficulty)

	_, ok = c.TaskByID("missing")
	assert.False(t, ok)
	assert.Empty(t, c.TasksByCategory("missing"))
}

func TestTasksReturnsCopy(t *testing.T) {
	c := Default()
	tasks := c.Tasks()
	tasks[0].Title = "mutated"

	again, _ := c.TaskByID(tasks[0].ID)
	assert.NotEqual(t, "mutated", again.Title)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{name: "empty", yaml: "", want: ErrEmptyCatalog},
		{
			name: "unknown category",
			yaml: `
categories: [{id: health}]
tasks: [{id: a, category: art, difficulty: easy, estimated_seconds: 60}]`,
			want: ErrInvalidCatalog,
		},
		{
			name: "duplicate task",
			yaml: `
categories: [{id: health}]
tasks:
  - {id: a, category: health, difficulty: easy, estimated_seconds: 60}
  - {id: a, category: health, difficulty: easy, estimated_seconds: 60}`,
			want: ErrInvalidCatalog,
		},
		{
			name: "bad difficulty",
			yaml: `
categories: [{id: health}]
tasks: [{id: a, category: health, difficulty: extreme, estimated_seconds: 60}]`,
			want: ErrInvalidCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRandomIsDeterministicWithSeed(t *testing.T) {
	c := Default()
	a := c.Random(rand.New(rand.NewPCG(1, 2)))
	b := c.Random(rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, a, b)
}
