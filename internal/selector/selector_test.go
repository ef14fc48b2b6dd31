package selector

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steppy/steppy-service/internal/catalog"
)

func seeded(seed uint64) *Selector {
	return New(rand.New(rand.NewPCG(seed, seed+1)))
}

func TestNextPrefersUnderRepresentedCategory(t *testing.T) {
	tasks := []catalog.Task{
		{ID: "A", Category: "cat1"},
		{ID: "B", Category: "cat1"},
		{ID: "C", Category: "cat2"},
	}

	for seed := uint64(0); seed < 50; seed++ {
		got, ok := seeded(seed).Next(tasks, []string{"A"})
		require.True(t, ok)
		assert.Equal(t, "C", got.ID)
	}
}

func TestNextFallbacks(t *testing.T) {
	tasks := []catalog.Task{
		{ID: "A", Category: "cat1"},
		{ID: "B", Category: "cat2"},
		{ID: "C", Category: "cat2"},
		{ID: "D", Category: "cat2"},
	}

	tests := []struct {
		name      string
		completed []string
		want      []string
	}{
		{name: "least completed category exhausted", completed: []string{"A", "B", "C"}, want: []string{"D"}},
		{name: "repeated completions count once", completed: []string{"A", "B", "B"}, want: []string{"C", "D"}},
		{name: "everything completed", completed: []string{"A", "B", "C", "D"}, want: []string{"A", "B", "C", "D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := map[string]bool{}
			for seed := uint64(0); seed < 200; seed++ {
				got, ok := seeded(seed).Next(tasks, tt.completed)
				require.True(t, ok)
				assert.Contains(t, tt.want, got.ID)
				seen[got.ID] = true
			}
			assert.Len(t, seen, len(tt.want))
		})
	}
}

func TestNextSkipsCompletedInsideCategory(t *testing.T) {
	tasks := []catalog.Task{
		{ID: "A", Category: "cat1"},
		{ID: "B", Category: "cat1"},
		{ID: "C", Category: "cat2"},
		{ID: "D", Category: "cat2"},
	}

	for seed := uint64(0); seed < 50; seed++ {
		got, ok := seeded(seed).Next(tasks, []string{"A", "C", "D"})
		require.True(t, ok)
		assert.Equal(t, "B", got.ID)
	}
}

func TestNextIgnoresUnknownCompletedIDs(t *testing.T) {
	tasks := []catalog.Task{{ID: "A", Category: "cat1"}}

	got, ok := seeded(1).Next(tasks, []string{"ghost", "ghost"})
	require.True(t, ok)
	assert.Equal(t, "A", got.ID)
}

func TestNextEmptyCatalog(t *testing.T) {
	_, ok := seeded(1).Next(nil, []string{"A"})
	assert.False(t, ok)
}

func TestNextCoversWholeMinimumPool(t *testing.T) {
	tasks := catalog.Default().Tasks()
	s := seeded(42)

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		got, ok := s.Next(tasks, nil)
		require.True(t, ok)
		seen[got.ID] = true
	}
	assert.Len(t, seen, len(tasks))
}
