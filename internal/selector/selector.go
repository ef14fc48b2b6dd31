// Package selector picks the next task so that under-practised categories come first.
package selector

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/steppy/steppy-service/internal/catalog"
)

// Selector chooses tasks with an injected random source.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Selector drawing from rng. A nil rng is seeded from the clock.
func New(rng *rand.Rand) *Selector {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Selector{rng: rng}
}

// Next returns an uncompleted task from the least completed categories. When those
// categories are exhausted it picks any uncompleted task, and once every task is done it
// picks from the whole list. Categories with no completions count as 0. ok is false only
// when tasks is empty.
func (s *Selector) Next(tasks []catalog.Task, completedIDs []string) (catalog.Task, bool) {
	if len(tasks) == 0 {
		return catalog.Task{}, false
	}

	completed := make(map[string]struct{}, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = struct{}{}
	}

	counts := make(map[string]int)
	available := make([]catalog.Task, 0, len(tasks))
	for _, task := range tasks {
		if _, done := completed[task.ID]; done {
			counts[task.Category]++
			continue
		}
		if _, seen := counts[task.Category]; !seen {
			counts[task.Category] = 0
		}
		available = append(available, task)
	}
	if len(available) == 0 {
		return s.pick(tasks), true
	}

	minCount := -1
	for _, n := range counts {
		if minCount < 0 || n < minCount {
			minCount = n
		}
	}

	var under []catalog.Task
	for _, task := range available {
		if counts[task.Category] == minCount {
			under = append(under, task)
		}
	}
	if len(under) == 0 {
		return s.pick(available), true
	}
	return s.pick(under), true
}

func (s *Selector) pick(pool []catalog.Task) catalog.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.rng.IntN(len(pool))]
}
