// Package catalog exposes the static pool of growth tasks and their categories.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tasks.yaml
var embedded []byte

var (
	// ErrEmptyCatalog is returned when a catalog source holds no tasks.
	ErrEmptyCatalog = errors.New("catalog has no tasks")
	// ErrInvalidCatalog wraps structural problems found while loading.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Catalog is an immutable, indexed task pool.
type Catalog struct {
	categories []Category
	tasks      []Task
	byID       map[string]int
	byCategory map[string][]int
}

type document struct {
	Categories []Category `yaml:"categories"`
	Tasks      []Task     `yaml:"tasks"`
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Load(bytes.NewReader(embedded))
	if err != nil {
		panic(fmt.Errorf("embedded catalog: %w", err))
	}
	return c
})

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	return defaultCatalog()
}

// Load parses and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Categories, doc.Tasks)
}

// New validates the given categories and tasks and builds a catalog from them.
func New(categories []Category, tasks []Task) (*Catalog, error) {
	if len(tasks) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		categories: append([]Category(nil), categories...),
		tasks:      append([]Task(nil), tasks...),
		byID:       make(map[string]int, len(tasks)),
		byCategory: make(map[string][]int, len(categories)),
	}

	known := make(map[string]struct{}, len(categories))
	for _, cat := range categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("%w: category without id", ErrInvalidCatalog)
		}
		if _, dup := known[cat.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidCatalog, cat.ID)
		}
		known[cat.ID] = struct{}{}
	}

	for i, task := range c.tasks {
		if task.ID == "" {
			return nil, fmt.Errorf("%w: task %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.byID[task.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate task %q", ErrInvalidCatalog, task.ID)
		}
		if _, ok := known[task.Category]; !ok {
			return nil, fmt.Errorf("%w: task %q has unknown category %q", ErrInvalidCatalog, task.ID, task.Category)
		}
		if !task.Difficulty.Valid() {
			return nil, fmt.Errorf("%w: task %q has difficulty %q", ErrInvalidCatalog, task.ID, task.Difficulty)
		}
		if task.EstimatedSeconds <= 0 {
			return nil, fmt.Errorf("%w: task %q needs a positive duration", ErrInvalidCatalog, task.ID)
		}
		c.byID[task.ID] = i
		c.byCategory[task.Category] = append(c.byCategory[task.Category], i)
	}

	return c, nil
}

// Tasks returns every task in catalog order.
func (c *Catalog) Tasks() []Task {
	return append([]Task(nil), c.tasks...)
}

// Categories returns the declared categories in catalog order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// TaskByID looks up a task.
func (c *Catalog) TaskByID(id string) (Task, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Task{}, false
	}
	return c.tasks[idx], true
}

// TasksByCategory returns the tasks of one category, empty for unknown ids.
func (c *Catalog) TasksByCategory(categoryID string) []Task {
	indexes := c.byCategory[categoryID]
	out := make([]Task, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, c.tasks[idx])
	}
	return out
}

// CategoryByID looks up a category.
func (c *Catalog) CategoryByID(id string) (Category, bool) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// Random picks a task uniformly. A nil rng uses the package-level source.
func (c *Catalog) Random(rng *rand.Rand) Task {
	if rng == nil {
		return c.tasks[rand.IntN(len(c.tasks))]
	}
	return c.tasks[rng.IntN(len(c.tasks))]
}
