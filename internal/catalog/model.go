package catalog

// Difficulty grades how demanding a task is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Category groups tasks into a growth area.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Icon        string `json:"icon" yaml:"icon"`
	Color       string `json:"color" yaml:"color"`
	Description string `json:"description" yaml:"description"`
}

// Task is a short growth activity. Tasks are immutable once loaded.
type Task struct {
	ID               string     `json:"id" yaml:"id"`
	Category         string     `json:"category" yaml:"category"`
	Title            string     `json:"title" yaml:"title"`
	Description      string     `json:"description" yaml:"description"`
	EstimatedSeconds int        `json:"estimated_seconds" yaml:"estimated_seconds"`
	Difficulty       Difficulty `json:"difficulty" yaml:"difficulty"`
	Content          string     `json:"content,omitempty" yaml:"content"`
}
