package coach

import "errors"

var (
	// ErrInvalidSubmission is returned when a submission misses or malforms a required field.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrUnknownTask is returned when a submission names a task outside the catalog.
	ErrUnknownTask = errors.New("unknown task")
	// ErrInvalidPreferences is returned for preference updates naming unknown categories.
	ErrInvalidPreferences = errors.New("invalid preferences")
)
