// Package store persists what the checks produce: image artifacts in PPM,
// PNG, TIFF or BMP, and suite run records with their result tables.
package store

// Store defines persistence for suite runs.
//
// Error handling conventions:
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun atomically writes the run record, replacing an earlier one
	// with the same ID.
	SaveRun(run *Run) error

	// LoadRun returns the record of the run, or ErrNotFound.
	LoadRun(runID string) (*Run, error)

	// ListRuns returns the metadata of every readable run, oldest first.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the run directory, including logs and artifacts
	// written below it.
	DeleteRun(runID string) error
}

// ErrNotFound is returned when a requested run or file does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
