package store

import (
	"fmt"
	"time"
)

// Result is one row of the suite tables: a single check invocation.
type Result struct {
	// App is the check name (pattern, blend, scale, ...).
	App string `json:"app"`

	// Variant names the argument set (quick, pretty, tail, padding).
	Variant string `json:"variant"`

	// Driver is the backend the check ran on.
	Driver string `json:"driver"`

	// Args is the command line of the check, without the binary name.
	Args string `json:"args"`

	// ExitCode is 0 on pass. Failures use the exit codes of the CLI.
	ExitCode int `json:"exit_code"`

	// Elapsed is the wall time of the check in seconds.
	Elapsed float64 `json:"elapsed_s"`

	// Log is the path of the captured check output.
	Log string `json:"log"`

	// Artifacts are the image files the check wrote.
	Artifacts []string `json:"artifacts"`

	// Error is the failure message, empty on pass.
	Error string `json:"error,omitempty"`
}

// Passed reports whether the check exited cleanly.
func (r Result) Passed() bool { return r.ExitCode == 0 }

// Run is a complete suite invocation.
type Run struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Driver     string    `json:"driver"`
	OutDir     string    `json:"outDir"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	Results    []Result  `json:"results"`
}

// RunInfo is the listing view of a run without its result rows.
type RunInfo struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Driver    string    `json:"driver"`
	StartedAt time.Time `json:"startedAt"`
	Elapsed   float64   `json:"elapsed_s"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
}

// Counts returns the number of passed and failed results.
func (r *Run) Counts() (passed, failed int) {
	for _, res := range r.Results {
		if res.Passed() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// ToInfo converts a full Run to its listing metadata.
func (r *Run) ToInfo() RunInfo {
	passed, failed := r.Counts()
	info := RunInfo{
		ID:        r.ID,
		Mode:      r.Mode,
		Driver:    r.Driver,
		StartedAt: r.StartedAt,
		Passed:    passed,
		Failed:    failed,
	}
	if !r.FinishedAt.IsZero() {
		info.Elapsed = r.FinishedAt.Sub(r.StartedAt).Seconds()
	}
	return info
}

// Validate checks the fields every stored run must carry.
func (r *Run) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if r.Mode == "" {
		return &ValidationError{Field: "Mode", Reason: "cannot be empty"}
	}
	if r.StartedAt.IsZero() {
		return &ValidationError{Field: "StartedAt", Reason: "cannot be zero"}
	}
	if !r.FinishedAt.IsZero() && r.FinishedAt.Before(r.StartedAt) {
		return &ValidationError{Field: "FinishedAt", Reason: "before StartedAt"}
	}
	for i, res := range r.Results {
		if res.App == "" {
			return &ValidationError{Field: fmt.Sprintf("Results[%d].App", i), Reason: "cannot be empty"}
		}
		if res.Elapsed < 0 {
			return &ValidationError{Field: fmt.Sprintf("Results[%d].Elapsed", i), Reason: "cannot be negative"}
		}
	}
	return nil
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
