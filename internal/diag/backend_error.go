package diag

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Stage classifies where in the device pipeline a failure happened.
type Stage string

const (
	StageSetup    Stage = "setup"
	StageBuild    Stage = "build"
	StageEnqueue  Stage = "enqueue"
	StageTransfer Stage = "transfer"
)

// BackendError is a failed device API call.
type BackendError struct {
	Stage    Stage
	Op       string // API call, e.g. clEnqueueNDRangeKernel
	Code     int32
	Site     string // file:line of the failing call
	Kernel   string
	Dispatch *Dispatch
	Err      error // underlying cause, if any
}

// NewError records a failure of op with the caller's file and line as site.
func NewError(stage Stage, op string, code int32) *BackendError {
	return NewErrorDepth(1, stage, op, code)
}

// NewErrorDepth is NewError for helpers: depth counts additional stack
// frames between the failing call and NewErrorDepth.
func NewErrorDepth(depth int, stage Stage, op string, code int32) *BackendError {
	site := "unknown:0"
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		site = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return &BackendError{Stage: stage, Op: op, Code: code, Site: site}
}

// Wrap attaches an underlying cause.
func (e *BackendError) Wrap(err error) *BackendError {
	e.Err = err
	return e
}

// WithKernel attaches the kernel name and dispatch shape of an enqueue failure.
func (e *BackendError) WithKernel(name string, d Dispatch) *BackendError {
	e.Kernel = name
	e.Dispatch = &d
	return e
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s: %s (%d)", e.Op, ErrorName(e.Code), e.Code)
	if e.Kernel != "" {
		msg += " in kernel " + e.Kernel
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is matches another *BackendError whose non-zero fields agree, so callers
// can test errors.Is(err, &BackendError{Stage: StageBuild}).
func (e *BackendError) Is(target error) bool {
	t, ok := target.(*BackendError)
	if !ok {
		return false
	}
	if t.Stage != "" && t.Stage != e.Stage {
		return false
	}
	if t.Code != 0 && t.Code != e.Code {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// CodeOf extracts the status code of a wrapped BackendError, or
// InvalidValue when err carries none.
func CodeOf(err error) int32 {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Code
	}
	return InvalidValue
}
