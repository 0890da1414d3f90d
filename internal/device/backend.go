// Package device abstracts the compute API a check runs its kernels on.
// The host backend emulates kernels in Go; the OpenCL backend is compiled
// in with the gpu build tag.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/clpixelcheck/internal/diag"
)

// Kind identifies a backend implementation.
type Kind string

const (
	KindHost   Kind = "host"
	KindOpenCL Kind = "opencl"
)

var (
	// ErrUnknownBackend is returned when the name does not match a known backend.
	ErrUnknownBackend = errors.New("unknown device backend")
	// ErrBackendUnavailable indicates the backend is not available in this build.
	ErrBackendUnavailable = errors.New("device backend unavailable")
)

var noopCleanup = func() {}

// Buffer is a device memory object.
type Buffer interface {
	Size() int
}

// Backend runs kernels. Every method returning an error returns a
// *diag.BackendError so failures can be routed to the reporter.
type Backend interface {
	diag.Sources

	Name() string
	// Build compiles the program that all subsequent launches use.
	Build(source, options string) error
	// NewBuffer allocates size bytes, optionally initialised from init.
	NewBuffer(size int, init []byte) (Buffer, error)
	Write(buf Buffer, src []byte) error
	// Launch runs kernel over global work items and waits for completion.
	// A nil local leaves the work-group size to the implementation.
	// Args are Buffers, ints, int32, uint32 or float32.
	Launch(kernel string, global, local []int, args ...any) error
	Read(buf Buffer, dst []byte) error
	// Close releases every acquired resource in reverse order. It is safe
	// to call more than once.
	Close()
}

// Options configures backend construction.
type Options struct {
	// Emulations are the Go renditions of each kernel for the host backend.
	Emulations map[string]Emulation
}

// NormalizeBackend maps arbitrary user input to a canonical backend identifier.
func NormalizeBackend(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "host", "cpu", "emulator":
		return KindHost
	case "gpu", "opencl", "cl":
		return KindOpenCL
	default:
		return Kind(name)
	}
}

// SupportedBackends returns the list of backends understood by the factory.
func SupportedBackends() []Kind {
	return []Kind{KindHost, KindOpenCL}
}

// New constructs the requested backend and returns its cleanup hook.
func New(name string, opts Options) (Backend, func(), error) {
	switch NormalizeBackend(name) {
	case KindHost:
		h := NewHost(opts.Emulations)
		return h, h.Close, nil
	case KindOpenCL:
		return newOpenCL(opts)
	default:
		return nil, noopCleanup, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}
