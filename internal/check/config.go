// Package check runs the kernel correctness checks: each one renders a
// reference image on the host, dispatches the matching kernel on a device
// backend and compares the two.
package check

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/clpixelcheck/internal/device"
	"github.com/cwbudde/clpixelcheck/internal/pixel"
	"github.com/cwbudde/clpixelcheck/internal/reference"
	"github.com/cwbudde/clpixelcheck/internal/store"
)

var (
	// ErrConfig marks invalid arguments. It is returned before any backend
	// work starts.
	ErrConfig = errors.New("invalid configuration")
	// ErrMismatch is returned when a device image differs from its
	// reference by more than the check tolerance.
	ErrMismatch = errors.New("pixel mismatch")
)

// Config holds the arguments shared by every check. Checks read the
// fields they need and ignore the rest.
type Config struct {
	Width  int
	Height int
	// Stride is in bytes. 0 selects the check's default layout.
	Stride int
	Mode   int
	Seed   int
	// OutWidth and OutHeight size the scaler output. 0 means twice the input.
	OutWidth  int
	OutHeight int
	// Format is the layout the pattern readback is converted to before
	// comparison.
	Format pixel.Format
	// Rect is the scanout patch rectangle. A zero W or H selects the
	// centered default.
	Rect reference.Rect

	Dump           bool
	OutDir         string
	Prefix         string
	ArtifactFormat store.ImageFormat

	Backend string
	// Local is the work-group size for every launch; nil leaves it to
	// the implementation.
	Local []int

	Style      string
	Polyhedron reference.PolyhedronParams
	// KnobOverride is set when the knob radius was given explicitly.
	KnobOverride bool
}

// DefaultConfig returns the defaults of the command line.
func DefaultConfig() Config {
	return Config{
		Width:          64,
		Height:         64,
		Seed:           1,
		Format:         pixel.RGBA8888,
		OutDir:         "artifacts",
		ArtifactFormat: store.FormatPPM,
		Backend:        string(device.KindHost),
		Style:          reference.StyleIsoOld,
		Polyhedron:     reference.DefaultPolyhedron(),
	}
}

// Validate checks the fields every check depends on.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive", ErrConfig, c.Width, c.Height)
	}
	if c.Stride < 0 {
		return fmt.Errorf("%w: stride %d is negative", ErrConfig, c.Stride)
	}
	if c.OutWidth < 0 || c.OutHeight < 0 {
		return fmt.Errorf("%w: output size %dx%d is negative", ErrConfig, c.OutWidth, c.OutHeight)
	}
	if !c.Format.Valid() {
		return fmt.Errorf("%w: format %s", ErrConfig, c.Format)
	}
	if len(c.Local) > 3 {
		return fmt.Errorf("%w: local size has %d dimensions", ErrConfig, len(c.Local))
	}
	for _, l := range c.Local {
		if l <= 0 {
			return fmt.Errorf("%w: local size %v must be positive", ErrConfig, c.Local)
		}
	}
	return nil
}

// rgbaStride resolves the RGBA row pitch in bytes. A zero Stride yields
// def; an explicit one must hold a row and address whole pixels.
func (c Config) rgbaStride(def int) (int, error) {
	if c.Stride == 0 {
		return def, nil
	}
	if c.Stride < c.Width*4 {
		return 0, fmt.Errorf("%w: stride %d smaller than row of %d bytes", ErrConfig, c.Stride, c.Width*4)
	}
	if c.Stride%4 != 0 {
		return 0, fmt.Errorf("%w: stride %d is not a multiple of 4", ErrConfig, c.Stride)
	}
	return c.Stride, nil
}

func (c Config) artifacts() store.Artifacts {
	return store.Artifacts{Dir: c.OutDir, Prefix: c.Prefix, Format: c.ArtifactFormat}
}

// ParseRect parses "x,y,w,h".
func ParseRect(s string) (reference.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return reference.Rect{}, fmt.Errorf("%w: rect %q, want x,y,w,h", ErrConfig, s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return reference.Rect{}, fmt.Errorf("%w: rect %q: %v", ErrConfig, s, err)
		}
		v[i] = n
	}
	return reference.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// ParseLocal parses a work-group size "x[,y[,z]]". The empty string
// yields nil.
func ParseLocal(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > 3 {
		return nil, fmt.Errorf("%w: local size %q has more than 3 dimensions", ErrConfig, s)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: local size %q", ErrConfig, s)
		}
		out[i] = n
	}
	return out, nil
}
