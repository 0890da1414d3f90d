//go:build !gpu

package device

import (
	"fmt"

	"github.com/cwbudde/clpixelcheck/internal/device/opencl"
)

func newOpenCL(_ Options) (Backend, func(), error) {
	return nil, noopCleanup, fmt.Errorf("%w: %w", ErrBackendUnavailable, opencl.ErrNotBuilt)
}
