//go:build !gpu

package device

import (
	"errors"
	"testing"

	"github.com/cwbudde/clpixelcheck/internal/device/opencl"
)

func TestOpenCLUnavailableWithoutTag(t *testing.T) {
	_, cleanup, err := New("opencl", Options{})
	defer cleanup()
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if !errors.Is(err, opencl.ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt in chain, got %v", err)
	}
}
