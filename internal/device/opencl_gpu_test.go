//go:build gpu

package device

import (
	"errors"
	"testing"

	"github.com/cwbudde/clpixelcheck/internal/diag"
)

const copySource = `
__kernel void copy_bytes(__global const uchar *in, __global uchar *out) {
    size_t i = get_global_id(0);
    out[i] = in[i];
}
`

func newTestOpenCL(t *testing.T) Backend {
	t.Helper()
	b, cleanup, err := New("opencl", Options{})
	if err != nil {
		t.Skipf("OpenCL unavailable: %v", err)
	}
	t.Cleanup(cleanup)
	return b
}

func TestOpenCLCopy(t *testing.T) {
	b := newTestOpenCL(t)
	if err := b.Build(copySource, ""); err != nil {
		t.Fatalf("Build: %v", err)
	}
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	in, err := b.NewBuffer(len(src), src)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	out, err := b.NewBuffer(len(src), nil)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if err := b.Launch("copy_bytes", []int{len(src)}, nil, in, out); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	got := make([]byte, len(src))
	if err := b.Read(out, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range src {
		if got[i] != src[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], src[i])
		}
	}
}

func TestOpenCLBuildFailureHasLogs(t *testing.T) {
	b := newTestOpenCL(t)
	err := b.Build("__kernel void broken( {", "")
	if !errors.Is(err, &diag.BackendError{Stage: diag.StageBuild}) {
		t.Fatalf("expected build error, got %v", err)
	}
	logs, lerr := b.Program().BuildLogs()
	if lerr != nil {
		t.Fatalf("BuildLogs: %v", lerr)
	}
	if len(logs) == 0 {
		t.Fatal("expected at least one device build log")
	}
}
