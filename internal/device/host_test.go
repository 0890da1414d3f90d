package device

import (
	"errors"
	"testing"

	"github.com/cwbudde/clpixelcheck/internal/diag"
)

// invert writes 255-x of buffer 0 into buffer 1 for global[0] bytes.
func invert(args []any, global []int) error {
	in, err := BufferArg(args, 0)
	if err != nil {
		return err
	}
	out, err := BufferArg(args, 1)
	if err != nil {
		return err
	}
	for i := 0; i < global[0]; i++ {
		out[i] = 255 - in[i]
	}
	return nil
}

func newTestHost(t *testing.T) *Host {
	t.Helper()
	h := NewHost(map[string]Emulation{"invert": invert})
	t.Cleanup(h.Close)
	return h
}

func wantCode(t *testing.T, err error, stage diag.Stage, code int32) {
	t.Helper()
	if !errors.Is(err, &diag.BackendError{Stage: stage, Code: code}) {
		t.Fatalf("expected %s error %s, got %v", stage, diag.ErrorName(code), err)
	}
}

func TestHostRoundTrip(t *testing.T) {
	h := newTestHost(t)
	if err := h.Build("__kernel void invert() {}", "-cl-std=CL1.2"); err != nil {
		t.Fatalf("Build: %v", err)
	}
	in, err := h.NewBuffer(4, []byte{0, 1, 2, 255})
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	out, err := h.NewBuffer(4, nil)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if err := h.Launch("invert", []int{4}, nil, in, out); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	got := make([]byte, 4)
	if err := h.Read(out, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []byte{255, 254, 253, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestHostBuildErrorDirective(t *testing.T) {
	h := newTestHost(t)
	err := h.Build("__kernel void a() {}\n#error unsupported vector width\n", "")
	wantCode(t, err, diag.StageBuild, diag.BuildProgramFailure)

	logs, lerr := h.Program().BuildLogs()
	if lerr != nil || len(logs) != 1 {
		t.Fatalf("BuildLogs = %v, %v", logs, lerr)
	}
	if logs[0].Text != "<source>:2: #error unsupported vector width" {
		t.Errorf("build log = %q", logs[0].Text)
	}

	err = h.Launch("invert", []int{1}, nil)
	wantCode(t, err, diag.StageSetup, diag.InvalidExecutable)
}

func TestHostProgramNilBeforeBuild(t *testing.T) {
	h := newTestHost(t)
	if h.Program() != nil {
		t.Error("Program() should be nil before Build")
	}
	if h.Kernel("invert") == nil {
		t.Error("Kernel(invert) should be available")
	}
	if h.Kernel("missing") != nil {
		t.Error("Kernel(missing) should be nil")
	}
}

func TestHostLaunchErrors(t *testing.T) {
	h := newTestHost(t)
	if err := h.Build("", ""); err != nil {
		t.Fatalf("Build: %v", err)
	}
	buf, err := h.NewBuffer(64, nil)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}

	tests := []struct {
		name   string
		kernel string
		global []int
		local  []int
		args   []any
		stage  diag.Stage
		code   int32
	}{
		{"unknown kernel", "missing", []int{1}, nil, nil, diag.StageSetup, diag.InvalidKernelName},
		{"no dims", "invert", nil, nil, nil, diag.StageEnqueue, diag.InvalidWorkDimension},
		{"four dims", "invert", []int{1, 1, 1, 1}, nil, nil, diag.StageEnqueue, diag.InvalidWorkDimension},
		{"zero global", "invert", []int{0}, nil, nil, diag.StageEnqueue, diag.InvalidGlobalWorkSize},
		{"local too large", "invert", []int{64, 64}, []int{32, 32}, nil, diag.StageEnqueue, diag.InvalidWorkGroupSize},
		{"global not divisible", "invert", []int{10}, []int{4}, nil, diag.StageEnqueue, diag.InvalidWorkGroupSize},
		{"missing args", "invert", []int{4}, nil, []any{buf}, diag.StageEnqueue, diag.InvalidKernelArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Launch(tt.kernel, tt.global, tt.local, tt.args...)
			wantCode(t, err, tt.stage, tt.code)
		})
	}
}

func TestHostEnqueueErrorCarriesDispatch(t *testing.T) {
	h := newTestHost(t)
	if err := h.Build("", ""); err != nil {
		t.Fatalf("Build: %v", err)
	}
	err := h.Launch("invert", []int{64, 64}, []int{32, 32})
	var be *diag.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Kernel != "invert" || be.Dispatch == nil {
		t.Fatalf("missing kernel context: %+v", be)
	}
	if be.Dispatch.Dims != 2 {
		t.Errorf("dims = %d, want 2", be.Dispatch.Dims)
	}
}

func TestHostBufferErrors(t *testing.T) {
	h := newTestHost(t)

	_, err := h.NewBuffer(0, nil)
	wantCode(t, err, diag.StageSetup, diag.InvalidBufferSize)

	_, err = h.NewBuffer(2, []byte{1, 2, 3})
	wantCode(t, err, diag.StageSetup, diag.InvalidValue)

	buf, err := h.NewBuffer(2, nil)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	wantCode(t, h.Write(buf, []byte{1, 2, 3}), diag.StageTransfer, diag.InvalidValue)
	wantCode(t, h.Read(buf, make([]byte, 3)), diag.StageTransfer, diag.InvalidValue)
	wantCode(t, h.Write(nil, []byte{1}), diag.StageTransfer, diag.InvalidMemObject)

	h.Close()
	wantCode(t, h.Read(buf, make([]byte, 1)), diag.StageTransfer, diag.InvalidMemObject)
}

func TestHostReporterRouting(t *testing.T) {
	h := newTestHost(t)
	h.SetDeviceInfo(diag.DeviceInfo{Name: "tiny", MaxWorkGroupSize: 64, MaxWorkItemSizes: [3]uint64{64, 64, 64}})
	if err := h.Build("", ""); err != nil {
		t.Fatalf("Build: %v", err)
	}
	err := h.Launch("invert", []int{16, 16}, []int{16, 8})
	wantCode(t, err, diag.StageEnqueue, diag.InvalidWorkGroupSize)
}
