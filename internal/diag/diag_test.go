package diag

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeDevice struct {
	info DeviceInfo
	err  error
}

func (d fakeDevice) DeviceInfo() (DeviceInfo, error) { return d.info, d.err }

type fakeKernel struct{ info KernelInfo }

func (k fakeKernel) KernelInfo() (KernelInfo, error) { return k.info, nil }

type fakeProgram struct {
	logs []BuildLog
	err  error
}

func (p fakeProgram) BuildLogs() ([]BuildLog, error) { return p.logs, p.err }

type panicDevice struct{}

func (panicDevice) DeviceInfo() (DeviceInfo, error) { panic("driver exploded") }

type fakeSources struct {
	dev  Device
	prog Program
	k    Kernel
}

func (s fakeSources) Device() Device       { return s.dev }
func (s fakeSources) Program() Program     { return s.prog }
func (s fakeSources) Kernel(string) Kernel { return s.k }

func testDevice() fakeDevice {
	return fakeDevice{info: DeviceInfo{
		Name:             "Test GPU",
		Vendor:           "Acme",
		DriverVersion:    "1.0",
		Version:          "OpenCL 1.2",
		ComputeUnits:     8,
		ClockMHz:         1200,
		MaxWorkGroupSize: 256,
		MaxWorkItemSizes: [3]uint64{1024, 1024, 64},
		LocalMemSize:     32768,
		MaxAllocSize:     1 << 28,
		GlobalMemSize:    1 << 30,
	}}
}

func TestErrorName(t *testing.T) {
	tests := []struct {
		code int32
		want string
	}{
		{0, "CL_SUCCESS"},
		{-5, "CL_OUT_OF_RESOURCES"},
		{-11, "CL_BUILD_PROGRAM_FAILURE"},
		{-54, "CL_INVALID_WORK_GROUP_SIZE"},
		{-63, "CL_INVALID_GLOBAL_WORK_SIZE"},
		{-68, "CL_INVALID_DEVICE_PARTITION_COUNT"},
		{-20, UnknownError},
		{-9999, UnknownError},
		{7, UnknownError},
	}

	for _, tt := range tests {
		if got := ErrorName(tt.code); got != tt.want {
			t.Errorf("ErrorName(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestVerboseFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"1", true},
		{"yes", true},
	}

	for _, tt := range tests {
		t.Setenv(EnvVerbose, tt.value)
		if got := VerboseFromEnv(); got != tt.want {
			t.Errorf("VerboseFromEnv() with %q = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestCheckWorkGroupSingleViolation(t *testing.T) {
	s := Capture(testDevice(), nil)
	l := CheckWorkGroup(s, NewDispatch([]int{64, 64}, []int{32, 32}))

	if len(l.Violations) != 1 {
		t.Fatalf("violations = %q, want exactly one", l.Violations)
	}
	if want := "local product 1024 exceeds device max_wg=256"; l.Violations[0] != want {
		t.Errorf("violation = %q, want %q", l.Violations[0], want)
	}
	if len(l.Notes) != 0 {
		t.Errorf("unexpected notes: %q", l.Notes)
	}
}

func TestCheckWorkGroupAllConstraints(t *testing.T) {
	s := Capture(testDevice(), fakeKernel{info: KernelInfo{
		WorkGroupSize:        128,
		PreferredMultiple:    32,
		LocalMemSize:         65536,
		CompileWorkGroupSize: [3]uint64{8, 8, 1},
	}})
	l := CheckWorkGroup(s, NewDispatch([]int{4096, 2, 2}, []int{2048, 1, 1}))

	want := []string{
		"local product 2048 exceeds device max_wg=256",
		"local product 2048 exceeds kernel_wg=128",
		"lws[0]=2048 exceeds device max_wi[0]=1024",
		"lws[0]=2048 does not match kernel compile_wg[0]=8",
		"lws[1]=1 does not match kernel compile_wg[1]=8",
		"kernel local_mem=65536 exceeds device local_mem=32768",
	}
	if strings.Join(l.Violations, "\n") != strings.Join(want, "\n") {
		t.Errorf("violations:\n%s\nwant:\n%s", strings.Join(l.Violations, "\n"), strings.Join(want, "\n"))
	}
	if len(l.Notes) != 0 {
		t.Errorf("2048 is a multiple of 32, got notes %q", l.Notes)
	}
}

func TestCheckWorkGroupClean(t *testing.T) {
	s := Capture(testDevice(), fakeKernel{info: KernelInfo{WorkGroupSize: 256, PreferredMultiple: 32}})

	l := CheckWorkGroup(s, NewDispatch([]int{64, 64}, []int{16, 16}))
	lines := l.Lines()
	if !l.OK() || lines[len(lines)-1] != "  - no obvious limit violations detected" {
		t.Errorf("clean dispatch lines = %q", lines)
	}

	l = CheckWorkGroup(s, NewDispatch([]int{60, 60}, []int{10, 5}))
	if !l.OK() || len(l.Notes) != 1 {
		t.Fatalf("expected one note and no violations, got %+v", l)
	}
	if l.Notes[0] != "local product 50 is not multiple of preferred 32" {
		t.Errorf("note = %q", l.Notes[0])
	}

	l = CheckWorkGroup(s, NewDispatch([]int{64, 64}, nil))
	if got := l.Lines(); len(got) != 1 || !strings.Contains(got[0], "implementation-selected") {
		t.Errorf("nil local lines = %q", got)
	}
}

func TestDispatchString(t *testing.T) {
	d := NewDispatch([]int{640, 480}, []int{16, 16})
	want := "OpenCL work sizes: dims=2 gws=[640,480] (product=307200) lws=[16,16] (product=256)"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := Product(2, []uint64{5, 0}); got != 0 {
		t.Errorf("Product with zero factor = %d", got)
	}
}

func TestReportEnqueueError(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	err := NewError(StageEnqueue, "clEnqueueNDRangeKernel", InvalidWorkGroupSize).
		WithKernel("test_pattern", NewDispatch([]int{64, 64}, []int{32, 32}))
	if !r.Report(fmt.Errorf("pattern: %w", err), fakeSources{dev: testDevice()}) {
		t.Fatal("Report() = false for a backend error")
	}

	out := buf.String()
	for _, want := range []string{
		"[opencl-diag] OpenCL error: clEnqueueNDRangeKernel -> CL_INVALID_WORK_GROUP_SIZE (-54) at diag_test.go:",
		"[opencl-diag] OpenCL work sizes: dims=2 gws=[64,64] (product=4096) lws=[32,32] (product=1024)\n",
		"[opencl-diag] OpenCL device: Test GPU | Acme\n",
		"[opencl-diag]   max_wg=256 max_wi=[1024,1024,64]\n",
		"[opencl-diag] OpenCL kernel limits: <unavailable>\n",
		"[opencl-diag]   - local product 1024 exceeds device max_wg=256\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		if !strings.HasPrefix(line, Prefix) {
			t.Errorf("line without prefix: %q", line)
		}
	}
}

func TestReportEnqueueErrorWithoutDevice(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)
	r.ReportEnqueueError("clEnqueueNDRangeKernel", InvalidWorkGroupSize, "checks.go:44",
		nil, fakeKernel{info: KernelInfo{WorkGroupSize: 64}}, NewDispatch([]int{64, 64}, []int{8, 8}))

	want := []string{
		"[opencl-diag] OpenCL error: clEnqueueNDRangeKernel -> CL_INVALID_WORK_GROUP_SIZE (-54) at checks.go:44",
		"[opencl-diag] OpenCL work sizes: dims=2 gws=[64,64] (product=4096) lws=[8,8] (product=64)",
		"[opencl-diag] OpenCL device: <unavailable>",
		"[opencl-diag] OpenCL kernel limits: <unavailable>",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("report has %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReportBuildErrorEveryDevice(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)
	prog := fakeProgram{logs: []BuildLog{
		{Device: "gpu0", Text: ""},
		{Device: "gpu1", Text: "error: expected ';'\n1 error generated.\n"},
		{Device: "gpu2", Code: InvalidValue},
	}}

	err := NewError(StageBuild, "clBuildProgram", BuildProgramFailure)
	r.Report(err, fakeSources{dev: testDevice(), prog: prog})

	out := buf.String()
	if n := strings.Count(out, "OpenCL build log:\n"); n != 2 {
		t.Errorf("build log headers = %d, want 2\n%s", n, out)
	}
	for _, want := range []string{
		"[opencl-diag] error: expected ';'\n",
		"[opencl-diag] 1 error generated.\n",
		"[opencl-diag] OpenCL build log: <unavailable> (err=-30)\n",
		"[opencl-diag]   driver=1.0 version=OpenCL 1.2\n",
		"[opencl-diag] host cpu: arch=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestReportBuildErrorNotVerbose(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)
	r.Report(NewError(StageBuild, "clBuildProgram", BuildProgramFailure),
		fakeSources{dev: testDevice(), prog: fakeProgram{err: NewError(StageBuild, "clGetProgramInfo", InvalidProgram)}})

	out := buf.String()
	if strings.Contains(out, "compute_units") {
		t.Errorf("device dump printed without verbose:\n%s", out)
	}
	if !strings.Contains(out, "<device list failed> (err=-44)") {
		t.Errorf("missing device list failure:\n%s", out)
	}
}

func TestReportSurvivesBrokenSources(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	err := NewError(StageSetup, "clCreateContext", OutOfResources)
	if !r.Report(err, fakeSources{dev: panicDevice{}}) {
		t.Error("Report() = false")
	}
	if !strings.Contains(buf.String(), "diagnostics aborted: driver exploded") {
		t.Errorf("panic not reported:\n%s", buf.String())
	}

	buf.Reset()
	r.Report(NewError(StageEnqueue, "clEnqueueNDRangeKernel", OutOfResources), nil)
	if !strings.Contains(buf.String(), "OpenCL device: <unavailable>") {
		t.Errorf("nil sources:\n%s", buf.String())
	}

	buf.Reset()
	r.Report(NewError(StageTransfer, "clEnqueueReadBuffer", OutOfResources),
		fakeSources{dev: fakeDevice{err: errors.New("gone")}})
	if !strings.Contains(buf.String(), "OpenCL device: <unavailable>") {
		t.Errorf("failing device query:\n%s", buf.String())
	}
}

func TestReportIgnoresPlainErrors(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)
	if r.Report(errors.New("plain"), nil) {
		t.Error("Report() = true for a plain error")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestBackendErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewError(StageBuild, "clBuildProgram", BuildProgramFailure))

	if !errors.Is(err, &BackendError{Stage: StageBuild}) {
		t.Error("expected match on stage")
	}
	if errors.Is(err, &BackendError{Stage: StageEnqueue}) {
		t.Error("unexpected match on other stage")
	}
	if !errors.Is(err, &BackendError{Code: BuildProgramFailure}) {
		t.Error("expected match on code")
	}
	if got := CodeOf(err); got != BuildProgramFailure {
		t.Errorf("CodeOf = %d", got)
	}
	if got := CodeOf(errors.New("x")); got != InvalidValue {
		t.Errorf("CodeOf(plain) = %d", got)
	}
	if got, want := err.Error(), "wrapped: clBuildProgram: CL_BUILD_PROGRAM_FAILURE (-11)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLimitsDevice(t *testing.T) {
	d := DefaultLimitsDevice()
	info, err := d.DeviceInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.MaxWorkGroupSize != 256 || info.MaxWorkItemSizes[2] != 64 {
		t.Errorf("default limits info = %+v", info)
	}

	if l := d.CheckWorkgroupSize(16, 16, 1); !l.OK() {
		t.Errorf("16x16 should be legal: %q", l.Violations)
	}
	l := d.CheckWorkgroupSize(32, 16, 1)
	if len(l.Violations) != 1 || l.Violations[0] != "local product 512 exceeds device max_wg=256" {
		t.Errorf("32x16 violations = %q", l.Violations)
	}
}
