package diag

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sys/cpu"
)

// Prefix starts every line the reporter writes.
const Prefix = "[opencl-diag] "

// EnvVerbose names the environment switch for full device dumps.
const EnvVerbose = "VX_OPENCL_DIAG"

// VerboseFromEnv reports whether EnvVerbose is set to anything other than
// "" or "0".
func VerboseFromEnv() bool {
	v := os.Getenv(EnvVerbose)
	return v != "" && v != "0"
}

// Reporter writes prefixed diagnostic lines. It never returns errors and
// recovers from panics raised by capability sources.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer, verbose bool) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w, verbose: verbose}
}

// Verbose reports whether full device dumps are enabled.
func (r *Reporter) Verbose() bool { return r.verbose }

// Printf writes one prefixed line.
func (r *Reporter) Printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, Prefix+format+"\n", args...)
}

// Block writes text line by line, each prefixed. Empty text prints nothing.
func (r *Reporter) Block(text string) {
	if text == "" {
		return
	}
	text = strings.TrimSuffix(text, "\n")
	for _, line := range strings.Split(text, "\n") {
		r.Printf("%s", line)
	}
}

// Error prints the one-line API failure.
func (r *Reporter) Error(op string, code int32, site string) {
	r.Printf("OpenCL error: %s -> %s (%d) at %s", op, ErrorName(code), code, site)
}

// Platform prints a platform summary line.
func (r *Reporter) Platform(name, vendor, version string) {
	r.Printf("OpenCL platform: %s | %s | %s", name, vendor, version)
}

// DeviceSummary prints the compact one-line device description.
func (r *Reporter) DeviceSummary(info DeviceInfo) {
	r.Printf("OpenCL device: %s max_wg=%d max_wi=[%d,%d,%d] local_mem=%d max_alloc=%d",
		info.Name, info.MaxWorkGroupSize,
		info.MaxWorkItemSizes[0], info.MaxWorkItemSizes[1], info.MaxWorkItemSizes[2],
		info.LocalMemSize, info.MaxAllocSize)
}

// DeviceLimits prints the full device dump.
func (r *Reporter) DeviceLimits(info DeviceInfo) {
	r.Printf("OpenCL device: %s | %s", info.Name, info.Vendor)
	r.Printf("  driver=%s version=%s", info.DriverVersion, info.Version)
	r.Printf("  compute_units=%d clock_mhz=%d", info.ComputeUnits, info.ClockMHz)
	r.Printf("  max_wg=%d max_wi=[%d,%d,%d]", info.MaxWorkGroupSize,
		info.MaxWorkItemSizes[0], info.MaxWorkItemSizes[1], info.MaxWorkItemSizes[2])
	r.Printf("  local_mem=%d max_alloc=%d global_mem=%d", info.LocalMemSize, info.MaxAllocSize, info.GlobalMemSize)
}

func (r *Reporter) deviceLimitsOf(s Snapshot) {
	if !s.HasDevice {
		r.Printf("OpenCL device: <unavailable>")
		return
	}
	r.DeviceLimits(s.Device)
}

// KernelLimits prints the kernel resource footprint.
func (r *Reporter) KernelLimits(s Snapshot) {
	if !s.HasKernel || !s.HasDevice {
		r.Printf("OpenCL kernel limits: <unavailable>")
		return
	}
	k := s.Kernel
	r.Printf("OpenCL kernel limits: kernel_wg=%d pref_wg_multiple=%d local_mem=%d private_mem=%d compile_wg=[%d,%d,%d]",
		k.WorkGroupSize, k.PreferredMultiple, k.LocalMemSize, k.PrivateMemSize,
		k.CompileWorkGroupSize[0], k.CompileWorkGroupSize[1], k.CompileWorkGroupSize[2])
}

// HostCPU prints the host architecture and SIMD features.
func (r *Reporter) HostCPU() {
	r.Printf("host cpu: arch=%s avx2=%t avx512f=%t sse41=%t asimd=%t",
		runtime.GOARCH, cpu.X86.HasAVX2, cpu.X86.HasAVX512F, cpu.X86.HasSSE41, cpu.ARM64.HasASIMD)
}

// BuildLogs prints the build log of every device prog was built for.
func (r *Reporter) BuildLogs(prog Program) {
	if prog == nil {
		r.Printf("OpenCL build log: <unavailable> (err=%d)", InvalidProgram)
		return
	}
	logs, err := prog.BuildLogs()
	if err != nil {
		r.Printf("OpenCL build log: <device list failed> (err=%d)", CodeOf(err))
		return
	}
	if len(logs) == 0 {
		r.Printf("OpenCL build log: <no devices> (err=%d)", Success)
		return
	}
	for _, l := range logs {
		if l.Code != Success {
			r.Printf("OpenCL build log: <unavailable> (err=%d)", l.Code)
			continue
		}
		r.Printf("OpenCL build log:")
		r.Block(l.Text)
	}
}

// Legality prints the work-group checklist.
func (r *Reporter) Legality(l Legality) {
	for _, line := range l.Lines() {
		r.Printf("%s", line)
	}
}

// ReportError prints a failure from any stage. In verbose mode the device
// dump and host CPU line follow.
func (r *Reporter) ReportError(op string, code int32, site string, dev Device) {
	defer r.rescue()
	r.Error(op, code, site)
	if r.verbose {
		r.deviceLimitsOf(Capture(dev, nil))
		r.HostCPU()
	}
}

// ReportBuildError prints the failure, every device's build log and, in
// verbose mode, the device dump.
func (r *Reporter) ReportBuildError(op string, code int32, site string, prog Program, dev Device) {
	defer r.rescue()
	r.Error(op, code, site)
	r.BuildLogs(prog)
	if r.verbose {
		r.deviceLimitsOf(Capture(dev, nil))
		r.HostCPU()
	}
}

// ReportEnqueueError prints the failure, the dispatch shape, device and
// kernel limits and the legality checklist.
func (r *Reporter) ReportEnqueueError(op string, code int32, site string, dev Device, k Kernel, d Dispatch) {
	defer r.rescue()
	r.Error(op, code, site)
	r.Printf("%s", d.String())
	s := Capture(dev, k)
	if !s.HasDevice {
		// Without a device there is nothing to check the shape against.
		r.Printf("OpenCL device: <unavailable>")
		r.KernelLimits(s)
		return
	}
	r.DeviceLimits(s.Device)
	r.KernelLimits(s)
	r.Legality(CheckWorkGroup(s, d))
	if r.verbose {
		r.HostCPU()
	}
}

// Report routes err to the report matching its stage. It returns false
// when err carries no *BackendError, leaving the caller to print it.
func (r *Reporter) Report(err error, src Sources) (reported bool) {
	var be *BackendError
	if !errors.As(err, &be) {
		return false
	}
	reported = true
	defer r.rescue()

	var (
		dev  Device
		prog Program
		k    Kernel
	)
	if src != nil {
		dev = src.Device()
		prog = src.Program()
		if be.Kernel != "" {
			k = src.Kernel(be.Kernel)
		}
	}

	slog.Debug("Reporting backend failure", "stage", be.Stage, "op", be.Op, "code", be.Code)
	switch be.Stage {
	case StageBuild:
		r.ReportBuildError(be.Op, be.Code, be.Site, prog, dev)
	case StageEnqueue:
		d := Dispatch{}
		if be.Dispatch != nil {
			d = *be.Dispatch
		}
		r.ReportEnqueueError(be.Op, be.Code, be.Site, dev, k, d)
	default:
		r.ReportError(be.Op, be.Code, be.Site, dev)
	}
	return reported
}

func (r *Reporter) rescue() {
	if p := recover(); p != nil {
		r.Printf("diagnostics aborted: %v", p)
	}
}
