package device

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/cwbudde/clpixelcheck/internal/diag"
)

// Emulation is the Go rendition of a kernel. It receives the launch
// arguments with buffers as *HostBuffer.
type Emulation func(args []any, global []int) error

// HostBuffer is host memory standing in for a device buffer.
type HostBuffer struct {
	data []byte
}

// Size returns the buffer length in bytes.
func (b *HostBuffer) Size() int { return len(b.data) }

// Bytes exposes the buffer contents.
func (b *HostBuffer) Bytes() []byte { return b.data }

// Host runs kernels through registered emulations while enforcing the
// launch rules of an OpenCL 1.2 device: a built program, known kernel
// names, legal work-group shapes and in-bounds transfers.
type Host struct {
	mu         sync.Mutex
	rel        Releaser
	emulations map[string]Emulation
	info       diag.DeviceInfo
	kernelInfo diag.KernelInfo
	built      bool
	attempted  bool
	buildLog   string
	closed     bool
}

// NewHost creates a host backend with the given kernel emulations.
func NewHost(emulations map[string]Emulation) *Host {
	if emulations == nil {
		emulations = map[string]Emulation{}
	}
	return &Host{
		emulations: emulations,
		info: diag.DeviceInfo{
			Name:             "host emulator",
			Vendor:           "clpixelcheck",
			DriverVersion:    runtime.Version(),
			Version:          "OpenCL 1.2 emulated",
			ComputeUnits:     uint32(runtime.NumCPU()),
			MaxWorkGroupSize: 256,
			MaxWorkItemSizes: [3]uint64{256, 256, 64},
			LocalMemSize:     32 << 10,
			MaxAllocSize:     1 << 30,
			GlobalMemSize:    4 << 30,
		},
		kernelInfo: diag.KernelInfo{
			WorkGroupSize:     256,
			PreferredMultiple: 32,
		},
	}
}

// SetDeviceInfo overrides the reported device limits.
func (h *Host) SetDeviceInfo(info diag.DeviceInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info = info
}

// SetKernelInfo overrides the footprint reported for every kernel.
func (h *Host) SetKernelInfo(info diag.KernelInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kernelInfo = info
}

func (h *Host) Name() string { return string(KindHost) }

// Build checks the program source. A line starting with #error fails the
// build and becomes the build log; kernels without an emulation are
// reported when launched.
func (h *Host) Build(source, options string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return diag.NewError(diag.StageSetup, "clCreateProgramWithSource", diag.InvalidProgram)
	}
	h.attempted = true
	h.built = false
	h.buildLog = ""
	for i, line := range strings.Split(source, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#error") {
			h.buildLog = fmt.Sprintf("<source>:%d: %s", i+1, strings.TrimSpace(line))
			return diag.NewError(diag.StageBuild, "clBuildProgram", diag.BuildProgramFailure)
		}
	}
	h.built = true
	h.rel.Push("program", func() {
		h.built = false
	})
	slog.Debug("Host program built", "bytes", len(source), "options", options)
	return nil
}

// NewBuffer allocates host memory.
func (h *Host) NewBuffer(size int, init []byte) (Buffer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if size <= 0 || uint64(size) > h.info.MaxAllocSize {
		return nil, diag.NewError(diag.StageSetup, "clCreateBuffer", diag.InvalidBufferSize)
	}
	if len(init) > size {
		return nil, diag.NewError(diag.StageSetup, "clCreateBuffer", diag.InvalidValue)
	}
	buf := &HostBuffer{data: make([]byte, size)}
	copy(buf.data, init)
	h.rel.Push("buffer", func() {
		buf.data = nil
	})
	return buf, nil
}

func hostBuffer(b Buffer) (*HostBuffer, bool) {
	hb, ok := b.(*HostBuffer)
	return hb, ok && hb != nil && hb.data != nil
}

func (h *Host) Write(buf Buffer, src []byte) error {
	hb, ok := hostBuffer(buf)
	if !ok {
		return diag.NewError(diag.StageTransfer, "clEnqueueWriteBuffer", diag.InvalidMemObject)
	}
	if len(src) > hb.Size() {
		return diag.NewError(diag.StageTransfer, "clEnqueueWriteBuffer", diag.InvalidValue)
	}
	copy(hb.data, src)
	return nil
}

func (h *Host) Read(buf Buffer, dst []byte) error {
	hb, ok := hostBuffer(buf)
	if !ok {
		return diag.NewError(diag.StageTransfer, "clEnqueueReadBuffer", diag.InvalidMemObject)
	}
	if len(dst) > hb.Size() {
		return diag.NewError(diag.StageTransfer, "clEnqueueReadBuffer", diag.InvalidValue)
	}
	copy(dst, hb.data)
	return nil
}

// Launch validates the dispatch and runs the kernel's emulation.
func (h *Host) Launch(kernel string, global, local []int, args ...any) error {
	h.mu.Lock()
	built := h.built
	emu, known := h.emulations[kernel]
	h.mu.Unlock()

	if !built {
		return diag.NewError(diag.StageSetup, "clCreateKernel", diag.InvalidExecutable)
	}
	if !known {
		return diag.NewError(diag.StageSetup, "clCreateKernel", diag.InvalidKernelName)
	}

	d := diag.NewDispatch(global, local)
	if len(global) < 1 || len(global) > 3 {
		return diag.NewError(diag.StageEnqueue, "clEnqueueNDRangeKernel", diag.InvalidWorkDimension).WithKernel(kernel, d)
	}
	for _, g := range global {
		if g <= 0 {
			return diag.NewError(diag.StageEnqueue, "clEnqueueNDRangeKernel", diag.InvalidGlobalWorkSize).WithKernel(kernel, d)
		}
	}
	if len(local) > 0 {
		if len(local) != len(global) {
			return diag.NewError(diag.StageEnqueue, "clEnqueueNDRangeKernel", diag.InvalidWorkDimension).WithKernel(kernel, d)
		}
		if !diag.CheckWorkGroup(diag.Capture(h.Device(), h.Kernel(kernel)), d).OK() {
			return diag.NewError(diag.StageEnqueue, "clEnqueueNDRangeKernel", diag.InvalidWorkGroupSize).WithKernel(kernel, d)
		}
		for i := range global {
			if local[i] <= 0 || global[i]%local[i] != 0 {
				return diag.NewError(diag.StageEnqueue, "clEnqueueNDRangeKernel", diag.InvalidWorkGroupSize).WithKernel(kernel, d)
			}
		}
	}

	if err := emu(args, global); err != nil {
		return diag.NewError(diag.StageEnqueue, "clEnqueueNDRangeKernel", diag.InvalidKernelArgs).
			WithKernel(kernel, d).Wrap(err)
	}
	return nil
}

type hostDevice struct{ info diag.DeviceInfo }

func (d hostDevice) DeviceInfo() (diag.DeviceInfo, error) { return d.info, nil }

type hostKernel struct{ info diag.KernelInfo }

func (k hostKernel) KernelInfo() (diag.KernelInfo, error) { return k.info, nil }

type hostProgram struct{ log string }

func (p hostProgram) BuildLogs() ([]diag.BuildLog, error) {
	return []diag.BuildLog{{Device: "host emulator", Text: p.log}}, nil
}

func (h *Host) Device() diag.Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	return hostDevice{info: h.info}
}

// Program returns nil until Build has been called.
func (h *Host) Program() diag.Program {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.attempted {
		return nil
	}
	return hostProgram{log: h.buildLog}
}

// Kernel returns nil for kernels without an emulation.
func (h *Host) Kernel(name string) diag.Kernel {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.emulations[name]; !ok {
		return nil
	}
	return hostKernel{info: h.kernelInfo}
}

// Close releases all buffers and the program.
func (h *Host) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.rel.Release()
}

// IntArg reads launch argument i as an int.
func IntArg(args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	switch v := args[i].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case uint32:
		return int(v), nil
	default:
		return 0, fmt.Errorf("argument %d: want integer, got %T", i, args[i])
	}
}

// BufferArg reads launch argument i as host buffer bytes.
func BufferArg(args []any, i int) ([]byte, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i)
	}
	hb, ok := args[i].(*HostBuffer)
	if !ok || hb == nil || hb.data == nil {
		return nil, fmt.Errorf("argument %d: want live host buffer, got %T", i, args[i])
	}
	return hb.data, nil
}
