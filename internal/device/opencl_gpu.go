//go:build gpu

package device

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cwbudde/clpixelcheck/internal/device/opencl"
	"github.com/cwbudde/clpixelcheck/internal/diag"
)

type openCL struct {
	mu      sync.Mutex
	rt      *opencl.Runtime
	rel     Releaser
	program *opencl.Program
	built   bool
	kernels map[string]*opencl.Kernel
}

type clBuffer struct {
	mem *opencl.Mem
}

func (b clBuffer) Size() int { return b.mem.Size() }

func newOpenCL(_ Options) (Backend, func(), error) {
	rt, err := opencl.Init()
	if err != nil {
		return nil, noopCleanup, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	b := &openCL{rt: rt, kernels: map[string]*opencl.Kernel{}}
	b.rel.Push("runtime", rt.Close)

	slog.Info("OpenCL device selected",
		"platform", rt.Platform.Name,
		"device", rt.Device.Info.Name,
		"type", rt.Device.Type)
	return b, b.Close, nil
}

// Platform exposes the selected platform for summary output.
func (b *openCL) Platform() opencl.PlatformInfo { return b.rt.Platform }

func (b *openCL) Name() string { return string(KindOpenCL) }

func (b *openCL) Build(source, options string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.rt.CreateProgram(source)
	if err != nil {
		return err
	}
	b.program = p
	b.rel.Push("program", p.Release)

	if err := b.rt.BuildProgram(p, options); err != nil {
		return err
	}
	b.built = true
	return nil
}

func (b *openCL) kernel(name string) (*opencl.Kernel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if k, ok := b.kernels[name]; ok {
		return k, nil
	}
	if !b.built {
		return nil, diag.NewError(diag.StageSetup, "clCreateKernel", diag.InvalidExecutable)
	}
	k, err := b.rt.CreateKernel(b.program, name)
	if err != nil {
		return nil, err
	}
	b.kernels[name] = k
	b.rel.Push("kernel "+name, k.Release)
	return k, nil
}

func (b *openCL) NewBuffer(size int, init []byte) (Buffer, error) {
	if size <= 0 {
		return nil, diag.NewError(diag.StageSetup, "clCreateBuffer", diag.InvalidBufferSize)
	}
	m, err := b.rt.CreateBuffer(size, init)
	if err != nil {
		return nil, err
	}
	b.rel.Push("buffer", m.Release)
	return clBuffer{mem: m}, nil
}

func memOf(buf Buffer, op string) (*opencl.Mem, error) {
	cb, ok := buf.(clBuffer)
	if !ok || cb.mem == nil {
		return nil, diag.NewErrorDepth(1, diag.StageTransfer, op, diag.InvalidMemObject)
	}
	return cb.mem, nil
}

func (b *openCL) Write(buf Buffer, src []byte) error {
	m, err := memOf(buf, "clEnqueueWriteBuffer")
	if err != nil {
		return err
	}
	if len(src) > m.Size() {
		return diag.NewError(diag.StageTransfer, "clEnqueueWriteBuffer", diag.InvalidValue)
	}
	return b.rt.Write(m, src)
}

func (b *openCL) Read(buf Buffer, dst []byte) error {
	m, err := memOf(buf, "clEnqueueReadBuffer")
	if err != nil {
		return err
	}
	if len(dst) > m.Size() {
		return diag.NewError(diag.StageTransfer, "clEnqueueReadBuffer", diag.InvalidValue)
	}
	return b.rt.Read(m, dst)
}

func (b *openCL) Launch(kernel string, global, local []int, args ...any) error {
	k, err := b.kernel(kernel)
	if err != nil {
		return err
	}
	for i, arg := range args {
		if buf, ok := arg.(Buffer); ok {
			m, err := memOf(buf, "clSetKernelArg")
			if err != nil {
				return err
			}
			arg = m
		}
		if err := k.SetArg(i, arg); err != nil {
			return err
		}
	}
	if err := b.rt.Enqueue(k, global, local); err != nil {
		if be, ok := err.(*diag.BackendError); ok {
			return be.WithKernel(kernel, diag.NewDispatch(global, local))
		}
		return err
	}
	return nil
}

func (b *openCL) Device() diag.Device { return b.rt }

func (b *openCL) Program() diag.Program {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.program == nil {
		return nil
	}
	return b.program
}

func (b *openCL) Kernel(name string) diag.Kernel {
	b.mu.Lock()
	defer b.mu.Unlock()
	if k, ok := b.kernels[name]; ok {
		return k
	}
	return nil
}

func (b *openCL) Close() {
	b.rel.Release()
}
