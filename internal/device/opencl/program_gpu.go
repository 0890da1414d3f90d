//go:build gpu

package opencl

/*
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <stdlib.h>
#include <CL/cl.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/cwbudde/clpixelcheck/internal/diag"
)

// Program is a program object created from source.
type Program struct {
	id C.cl_program
}

// Kernel is a kernel object bound to the runtime's device.
type Kernel struct {
	id     C.cl_kernel
	device C.cl_device_id
	Name   string
}

// Mem is a device buffer.
type Mem struct {
	id   C.cl_mem
	size int
}

// Size returns the buffer size in bytes.
func (m *Mem) Size() int { return m.size }

// CreateProgram creates a program from source. The program must be released
// even if BuildProgram fails afterwards.
func (r *Runtime) CreateProgram(source string) (*Program, error) {
	csrc := C.CString(source)
	defer C.free(unsafe.Pointer(csrc))
	length := C.size_t(len(source))

	var status C.cl_int
	id := C.clCreateProgramWithSource(r.context, 1, &csrc, &length, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageSetup, "clCreateProgramWithSource", status)
	}
	return &Program{id: id}, nil
}

// BuildProgram compiles p for the runtime's device.
func (r *Runtime) BuildProgram(p *Program, options string) error {
	copts := C.CString(options)
	defer C.free(unsafe.Pointer(copts))

	status := C.clBuildProgram(p.id, 1, &r.deviceID, copts, nil, nil)
	if status != C.CL_SUCCESS {
		return statusError(diag.StageBuild, "clBuildProgram", status)
	}
	return nil
}

// Release frees the program object.
func (p *Program) Release() {
	if p != nil && p.id != nil {
		C.clReleaseProgram(p.id)
		p.id = nil
	}
}

// BuildLogs returns the build log of every device attached to the program.
// A log that cannot be read carries the failing status in Code.
func (p *Program) BuildLogs() ([]diag.BuildLog, error) {
	var count C.cl_uint
	status := C.clGetProgramInfo(p.id, C.CL_PROGRAM_NUM_DEVICES, C.size_t(unsafe.Sizeof(count)), unsafe.Pointer(&count), nil)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageBuild, "clGetProgramInfo", status)
	}
	if count == 0 {
		return nil, nil
	}

	devices := make([]C.cl_device_id, int(count))
	status = C.clGetProgramInfo(p.id, C.CL_PROGRAM_DEVICES, C.size_t(uintptr(count)*unsafe.Sizeof(devices[0])), unsafe.Pointer(&devices[0]), nil)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageBuild, "clGetProgramInfo", status)
	}

	logs := make([]diag.BuildLog, 0, len(devices))
	for _, dev := range devices {
		name, err := getDeviceString(dev, C.CL_DEVICE_NAME)
		if err != nil {
			name = "<unknown device>"
		}
		entry := diag.BuildLog{Device: name}

		text, err := queryString("clGetProgramBuildInfo", func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int {
			return C.clGetProgramBuildInfo(p.id, dev, C.CL_PROGRAM_BUILD_LOG, size, value, sizeRet)
		})
		entry.Text = text
		if err != nil {
			entry.Code = diag.CodeOf(err)
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

// CreateKernel looks up a kernel function in a built program.
func (r *Runtime) CreateKernel(p *Program, name string) (*Kernel, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var status C.cl_int
	id := C.clCreateKernel(p.id, cname, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageSetup, "clCreateKernel", status)
	}
	return &Kernel{id: id, device: r.deviceID, Name: name}, nil
}

// Release frees the kernel object.
func (k *Kernel) Release() {
	if k != nil && k.id != nil {
		C.clReleaseKernel(k.id)
		k.id = nil
	}
}

// SetArg binds argument i. Supported values are *Mem, int, int32, uint32
// and float32; ints are passed as cl_int.
func (k *Kernel) SetArg(i int, value any) error {
	var status C.cl_int
	switch v := value.(type) {
	case *Mem:
		status = C.clSetKernelArg(k.id, C.cl_uint(i), C.size_t(unsafe.Sizeof(v.id)), unsafe.Pointer(&v.id))
	case int:
		c := C.cl_int(v)
		status = C.clSetKernelArg(k.id, C.cl_uint(i), C.size_t(unsafe.Sizeof(c)), unsafe.Pointer(&c))
	case int32:
		c := C.cl_int(v)
		status = C.clSetKernelArg(k.id, C.cl_uint(i), C.size_t(unsafe.Sizeof(c)), unsafe.Pointer(&c))
	case uint32:
		c := C.cl_uint(v)
		status = C.clSetKernelArg(k.id, C.cl_uint(i), C.size_t(unsafe.Sizeof(c)), unsafe.Pointer(&c))
	case float32:
		c := C.cl_float(v)
		status = C.clSetKernelArg(k.id, C.cl_uint(i), C.size_t(unsafe.Sizeof(c)), unsafe.Pointer(&c))
	default:
		return statusError(diag.StageSetup, "clSetKernelArg", C.CL_INVALID_ARG_VALUE).
			Wrap(fmt.Errorf("argument %d: unsupported type %T", i, value))
	}
	if status != C.CL_SUCCESS {
		return statusError(diag.StageSetup, "clSetKernelArg", status)
	}
	return nil
}

// KernelInfo queries the kernel's work-group footprint on its device.
func (k *Kernel) KernelInfo() (diag.KernelInfo, error) {
	var wg, multiple C.size_t
	var local, private C.cl_ulong
	var compile [3]C.size_t
	for _, q := range []struct {
		param C.cl_kernel_work_group_info
		size  uintptr
		ptr   unsafe.Pointer
	}{
		{C.CL_KERNEL_WORK_GROUP_SIZE, unsafe.Sizeof(wg), unsafe.Pointer(&wg)},
		{C.CL_KERNEL_PREFERRED_WORK_GROUP_SIZE_MULTIPLE, unsafe.Sizeof(multiple), unsafe.Pointer(&multiple)},
		{C.CL_KERNEL_LOCAL_MEM_SIZE, unsafe.Sizeof(local), unsafe.Pointer(&local)},
		{C.CL_KERNEL_PRIVATE_MEM_SIZE, unsafe.Sizeof(private), unsafe.Pointer(&private)},
		{C.CL_KERNEL_COMPILE_WORK_GROUP_SIZE, unsafe.Sizeof(compile), unsafe.Pointer(&compile[0])},
	} {
		status := C.clGetKernelWorkGroupInfo(k.id, k.device, q.param, C.size_t(q.size), q.ptr, nil)
		if status != C.CL_SUCCESS {
			return diag.KernelInfo{}, statusError(diag.StageEnqueue, "clGetKernelWorkGroupInfo", status)
		}
	}
	return diag.KernelInfo{
		WorkGroupSize:        uint64(wg),
		PreferredMultiple:    uint64(multiple),
		LocalMemSize:         uint64(local),
		PrivateMemSize:       uint64(private),
		CompileWorkGroupSize: [3]uint64{uint64(compile[0]), uint64(compile[1]), uint64(compile[2])},
	}, nil
}

// CreateBuffer allocates a read-write buffer, copying init into it when
// non-empty.
func (r *Runtime) CreateBuffer(size int, init []byte) (*Mem, error) {
	var status C.cl_int
	id := C.clCreateBuffer(r.context, C.CL_MEM_READ_WRITE, C.size_t(size), nil, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageSetup, "clCreateBuffer", status)
	}
	m := &Mem{id: id, size: size}
	if len(init) > 0 {
		if err := r.Write(m, init); err != nil {
			m.Release()
			return nil, err
		}
	}
	return m, nil
}

// Release frees the buffer.
func (m *Mem) Release() {
	if m != nil && m.id != nil {
		C.clReleaseMemObject(m.id)
		m.id = nil
	}
}

// Write copies src into the start of m and blocks until done.
func (r *Runtime) Write(m *Mem, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	status := C.clEnqueueWriteBuffer(r.queue, m.id, C.CL_TRUE, 0, C.size_t(len(src)), unsafe.Pointer(&src[0]), 0, nil, nil)
	if status != C.CL_SUCCESS {
		return statusError(diag.StageTransfer, "clEnqueueWriteBuffer", status)
	}
	return nil
}

// Read copies the start of m into dst and blocks until done.
func (r *Runtime) Read(m *Mem, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	status := C.clEnqueueReadBuffer(r.queue, m.id, C.CL_TRUE, 0, C.size_t(len(dst)), unsafe.Pointer(&dst[0]), 0, nil, nil)
	if status != C.CL_SUCCESS {
		return statusError(diag.StageTransfer, "clEnqueueReadBuffer", status)
	}
	return nil
}

// Enqueue dispatches k over global work items and waits for the queue to
// drain. An empty local lets the implementation pick the work-group size.
func (r *Runtime) Enqueue(k *Kernel, global, local []int) error {
	gws := make([]C.size_t, len(global))
	for i, g := range global {
		gws[i] = C.size_t(g)
	}
	var lwsPtr *C.size_t
	if len(local) > 0 {
		lws := make([]C.size_t, len(local))
		for i, l := range local {
			lws[i] = C.size_t(l)
		}
		lwsPtr = &lws[0]
	}
	var gwsPtr *C.size_t
	if len(gws) > 0 {
		gwsPtr = &gws[0]
	}

	status := C.clEnqueueNDRangeKernel(r.queue, k.id, C.cl_uint(len(global)), nil, gwsPtr, lwsPtr, 0, nil, nil)
	if status != C.CL_SUCCESS {
		return statusError(diag.StageEnqueue, "clEnqueueNDRangeKernel", status)
	}
	status = C.clFinish(r.queue)
	if status != C.CL_SUCCESS {
		return statusError(diag.StageEnqueue, "clFinish", status)
	}
	return nil
}

// DeviceInfo reports the runtime's selected device.
func (r *Runtime) DeviceInfo() (diag.DeviceInfo, error) {
	return r.Device.Info, nil
}
