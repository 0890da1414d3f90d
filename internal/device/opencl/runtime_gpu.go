//go:build gpu

package opencl

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <CL/cl.h>
*/
import "C"

import (
	"errors"
	"strings"
	"unsafe"

	"github.com/cwbudde/clpixelcheck/internal/diag"
)

// Runtime owns the OpenCL context and command queue of one device.
type Runtime struct {
	platformID C.cl_platform_id
	deviceID   C.cl_device_id
	context    C.cl_context
	queue      C.cl_command_queue
	Platform   PlatformInfo
	Device     DeviceInfo
}

// Init selects a device (GPU preferred, then CPU, then the first one found)
// and creates a context and an in-order command queue on it.
func Init() (*Runtime, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}

	type selection struct {
		platform platformRecord
		device   deviceRecord
	}
	pick := func(match func(DeviceType) bool) *selection {
		for _, platform := range records {
			for _, device := range platform.devices {
				if match(device.info.Type) {
					return &selection{platform: platform, device: device}
				}
			}
		}
		return nil
	}

	chosen := pick(func(t DeviceType) bool { return t == DeviceTypeGPU })
	if chosen == nil {
		chosen = pick(func(t DeviceType) bool { return t == DeviceTypeCPU })
	}
	if chosen == nil {
		chosen = pick(func(DeviceType) bool { return true })
	}
	if chosen == nil {
		return nil, ErrNoDevices
	}

	var status C.cl_int
	context := C.clCreateContext(nil, 1, &chosen.device.id, nil, nil, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageSetup, "clCreateContext", status)
	}

	queue := C.clCreateCommandQueue(context, chosen.device.id, 0, &status)
	if status != C.CL_SUCCESS {
		C.clReleaseContext(context)
		return nil, statusError(diag.StageSetup, "clCreateCommandQueue", status)
	}

	return &Runtime{
		platformID: chosen.platform.id,
		deviceID:   chosen.device.id,
		context:    context,
		queue:      queue,
		Platform:   chosen.platform.info,
		Device:     chosen.device.info,
	}, nil
}

// Close releases the queue and the context.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.queue != nil {
		C.clReleaseCommandQueue(r.queue)
		r.queue = nil
	}
	if r.context != nil {
		C.clReleaseContext(r.context)
		r.context = nil
	}
}

// EnumeratePlatforms returns discovered platforms with their devices.
func EnumeratePlatforms() ([]PlatformInfo, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}
	out := make([]PlatformInfo, len(records))
	for i, platform := range records {
		out[i] = platform.info
	}
	return out, nil
}

type platformRecord struct {
	id      C.cl_platform_id
	info    PlatformInfo
	devices []deviceRecord
}

type deviceRecord struct {
	id   C.cl_device_id
	info DeviceInfo
}

func enumeratePlatformRecords() ([]platformRecord, error) {
	var count C.cl_uint
	status := C.clGetPlatformIDs(0, nil, &count)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageSetup, "clGetPlatformIDs", status)
	}
	if count == 0 {
		return nil, ErrNoDevices
	}

	platformIDs := make([]C.cl_platform_id, int(count))
	status = C.clGetPlatformIDs(count, &platformIDs[0], nil)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageSetup, "clGetPlatformIDs", status)
	}

	records := make([]platformRecord, 0, int(count))
	for _, pid := range platformIDs {
		rec := platformRecord{id: pid}
		for _, f := range []struct {
			param C.cl_platform_info
			dst   *string
		}{
			{C.CL_PLATFORM_NAME, &rec.info.Name},
			{C.CL_PLATFORM_VENDOR, &rec.info.Vendor},
			{C.CL_PLATFORM_VERSION, &rec.info.Version},
		} {
			v, err := getPlatformString(pid, f.param)
			if err != nil {
				return nil, err
			}
			*f.dst = v
		}

		devices, err := enumerateDevices(pid)
		if err != nil && !errors.Is(err, ErrNoDevices) {
			return nil, err
		}
		rec.devices = devices
		rec.info.Devices = make([]DeviceInfo, len(devices))
		for i, device := range devices {
			rec.info.Devices[i] = device.info
		}
		records = append(records, rec)
	}
	return records, nil
}

func enumerateDevices(platform C.cl_platform_id) ([]deviceRecord, error) {
	var count C.cl_uint
	status := C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, 0, nil, &count)
	if status == C.CL_DEVICE_NOT_FOUND || (status == C.CL_SUCCESS && count == 0) {
		return nil, ErrNoDevices
	}
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageSetup, "clGetDeviceIDs", status)
	}

	deviceIDs := make([]C.cl_device_id, int(count))
	status = C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, count, &deviceIDs[0], nil)
	if status != C.CL_SUCCESS {
		return nil, statusError(diag.StageSetup, "clGetDeviceIDs", status)
	}

	devices := make([]deviceRecord, 0, int(count))
	for _, id := range deviceIDs {
		info, err := queryDeviceInfo(id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, deviceRecord{id: id, info: info})
	}
	return devices, nil
}

func queryDeviceInfo(id C.cl_device_id) (DeviceInfo, error) {
	var out DeviceInfo
	for _, f := range []struct {
		param C.cl_device_info
		dst   *string
	}{
		{C.CL_DEVICE_NAME, &out.Info.Name},
		{C.CL_DEVICE_VENDOR, &out.Info.Vendor},
		{C.CL_DRIVER_VERSION, &out.Info.DriverVersion},
		{C.CL_DEVICE_VERSION, &out.Info.Version},
	} {
		v, err := getDeviceString(id, f.param)
		if err != nil {
			return DeviceInfo{}, err
		}
		*f.dst = v
	}

	var rawType C.cl_device_type
	if err := getDeviceValue(id, C.CL_DEVICE_TYPE, unsafe.Sizeof(rawType), unsafe.Pointer(&rawType)); err != nil {
		return DeviceInfo{}, err
	}
	out.Type = mapDeviceType(rawType)

	var units, clock, dims C.cl_uint
	var maxWG C.size_t
	var localMem, maxAlloc, globalMem C.cl_ulong
	for _, q := range []struct {
		param C.cl_device_info
		size  uintptr
		ptr   unsafe.Pointer
	}{
		{C.CL_DEVICE_MAX_COMPUTE_UNITS, unsafe.Sizeof(units), unsafe.Pointer(&units)},
		{C.CL_DEVICE_MAX_CLOCK_FREQUENCY, unsafe.Sizeof(clock), unsafe.Pointer(&clock)},
		{C.CL_DEVICE_MAX_WORK_ITEM_DIMENSIONS, unsafe.Sizeof(dims), unsafe.Pointer(&dims)},
		{C.CL_DEVICE_MAX_WORK_GROUP_SIZE, unsafe.Sizeof(maxWG), unsafe.Pointer(&maxWG)},
		{C.CL_DEVICE_LOCAL_MEM_SIZE, unsafe.Sizeof(localMem), unsafe.Pointer(&localMem)},
		{C.CL_DEVICE_MAX_MEM_ALLOC_SIZE, unsafe.Sizeof(maxAlloc), unsafe.Pointer(&maxAlloc)},
		{C.CL_DEVICE_GLOBAL_MEM_SIZE, unsafe.Sizeof(globalMem), unsafe.Pointer(&globalMem)},
	} {
		if err := getDeviceValue(id, q.param, q.size, q.ptr); err != nil {
			return DeviceInfo{}, err
		}
	}
	if dims > 0 {
		sizes := make([]C.size_t, int(dims))
		if err := getDeviceValue(id, C.CL_DEVICE_MAX_WORK_ITEM_SIZES, uintptr(len(sizes))*unsafe.Sizeof(sizes[0]), unsafe.Pointer(&sizes[0])); err != nil {
			return DeviceInfo{}, err
		}
		for i := 0; i < len(sizes) && i < 3; i++ {
			out.Info.MaxWorkItemSizes[i] = uint64(sizes[i])
		}
	}

	out.Info.ComputeUnits = uint32(units)
	out.Info.ClockMHz = uint32(clock)
	out.Info.MaxWorkGroupSize = uint64(maxWG)
	out.Info.LocalMemSize = uint64(localMem)
	out.Info.MaxAllocSize = uint64(maxAlloc)
	out.Info.GlobalMemSize = uint64(globalMem)
	return out, nil
}

func getDeviceValue(id C.cl_device_id, param C.cl_device_info, size uintptr, ptr unsafe.Pointer) error {
	status := C.clGetDeviceInfo(id, param, C.size_t(size), ptr, nil)
	if status != C.CL_SUCCESS {
		return statusErrorDepth(1, diag.StageSetup, "clGetDeviceInfo", status)
	}
	return nil
}

// infoQuery is one clGet*Info call with the size/value/size_ret triple left
// open.
type infoQuery func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int

// queryString runs q twice, once for the length and once for the bytes,
// and strips the terminating NUL.
func queryString(op string, q infoQuery) (string, error) {
	var size C.size_t
	if status := q(0, nil, &size); status != C.CL_SUCCESS {
		return "", statusErrorDepth(1, diag.StageSetup, op, status)
	}
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, int(size))
	if status := q(size, unsafe.Pointer(&buf[0]), nil); status != C.CL_SUCCESS {
		return "", statusErrorDepth(1, diag.StageSetup, op, status)
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

func getPlatformString(id C.cl_platform_id, param C.cl_platform_info) (string, error) {
	return queryString("clGetPlatformInfo", func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int {
		return C.clGetPlatformInfo(id, param, size, value, sizeRet)
	})
}

func getDeviceString(id C.cl_device_id, param C.cl_device_info) (string, error) {
	return queryString("clGetDeviceInfo", func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int {
		return C.clGetDeviceInfo(id, param, size, value, sizeRet)
	})
}

func mapDeviceType(dt C.cl_device_type) DeviceType {
	switch {
	case dt&C.CL_DEVICE_TYPE_GPU != 0:
		return DeviceTypeGPU
	case dt&C.CL_DEVICE_TYPE_CPU != 0:
		return DeviceTypeCPU
	case dt&C.CL_DEVICE_TYPE_ACCELERATOR != 0:
		return DeviceTypeAccelerator
	case dt&C.CL_DEVICE_TYPE_DEFAULT != 0:
		return DeviceTypeDefault
	default:
		return DeviceTypeUnknown
	}
}

func statusError(stage diag.Stage, op string, status C.cl_int) *diag.BackendError {
	return diag.NewErrorDepth(1, stage, op, int32(status))
}

func statusErrorDepth(depth int, stage diag.Stage, op string, status C.cl_int) *diag.BackendError {
	return diag.NewErrorDepth(depth+1, stage, op, int32(status))
}
