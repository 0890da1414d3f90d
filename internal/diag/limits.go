package diag

import "github.com/gogpu/gputypes"

// LimitsDevice exposes WebGPU adapter limits as a device capability source,
// so WGSL dispatch shapes go through the same legality checklist as OpenCL
// launches.
type LimitsDevice struct {
	Name   string
	Limits gputypes.Limits
}

// DefaultLimitsDevice describes the minimum guaranteed WebGPU limits.
func DefaultLimitsDevice() LimitsDevice {
	return LimitsDevice{Name: "webgpu-default", Limits: gputypes.DefaultLimits()}
}

// DeviceInfo maps compute limits onto the OpenCL device vocabulary.
func (d LimitsDevice) DeviceInfo() (DeviceInfo, error) {
	l := d.Limits
	return DeviceInfo{
		Name:             d.Name,
		Vendor:           "WebGPU",
		Version:          "WebGPU",
		MaxWorkGroupSize: uint64(l.MaxComputeInvocationsPerWorkgroup),
		MaxWorkItemSizes: [3]uint64{
			uint64(l.MaxComputeWorkgroupSizeX),
			uint64(l.MaxComputeWorkgroupSizeY),
			uint64(l.MaxComputeWorkgroupSizeZ),
		},
		LocalMemSize:  uint64(l.MaxComputeWorkgroupStorageSize),
		MaxAllocSize:  l.MaxBufferSize,
		GlobalMemSize: l.MaxStorageBufferBindingSize,
	}, nil
}

// CheckWorkgroupSize runs the legality checklist for a WGSL
// @workgroup_size against the limits.
func (d LimitsDevice) CheckWorkgroupSize(x, y, z int) Legality {
	return CheckWorkGroup(Capture(d, nil), NewDispatch([]int{x, y, z}, []int{x, y, z}))
}
