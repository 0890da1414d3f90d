// Package opencl binds the OpenCL 1.2 C API through cgo. It is compiled in
// with the gpu build tag; without it every entry point returns ErrNotBuilt.
package opencl

import (
	"errors"

	"github.com/cwbudde/clpixelcheck/internal/diag"
)

// DeviceType describes the class of an OpenCL device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
	DeviceTypeDefault     DeviceType = "Default"
	DeviceTypeUnknown     DeviceType = "Unknown"
)

// DeviceInfo captures metadata about an OpenCL device.
type DeviceInfo struct {
	Type DeviceType
	Info diag.DeviceInfo
}

// PlatformInfo captures metadata about an OpenCL platform and its devices.
type PlatformInfo struct {
	Name    string
	Vendor  string
	Version string
	Devices []DeviceInfo
}

var (
	// ErrNoDevices indicates that no usable OpenCL devices were found.
	ErrNoDevices = errors.New("no OpenCL devices found")
	// ErrNotBuilt indicates the binary was built without GPU support.
	ErrNotBuilt = errors.New("opencl support requires building with '-tags gpu'")
)
