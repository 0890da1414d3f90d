package diag

// DeviceInfo holds the device facts printed in a limits dump.
type DeviceInfo struct {
	Name             string
	Vendor           string
	DriverVersion    string
	Version          string
	ComputeUnits     uint32
	ClockMHz         uint32
	MaxWorkGroupSize uint64
	MaxWorkItemSizes [3]uint64
	LocalMemSize     uint64
	MaxAllocSize     uint64
	GlobalMemSize    uint64
}

// KernelInfo is a compiled kernel's per-device resource footprint.
// CompileWorkGroupSize is all zero unless the kernel fixes its work-group
// size at compile time.
type KernelInfo struct {
	WorkGroupSize        uint64
	PreferredMultiple    uint64
	LocalMemSize         uint64
	PrivateMemSize       uint64
	CompileWorkGroupSize [3]uint64
}

// BuildLog is the compiler output for one device. A non-zero Code means
// the log itself could not be retrieved.
type BuildLog struct {
	Device string
	Text   string
	Code   int32
}

// Device is a source of device facts.
type Device interface {
	DeviceInfo() (DeviceInfo, error)
}

// Kernel is a source of kernel facts.
type Kernel interface {
	KernelInfo() (KernelInfo, error)
}

// Program reports build logs for every device it was built for.
type Program interface {
	BuildLogs() ([]BuildLog, error)
}

// Sources bundles the capability sources of a backend. Any accessor may
// return nil.
type Sources interface {
	Device() Device
	Program() Program
	Kernel(name string) Kernel
}

// Snapshot is the capability state captured at failure time. Missing
// sources leave the corresponding Has flag false.
type Snapshot struct {
	Device    DeviceInfo
	HasDevice bool
	Kernel    KernelInfo
	HasKernel bool
}

// Capture queries dev and k, tolerating nil sources and query errors.
func Capture(dev Device, k Kernel) Snapshot {
	var s Snapshot
	if dev != nil {
		if info, err := dev.DeviceInfo(); err == nil {
			s.Device, s.HasDevice = info, true
		}
	}
	if k != nil {
		if info, err := k.KernelInfo(); err == nil {
			s.Kernel, s.HasKernel = info, true
		}
	}
	return s
}
