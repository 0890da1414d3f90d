//go:build !gpu

package opencl

// Runtime is a placeholder when GPU support is not compiled.
type Runtime struct {
	Platform PlatformInfo
	Device   DeviceInfo
}

// Init returns an error when GPU support is not compiled in.
func Init() (*Runtime, error) {
	return nil, ErrNotBuilt
}

// Close is a no-op without GPU support.
func (r *Runtime) Close() {}

// EnumeratePlatforms returns an error when GPU support is not compiled in.
func EnumeratePlatforms() ([]PlatformInfo, error) {
	return nil, ErrNotBuilt
}
