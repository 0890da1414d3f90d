// Package kernels holds the device programs the checks dispatch: the OpenCL
// C sources, their WGSL renditions and the host emulation of every kernel.
package kernels

import (
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"
)

// Kernel names as they appear in the OpenCL sources.
const (
	TestPattern      = "test_pattern"
	FillRGBA         = "fill_rgba"
	FillRGB565       = "fill_rgb565"
	AlphaBlend       = "alpha_blend"
	GaussianBlur     = "gaussian_blur"
	SobelEdge        = "sobel_edge"
	ScaleNearest     = "scale_nearest"
	ScaleBilinear    = "scale_bilinear"
	YUV420ToRGBA     = "yuv420_to_rgba"
	RenderPolyhedron = "render_polyhedron"
)

// BuildOptions are passed to every OpenCL program build.
const BuildOptions = "-cl-std=CL1.2"

//go:embed cl/*.cl
var clFS embed.FS

//go:embed wgsl/*.wgsl
var wgslFS embed.FS

// Names lists every kernel in the OpenCL program.
func Names() []string {
	return []string{
		TestPattern, FillRGBA, FillRGB565, AlphaBlend, GaussianBlur,
		SobelEdge, ScaleNearest, ScaleBilinear, YUV420ToRGBA, RenderPolyhedron,
	}
}

// Source returns the complete OpenCL program: every embedded .cl file in
// name order.
func Source() (string, error) {
	files, err := fs.Glob(clFS, "cl/*.cl")
	if err != nil {
		return "", err
	}
	sort.Strings(files)
	var b strings.Builder
	for _, name := range files {
		data, err := clFS.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// FloatBytes encodes v as little-endian float32 words, the layout of a
// __global const float* argument.
func FloatBytes(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

// BytesFloat decodes little-endian float32 words. Trailing bytes are ignored.
func BytesFloat(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}
