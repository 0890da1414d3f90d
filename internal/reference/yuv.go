package reference

import (
	"fmt"

	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// YUV420 holds a full-resolution luma plane and a half-resolution plane of
// interleaved U,V pairs.
type YUV420 struct {
	Width  int
	Height int
	Y      []byte
	UV     []byte
}

// CheckYUVSize rejects dimensions that cannot be chroma subsampled.
func CheckYUVSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", pixel.ErrInvalidArgument, w, h)
	}
	if w%2 != 0 || h%2 != 0 {
		return fmt.Errorf("%w: yuv420 needs even dimensions, got %dx%d", pixel.ErrInvalidArgument, w, h)
	}
	return nil
}

// YUV420Planes synthesizes a seeded luma ramp and slowly varying chroma.
func YUV420Planes(w, h, seed int) (*YUV420, error) {
	if err := CheckYUVSize(w, h); err != nil {
		return nil, err
	}
	out := &YUV420{
		Width:  w,
		Height: h,
		Y:      make([]byte, w*h),
		UV:     make([]byte, (w/2)*(h/2)*2),
	}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			out.Y[j*w+i] = uint8(int(ramp(i, w)) ^ (seed * 13))
		}
	}
	for j := 0; j < h/2; j++ {
		for i := 0; i < w/2; i++ {
			idx := (j*(w/2) + i) * 2
			out.UV[idx+0] = uint8(128 + (i*31+seed)%64 - 32)
			out.UV[idx+1] = uint8(128 + (j*29+seed)%64 - 32)
		}
	}
	return out, nil
}

// YUVToRGB converts one sample with 1024-scaled fixed point coefficients.
// Division truncates toward zero.
func YUVToRGB(y, u, v uint8) pixel.Color {
	Y := int(y)
	U := int(u) - 128
	V := int(v) - 128
	return pixel.Color{
		R: pixel.ClampU8(Y + 1436*V/1024),
		G: pixel.ClampU8(Y - (352*U+731*V)/1024),
		B: pixel.ClampU8(Y + 1814*U/1024),
		A: 255,
	}
}

// YUV420ToRGBA converts the planes into an RGBA8888 image with the given
// output stride in bytes (0 for tight).
func YUV420ToRGBA(in *YUV420, stride int) (*pixel.Image, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil planes", pixel.ErrInvalidArgument)
	}
	if err := CheckYUVSize(in.Width, in.Height); err != nil {
		return nil, err
	}
	w, h := in.Width, in.Height
	if len(in.Y) < w*h || len(in.UV) < (w/2)*(h/2)*2 {
		return nil, fmt.Errorf("%w: yuv planes too short", pixel.ErrInvalidArgument)
	}
	out, err := pixel.NewImage(w, h, stride, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			uv := ((y>>1)*(w>>1) + x>>1) * 2
			out.Set(x, y, YUVToRGB(in.Y[y*w+x], in.UV[uv], in.UV[uv+1]))
		}
	}
	return out, nil
}
