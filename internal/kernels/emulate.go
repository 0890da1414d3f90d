package kernels

import (
	"fmt"

	"github.com/cwbudde/clpixelcheck/internal/device"
	"github.com/cwbudde/clpixelcheck/internal/pixel"
	"github.com/cwbudde/clpixelcheck/internal/reference"
)

// Emulations returns the host rendition of every kernel, for use with the
// host backend. Each one decodes the launch arguments in the order of the
// OpenCL signature and writes through the reference generators, touching
// only the pixels the device kernel would write.
func Emulations() map[string]device.Emulation {
	return map[string]device.Emulation{
		TestPattern:      emulateTestPattern,
		FillRGBA:         emulateFillRGBA,
		FillRGB565:       emulateFillRGB565,
		AlphaBlend:       emulateAlphaBlend,
		GaussianBlur:     convolution(reference.Blur),
		SobelEdge:        convolution(reference.Sobel),
		ScaleNearest:     scaler(reference.ScaleNearest),
		ScaleBilinear:    scaler(reference.ScaleBilinear),
		YUV420ToRGBA:     emulateYUV,
		RenderPolyhedron: emulateRenderPolyhedron,
	}
}

func ints(args []any, from, n int) ([]int, error) {
	out := make([]int, n)
	for i := range out {
		v, err := device.IntArg(args, from+i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// region is the part of a w×h image covered by the global work size.
func region(global []int, w, h int) (int, int) {
	gw, gh := global[0], 1
	if len(global) > 1 {
		gh = global[1]
	}
	return min(gw, w), min(gh, h)
}

// blit copies the pixels of src inside rect r into dst, whose rows are
// stridePx pixels apart. Padding in dst is left untouched.
func blit(dst []byte, stridePx int, src *pixel.Image, r reference.Rect) error {
	bpp := src.Format.BytesPerPixel()
	r = r.Clip(src.Width, src.Height)
	if r.Empty() {
		return nil
	}
	if stridePx < r.X+r.W {
		return fmt.Errorf("stride %d px narrower than row of %d px", stridePx, r.X+r.W)
	}
	end := ((r.Y+r.H-1)*stridePx + r.X + r.W) * bpp
	if end > len(dst) {
		return fmt.Errorf("write of %d bytes overruns %d byte buffer", end, len(dst))
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		off := (y*stridePx + r.X) * bpp
		copy(dst[off:off+r.W*bpp], src.Pix[src.PixOffset(r.X, y):src.PixOffset(r.X+r.W, y)])
	}
	return nil
}

// view wraps an input buffer of rows stridePx pixels apart.
func view(buf []byte, w, h, stridePx int, f pixel.Format) (*pixel.Image, error) {
	return pixel.Wrap(buf, w, h, stridePx*f.BytesPerPixel(), f)
}

// test_pattern(out, w, h, stride, mode, seed)
func emulateTestPattern(args []any, global []int) error {
	out, err := device.BufferArg(args, 0)
	if err != nil {
		return err
	}
	p, err := ints(args, 1, 5)
	if err != nil {
		return err
	}
	w, h, stride, mode, seed := p[0], p[1], p[2], p[3], p[4]
	img, err := reference.Pattern(reference.PatternParams{Width: w, Height: h, Mode: mode, Seed: seed, Circle: true})
	if err != nil {
		return err
	}
	rw, rh := region(global, w, h)
	return blit(out, stride, img, reference.Rect{W: rw, H: rh})
}

// fill_rgba(out, w, h, stride, mode, seed, use_rect, rx, ry, rw, rh)
func emulateFillRGBA(args []any, global []int) error {
	out, err := device.BufferArg(args, 0)
	if err != nil {
		return err
	}
	p, err := ints(args, 1, 10)
	if err != nil {
		return err
	}
	w, h, stride, mode, seed := p[0], p[1], p[2], p[3], p[4]
	img, err := reference.Pattern(reference.PatternParams{Width: w, Height: h, Mode: mode, Seed: seed})
	if err != nil {
		return err
	}
	rw, rh := region(global, w, h)
	r := reference.Rect{W: rw, H: rh}
	if p[5] != 0 {
		r = reference.Rect{X: p[6], Y: p[7], W: p[8], H: p[9]}.Clip(rw, rh)
	}
	return blit(out, stride, img, r)
}

// fill_rgb565(out, w, h, stride, mode, seed)
func emulateFillRGB565(args []any, global []int) error {
	out, err := device.BufferArg(args, 0)
	if err != nil {
		return err
	}
	p, err := ints(args, 1, 5)
	if err != nil {
		return err
	}
	w, h, stride, mode, seed := p[0], p[1], p[2], p[3], p[4]
	img, err := reference.PatternRGB565(w, h, 0, mode, seed)
	if err != nil {
		return err
	}
	rw, rh := region(global, w, h)
	return blit(out, stride, img, reference.Rect{W: rw, H: rh})
}

// alpha_blend(bg, fg, out, w, h, stride)
func emulateAlphaBlend(args []any, global []int) error {
	bgBuf, err := device.BufferArg(args, 0)
	if err != nil {
		return err
	}
	fgBuf, err := device.BufferArg(args, 1)
	if err != nil {
		return err
	}
	out, err := device.BufferArg(args, 2)
	if err != nil {
		return err
	}
	p, err := ints(args, 3, 3)
	if err != nil {
		return err
	}
	w, h, stride := p[0], p[1], p[2]
	bg, err := view(bgBuf, w, h, w, pixel.RGBA8888)
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}
	fg, err := view(fgBuf, w, h, w, pixel.RGBA8888)
	if err != nil {
		return fmt.Errorf("foreground: %w", err)
	}
	img, err := reference.Blend(bg, fg)
	if err != nil {
		return err
	}
	rw, rh := region(global, w, h)
	return blit(out, stride, img, reference.Rect{W: rw, H: rh})
}

// convolution returns the emulation of a 3×3 filter kernel with signature
// (in, out, w, h, stride); both images share the stride.
func convolution(filter func(*pixel.Image) (*pixel.Image, error)) device.Emulation {
	return func(args []any, global []int) error {
		inBuf, err := device.BufferArg(args, 0)
		if err != nil {
			return err
		}
		out, err := device.BufferArg(args, 1)
		if err != nil {
			return err
		}
		p, err := ints(args, 2, 3)
		if err != nil {
			return err
		}
		w, h, stride := p[0], p[1], p[2]
		in, err := view(inBuf, w, h, stride, pixel.RGBA8888)
		if err != nil {
			return err
		}
		img, err := filter(in)
		if err != nil {
			return err
		}
		rw, rh := region(global, w, h)
		return blit(out, stride, img, reference.Rect{W: rw, H: rh})
	}
}

// scaler returns the emulation of a resampling kernel with signature
// (in, out, in_w, in_h, in_stride, out_w, out_h, out_stride).
func scaler(scale func(*pixel.Image, int, int) (*pixel.Image, error)) device.Emulation {
	return func(args []any, global []int) error {
		inBuf, err := device.BufferArg(args, 0)
		if err != nil {
			return err
		}
		out, err := device.BufferArg(args, 1)
		if err != nil {
			return err
		}
		p, err := ints(args, 2, 6)
		if err != nil {
			return err
		}
		in, err := view(inBuf, p[0], p[1], p[2], pixel.RGBA8888)
		if err != nil {
			return err
		}
		img, err := scale(in, p[3], p[4])
		if err != nil {
			return err
		}
		rw, rh := region(global, p[3], p[4])
		return blit(out, p[5], img, reference.Rect{W: rw, H: rh})
	}
}

// yuv420_to_rgba(y, uv, out, w, h, stride)
func emulateYUV(args []any, global []int) error {
	yBuf, err := device.BufferArg(args, 0)
	if err != nil {
		return err
	}
	uvBuf, err := device.BufferArg(args, 1)
	if err != nil {
		return err
	}
	out, err := device.BufferArg(args, 2)
	if err != nil {
		return err
	}
	p, err := ints(args, 3, 3)
	if err != nil {
		return err
	}
	w, h, stride := p[0], p[1], p[2]
	img, err := reference.YUV420ToRGBA(&reference.YUV420{Width: w, Height: h, Y: yBuf, UV: uvBuf}, 0)
	if err != nil {
		return err
	}
	rw, rh := region(global, w, h)
	return blit(out, stride, img, reference.Rect{W: rw, H: rh})
}

// render_polyhedron(out, scene, w, h)
func emulateRenderPolyhedron(args []any, global []int) error {
	out, err := device.BufferArg(args, 0)
	if err != nil {
		return err
	}
	sceneBuf, err := device.BufferArg(args, 1)
	if err != nil {
		return err
	}
	p, err := ints(args, 2, 2)
	if err != nil {
		return err
	}
	w, h := p[0], p[1]
	scene, err := reference.UnpackScene(BytesFloat(sceneBuf), w, h)
	if err != nil {
		return err
	}
	img, err := reference.RenderScene(scene)
	if err != nil {
		return err
	}
	rw, rh := region(global, w, h)
	return blit(out, w, img, reference.Rect{W: rw, H: rh})
}
