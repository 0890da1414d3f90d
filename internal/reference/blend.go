package reference

import (
	"fmt"

	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// AlphaBackground is a red/green ramp over a constant blue of 32.
func AlphaBackground(w, h int) (*pixel.Image, error) {
	img, err := pixel.NewImage(w, h, 0, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, pixel.Color{R: ramp(x, w), G: ramp(y, h), B: 32, A: 255})
		}
	}
	return img, nil
}

// AlphaForeground is a centered disc of radius min(w,h)/3 whose alpha falls
// off quadratically from 255 at the center. Pixels outside the disc are
// fully transparent black.
func AlphaForeground(w, h int) (*pixel.Image, error) {
	img, err := pixel.NewImage(w, h, 0, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	cx, cy := w/2, h/2
	rad := min(w, h) / 3
	r2 := rad * rad
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := x-cx, y-cy
			d2 := dx*dx + dy*dy
			if d2 > r2 {
				continue
			}
			a := 255
			if r2 > 0 {
				a = 255 - d2*255/r2
			}
			img.Set(x, y, pixel.Color{R: 255, G: 64, B: 32, A: uint8(a)})
		}
	}
	return img, nil
}

// BlendChannel composites one channel: (f*a + b*(255-a) + 127) / 255.
func BlendChannel(f, b, a uint8) uint8 {
	return uint8((int(f)*int(a) + int(b)*(255-int(a)) + 127) / 255)
}

// Blend composites fg over bg. Both must be RGBA8888 of equal size; the
// output is opaque.
func Blend(bg, fg *pixel.Image) (*pixel.Image, error) {
	if err := bg.Validate(); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	if err := fg.Validate(); err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}
	if bg.Width != fg.Width || bg.Height != fg.Height {
		return nil, fmt.Errorf("%w: background %dx%d, foreground %dx%d",
			pixel.ErrInvalidArgument, bg.Width, bg.Height, fg.Width, fg.Height)
	}
	out, err := pixel.NewImage(bg.Width, bg.Height, 0, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	for y := 0; y < bg.Height; y++ {
		for x := 0; x < bg.Width; x++ {
			b, f := bg.At(x, y), fg.At(x, y)
			out.Set(x, y, pixel.Color{
				R: BlendChannel(f.R, b.R, f.A),
				G: BlendChannel(f.G, b.G, f.A),
				B: BlendChannel(f.B, b.B, f.A),
				A: 255,
			})
		}
	}
	return out, nil
}
