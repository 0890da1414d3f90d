// Package reference synthesizes the expected output of every device kernel.
// Each generator is a pure function of its parameters: identical inputs
// always produce byte-identical images.
package reference

import (
	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// Pattern modes.
const (
	ModeBars     = 0
	ModeChecker  = 1
	ModeGradient = 2
)

// Seed stripe colors and the gradient disc color.
var (
	stripeColor = pixel.Color{R: 32, G: 64, B: 255, A: 255}
	discColor   = pixel.Color{R: 255, G: 64, B: 32, A: 255}
)

// barColors are the eight SMPTE-like bars, left to right.
var barColors = [8]pixel.Color{
	{R: 255, G: 255, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
	{R: 0, G: 0, B: 0, A: 255},
}

// CheckerBlock is the edge length of a checkerboard cell in pixels.
const CheckerBlock = 8

// PatternParams selects a synthetic test pattern.
type PatternParams struct {
	Width  int
	Height int
	// Stride in bytes; 0 selects Width*4.
	Stride int
	Mode   int
	Seed   int
	// Circle adds the centered disc to the gradient mode.
	Circle bool
}

// ramp maps i in [0, extent-1] onto [0, 255]. An extent of 1 yields 0.
func ramp(i, extent int) uint8 {
	if extent <= 1 {
		return 0
	}
	return uint8(i * 255 / (extent - 1))
}

// PatternColor returns the pattern color at (x, y). Modes other than bars
// and checker render the gradient.
func PatternColor(x, y, w, h, mode, seed int, circle bool) pixel.Color {
	switch mode {
	case ModeBars:
		bar := x * 8 / w
		if bar < 0 || bar > 7 {
			bar = 7
		}
		return barColors[bar]
	case ModeChecker:
		if ((x/CheckerBlock)^(y/CheckerBlock))&1 != 0 {
			return pixel.Color{R: 220, G: 220, B: 220, A: 255}
		}
		return pixel.Color{R: 30, G: 30, B: 30, A: 255}
	default:
		c := pixel.Color{R: ramp(x, w), G: ramp(y, h), B: ramp(x+y, w+h-1), A: 255}
		if circle {
			dx, dy := x-w/2, y-h/2
			rad := min(w, h) / 4
			if dx*dx+dy*dy <= rad*rad {
				c = discColor
			}
		}
		if (x+seed)%17 == 0 {
			c = stripeColor
		}
		return c
	}
}

// Pattern renders the selected test pattern as RGBA8888. Padding bytes
// beyond each row are left zero.
func Pattern(p PatternParams) (*pixel.Image, error) {
	img, err := pixel.NewImage(p.Width, p.Height, p.Stride, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			img.Set(x, y, PatternColor(x, y, p.Width, p.Height, p.Mode, p.Seed, p.Circle))
		}
	}
	return img, nil
}

// PatternRGB565 renders the pattern without the disc and packs it into a
// 565 image with the given stride in bytes.
func PatternRGB565(w, h, stride, mode, seed int) (*pixel.Image, error) {
	img, err := pixel.NewImage(w, h, stride, pixel.RGB565)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := PatternColor(x, y, w, h, mode, seed, false)
			img.SetWord(x, y, uint32(pixel.PackRGB565(c.R, c.G, c.B)))
		}
	}
	return img, nil
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Clip intersects r with the w×h image bounds.
func (r Rect) Clip(w, h int) Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, w), min(r.Y+r.H, h)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// PatchRect overwrites the pixels of img inside r with a second pattern,
// evaluated in full-image coordinates. The rectangle is clipped to img.
func PatchRect(img *pixel.Image, r Rect, mode, seed int) {
	r = r.Clip(img.Width, img.Height)
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			img.Set(x, y, PatternColor(x, y, img.Width, img.Height, mode, seed, false))
		}
	}
}
