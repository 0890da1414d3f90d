package reference

import (
	"fmt"
	"math"

	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// ScalerInput is a red/green ramp with a seeded blue texture and a red
// stripe every 11 columns.
func ScalerInput(w, h, seed int) (*pixel.Image, error) {
	img, err := pixel.NewImage(w, h, 0, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := pixel.Color{R: ramp(x, w), G: ramp(y, h), B: uint8((x + y + seed) * 13), A: 255}
			if (x+seed)%11 == 0 {
				c = pixel.Color{R: 255, G: 32, B: 32, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img, nil
}

// SourceCoord maps a destination coordinate onto the source axis so that the
// first and last samples line up: dst*(src-1)/(dst_extent-1). A destination
// extent of 1 maps everything to 0.
func SourceCoord(dst, srcExtent, dstExtent int) float32 {
	if dstExtent <= 1 {
		return 0
	}
	return float32(dst) * float32(srcExtent-1) / float32(dstExtent-1)
}

func checkScale(src *pixel.Image, outW, outH int) error {
	if err := src.Validate(); err != nil {
		return fmt.Errorf("scale source: %w", err)
	}
	if src.Format != pixel.RGBA8888 && src.Format != pixel.BGRA8888 {
		return fmt.Errorf("%w: scale needs a 4-channel source, got %s", pixel.ErrInvalidArgument, src.Format)
	}
	if outW <= 0 || outH <= 0 {
		return fmt.Errorf("%w: output %dx%d", pixel.ErrInvalidArgument, outW, outH)
	}
	return nil
}

// ScaleNearest resamples src to outW×outH, rounding the mapped coordinate
// half up and clamping it to the source.
func ScaleNearest(src *pixel.Image, outW, outH int) (*pixel.Image, error) {
	if err := checkScale(src, outW, outH); err != nil {
		return nil, err
	}
	out, err := pixel.NewImage(outW, outH, 0, src.Format)
	if err != nil {
		return nil, err
	}
	for y := 0; y < outH; y++ {
		iy := pixel.ClampInt(int(SourceCoord(y, src.Height, outH)+0.5), 0, src.Height-1)
		for x := 0; x < outW; x++ {
			ix := pixel.ClampInt(int(SourceCoord(x, src.Width, outW)+0.5), 0, src.Width-1)
			out.SetWord(x, y, src.Word(ix, iy))
		}
	}
	return out, nil
}

// ScaleBilinear resamples src to outW×outH, interpolating all four byte
// channels independently in float32 and rounding the result.
func ScaleBilinear(src *pixel.Image, outW, outH int) (*pixel.Image, error) {
	if err := checkScale(src, outW, outH); err != nil {
		return nil, err
	}
	out, err := pixel.NewImage(outW, outH, 0, src.Format)
	if err != nil {
		return nil, err
	}
	for y := 0; y < outH; y++ {
		fy := SourceCoord(y, src.Height, outH)
		y0 := int(float32(math.Floor(float64(fy))))
		y1 := min(y0+1, src.Height-1)
		ty := fy - float32(y0)
		for x := 0; x < outW; x++ {
			fx := SourceCoord(x, src.Width, outW)
			x0 := int(float32(math.Floor(float64(fx))))
			x1 := min(x0+1, src.Width-1)
			tx := fx - float32(x0)

			c00 := src.Pix[src.PixOffset(x0, y0):]
			c10 := src.Pix[src.PixOffset(x1, y0):]
			c01 := src.Pix[src.PixOffset(x0, y1):]
			c11 := src.Pix[src.PixOffset(x1, y1):]
			dst := out.Pix[out.PixOffset(x, y):]
			for c := 0; c < 4; c++ {
				top := float32(c00[c]) + (float32(c10[c])-float32(c00[c]))*tx
				bot := float32(c01[c]) + (float32(c11[c])-float32(c01[c]))*tx
				v := top + (bot-top)*ty
				dst[c] = pixel.ClampU8(int(v + 0.5))
			}
		}
	}
	return out, nil
}
