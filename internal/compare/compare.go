// Package compare implements the tolerance comparator that decides whether a
// device image matches its reference.
package compare

import (
	"errors"
	"fmt"
	"image"

	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// ErrFormatMismatch is returned when two images of different formats are
// compared without an explicit conversion.
var ErrFormatMismatch = errors.New("pixel format mismatch")

// View is a read-only window onto interleaved 8-bit channel data.
// Stride is in bytes; 0 means Width*Channels.
type View struct {
	Pix      []byte
	Width    int
	Height   int
	Stride   int
	Channels int
}

func (v View) stride() int {
	if v.Stride == 0 {
		return v.Width * v.Channels
	}
	return v.Stride
}

// Validate checks that the view describes a readable region.
func (v View) Validate() error {
	if v.Pix == nil {
		return fmt.Errorf("%w: nil buffer", pixel.ErrInvalidArgument)
	}
	if v.Width <= 0 || v.Height <= 0 || v.Channels <= 0 {
		return fmt.Errorf("%w: view %dx%d with %d channels", pixel.ErrInvalidArgument, v.Width, v.Height, v.Channels)
	}
	row := v.Width * v.Channels
	if v.stride() < row {
		return fmt.Errorf("%w: stride %d smaller than row of %d bytes", pixel.ErrInvalidArgument, v.Stride, row)
	}
	if need := v.stride()*(v.Height-1) + row; len(v.Pix) < need {
		return fmt.Errorf("%w: view holds %d bytes, need %d", pixel.ErrInvalidArgument, len(v.Pix), need)
	}
	return nil
}

func checkPair(ref, act View) error {
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if err := act.Validate(); err != nil {
		return fmt.Errorf("actual: %w", err)
	}
	if act.Width < ref.Width || act.Height < ref.Height || act.Channels != ref.Channels {
		return fmt.Errorf("%w: actual %dx%dx%d smaller than reference %dx%dx%d", pixel.ErrInvalidArgument,
			act.Width, act.Height, act.Channels, ref.Width, ref.Height, ref.Channels)
	}
	return nil
}

// Result summarizes a comparison.
//
// OK is true exactly when MaxError <= tolerance. First holds the earliest
// pixel in row-major order with a channel difference above the tolerance and
// is only meaningful when HasMismatch is set.
type Result struct {
	OK          bool
	HasMismatch bool
	First       image.Point
	MaxError    int
	Mismatched  int
	Tolerance   int
}

// Summary renders the one-line failure description.
func (r Result) Summary() string {
	if r.OK {
		return fmt.Sprintf("max_err=%d", r.MaxError)
	}
	return fmt.Sprintf("mismatch at (%d,%d), max_err=%d", r.First.X, r.First.Y, r.MaxError)
}

// Compare scans both views in row-major order. Every channel difference
// contributes to MaxError; the scan never stops early. Each view is indexed
// with its own stride. Width, Height and Channels are taken from ref; act
// must be at least as large. A negative tolerance is treated as 0.
func Compare(ref, act View, tolerance int) (Result, error) {
	if err := checkPair(ref, act); err != nil {
		return Result{}, err
	}
	tolerance = max(tolerance, 0)
	res := Result{Tolerance: tolerance}

	w, h, ch := ref.Width, ref.Height, ref.Channels
	rs, as := ref.stride(), act.stride()
	for y := 0; y < h; y++ {
		r := ref.Pix[y*rs:]
		a := act.Pix[y*as:]
		for x := 0; x < w; x++ {
			worst := 0
			for c := 0; c < ch; c++ {
				d := int(r[x*ch+c]) - int(a[x*ch+c])
				if d < 0 {
					d = -d
				}
				worst = max(worst, d)
			}
			res.MaxError = max(res.MaxError, worst)
			if worst > tolerance {
				res.Mismatched++
				if !res.HasMismatch {
					res.HasMismatch = true
					res.First = image.Point{X: x, Y: y}
				}
			}
		}
	}
	res.OK = res.MaxError <= tolerance
	return res, nil
}

// ViewOf exposes an image as a View. RGB565 images must be converted first.
func ViewOf(img *pixel.Image) (View, error) {
	if err := img.Validate(); err != nil {
		return View{}, err
	}
	switch img.Format {
	case pixel.RGBA8888, pixel.BGRA8888, pixel.RGB888:
		return View{
			Pix:      img.Pix,
			Width:    img.Width,
			Height:   img.Height,
			Stride:   img.Stride,
			Channels: img.Format.BytesPerPixel(),
		}, nil
	default:
		return View{}, fmt.Errorf("%w: no byte channels in %s", pixel.ErrInvalidArgument, img.Format)
	}
}

// Images compares two images of identical dimensions and format. Packed
// RGB565 images are expanded to RGB888 on both sides before comparison.
func Images(ref, act *pixel.Image, tolerance int) (Result, error) {
	if err := ref.Validate(); err != nil {
		return Result{}, fmt.Errorf("reference: %w", err)
	}
	if err := act.Validate(); err != nil {
		return Result{}, fmt.Errorf("actual: %w", err)
	}
	if ref.Width != act.Width || ref.Height != act.Height {
		return Result{}, fmt.Errorf("%w: reference %dx%d, actual %dx%d",
			pixel.ErrInvalidArgument, ref.Width, ref.Height, act.Width, act.Height)
	}
	if ref.Format != act.Format {
		return Result{}, fmt.Errorf("%w: %s vs %s", ErrFormatMismatch, ref.Format, act.Format)
	}
	if ref.Format == pixel.RGB565 {
		var err error
		if ref, err = ref.Convert(pixel.RGB888, 0); err != nil {
			return Result{}, err
		}
		if act, err = act.Convert(pixel.RGB888, 0); err != nil {
			return Result{}, err
		}
	}
	rv, err := ViewOf(ref)
	if err != nil {
		return Result{}, err
	}
	av, err := ViewOf(act)
	if err != nil {
		return Result{}, err
	}
	return Compare(rv, av, tolerance)
}
