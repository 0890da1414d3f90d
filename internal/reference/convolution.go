package reference

import (
	"fmt"

	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// ConvolutionInput is a red/green ramp with a seeded diagonal blue texture.
func ConvolutionInput(w, h, seed int) (*pixel.Image, error) {
	img, err := pixel.NewImage(w, h, 0, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, pixel.Color{
				R: ramp(x, w),
				G: ramp(y, h),
				B: uint8((x*7 + y*13 + seed) * 3),
				A: 255,
			})
		}
	}
	return img, nil
}

// Luma is the integer BT.601 approximation (77r + 150g + 29b) >> 8.
func Luma(c pixel.Color) int {
	return (77*int(c.R) + 150*int(c.G) + 29*int(c.B)) >> 8
}

// Sample returns the pixel at (x, y) with coordinates clamped to the image,
// replicating edge pixels outward.
func Sample(img *pixel.Image, x, y int) pixel.Color {
	return img.At(pixel.ClampInt(x, 0, img.Width-1), pixel.ClampInt(y, 0, img.Height-1))
}

// neighborhood collects the 3×3 luma window around (x, y), row-major.
func neighborhood(img *pixel.Image, x, y int) (s [3][3]int) {
	for j := -1; j <= 1; j++ {
		for i := -1; i <= 1; i++ {
			s[j+1][i+1] = Luma(Sample(img, x+i, y+j))
		}
	}
	return s
}

func gray(v int) pixel.Color {
	g := pixel.ClampU8(v)
	return pixel.Color{R: g, G: g, B: g, A: 255}
}

func convolve(src *pixel.Image, op func(s [3][3]int) int) (*pixel.Image, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("convolution source: %w", err)
	}
	out, err := pixel.NewImage(src.Width, src.Height, 0, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			out.Set(x, y, gray(op(neighborhood(src, x, y))))
		}
	}
	return out, nil
}

// BlurValue applies the 1-2-1 outer-product weights and divides by 16 with
// rounding.
func BlurValue(s [3][3]int) int {
	sum := s[0][0] + 2*s[0][1] + s[0][2] +
		2*s[1][0] + 4*s[1][1] + 2*s[1][2] +
		s[2][0] + 2*s[2][1] + s[2][2]
	return (sum + 8) >> 4
}

// SobelValue is the L1 gradient magnitude |gx| + |gy|, clamped to 255.
func SobelValue(s [3][3]int) int {
	gx := -s[0][0] + s[0][2] - 2*s[1][0] + 2*s[1][2] - s[2][0] + s[2][2]
	gy := -s[0][0] - 2*s[0][1] - s[0][2] + s[2][0] + 2*s[2][1] + s[2][2]
	return min(abs(gx)+abs(gy), 255)
}

// Blur returns the grayscale 3×3 weighted blur of the luma of src.
func Blur(src *pixel.Image) (*pixel.Image, error) {
	return convolve(src, BlurValue)
}

// Sobel returns the grayscale edge magnitude of the luma of src.
func Sobel(src *pixel.Image) (*pixel.Image, error) {
	return convolve(src, SobelValue)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
