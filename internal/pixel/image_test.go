package pixel

import (
	"errors"
	"testing"
)

func TestNewImageStride(t *testing.T) {
	img, err := NewImage(3, 2, 0, RGB565)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if img.Stride != 6 {
		t.Errorf("tight stride = %d, want 6", img.Stride)
	}

	img, err = NewImage(3, 2, 64, RGBA8888)
	if err != nil {
		t.Fatalf("NewImage padded: %v", err)
	}
	if len(img.Pix) != 128 {
		t.Errorf("len(Pix) = %d, want 128", len(img.Pix))
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		img  *Image
	}{
		{"nil", nil},
		{"nil pix", &Image{Width: 1, Height: 1, Stride: 4}},
		{"zero width", &Image{Pix: make([]byte, 4), Width: 0, Height: 1, Stride: 4}},
		{"short stride", &Image{Pix: make([]byte, 16), Width: 2, Height: 2, Stride: 4}},
		{"short buffer", &Image{Pix: make([]byte, 7), Width: 1, Height: 2, Stride: 4}},
		{"unknown format", &Image{Pix: make([]byte, 4), Width: 1, Height: 1, Stride: 4, Format: Format(9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.img.Validate(); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Validate() = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestValidateAllowsShortLastRow(t *testing.T) {
	// Padding after the final row is not required.
	img := &Image{Pix: make([]byte, 64+8), Width: 2, Height: 2, Stride: 64, Format: RGBA8888}
	if err := img.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestPaddingUntouched(t *testing.T) {
	img, err := NewImage(2, 2, 16, RGBA8888)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	for i := range img.Pix {
		img.Pix[i] = 0xEE
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, Color{R: 1, G: 2, B: 3, A: 4})
		}
	}
	for y := 0; y < 2; y++ {
		for i := 8; i < 16; i++ {
			if img.Pix[y*16+i] != 0xEE {
				t.Fatalf("padding byte %d of row %d overwritten", i, y)
			}
		}
	}
}

func TestConvertPreservesColors(t *testing.T) {
	src, err := NewImage(4, 3, 0, RGBA8888)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, Color{R: uint8(x * 60), G: uint8(y * 100), B: 7, A: 255})
		}
	}

	bgra, err := src.Convert(BGRA8888, 32)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if bgra.Stride != 32 {
		t.Errorf("Stride = %d, want 32", bgra.Stride)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if a, b := src.At(x, y), bgra.At(x, y); a != b {
				t.Fatalf("pixel (%d,%d): %+v != %+v", x, y, a, b)
			}
		}
	}
	if bgra.Pix[0] != 7 || bgra.Pix[2] != 0 {
		t.Errorf("BGRA byte order wrong: %v", bgra.Pix[:4])
	}
}

func TestAtOutOfRange(t *testing.T) {
	img, _ := NewImage(1, 1, 0, RGBA8888)
	if c := img.At(5, 5); c != (Color{}) {
		t.Errorf("At out of range = %+v, want zero", c)
	}
	img.Set(-1, 0, Color{R: 1})
}

func TestToNRGBA(t *testing.T) {
	img, _ := NewImage(2, 1, 0, RGB565)
	img.Set(1, 0, Color{R: 255, A: 255})
	n, err := img.ToNRGBA()
	if err != nil {
		t.Fatalf("ToNRGBA: %v", err)
	}
	if got := n.NRGBAAt(1, 0); got.R != 255 || got.A != 255 {
		t.Errorf("NRGBAAt(1,0) = %+v", got)
	}
}
