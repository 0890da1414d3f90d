package pixel

import (
	"fmt"
	"image"
)

// Image is a row-major pixel buffer. Stride is in bytes and may exceed
// Width*BytesPerPixel; the padding bytes are never interpreted.
type Image struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
	Format Format
}

// NewImage allocates a zeroed image. A stride of 0 selects the tight stride.
func NewImage(width, height, stride int, f Format) (*Image, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: format %s", ErrInvalidArgument, f)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidArgument, width, height)
	}
	row := width * f.BytesPerPixel()
	if stride == 0 {
		stride = row
	}
	if stride < row {
		return nil, fmt.Errorf("%w: stride %d smaller than row of %d bytes", ErrInvalidArgument, stride, row)
	}
	return &Image{
		Pix:    make([]byte, stride*height),
		Width:  width,
		Height: height,
		Stride: stride,
		Format: f,
	}, nil
}

// Wrap validates an existing buffer and returns an Image view over it.
// A stride of 0 selects the tight stride.
func Wrap(pix []byte, width, height, stride int, f Format) (*Image, error) {
	if stride == 0 {
		stride = width * f.BytesPerPixel()
	}
	img := &Image{Pix: pix, Width: width, Height: height, Stride: stride, Format: f}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

// Validate checks that the buffer can hold Height rows of Stride bytes with
// the last row at least Width pixels wide.
func (m *Image) Validate() error {
	if m == nil || m.Pix == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidArgument)
	}
	if !m.Format.Valid() {
		return fmt.Errorf("%w: format %s", ErrInvalidArgument, m.Format)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidArgument, m.Width, m.Height)
	}
	row := m.Width * m.Format.BytesPerPixel()
	if m.Stride < row {
		return fmt.Errorf("%w: stride %d smaller than row of %d bytes", ErrInvalidArgument, m.Stride, row)
	}
	if need := m.Stride*(m.Height-1) + row; len(m.Pix) < need {
		return fmt.Errorf("%w: buffer holds %d bytes, need %d", ErrInvalidArgument, len(m.Pix), need)
	}
	return nil
}

// PixOffset returns the byte offset of pixel (x, y).
func (m *Image) PixOffset(x, y int) int {
	return y*m.Stride + x*m.Format.BytesPerPixel()
}

// Row returns the Width pixels of row y without padding.
func (m *Image) Row(y int) []byte {
	start := y * m.Stride
	return m.Pix[start : start+m.Width*m.Format.BytesPerPixel()]
}

// In reports whether (x, y) lies inside the image.
func (m *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// Word returns the packed value at (x, y).
func (m *Image) Word(x, y int) uint32 {
	i := m.PixOffset(x, y)
	switch m.Format.BytesPerPixel() {
	case 4:
		return uint32(m.Pix[i]) | uint32(m.Pix[i+1])<<8 | uint32(m.Pix[i+2])<<16 | uint32(m.Pix[i+3])<<24
	case 3:
		return uint32(m.Pix[i]) | uint32(m.Pix[i+1])<<8 | uint32(m.Pix[i+2])<<16
	case 2:
		return uint32(m.Pix[i]) | uint32(m.Pix[i+1])<<8
	default:
		return 0
	}
}

// SetWord stores a packed value at (x, y).
func (m *Image) SetWord(x, y int, v uint32) {
	i := m.PixOffset(x, y)
	switch m.Format.BytesPerPixel() {
	case 4:
		m.Pix[i+3] = uint8(v >> 24)
		fallthrough
	case 3:
		m.Pix[i+2] = uint8(v >> 16)
		fallthrough
	case 2:
		m.Pix[i+1] = uint8(v >> 8)
		m.Pix[i] = uint8(v)
	}
}

// At decodes the pixel at (x, y). Out of range coordinates yield the zero Color.
func (m *Image) At(x, y int) Color {
	if !m.In(x, y) {
		return Color{}
	}
	c, _ := Unpack(m.Format, m.Word(x, y))
	return c
}

// Set encodes c at (x, y). Out of range coordinates are ignored.
func (m *Image) Set(x, y int, c Color) {
	if !m.In(x, y) {
		return
	}
	v, err := Pack(m.Format, c)
	if err != nil {
		return
	}
	m.SetWord(x, y, v)
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := *m
	out.Pix = append([]byte(nil), m.Pix...)
	return &out
}

// Convert decodes every pixel and re-encodes it in dst. Dimensions are kept;
// a stride of 0 selects the tight stride for dst.
func (m *Image) Convert(dst Format, stride int) (*Image, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("convert source: %w", err)
	}
	out, err := NewImage(m.Width, m.Height, stride, dst)
	if err != nil {
		return nil, fmt.Errorf("convert destination: %w", err)
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c, err := Unpack(m.Format, m.Word(x, y))
			if err != nil {
				return nil, err
			}
			v, err := Pack(dst, c)
			if err != nil {
				return nil, err
			}
			out.SetWord(x, y, v)
		}
	}
	return out, nil
}

// ToRGB returns a tightly packed R,G,B copy of the image, the canonical
// layout written to artifacts and used for cross-format comparison.
func (m *Image) ToRGB() ([]byte, error) {
	rgb, err := m.Convert(RGB888, 0)
	if err != nil {
		return nil, err
	}
	return rgb.Pix, nil
}

// ToNRGBA converts the image for the standard library encoders.
func (m *Image) ToNRGBA() (*image.NRGBA, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c := m.At(x, y)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = c.A
		}
	}
	return out, nil
}
