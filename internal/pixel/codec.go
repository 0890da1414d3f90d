package pixel

import "fmt"

// Color is an 8-bit per channel RGBA value.
type Color struct {
	R, G, B, A uint8
}

// Opaque returns c with alpha forced to 255.
func (c Color) Opaque() Color {
	c.A = 255
	return c
}

// PackRGBA8888 packs c into a 32-bit word with red in the low byte.
func PackRGBA8888(c Color) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

// PackBGRA8888 packs c into a 32-bit word with blue in the low byte.
func PackBGRA8888(c Color) uint32 {
	return uint32(c.B) | uint32(c.G)<<8 | uint32(c.R)<<16 | uint32(c.A)<<24
}

// PackRGB565 quantizes r, g and b with rounding: (v*max + 127) / 255.
func PackRGB565(r, g, b uint8) uint16 {
	r5 := (uint32(r)*31 + 127) / 255
	g6 := (uint32(g)*63 + 127) / 255
	b5 := (uint32(b)*31 + 127) / 255
	return uint16(r5<<11 | g6<<5 | b5)
}

// UnpackRGB565 expands a 565 word with field*255/max, truncating. The
// expansion is intentionally not the inverse of PackRGB565; a round trip is
// only accurate to within one quantization step.
func UnpackRGB565(v uint16) Color {
	r5 := uint32(v>>11) & 0x1F
	g6 := uint32(v>>5) & 0x3F
	b5 := uint32(v) & 0x1F
	return Color{
		R: uint8(r5 * 255 / 31),
		G: uint8(g6 * 255 / 63),
		B: uint8(b5 * 255 / 31),
		A: 255,
	}
}

// Pack encodes c in the given format. RGB888 packs r, g, b into the low
// three bytes. RGB565 drops alpha.
func Pack(f Format, c Color) (uint32, error) {
	switch f {
	case RGBA8888:
		return PackRGBA8888(c), nil
	case BGRA8888:
		return PackBGRA8888(c), nil
	case RGB565:
		return uint32(PackRGB565(c.R, c.G, c.B)), nil
	case RGB888:
		return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16, nil
	default:
		return 0, fmt.Errorf("%w: pack %s", ErrInvalidArgument, f)
	}
}

// Unpack decodes a packed word. Formats without alpha report alpha 255.
func Unpack(f Format, v uint32) (Color, error) {
	switch f {
	case RGBA8888:
		return Color{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: uint8(v >> 24)}, nil
	case BGRA8888:
		return Color{B: uint8(v), G: uint8(v >> 8), R: uint8(v >> 16), A: uint8(v >> 24)}, nil
	case RGB565:
		return UnpackRGB565(uint16(v)), nil
	case RGB888:
		return Color{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 255}, nil
	default:
		return Color{}, fmt.Errorf("%w: unpack %s", ErrInvalidArgument, f)
	}
}

// AlignUp rounds v up to the next multiple of align. An align of 0 or 1
// returns v unchanged.
func AlignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampU8 limits v to the range of a byte.
func ClampU8(v int) uint8 {
	return uint8(ClampInt(v, 0, 255))
}
