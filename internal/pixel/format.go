package pixel

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for malformed buffers, dimensions or formats.
// Use errors.Is(err, ErrInvalidArgument) to check for it.
var ErrInvalidArgument = errors.New("invalid argument")

// Format identifies the memory layout of a single pixel.
type Format int

const (
	// RGBA8888 packs r in bits 0-7, g in 8-15, b in 16-23 and a in 24-31
	// of a little-endian 32-bit word (bytes R,G,B,A in memory).
	RGBA8888 Format = iota
	// BGRA8888 packs b in bits 0-7, g in 8-15, r in 16-23 and a in 24-31
	// (bytes B,G,R,A in memory).
	BGRA8888
	// RGB565 packs 5 bits of red in 11-15, 6 bits of green in 5-10 and
	// 5 bits of blue in 0-4 of a little-endian 16-bit word.
	RGB565
	// RGB888 is the tightly packed canonical layout used for artifacts.
	RGB888
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{RGBA8888, BGRA8888, RGB565, RGB888}
}

func (f Format) String() string {
	switch f {
	case RGBA8888:
		return "rgba8888"
	case BGRA8888:
		return "bgra8888"
	case RGB565:
		return "rgb565"
	case RGB888:
		return "rgb888"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	switch f {
	case RGBA8888, BGRA8888, RGB565, RGB888:
		return true
	default:
		return false
	}
}

// BytesPerPixel returns the storage size of one pixel, or 0 for unknown formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGBA8888, BGRA8888:
		return 4
	case RGB565:
		return 2
	case RGB888:
		return 3
	default:
		return 0
	}
}

// ParseFormat maps a user supplied name or the numeric selector used by the
// command line (0 = rgba, 1 = rgb565, 2 = bgra) to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "0", "rgba", "rgba8888", "RGBA8888":
		return RGBA8888, nil
	case "2", "bgra", "bgra8888", "BGRA8888":
		return BGRA8888, nil
	case "1", "rgb565", "RGB565", "565":
		return RGB565, nil
	case "rgb", "rgb888", "RGB888":
		return RGB888, nil
	default:
		return 0, fmt.Errorf("%w: unknown pixel format %q", ErrInvalidArgument, s)
	}
}
