package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// ImageFormat selects the artifact encoder.
type ImageFormat string

const (
	FormatPPM  ImageFormat = "ppm"
	FormatPNG  ImageFormat = "png"
	FormatTIFF ImageFormat = "tiff"
	FormatBMP  ImageFormat = "bmp"
)

// ErrUnknownImageFormat is returned for an unsupported artifact format name.
var ErrUnknownImageFormat = errors.New("unknown artifact format")

// ImageFormats lists the supported artifact formats.
func ImageFormats() []ImageFormat {
	return []ImageFormat{FormatPPM, FormatPNG, FormatTIFF, FormatBMP}
}

// ParseImageFormat maps a format name to an ImageFormat. The empty string
// selects PPM.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ppm", "p6":
		return FormatPPM, nil
	case "png":
		return FormatPNG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownImageFormat, s)
	}
}

// Ext returns the file extension including the dot.
func (f ImageFormat) Ext() string {
	return "." + string(f)
}

// WritePPM writes a binary P6 image from tightly packed RGB bytes.
func WritePPM(w io.Writer, width, height int, rgb []byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: ppm dimensions %dx%d", pixel.ErrInvalidArgument, width, height)
	}
	if len(rgb) < width*height*3 {
		return fmt.Errorf("%w: %d bytes for %dx%d rgb", pixel.ErrInvalidArgument, len(rgb), width, height)
	}
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", width, height); err != nil {
		return err
	}
	_, err := w.Write(rgb[:width*height*3])
	return err
}

// ReadPPM decodes a binary P6 image with a maxval of 255 into an RGB888
// image. Header comments are skipped.
func ReadPPM(r io.Reader) (*pixel.Image, error) {
	br := bufio.NewReader(r)
	var fields [4]string
	for i := range fields {
		tok, err := ppmToken(br)
		if err != nil {
			return nil, fmt.Errorf("ppm header: %w", err)
		}
		fields[i] = tok
	}
	if fields[0] != "P6" {
		return nil, fmt.Errorf("%w: ppm magic %q", pixel.ErrInvalidArgument, fields[0])
	}
	width, err1 := strconv.Atoi(fields[1])
	height, err2 := strconv.Atoi(fields[2])
	maxval, err3 := strconv.Atoi(fields[3])
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, fmt.Errorf("%w: ppm header: %v", pixel.ErrInvalidArgument, err)
	}
	if maxval != 255 {
		return nil, fmt.Errorf("%w: ppm maxval %d", pixel.ErrInvalidArgument, maxval)
	}
	img, err := pixel.NewImage(width, height, 0, pixel.RGB888)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(br, img.Pix); err != nil {
		return nil, fmt.Errorf("ppm pixels: %w", err)
	}
	return img, nil
}

// ppmToken reads one whitespace separated header token and the single
// whitespace byte that ends it.
func ppmToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case c == '#' && len(tok) == 0:
			if _, err := br.ReadString('\n'); err != nil {
				return "", err
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}

// EncodeImage writes img in the given artifact format.
func EncodeImage(w io.Writer, img *pixel.Image, f ImageFormat) error {
	if f == FormatPPM {
		rgb, err := img.ToRGB()
		if err != nil {
			return err
		}
		return WritePPM(w, img.Width, img.Height, rgb)
	}
	nrgba, err := img.ToNRGBA()
	if err != nil {
		return err
	}
	switch f {
	case FormatPNG:
		return png.Encode(w, nrgba)
	case FormatTIFF:
		return tiff.Encode(w, nrgba, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, nrgba)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownImageFormat, string(f))
	}
}

// Artifacts names and writes the image files of one check. Paths are
// <Dir>/<Prefix>_<name><ext>; an empty prefix drops the underscore.
type Artifacts struct {
	Dir    string
	Prefix string
	Format ImageFormat
}

// Path returns the file path for an artifact name such as "output_blur".
func (a Artifacts) Path(name string) string {
	f := a.Format
	if f == "" {
		f = FormatPPM
	}
	base := name + f.Ext()
	if a.Prefix != "" {
		base = a.Prefix + "_" + base
	}
	if a.Dir == "" || a.Dir == "." {
		return base
	}
	return filepath.Join(a.Dir, base)
}

// WriteImage encodes img and writes it atomically, creating Dir if needed.
// It returns the written path.
func (a Artifacts) WriteImage(name string, img *pixel.Image) (string, error) {
	path := a.Path(name)
	f := a.Format
	if f == "" {
		f = FormatPPM
	}
	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, f); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	slog.Debug("Artifact written", "path", path, "format", string(f))
	return path, nil
}

// FindArtifacts returns the artifact files in dir whose name starts with
// prefix followed by an underscore, sorted. An empty prefix matches nothing.
func FindArtifacts(dir, prefix string) ([]string, error) {
	if prefix == "" {
		return nil, nil
	}
	var out []string
	for _, f := range ImageFormats() {
		matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*"+f.Ext()))
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}
