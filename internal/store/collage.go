package store

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CollageName is the file the suite writes its overview to.
const CollageName = "collage.jpg"

// ErrNoImages is returned when a collage has nothing to show.
var ErrNoImages = errors.New("no images for collage")

var (
	collageBackground = color.RGBA{16, 16, 16, 255}
	collageShadow     = color.Black
	collageLabel      = color.White
)

const collagePad = 4

// DecodeFile reads an artifact written by WriteImage in any of the
// supported formats.
func DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte("P6")) {
		img, err := ReadPPM(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return img.ToNRGBA()
	}
	// png, tiff and bmp decoders are registered by the encoder imports.
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Collage tiles the images at paths, cols per row. Each image is scaled
// with nearest neighbour to fit a tile×tile square, centered on black and
// labelled with its file name stem. The result is JPEG encoded.
func Collage(w io.Writer, paths []string, tile, cols int) error {
	if len(paths) == 0 {
		return ErrNoImages
	}
	if tile <= 0 {
		return fmt.Errorf("collage tile size %d", tile)
	}
	cols = max(1, min(cols, len(paths)))
	rows := (len(paths) + cols - 1) / cols
	canvas := image.NewRGBA(image.Rect(0, 0, cols*tile+(cols-1)*collagePad, rows*tile+(rows-1)*collagePad))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(collageBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()
	for i, p := range paths {
		src, err := DecodeFile(p)
		if err != nil {
			return err
		}
		x := (i % cols) * (tile + collagePad)
		y := (i / cols) * (tile + collagePad)
		cell := image.Rect(x, y, x+tile, y+tile)
		draw.Draw(canvas, cell, image.NewUniform(color.Black), image.Point{}, draw.Src)
		draw.NearestNeighbor.Scale(canvas, fitRect(src.Bounds(), cell), src, src.Bounds(), draw.Src, nil)

		label := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		for _, l := range []struct {
			c  color.Color
			dx int
		}{{collageShadow, 4}, {collageLabel, 3}} {
			d := font.Drawer{
				Dst:  canvas,
				Src:  image.NewUniform(l.c),
				Face: face,
				Dot:  fixed.P(x+l.dx, y+l.dx+ascent),
			}
			d.DrawString(label)
		}
	}
	return jpeg.Encode(w, canvas, &jpeg.Options{Quality: 90})
}

// fitRect returns the largest rectangle with the aspect ratio of src that
// fits centered in cell.
func fitRect(src, cell image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	tw, th := cell.Dx(), cell.Dy()
	w, h := tw, sh*tw/sw
	if h > th {
		w, h = sw*th/sh, th
	}
	w, h = max(w, 1), max(h, 1)
	x := cell.Min.X + (tw-w)/2
	y := cell.Min.Y + (th-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// WriteCollage renders the collage of paths to dst atomically.
func WriteCollage(dst string, paths []string, tile, cols int) error {
	var buf bytes.Buffer
	if err := Collage(&buf, paths, tile, cols); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create collage directory: %w", err)
	}
	return writeFileAtomic(dst, buf.Bytes())
}
