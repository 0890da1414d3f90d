package reference

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

func mustPattern(t *testing.T, p PatternParams) *pixel.Image {
	t.Helper()
	img, err := Pattern(p)
	if err != nil {
		t.Fatalf("Pattern(%+v): %v", p, err)
	}
	return img
}

func TestPatternDeterministic(t *testing.T) {
	for mode := 0; mode < 3; mode++ {
		p := PatternParams{Width: 63, Height: 65, Mode: mode, Seed: 7, Circle: true}
		a := mustPattern(t, p)
		b := mustPattern(t, p)
		if !bytes.Equal(a.Pix, b.Pix) {
			t.Errorf("mode %d: two renders differ", mode)
		}
	}
}

func TestPatternBars(t *testing.T) {
	img := mustPattern(t, PatternParams{Width: 64, Height: 4, Mode: ModeBars})
	if c := img.At(0, 0); c != (pixel.Color{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("first bar = %+v, want white", c)
	}
	if c := img.At(63, 3); c != (pixel.Color{A: 255}) {
		t.Errorf("last bar = %+v, want black", c)
	}
	if c := img.At(40, 0); c != (pixel.Color{R: 255, A: 255}) {
		t.Errorf("bar 5 = %+v, want red", c)
	}
}

func TestPatternChecker(t *testing.T) {
	img := mustPattern(t, PatternParams{Width: 16, Height: 16, Mode: ModeChecker})
	if c := img.At(0, 0); c.R != 30 {
		t.Errorf("(0,0) = %d, want 30", c.R)
	}
	if c := img.At(8, 0); c.R != 220 {
		t.Errorf("(8,0) = %d, want 220", c.R)
	}
	if c := img.At(8, 8); c.R != 30 {
		t.Errorf("(8,8) = %d, want 30", c.R)
	}
}

func TestPatternGradientUnitExtent(t *testing.T) {
	img := mustPattern(t, PatternParams{Width: 1, Height: 5, Mode: ModeGradient, Seed: 1})
	for y := 0; y < 5; y++ {
		if c := img.At(0, y); c.R != 0 {
			t.Fatalf("row %d red = %d, want 0 for a one pixel wide gradient", y, c.R)
		}
	}
}

func TestPatternGradientStripeAndDisc(t *testing.T) {
	img := mustPattern(t, PatternParams{Width: 64, Height: 64, Mode: ModeGradient, Seed: 0, Circle: true})
	if c := img.At(17, 5); c != stripeColor {
		t.Errorf("(17,5) = %+v, want stripe", c)
	}
	if c := img.At(32, 32); c != discColor {
		t.Errorf("center = %+v, want disc", c)
	}

	noDisc := mustPattern(t, PatternParams{Width: 64, Height: 64, Mode: ModeGradient, Seed: 0})
	if c := noDisc.At(32, 32); c == discColor {
		t.Error("disc drawn without Circle")
	}
}

func TestPatternStridePadding(t *testing.T) {
	img := mustPattern(t, PatternParams{Width: 5, Height: 3, Stride: 64, Mode: ModeBars})
	for y := 0; y < 3; y++ {
		for i := 20; i < 64 && y*64+i < len(img.Pix); i++ {
			if img.Pix[y*64+i] != 0 {
				t.Fatalf("padding byte %d of row %d = %d", i, y, img.Pix[y*64+i])
			}
		}
	}
}

func TestPatternRGB565(t *testing.T) {
	img, err := PatternRGB565(16, 4, 64, ModeBars, 0)
	if err != nil {
		t.Fatalf("PatternRGB565: %v", err)
	}
	if got := img.Word(0, 0); got != 0xFFFF {
		t.Errorf("white = %#04x, want 0xffff", got)
	}
	if got := img.Word(10, 1); got != 0xF800 {
		t.Errorf("red bar = %#04x, want 0xf800", got)
	}
}

func TestPatchRect(t *testing.T) {
	img := mustPattern(t, PatternParams{Width: 32, Height: 32, Mode: ModeBars})
	PatchRect(img, Rect{X: 24, Y: 24, W: 100, H: 100}, ModeChecker, 0)
	if c := img.At(30, 30); c.R != 30 && c.R != 220 {
		t.Errorf("patched pixel = %+v, want checker gray", c)
	}
	if c := img.At(0, 0); c.R != 255 {
		t.Errorf("unpatched pixel changed: %+v", c)
	}
}

func TestRectClip(t *testing.T) {
	tests := []struct {
		in   Rect
		want Rect
	}{
		{Rect{2, 2, 4, 4}, Rect{2, 2, 4, 4}},
		{Rect{-2, -2, 4, 4}, Rect{0, 0, 2, 2}},
		{Rect{8, 8, 4, 4}, Rect{8, 8, 2, 2}},
		{Rect{20, 0, 4, 4}, Rect{}},
	}
	for _, tt := range tests {
		if got := tt.in.Clip(10, 10); got != tt.want {
			t.Errorf("%+v.Clip(10,10) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestBlend(t *testing.T) {
	bg, err := AlphaBackground(32, 32)
	if err != nil {
		t.Fatalf("AlphaBackground: %v", err)
	}
	fg, err := AlphaForeground(32, 32)
	if err != nil {
		t.Fatalf("AlphaForeground: %v", err)
	}
	out, err := Blend(bg, fg)
	if err != nil {
		t.Fatalf("Blend: %v", err)
	}

	if got, want := out.At(0, 0), bg.At(0, 0); got != want {
		t.Errorf("outside disc = %+v, want background %+v", got, want)
	}
	if got := out.At(16, 16); got != (pixel.Color{R: 255, G: 64, B: 32, A: 255}) {
		t.Errorf("center = %+v, want opaque foreground", got)
	}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if out.At(x, y).A != 255 {
				t.Fatalf("alpha at (%d,%d) = %d", x, y, out.At(x, y).A)
			}
		}
	}
}

func TestBlendChannel(t *testing.T) {
	tests := []struct {
		f, b, a, want uint8
	}{
		{200, 100, 255, 200},
		{200, 100, 0, 100},
		{255, 0, 128, 128},
	}
	for _, tt := range tests {
		if got := BlendChannel(tt.f, tt.b, tt.a); got != tt.want {
			t.Errorf("BlendChannel(%d,%d,%d) = %d, want %d", tt.f, tt.b, tt.a, got, tt.want)
		}
	}
}

func TestBlendSizeMismatch(t *testing.T) {
	bg, _ := AlphaBackground(4, 4)
	fg, _ := AlphaForeground(5, 4)
	if _, err := Blend(bg, fg); !errors.Is(err, pixel.ErrInvalidArgument) {
		t.Errorf("Blend size mismatch err = %v", err)
	}
}

func TestSourceCoord(t *testing.T) {
	if got := SourceCoord(5, 10, 1); got != 0 {
		t.Errorf("SourceCoord with dst extent 1 = %v, want 0", got)
	}
	if got := SourceCoord(19, 10, 20); got != 9 {
		t.Errorf("last coordinate = %v, want 9", got)
	}
}

func TestScaleIdentity(t *testing.T) {
	src, err := ScalerInput(17, 9, 3)
	if err != nil {
		t.Fatalf("ScalerInput: %v", err)
	}
	near, err := ScaleNearest(src, 17, 9)
	if err != nil {
		t.Fatalf("ScaleNearest: %v", err)
	}
	bil, err := ScaleBilinear(src, 17, 9)
	if err != nil {
		t.Fatalf("ScaleBilinear: %v", err)
	}
	if !bytes.Equal(near.Pix, src.Pix) {
		t.Error("nearest at unit scale differs from input")
	}
	if !bytes.Equal(bil.Pix, src.Pix) {
		t.Error("bilinear at unit scale differs from input")
	}
}

func TestScaleUpCorners(t *testing.T) {
	src, _ := ScalerInput(8, 8, 1)
	for _, scale := range []func(*pixel.Image, int, int) (*pixel.Image, error){ScaleNearest, ScaleBilinear} {
		out, err := scale(src, 20, 13)
		if err != nil {
			t.Fatalf("scale: %v", err)
		}
		if out.At(0, 0) != src.At(0, 0) || out.At(19, 12) != src.At(7, 7) {
			t.Error("corner samples not preserved")
		}
	}
}

func TestScaleNearestVsBilinearDiffer(t *testing.T) {
	src, _ := ScalerInput(19, 19, 1)
	near, _ := ScaleNearest(src, 32, 32)
	bil, _ := ScaleBilinear(src, 32, 32)
	if bytes.Equal(near.Pix, bil.Pix) {
		t.Error("nearest and bilinear outputs are identical")
	}
}

func TestScaleRejectsBadOutput(t *testing.T) {
	src, _ := ScalerInput(4, 4, 0)
	if _, err := ScaleNearest(src, 0, 4); !errors.Is(err, pixel.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestConvolutionUniform(t *testing.T) {
	img, _ := pixel.NewImage(6, 5, 0, pixel.RGBA8888)
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, pixel.Color{R: 100, G: 100, B: 100, A: 255})
		}
	}
	blur, err := Blur(img)
	if err != nil {
		t.Fatalf("Blur: %v", err)
	}
	sobel, err := Sobel(img)
	if err != nil {
		t.Fatalf("Sobel: %v", err)
	}
	want := Luma(pixel.Color{R: 100, G: 100, B: 100})
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			if got := int(blur.At(x, y).R); got != want {
				t.Fatalf("blur (%d,%d) = %d, want %d", x, y, got, want)
			}
			if got := sobel.At(x, y).R; got != 0 {
				t.Fatalf("sobel (%d,%d) = %d, want 0", x, y, got)
			}
		}
	}
}

func TestConvolutionSinglePixel(t *testing.T) {
	img, _ := pixel.NewImage(1, 1, 0, pixel.RGBA8888)
	img.Set(0, 0, pixel.Color{R: 255, G: 255, B: 255, A: 255})
	blur, err := Blur(img)
	if err != nil {
		t.Fatalf("Blur: %v", err)
	}
	// Edge replication makes every tap see the center pixel.
	if got := int(blur.At(0, 0).R); got != Luma(pixel.Color{R: 255, G: 255, B: 255}) {
		t.Errorf("single pixel blur = %d", got)
	}
}

func TestSobelClamps(t *testing.T) {
	s := [3][3]int{{0, 0, 255}, {0, 0, 255}, {0, 0, 255}}
	if got := SobelValue(s); got != 255 {
		t.Errorf("SobelValue = %d, want 255", got)
	}
}

func TestBlurRounds(t *testing.T) {
	s := [3][3]int{{0, 0, 0}, {0, 2, 0}, {0, 0, 0}}
	// 8/16 rounds up to 1.
	if got := BlurValue(s); got != 1 {
		t.Errorf("BlurValue = %d, want 1", got)
	}
}

func TestYUVRejectsOddSize(t *testing.T) {
	if _, err := YUV420Planes(63, 64, 1); !errors.Is(err, pixel.ErrInvalidArgument) {
		t.Errorf("odd width err = %v", err)
	}
	if _, err := YUV420Planes(64, 65, 1); !errors.Is(err, pixel.ErrInvalidArgument) {
		t.Errorf("odd height err = %v", err)
	}
}

func TestYUVNeutralChroma(t *testing.T) {
	if c := YUVToRGB(128, 128, 128); c != (pixel.Color{R: 128, G: 128, B: 128, A: 255}) {
		t.Errorf("neutral = %+v", c)
	}
	if c := YUVToRGB(255, 255, 255); c.R != 255 || c.B != 255 {
		t.Errorf("saturated = %+v, want clamped channels", c)
	}
}

func TestYUVPlaneSizes(t *testing.T) {
	p, err := YUV420Planes(62, 66, 1)
	if err != nil {
		t.Fatalf("YUV420Planes: %v", err)
	}
	if len(p.Y) != 62*66 || len(p.UV) != 31*33*2 {
		t.Errorf("plane sizes %d/%d", len(p.Y), len(p.UV))
	}
	out, err := YUV420ToRGBA(p, 62*4+8)
	if err != nil {
		t.Fatalf("YUV420ToRGBA: %v", err)
	}
	if out.Stride != 62*4+8 {
		t.Errorf("stride = %d", out.Stride)
	}
}

func TestSampleReplicatesEdges(t *testing.T) {
	img, err := ScalerInput(7, 5, 3)
	if err != nil {
		t.Fatalf("ScalerInput: %v", err)
	}
	w, h := img.Width, img.Height
	tests := []struct {
		name         string
		x, y         int
		wantX, wantY int
	}{
		{"left", -1, 2, 0, 2},
		{"far left", -9, 2, 0, 2},
		{"right", w, 2, w - 1, 2},
		{"top", 3, -1, 3, 0},
		{"bottom", 3, h, 3, h - 1},
		{"corner", -1, h, 0, h - 1},
		{"inside", 4, 1, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, want := Sample(img, tt.x, tt.y), img.At(tt.wantX, tt.wantY); got != want {
				t.Errorf("Sample(%d,%d) = %+v, want %+v", tt.x, tt.y, got, want)
			}
		})
	}
	for y := 0; y < h; y++ {
		if Sample(img, -1, y) != Sample(img, 0, y) || Sample(img, w, y) != Sample(img, w-1, y) {
			t.Errorf("row %d: horizontal edge not replicated", y)
		}
	}
	for x := 0; x < w; x++ {
		if Sample(img, x, -1) != Sample(img, x, 0) || Sample(img, x, h) != Sample(img, x, h-1) {
			t.Errorf("column %d: vertical edge not replicated", x)
		}
	}
}

func TestGeneratorsDeterministic(t *testing.T) {
	const w, h = 31, 18
	tests := []struct {
		name   string
		render func() (*pixel.Image, error)
	}{
		{"blend", func() (*pixel.Image, error) {
			bg, err := AlphaBackground(w, h)
			if err != nil {
				return nil, err
			}
			fg, err := AlphaForeground(w, h)
			if err != nil {
				return nil, err
			}
			return Blend(bg, fg)
		}},
		{"nearest", func() (*pixel.Image, error) {
			in, err := ScalerInput(w, h, 5)
			if err != nil {
				return nil, err
			}
			return ScaleNearest(in, 2*w+1, 2*h-1)
		}},
		{"bilinear", func() (*pixel.Image, error) {
			in, err := ScalerInput(w, h, 5)
			if err != nil {
				return nil, err
			}
			return ScaleBilinear(in, 2*w+1, 2*h-1)
		}},
		{"blur", func() (*pixel.Image, error) {
			in, err := ConvolutionInput(w, h, 9)
			if err != nil {
				return nil, err
			}
			return Blur(in)
		}},
		{"sobel", func() (*pixel.Image, error) {
			in, err := ConvolutionInput(w, h, 9)
			if err != nil {
				return nil, err
			}
			return Sobel(in)
		}},
		{"yuv420", func() (*pixel.Image, error) {
			planes, err := YUV420Planes(w+1, h, 4)
			if err != nil {
				return nil, err
			}
			return YUV420ToRGBA(planes, 0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.render()
			if err != nil {
				t.Fatalf("first render: %v", err)
			}
			b, err := tt.render()
			if err != nil {
				t.Fatalf("second render: %v", err)
			}
			if a.Width != b.Width || a.Height != b.Height || a.Stride != b.Stride {
				t.Fatalf("shapes differ: %dx%d/%d vs %dx%d/%d", a.Width, a.Height, a.Stride, b.Width, b.Height, b.Stride)
			}
			if !bytes.Equal(a.Pix, b.Pix) {
				t.Error("two renders differ")
			}
		})
	}
}
