package kernels

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cwbudde/clpixelcheck/internal/device"
	"github.com/cwbudde/clpixelcheck/internal/pixel"
	"github.com/cwbudde/clpixelcheck/internal/reference"
)

func TestSourceDeclaresEveryKernel(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	for _, name := range Names() {
		if !strings.Contains(src, "__kernel void "+name+"(") {
			t.Errorf("kernel %s missing from program source", name)
		}
	}
}

func TestEmulationsCoverKernels(t *testing.T) {
	emu := Emulations()
	for _, name := range Names() {
		if emu[name] == nil {
			t.Errorf("no emulation for %s", name)
		}
	}
	if len(emu) != len(Names()) {
		t.Errorf("%d emulations for %d kernels", len(emu), len(Names()))
	}
}

func TestFloatBytes(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 1e-3}
	got := BytesFloat(FloatBytes(in))
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("float %d = %v, want %v", i, got[i], in[i])
		}
	}
	if !bytes.Equal(FloatBytes([]float32{1})[:4], []byte{0, 0, 0x80, 0x3f}) {
		t.Error("FloatBytes is not little-endian IEEE 754")
	}
}

func newHost(t *testing.T) *device.Host {
	t.Helper()
	h := device.NewHost(Emulations())
	t.Cleanup(h.Close)
	src, err := Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if err := h.Build(src, BuildOptions); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return h
}

func TestTestPatternKeepsPadding(t *testing.T) {
	h := newHost(t)
	const w, h0, stridePx = 20, 6, 32
	init := bytes.Repeat([]byte{0xEE}, stridePx*4*h0)
	out, err := h.NewBuffer(len(init), init)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if err := h.Launch(TestPattern, []int{w, h0}, nil, out, w, h0, stridePx, reference.ModeGradient, 3); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	got := make([]byte, len(init))
	if err := h.Read(out, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	img, err := pixel.Wrap(got, w, h0, stridePx*4, pixel.RGBA8888)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	for y := 0; y < h0; y++ {
		for x := 0; x < w; x++ {
			want := reference.PatternColor(x, y, w, h0, reference.ModeGradient, 3, true)
			if c := img.At(x, y); c != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, c, want)
			}
		}
		for _, b := range img.Row(y)[w*4 : stridePx*4] {
			if b != 0xEE {
				t.Fatalf("row %d padding overwritten", y)
			}
		}
	}
}

func TestFillRGBARectOnly(t *testing.T) {
	h := newHost(t)
	const w, h0 = 16, 16
	out, err := h.NewBuffer(w*h0*4, nil)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if err := h.Launch(FillRGBA, []int{w, h0}, nil, out, w, h0, w, reference.ModeBars, 0, 1, 4, 4, 8, 8); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	got := make([]byte, w*h0*4)
	if err := h.Read(out, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	img, _ := pixel.Wrap(got, w, h0, 0, pixel.RGBA8888)
	inside := func(x, y int) bool { return x >= 4 && x < 12 && y >= 4 && y < 12 }
	for y := 0; y < h0; y++ {
		for x := 0; x < w; x++ {
			c := img.At(x, y)
			if inside(x, y) {
				if want := reference.PatternColor(x, y, w, h0, reference.ModeBars, 0, false); c != want {
					t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, c, want)
				}
			} else if c != (pixel.Color{}) {
				t.Fatalf("pixel (%d,%d) outside rect written: %v", x, y, c)
			}
		}
	}
}

func TestEmulationRejectsOverrun(t *testing.T) {
	h := newHost(t)
	out, err := h.NewBuffer(16, nil)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if err := h.Launch(TestPattern, []int{8, 8}, nil, out, 8, 8, 8, 0, 0); err == nil {
		t.Fatal("expected overrun error")
	}
}

func TestPolyhedronEmulationMatchesRenderScene(t *testing.T) {
	h := newHost(t)
	p := reference.DefaultPolyhedron()
	p.Width, p.Height = 48, 40
	scene := reference.BuildScene(p)
	want, err := reference.RenderScene(scene)
	if err != nil {
		t.Fatalf("RenderScene: %v", err)
	}

	sceneBuf, err := h.NewBuffer(len(scene.Pack())*4, FloatBytes(scene.Pack()))
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	out, err := h.NewBuffer(len(want.Pix), nil)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if err := h.Launch(RenderPolyhedron, []int{p.Width, p.Height}, nil, out, sceneBuf, p.Width, p.Height); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	got := make([]byte, len(want.Pix))
	if err := h.Read(out, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want.Pix) {
		t.Error("emulated render differs from RenderScene")
	}
}
