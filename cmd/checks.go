package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clpixelcheck/internal/check"
	"github.com/cwbudde/clpixelcheck/internal/pixel"
	"github.com/cwbudde/clpixelcheck/internal/reference"
	"github.com/cwbudde/clpixelcheck/internal/store"
)

var checkDescriptions = map[string]string{
	"pattern":     "Render a synthetic test pattern and compare it pixel-exact",
	"blend":       "Alpha-blend two generated layers",
	"scale":       "Resample with nearest and bilinear filtering",
	"convolution": "Apply the 3x3 blur and Sobel edge filters",
	"yuv2rgb":     "Convert a YUV420 semi-planar frame to RGBA",
	"scanout":     "Exercise padded strides, RGB565, double buffering and partial updates",
	"polyhedron":  "Rasterize the shaded dodecahedron demo",
}

// checkFlags holds the flags every check command shares.
type checkFlags struct {
	width, height  int
	stride         int
	mode, seed     int
	outW, outH     int
	format         string
	rect           string
	dump           bool
	outDir         string
	prefix         string
	backend        string
	lws            string
	artifactFormat string
}

func (f *checkFlags) register(cmd *cobra.Command) {
	def := check.DefaultConfig()
	fl := cmd.Flags()
	fl.IntVarP(&f.width, "width", "W", def.Width, "Image width in pixels")
	fl.IntVarP(&f.height, "height", "H", def.Height, "Image height in pixels")
	fl.IntVar(&f.stride, "stride", 0, "Row stride in bytes (0 = check default)")
	fl.IntVar(&f.mode, "mode", def.Mode, "Pattern mode: 0 bars, 1 checker, 2 gradient")
	fl.IntVar(&f.seed, "seed", def.Seed, "Generator seed")
	fl.IntVar(&f.outW, "outw", 0, "Scaler output width (0 = twice the input)")
	fl.IntVar(&f.outH, "outh", 0, "Scaler output height (0 = twice the input)")
	fl.StringVar(&f.format, "format", "rgba", "Pixel format the pattern is compared in: rgba, rgb565, bgra or 0-2")
	fl.StringVar(&f.rect, "rect", "", "Scanout patch rectangle x,y,w,h (default: centered half size)")
	fl.BoolVar(&f.dump, "dump", false, "Write output images even when the check passes")
	fl.StringVar(&f.outDir, "outdir", def.OutDir, "Directory for output images")
	fl.StringVar(&f.prefix, "prefix", "", "File name prefix for output images")
	fl.StringVar(&f.backend, "backend", def.Backend, "Device backend: host or opencl")
	fl.StringVar(&f.lws, "lws", "", "Work-group size x[,y[,z]] (default: implementation choice)")
	fl.StringVar(&f.artifactFormat, "artifact-format", string(def.ArtifactFormat), "Output image format: ppm, png, tiff or bmp")
}

func (f *checkFlags) config() (check.Config, error) {
	cfg := check.DefaultConfig()
	cfg.Width, cfg.Height = f.width, f.height
	cfg.Stride = f.stride
	cfg.Mode, cfg.Seed = f.mode, f.seed
	cfg.OutWidth, cfg.OutHeight = f.outW, f.outH
	cfg.Dump = f.dump
	cfg.OutDir, cfg.Prefix = f.outDir, f.prefix
	cfg.Backend = f.backend

	var err error
	if cfg.Format, err = pixel.ParseFormat(f.format); err != nil {
		return cfg, fmt.Errorf("%w: %v", check.ErrConfig, err)
	}
	if f.rect != "" {
		if cfg.Rect, err = check.ParseRect(f.rect); err != nil {
			return cfg, err
		}
	}
	if cfg.Local, err = check.ParseLocal(f.lws); err != nil {
		return cfg, err
	}
	if cfg.ArtifactFormat, err = store.ParseImageFormat(f.artifactFormat); err != nil {
		return cfg, fmt.Errorf("%w: %v", check.ErrConfig, err)
	}
	return cfg, nil
}

// polyhedronFlags tune the dodecahedron render. Only flags given on the
// command line override the style preset.
type polyhedronFlags struct {
	style         string
	alpha         float32
	wire          bool
	wireThickness float32
	holes         bool
	holeScale     float32
	rings         bool
	knobs         bool
	knobRadius    float32
	knobDiamFrac  float32
	shadow        bool
	yaw           float32
	pitch         float32
	roll          float32
	zoom          float32
}

func (f *polyhedronFlags) register(cmd *cobra.Command) {
	def := reference.DefaultPolyhedron()
	fl := cmd.Flags()
	fl.StringVar(&f.style, "style", reference.StyleIsoOld, "Style preset: iso_old or reference_blue")
	fl.Float32Var(&f.alpha, "alpha", def.Alpha, "Face opacity 0..1")
	fl.BoolVar(&f.wire, "wire", def.Wire, "Draw face edges")
	fl.Float32Var(&f.wireThickness, "wire-thickness", def.WireThickness, "Edge thickness in pixels")
	fl.BoolVar(&f.holes, "holes", def.Holes, "Cut a hole into every face")
	fl.Float32Var(&f.holeScale, "hole-scale", def.HoleScale, "Hole radius relative to the face")
	fl.BoolVar(&f.rings, "rings", def.Rings, "Outline the holes")
	fl.BoolVar(&f.knobs, "knobs", def.Knobs, "Draw spheres on visible vertices")
	fl.Float32Var(&f.knobRadius, "knob-radius", def.KnobRadius, "Knob radius in pixels")
	fl.Float32Var(&f.knobDiamFrac, "knob-diam-frac", def.KnobDiamFrac, "Knob diameter as a fraction of the median edge length (0 = use radius)")
	fl.BoolVar(&f.shadow, "shadow", def.Shadow, "Draw a ground shadow")
	fl.Float32Var(&f.yaw, "yaw", def.YawDeg, "Rotation about the vertical axis in degrees")
	fl.Float32Var(&f.pitch, "pitch", def.PitchDeg, "Tilt in degrees")
	fl.Float32Var(&f.roll, "roll", def.RollDeg, "Roll in degrees")
	fl.Float32Var(&f.zoom, "zoom", def.Zoom, "Fraction of the image the solid spans")
}

func (f *polyhedronFlags) apply(cmd *cobra.Command, cfg *check.Config) error {
	p, err := reference.PolyhedronStyle(f.style)
	if err != nil {
		return fmt.Errorf("%w: %v", check.ErrConfig, err)
	}
	fl := cmd.Flags()
	set32 := func(name string, dst *float32, v float32) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	set32("alpha", &p.Alpha, f.alpha)
	setBool("wire", &p.Wire, f.wire)
	set32("wire-thickness", &p.WireThickness, f.wireThickness)
	setBool("holes", &p.Holes, f.holes)
	set32("hole-scale", &p.HoleScale, f.holeScale)
	setBool("rings", &p.Rings, f.rings)
	setBool("knobs", &p.Knobs, f.knobs)
	setBool("shadow", &p.Shadow, f.shadow)
	set32("yaw", &p.YawDeg, f.yaw)
	set32("pitch", &p.PitchDeg, f.pitch)
	set32("roll", &p.RollDeg, f.roll)
	set32("zoom", &p.Zoom, f.zoom)
	set32("knob-diam-frac", &p.KnobDiamFrac, f.knobDiamFrac)
	// An explicit radius wins over the preset's edge-relative sizing.
	if fl.Changed("knob-radius") {
		p.KnobRadius = f.knobRadius
		if !fl.Changed("knob-diam-frac") {
			p.KnobDiamFrac = 0
		}
		cfg.KnobOverride = p.KnobDiamFrac == 0
	}
	cfg.Style = f.style
	cfg.Polyhedron = p
	return nil
}

func newCheckCmd(name string) *cobra.Command {
	var (
		flags checkFlags
		poly  polyhedronFlags
	)
	cmd := &cobra.Command{
		Use:   name,
		Short: checkDescriptions[name],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			if name == "polyhedron" {
				if err := poly.apply(cmd, &cfg); err != nil {
					return err
				}
			}
			runner := check.NewRunner(cmd.OutOrStdout(), cmd.ErrOrStderr())
			_, err = runner.Run(name, cfg)
			if errors.Is(err, check.ErrMismatch) {
				// The FAILED line is already out.
				return &exitError{code: check.ExitMismatch, err: err}
			}
			return err
		},
	}
	flags.register(cmd)
	if name == "polyhedron" {
		poly.register(cmd)
	}
	return cmd
}

func init() {
	for _, name := range check.Names() {
		rootCmd.AddCommand(newCheckCmd(name))
	}
}
