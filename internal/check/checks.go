package check

import (
	"fmt"

	"github.com/cwbudde/clpixelcheck/internal/device"
	"github.com/cwbudde/clpixelcheck/internal/kernels"
	"github.com/cwbudde/clpixelcheck/internal/pixel"
	"github.com/cwbudde/clpixelcheck/internal/reference"
)

// Per-check tolerances. The scaler allows one step of float rounding
// between host and device; the rasterizer is compared with a pixel budget
// instead (see runPolyhedron).
const (
	scaleTolerance      = 1
	rgb565Tolerance     = 1
	polyhedronTolerance = 8
	// polyhedronBudget is the share of pixels, in percent, allowed above
	// polyhedronTolerance.
	polyhedronBudget = 1
)

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func runPattern(s *Session) error {
	c := s.cfg
	w, h := c.Width, c.Height
	stride, err := c.rgbaStride(w * 4)
	if err != nil {
		return err
	}
	s.printf("Pattern: %dx%d stride=%d mode=%d seed=%d", w, h, stride, c.Mode, c.Seed)

	out, err := s.buffer(stride*h, nil)
	if err != nil {
		return err
	}
	if err := s.launch(kernels.TestPattern, w, h, out, w, h, stride/4, c.Mode, c.Seed); err != nil {
		return err
	}
	act, err := s.readImage(out, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	ref, err := reference.Pattern(reference.PatternParams{
		Width: w, Height: h, Stride: stride, Mode: c.Mode, Seed: c.Seed, Circle: true,
	})
	if err != nil {
		return err
	}
	if c.Format != pixel.RGBA8888 {
		if ref, err = ref.Convert(c.Format, 0); err != nil {
			return err
		}
		if act, err = act.Convert(c.Format, 0); err != nil {
			return err
		}
	}

	res, err := s.compare("pattern", ref, act, 0)
	if err != nil {
		return err
	}
	s.dump("output", act, !res.OK)
	if !res.OK {
		return s.mismatch("", res)
	}
	s.printf("PASSED! max_err=%d", res.MaxError)
	return nil
}

func runBlend(s *Session) error {
	c := s.cfg
	w, h := c.Width, c.Height
	stride, err := c.rgbaStride(w * 4)
	if err != nil {
		return err
	}
	s.printf("Alpha blend: %dx%d", w, h)

	bg, err := reference.AlphaBackground(w, h)
	if err != nil {
		return err
	}
	fg, err := reference.AlphaForeground(w, h)
	if err != nil {
		return err
	}
	bgBuf, err := s.buffer(len(bg.Pix), bg.Pix)
	if err != nil {
		return err
	}
	fgBuf, err := s.buffer(len(fg.Pix), fg.Pix)
	if err != nil {
		return err
	}
	out, err := s.buffer(stride*h, nil)
	if err != nil {
		return err
	}
	if err := s.launch(kernels.AlphaBlend, w, h, bgBuf, fgBuf, out, w, h, stride/4); err != nil {
		return err
	}
	act, err := s.readImage(out, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	ref, err := reference.Blend(bg, fg)
	if err != nil {
		return err
	}

	res, err := s.compare("blend", ref, act, 0)
	if err != nil {
		return err
	}
	s.dump("output_blend", act, !res.OK)
	if !res.OK {
		return s.mismatch("", res)
	}
	s.printf("PASSED! max_err=%d", res.MaxError)
	return nil
}

func runScale(s *Session) error {
	c := s.cfg
	inW, inH := c.Width, c.Height
	outW, outH := c.OutWidth, c.OutHeight
	if outW == 0 {
		outW = inW * 2
	}
	if outH == 0 {
		outH = inH * 2
	}
	inStride, err := c.rgbaStride(inW * 4)
	if err != nil {
		return err
	}
	s.printf("Scaler: in=%dx%d out=%dx%d", inW, inH, outW, outH)

	in, err := reference.ScalerInput(inW, inH, c.Seed)
	if err != nil {
		return err
	}
	if inStride != in.Stride {
		if in, err = in.Convert(pixel.RGBA8888, inStride); err != nil {
			return err
		}
	}
	inBuf, err := s.buffer(len(in.Pix), in.Pix)
	if err != nil {
		return err
	}
	nearBuf, err := s.buffer(outW*outH*4, nil)
	if err != nil {
		return err
	}
	bilBuf, err := s.buffer(outW*outH*4, nil)
	if err != nil {
		return err
	}
	scaleArgs := []any{inW, inH, inStride / 4, outW, outH, outW}
	if err := s.launch(kernels.ScaleNearest, outW, outH, append([]any{inBuf, nearBuf}, scaleArgs...)...); err != nil {
		return err
	}
	if err := s.launch(kernels.ScaleBilinear, outW, outH, append([]any{inBuf, bilBuf}, scaleArgs...)...); err != nil {
		return err
	}
	actN, err := s.readImage(nearBuf, outW, outH, 0, pixel.RGBA8888)
	if err != nil {
		return err
	}
	actB, err := s.readImage(bilBuf, outW, outH, 0, pixel.RGBA8888)
	if err != nil {
		return err
	}
	refN, err := reference.ScaleNearest(in, outW, outH)
	if err != nil {
		return err
	}
	refB, err := reference.ScaleBilinear(in, outW, outH)
	if err != nil {
		return err
	}

	resN, err := s.compare("nearest", refN, actN, scaleTolerance)
	if err != nil {
		return err
	}
	resB, err := s.compare("bilinear", refB, actB, scaleTolerance)
	if err != nil {
		return err
	}
	failed := !resN.OK || !resB.OK
	s.dump("output_nearest", actN, failed)
	s.dump("output_bilinear", actB, failed)
	if !resN.OK {
		return s.mismatch("nearest", resN)
	}
	if !resB.OK {
		return s.mismatch("bilinear", resB)
	}
	s.printf("PASSED! max_err_nearest=%d max_err_bilinear=%d", resN.MaxError, resB.MaxError)
	return nil
}

func runConvolution(s *Session) error {
	c := s.cfg
	w, h := c.Width, c.Height
	stride, err := c.rgbaStride(w * 4)
	if err != nil {
		return err
	}
	s.printf("Convolution: %dx%d", w, h)

	in, err := reference.ConvolutionInput(w, h, c.Seed)
	if err != nil {
		return err
	}
	if stride != in.Stride {
		if in, err = in.Convert(pixel.RGBA8888, stride); err != nil {
			return err
		}
	}
	inBuf, err := s.buffer(len(in.Pix), in.Pix)
	if err != nil {
		return err
	}
	blurBuf, err := s.buffer(stride*h, nil)
	if err != nil {
		return err
	}
	sobelBuf, err := s.buffer(stride*h, nil)
	if err != nil {
		return err
	}
	if err := s.launch(kernels.GaussianBlur, w, h, inBuf, blurBuf, w, h, stride/4); err != nil {
		return err
	}
	if err := s.launch(kernels.SobelEdge, w, h, inBuf, sobelBuf, w, h, stride/4); err != nil {
		return err
	}
	actB, err := s.readImage(blurBuf, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	actS, err := s.readImage(sobelBuf, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	refB, err := reference.Blur(in)
	if err != nil {
		return err
	}
	refS, err := reference.Sobel(in)
	if err != nil {
		return err
	}

	resB, err := s.compare("blur", refB, actB, 0)
	if err != nil {
		return err
	}
	resS, err := s.compare("sobel", refS, actS, 0)
	if err != nil {
		return err
	}
	failed := !resB.OK || !resS.OK
	s.dump("output_blur", actB, failed)
	s.dump("output_sobel", actS, failed)
	if !resB.OK {
		return s.mismatch("blur", resB)
	}
	if !resS.OK {
		return s.mismatch("sobel", resS)
	}
	s.printf("PASSED! max_err_blur=%d max_err_sobel=%d", resB.MaxError, resS.MaxError)
	return nil
}

func runYUV(s *Session) error {
	c := s.cfg
	w, h := c.Width, c.Height
	if err := reference.CheckYUVSize(w, h); err != nil {
		s.errorf("Width/height must be even for YUV420")
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	stride, err := c.rgbaStride(w * 4)
	if err != nil {
		return err
	}
	s.printf("YUV420->RGBA: %dx%d seed=%d", w, h, c.Seed)

	planes, err := reference.YUV420Planes(w, h, c.Seed)
	if err != nil {
		return err
	}
	yBuf, err := s.buffer(len(planes.Y), planes.Y)
	if err != nil {
		return err
	}
	uvBuf, err := s.buffer(len(planes.UV), planes.UV)
	if err != nil {
		return err
	}
	out, err := s.buffer(stride*h, nil)
	if err != nil {
		return err
	}
	if err := s.launch(kernels.YUV420ToRGBA, w, h, yBuf, uvBuf, out, w, h, stride/4); err != nil {
		return err
	}
	act, err := s.readImage(out, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	ref, err := reference.YUV420ToRGBA(planes, stride)
	if err != nil {
		return err
	}

	res, err := s.compare("yuv", ref, act, 0)
	if err != nil {
		return err
	}
	s.dump("output", act, !res.OK)
	if !res.OK {
		return s.mismatch("", res)
	}
	s.printf("PASSED! max_err=%d", res.MaxError)
	return nil
}

// scanoutRect resolves the patch rectangle; unset extents select the
// centered half-size rectangle.
func scanoutRect(r reference.Rect, w, h int) reference.Rect {
	if r.W == 0 {
		r.X, r.W = w/4, w/2
	}
	if r.H == 0 {
		r.Y, r.H = h/4, h/2
	}
	return r
}

func runScanout(s *Session) error {
	c := s.cfg
	w, h := c.Width, c.Height
	stride := c.Stride
	if stride == 0 {
		stride = pixel.AlignUp(w*4, 64)
	}
	if stride <= w*4 {
		s.errorf("Stride padding required: stride_bytes=%d row_bytes=%d", stride, w*4)
		return fmt.Errorf("%w: stride %d has no padding", ErrConfig, stride)
	}
	if stride%4 != 0 {
		return fmt.Errorf("%w: stride %d is not a multiple of 4", ErrConfig, stride)
	}
	rect := scanoutRect(c.Rect, w, h)
	s.printf("Scanout: %dx%d stride_bytes=%d rect=%d,%d %dx%d", w, h, stride, rect.X, rect.Y, rect.W, rect.H)

	fill := func(buf device.Buffer, mode, seed int, useRect bool) error {
		return s.launch(kernels.FillRGBA, w, h, buf, w, h, stride/4, mode, seed,
			b2i(useRect), rect.X, rect.Y, rect.W, rect.H)
	}
	pattern := func(mode, seed int) (*pixel.Image, error) {
		return reference.Pattern(reference.PatternParams{Width: w, Height: h, Stride: stride, Mode: mode, Seed: seed})
	}

	// Stride: rows written at a padded pitch.
	front, err := s.buffer(stride*h, nil)
	if err != nil {
		return err
	}
	if err := fill(front, reference.ModeBars, 1, false); err != nil {
		return err
	}
	act, err := s.readImage(front, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	ref, err := pattern(reference.ModeBars, 1)
	if err != nil {
		return err
	}
	res, err := s.compare("stride", ref, act, 0)
	if err != nil {
		return err
	}
	s.dump("output_stride", act, !res.OK)
	if !res.OK {
		return s.mismatch("stride", res)
	}

	// Pixel format: gradient packed to RGB565, compared after expansion.
	stride565 := pixel.AlignUp(w*2, 64)
	buf565, err := s.buffer(stride565*h, nil)
	if err != nil {
		return err
	}
	if err := s.launch(kernels.FillRGB565, w, h, buf565, w, h, stride565/2, reference.ModeGradient, 3); err != nil {
		return err
	}
	act565, err := s.readImage(buf565, w, h, stride565, pixel.RGB565)
	if err != nil {
		return err
	}
	ref565, err := reference.PatternRGB565(w, h, stride565, reference.ModeGradient, 3)
	if err != nil {
		return err
	}
	res, err = s.compare("rgb565", ref565, act565, rgb565Tolerance)
	if err != nil {
		return err
	}
	s.dump("output_fmt_rgb565", act565, !res.OK)
	if !res.OK {
		return s.mismatch("rgb565", res)
	}

	// Double buffering: two frames in flight must not bleed into each other.
	back, err := s.buffer(stride*h, nil)
	if err != nil {
		return err
	}
	if err := fill(front, reference.ModeBars, 5, false); err != nil {
		return err
	}
	if err := fill(back, reference.ModeChecker, 7, false); err != nil {
		return err
	}
	act0, err := s.readImage(front, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	act1, err := s.readImage(back, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	ref0, err := pattern(reference.ModeBars, 5)
	if err != nil {
		return err
	}
	ref1, err := pattern(reference.ModeChecker, 7)
	if err != nil {
		return err
	}
	res0, err := s.compare("frame0", ref0, act0, 0)
	if err != nil {
		return err
	}
	res1, err := s.compare("frame1", ref1, act1, 0)
	if err != nil {
		return err
	}
	failed := !res0.OK || !res1.OK
	s.dump("output_frame0", act0, failed)
	s.dump("output_frame1", act1, failed)
	if failed {
		s.errorf("FAILED (double buffer): mismatch frame0=%d frame1=%d", b2i(!res0.OK), b2i(!res1.OK))
		return fmt.Errorf("%w: double buffer frame0=%d frame1=%d", ErrMismatch, b2i(!res0.OK), b2i(!res1.OK))
	}

	// Partial update: a full frame, then a patch confined to the rectangle.
	if err := fill(front, reference.ModeBars, 11, false); err != nil {
		return err
	}
	if err := fill(front, reference.ModeGradient, 13, true); err != nil {
		return err
	}
	act, err = s.readImage(front, w, h, stride, pixel.RGBA8888)
	if err != nil {
		return err
	}
	ref, err = pattern(reference.ModeBars, 11)
	if err != nil {
		return err
	}
	reference.PatchRect(ref, rect, reference.ModeGradient, 13)
	res, err = s.compare("partial", ref, act, 0)
	if err != nil {
		return err
	}
	s.dump("output_partial", act, !res.OK)
	if !res.OK {
		return s.mismatch("partial", res)
	}

	s.printf("PASSED! scanout tests ok")
	return nil
}

func runPolyhedron(s *Session) error {
	c := s.cfg
	p := c.Polyhedron
	p.Width, p.Height = c.Width, c.Height
	p = p.Normalize()
	w, h := p.Width, p.Height
	s.printf("Dodecahedron demo: %dx%d style=%s alpha=%.2f wire=%d holes=%d knobs=%d",
		w, h, c.Style, p.Alpha, b2i(p.Wire), b2i(p.Holes), b2i(p.Knobs))

	scene := reference.BuildScene(p)
	if p.Knobs {
		switch {
		case c.KnobOverride:
			s.printf("Knob sizing: radius_px=%.2f (override)", scene.KnobRadius)
		case p.KnobDiamFrac > 0 && scene.EdgeLength > 0:
			s.printf("Knob sizing: edge_len_px=%.2f knob_diam_frac=%.3f radius_px=%.2f",
				scene.EdgeLength, p.KnobDiamFrac, scene.KnobRadius)
		default:
			s.printf("Knob sizing: radius_px=%.2f", scene.KnobRadius)
		}
	}

	packed := kernels.FloatBytes(scene.Pack())
	sceneBuf, err := s.buffer(len(packed), packed)
	if err != nil {
		return err
	}
	out, err := s.buffer(w*h*4, nil)
	if err != nil {
		return err
	}
	if err := s.launch(kernels.RenderPolyhedron, w, h, out, sceneBuf, w, h); err != nil {
		return err
	}
	faces, err := s.readImage(out, w, h, 0, pixel.RGBA8888)
	if err != nil {
		return err
	}
	ref, err := reference.RenderScene(scene)
	if err != nil {
		return err
	}

	// Device float math may round edge pixels differently; a small
	// share of pixels is allowed past the tolerance.
	res, err := s.compare("faces", ref, faces, polyhedronTolerance)
	if err != nil {
		return err
	}
	s.printf("Polyhedron compare: max_err=%d mismatched=%d", res.MaxError, res.Mismatched)
	ok := res.Mismatched*100 <= w*h*polyhedronBudget

	final := faces.Clone()
	reference.OverlayKnobs(final, scene)
	s.dump("output", final, !ok)
	if !ok {
		s.errorf("FAILED: %d pixels over tolerance %d, first at (%d,%d), max_err=%d",
			res.Mismatched, polyhedronTolerance, res.First.X, res.First.Y, res.MaxError)
		return fmt.Errorf("%w: %d pixels over tolerance", ErrMismatch, res.Mismatched)
	}
	s.printf("PASSED! faces=%d", len(scene.Faces))
	return nil
}
