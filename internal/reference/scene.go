package reference

import (
	"fmt"

	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// Packed scene layout shared with the render kernel. The header is followed
// by one record per face in draw order.
const (
	SceneHeaderFloats = 16
	SceneFaceFloats   = 28
)

var (
	bgTop     = Vec3{0.97, 0.97, 0.98}
	bgBottom  = Vec3{0.86, 0.88, 0.91}
	wireColor = Vec3{0.05, 0.08, 0.15}
	knobColor = Vec3{0.12, 0.22, 0.50}
)

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// Pack flattens the scene into the float buffer consumed by the kernel.
func (s Scene) Pack() []float32 {
	out := make([]float32, SceneHeaderFloats+len(s.Faces)*SceneFaceFloats)
	copy(out, []float32{
		s.CamCX, s.CamCY, s.InvScale,
		flag(s.Wire), s.WireThickness, flag(s.Holes), flag(s.Rings),
		flag(s.Shadow), s.ShadowStrength, s.ShadowCX, s.ShadowCY, s.ShadowRX, s.ShadowRY,
		float32(len(s.Faces)),
	})
	for i, f := range s.Faces {
		r := out[SceneHeaderFloats+i*SceneFaceFloats:]
		for k, p := range f.Screen {
			r[2*k], r[2*k+1] = p.X, p.Y
		}
		copy(r[10:], []float32{
			f.Color.X, f.Color.Y, f.Color.Z, f.Alpha,
			f.Origin.X, f.Origin.Y, f.Origin.Z,
			f.U.X, f.U.Y, f.U.Z,
			f.V.X, f.V.Y, f.V.Z,
			f.N.X, f.N.Y, f.N.Z,
			f.HoleRadius,
		})
	}
	return out
}

// UnpackScene rebuilds the kernel-visible part of a scene from its packed
// form. Knob data is not part of the buffer.
func UnpackScene(buf []float32, w, h int) (Scene, error) {
	if len(buf) < SceneHeaderFloats {
		return Scene{}, fmt.Errorf("%w: scene buffer holds %d floats", pixel.ErrInvalidArgument, len(buf))
	}
	n := int(buf[13])
	if n < 0 || len(buf) < SceneHeaderFloats+n*SceneFaceFloats {
		return Scene{}, fmt.Errorf("%w: scene buffer too short for %d faces", pixel.ErrInvalidArgument, n)
	}
	s := Scene{
		Width:          w,
		Height:         h,
		CamCX:          buf[0],
		CamCY:          buf[1],
		InvScale:       buf[2],
		Wire:           buf[3] != 0,
		WireThickness:  buf[4],
		Holes:          buf[5] != 0,
		Rings:          buf[6] != 0,
		Shadow:         buf[7] != 0,
		ShadowStrength: buf[8],
		ShadowCX:       buf[9],
		ShadowCY:       buf[10],
		ShadowRX:       buf[11],
		ShadowRY:       buf[12],
		Faces:          make([]SceneFace, n),
	}
	for i := range s.Faces {
		r := buf[SceneHeaderFloats+i*SceneFaceFloats:]
		f := &s.Faces[i]
		for k := range f.Screen {
			f.Screen[k] = Vec2{r[2*k], r[2*k+1]}
		}
		f.Color = Vec3{r[10], r[11], r[12]}
		f.Alpha = r[13]
		f.Origin = Vec3{r[14], r[15], r[16]}
		f.U = Vec3{r[17], r[18], r[19]}
		f.V = Vec3{r[20], r[21], r[22]}
		f.N = Vec3{r[23], r[24], r[25]}
		f.HoleRadius = r[26]
		f.Index = i
		f.Depth = f.Origin.Z
	}
	return s, nil
}

// insidePentagon is an even-odd crossing test.
func insidePentagon(s [5]Vec2, px, py float32) bool {
	inside := false
	for i, j := 0, 4; i < 5; j, i = i, i+1 {
		a, b := s[i], s[j]
		if (a.Y > py) != (b.Y > py) && px < (b.X-a.X)*(py-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// edgeDistance is the distance from p to the nearest pentagon edge.
func edgeDistance(s [5]Vec2, px, py float32) float32 {
	best := float32(1e30)
	for i := 0; i < 5; i++ {
		a, b := s[i], s[(i+1)%5]
		ex, ey := b.X-a.X, b.Y-a.Y
		l2 := ex*ex + ey*ey
		var t float32
		if l2 > 0 {
			t = clampf(((px-a.X)*ex+(py-a.Y)*ey)/l2, 0, 1)
		}
		dx, dy := px-(a.X+t*ex), py-(a.Y+t*ey)
		best = min(best, dx*dx+dy*dy)
	}
	return sqrtf(best)
}

// ShadePixel evaluates background, shadow and faces for pixel (x, y).
func (s *Scene) ShadePixel(x, y int) Vec3 {
	px, py := float32(x)+0.5, float32(y)+0.5

	var t float32
	if s.Height > 1 {
		t = float32(y) / float32(s.Height-1)
	}
	col := Vec3{lerp(bgTop.X, bgBottom.X, t), lerp(bgTop.Y, bgBottom.Y, t), lerp(bgTop.Z, bgBottom.Z, t)}

	if s.Shadow && s.ShadowRX > 0 && s.ShadowRY > 0 {
		dx := (px - s.ShadowCX) / s.ShadowRX
		dy := (py - s.ShadowCY) / s.ShadowRY
		if d := dx*dx + dy*dy; d < 1 {
			col = col.Scale(1 - s.ShadowStrength*(1-d))
		}
	}

	// Camera-space point under the pixel, before solving for depth.
	cx := (px-0.5*float32(s.Width))*s.InvScale + s.CamCX
	cy := -(py-0.5*float32(s.Height))*s.InvScale + s.CamCY
	ringWidth := 1.5 * s.InvScale

	for i := range s.Faces {
		f := &s.Faces[i]
		if !insidePentagon(f.Screen, px, py) {
			continue
		}
		ringDist := float32(-1)
		if s.Holes && f.HoleRadius > 0 && (f.N.Z > 1e-4 || f.N.Z < -1e-4) {
			z := f.Origin.Z - (f.N.X*(cx-f.Origin.X)+f.N.Y*(cy-f.Origin.Y))/f.N.Z
			d := Vec3{cx, cy, z}.Sub(f.Origin)
			u, v := d.Dot(f.U), d.Dot(f.V)
			rr := sqrtf(u*u + v*v)
			if rr < f.HoleRadius {
				continue
			}
			ringDist = rr - f.HoleRadius
		}
		a := f.Alpha
		col = Vec3{
			col.X*(1-a) + f.Color.X*a,
			col.Y*(1-a) + f.Color.Y*a,
			col.Z*(1-a) + f.Color.Z*a,
		}
		if s.Rings && ringDist >= 0 && ringDist < ringWidth {
			col = Vec3{lerp(col.X, wireColor.X, 0.6), lerp(col.Y, wireColor.Y, 0.6), lerp(col.Z, wireColor.Z, 0.6)}
		}
		if s.Wire && edgeDistance(f.Screen, px, py) < 0.5*s.WireThickness {
			col = wireColor
		}
	}
	return col
}

// RenderScene rasterizes the faces of s into an opaque RGBA8888 image.
func RenderScene(s Scene) (*pixel.Image, error) {
	img, err := pixel.NewImage(s.Width, s.Height, 0, pixel.RGBA8888)
	if err != nil {
		return nil, err
	}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			c := s.ShadePixel(x, y)
			img.Set(x, y, pixel.Color{R: toByte(c.X), G: toByte(c.Y), B: toByte(c.Z), A: 255})
		}
	}
	return img, nil
}

// blendPixel composites rgb with coverage a over the pixel at (x, y).
func blendPixel(img *pixel.Image, x, y int, rgb Vec3, a float32) {
	if !img.In(x, y) || a <= 0 {
		return
	}
	a = min(a, 1)
	d := img.At(x, y)
	out := func(src float32, dst uint8) uint8 {
		return toByte(src*a + float32(dst)/255*(1-a))
	}
	img.Set(x, y, pixel.Color{R: out(rgb.X, d.R), G: out(rgb.Y, d.G), B: out(rgb.Z, d.B), A: 255})
}

// OverlayKnobs draws anti-aliased shaded spheres over every visible vertex.
func OverlayKnobs(img *pixel.Image, s Scene) {
	radius := s.KnobRadius
	if !s.Knobs || radius <= 0 {
		return
	}
	const aa = 1
	r := max(radius, 1e-6)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5
			var best, bdx, bdy float32
			for i, v := range s.Verts {
				if !s.Visible[i] {
					continue
				}
				dx, dy := px-v.X, py-v.Y
				if a := (radius + aa - sqrtf(dx*dx+dy*dy)) / aa; a > best {
					best, bdx, bdy = a, dx, dy
				}
			}
			if best <= 0 {
				continue
			}
			dz := sqrtf(max(radius*radius-(bdx*bdx+bdy*bdy), 0))
			n := Vec3{bdx / r, bdy / r, dz / r}.Normalize()
			diff := max(0, n.Dot(light1))
			diff2 := 0.35 * max(0, n.Dot(light2))
			specular := powf(max(0, light1.Neg().Reflect(n).Dot(viewDir)), 50)
			shade := 0.25 + 0.75*(diff+diff2)
			const ks = 0.35
			rgb := Vec3{knobColor.X*shade + ks*specular, knobColor.Y*shade + ks*specular, knobColor.Z*shade + ks*specular}
			blendPixel(img, x, y, rgb, best)
		}
	}
}

// Polyhedron renders the complete reference image: faces, then knobs.
func Polyhedron(p PolyhedronParams) (*pixel.Image, Scene, error) {
	s := BuildScene(p)
	img, err := RenderScene(s)
	if err != nil {
		return nil, s, err
	}
	OverlayKnobs(img, s)
	return img, s, nil
}
