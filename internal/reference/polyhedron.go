package reference

import (
	"fmt"
	"math"
	"sort"
)

// Palette selects how faces are colored.
type Palette string

const (
	PaletteFaceHues Palette = "face_hues"
	PaletteMonoBlue Palette = "mono_blue"
)

// Polyhedron styles.
const (
	StyleIsoOld        = "iso_old"
	StyleReferenceBlue = "reference_blue"
)

// PolyhedronParams configures the dodecahedron render.
type PolyhedronParams struct {
	Width  int
	Height int

	Alpha         float32
	Wire          bool
	WireThickness float32
	Holes         bool
	HoleScale     float32
	Rings         bool

	Knobs      bool
	KnobRadius float32
	// KnobDiamFrac, when positive, sizes knobs as a fraction of the median
	// projected edge length and overrides KnobRadius.
	KnobDiamFrac float32

	Shadow         bool
	ShadowStrength float32

	YawDeg   float32
	PitchDeg float32
	RollDeg  float32
	Zoom     float32
	Palette  Palette
}

// DefaultPolyhedron returns the iso_old style: isometric view, translucent
// rainbow faces.
func DefaultPolyhedron() PolyhedronParams {
	return PolyhedronParams{
		Width:          640,
		Height:         640,
		Alpha:          0.55,
		Wire:           true,
		WireThickness:  1.5,
		Holes:          true,
		HoleScale:      0.35,
		Knobs:          true,
		KnobRadius:     3.5,
		ShadowStrength: 0.22,
		YawDeg:         45,
		PitchDeg:       35.264,
		Zoom:           0.90,
		Palette:        PaletteFaceHues,
	}
}

// PolyhedronStyle returns the preset for a named style.
func PolyhedronStyle(name string) (PolyhedronParams, error) {
	p := DefaultPolyhedron()
	switch name {
	case "", StyleIsoOld:
		return p, nil
	case StyleReferenceBlue:
		p.Alpha = 1
		p.Palette = PaletteMonoBlue
		p.WireThickness = 1
		p.Rings = true
		p.Shadow = true
		p.YawDeg = 28
		p.PitchDeg = 20
		p.RollDeg = -10
		p.Zoom = 0.98
		p.HoleScale = 0.33
		p.KnobDiamFrac = 0.20
		p.KnobRadius = 4.2
		return p, nil
	default:
		return p, fmt.Errorf("unknown polyhedron style %q", name)
	}
}

// Normalize clamps every parameter into its supported range.
func (p PolyhedronParams) Normalize() PolyhedronParams {
	if p.Width <= 0 {
		p.Width = 640
	}
	if p.Height <= 0 {
		p.Height = 640
	}
	p.Alpha = clampf(p.Alpha, 0, 1)
	p.WireThickness = max(p.WireThickness, 0.5)
	p.HoleScale = clampf(p.HoleScale, 0, 0.8)
	p.KnobRadius = max(p.KnobRadius, 0)
	p.KnobDiamFrac = max(p.KnobDiamFrac, 0)
	p.Zoom = clampf(p.Zoom, 0.2, 2)
	if p.Palette != PaletteMonoBlue {
		p.Palette = PaletteFaceHues
	}
	return p
}

const (
	phi    = 1.618
	invPhi = 0.618
)

// dodecaVerts are the 20 vertices of a regular dodecahedron.
var dodecaVerts = [20]Vec3{
	{0, invPhi, phi}, {0, -invPhi, phi}, {0, -invPhi, -phi}, {0, invPhi, -phi},
	{phi, 0, invPhi}, {-phi, 0, invPhi}, {-phi, 0, -invPhi}, {phi, 0, -invPhi},
	{invPhi, phi, 0}, {-invPhi, phi, 0}, {-invPhi, -phi, 0}, {invPhi, -phi, 0},
	{1, 1, 1}, {-1, 1, 1}, {-1, -1, 1}, {1, -1, 1},
	{1, -1, -1}, {1, 1, -1}, {-1, 1, -1}, {-1, -1, -1},
}

// dodecaFaces lists the pentagons with consistent winding.
var dodecaFaces = [12][5]int{
	{0, 1, 15, 4, 12},
	{0, 12, 8, 9, 13},
	{0, 13, 5, 14, 1},
	{1, 14, 10, 11, 15},
	{2, 3, 17, 7, 16},
	{2, 16, 11, 10, 19},
	{2, 19, 6, 18, 3},
	{18, 9, 8, 17, 3},
	{15, 11, 16, 7, 4},
	{4, 7, 17, 8, 12},
	{13, 9, 18, 6, 5},
	{5, 6, 19, 10, 14},
}

// Lighting shared by faces and knobs.
var (
	light1  = Vec3{0.6, 0.7, 1.0}.Normalize()
	light2  = Vec3{-0.2, 0.2, 0.8}.Normalize()
	viewDir = Vec3{0, 0, 1}
)

var baseBlue = Vec3{0.16, 0.32, 0.72}

// SceneFace is one projected, shaded pentagon.
type SceneFace struct {
	Index      int
	Screen     [5]Vec2
	Color      Vec3
	Alpha      float32
	Origin     Vec3
	U, V, N    Vec3
	HoleRadius float32
	Depth      float32
}

// Scene is the fully resolved render input shared by the host rasterizer
// and the device kernel. Faces are ordered far to near.
type Scene struct {
	Width, Height int

	CamCX, CamCY float32
	InvScale     float32

	Wire          bool
	WireThickness float32
	Holes         bool
	Rings         bool

	Shadow         bool
	ShadowStrength float32
	ShadowCX       float32
	ShadowCY       float32
	ShadowRX       float32
	ShadowRY       float32

	Faces []SceneFace

	// Host-side knob overlay.
	Knobs      bool
	KnobRadius float32
	// EdgeLength is the median projected edge length in pixels.
	EdgeLength float32
	Verts      [20]Vec2
	Visible    [20]bool
}

// BuildScene rotates, projects and shades the dodecahedron.
func BuildScene(p PolyhedronParams) Scene {
	p = p.Normalize()
	const deg = float32(math.Pi / 180)
	yaw, pitch, roll := p.YawDeg*deg, p.PitchDeg*deg, p.RollDeg*deg

	var cam [20]Vec3
	for i, v := range dodecaVerts {
		cam[i] = rotateZ(rotateX(rotateY(v, yaw), pitch), roll)
	}

	minX, maxX := cam[0].X, cam[0].X
	minY, maxY := cam[0].Y, cam[0].Y
	for _, v := range cam[1:] {
		minX, maxX = min(minX, v.X), max(maxX, v.X)
		minY, maxY = min(minY, v.Y), max(maxY, v.Y)
	}
	spanX, spanY := maxX-minX, maxY-minY
	scale := p.Zoom * float32(min(p.Width, p.Height)) / max(spanX, spanY)
	cx, cy := 0.5*(minX+maxX), 0.5*(minY+maxY)

	s := Scene{
		Width:          p.Width,
		Height:         p.Height,
		CamCX:          cx,
		CamCY:          cy,
		InvScale:       1,
		Wire:           p.Wire,
		WireThickness:  p.WireThickness,
		Holes:          p.Holes,
		Rings:          p.Rings,
		Shadow:         p.Shadow,
		ShadowStrength: p.ShadowStrength,
		ShadowCX:       float32(p.Width) * 0.5,
		ShadowCY:       float32(p.Height) * 0.62,
		ShadowRX:       spanX * scale * 0.55,
		ShadowRY:       spanY * scale * 0.18,
		Knobs:          p.Knobs,
		KnobRadius:     p.KnobRadius,
	}
	if scale != 0 {
		s.InvScale = 1 / scale
	}

	for i, v := range cam {
		s.Verts[i] = Vec2{
			X: (v.X-cx)*scale + float32(p.Width)*0.5,
			Y: -(v.Y-cy)*scale + float32(p.Height)*0.5,
		}
	}
	s.EdgeLength = medianEdgeLength(s.Verts)
	if p.Knobs && p.KnobDiamFrac > 0 && s.EdgeLength > 0 {
		s.KnobRadius = 0.5 * p.KnobDiamFrac * s.EdgeLength
	}

	faces := make([]SceneFace, len(dodecaFaces))
	var vertNormals [20]Vec3
	for f, idx := range dodecaFaces {
		a, b, c := cam[idx[0]], cam[idx[1]], cam[idx[2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()

		diff := max(0, n.Dot(light1)) + 0.35*max(0, n.Dot(light2))
		specular := powf(max(0, light1.Neg().Reflect(n).Dot(viewDir)), 60)
		shade := float32(0.25) + 0.75*diff

		var base Vec3
		if p.Palette == PaletteFaceHues {
			base = hsvToRGB(float32(f)/12, 0.55, 0.95)
		} else {
			base = baseBlue.Scale(0.96 + 0.06*sinf(float32(f)*1.17+0.4))
		}
		const ks = 0.28
		color := Vec3{base.X*shade + ks*specular, base.Y*shade + ks*specular, base.Z*shade + ks*specular}

		var o Vec3
		for _, vi := range idx {
			o = o.Add(cam[vi])
			vertNormals[vi] = vertNormals[vi].Add(n)
		}
		o = o.Scale(1.0 / 5)

		u := b.Sub(a).Normalize()
		v := n.Cross(u).Normalize()
		var avg float32
		for _, vi := range idx {
			d := cam[vi].Sub(o)
			ru, rv := d.Dot(u), d.Dot(v)
			avg += sqrtf(ru*ru + rv*rv)
		}
		avg /= 5
		jitter := 0.92 + 0.08*sinf(float32(f)*2.17+0.7)

		face := SceneFace{
			Index:      f,
			Color:      color,
			Alpha:      p.Alpha,
			Origin:     o,
			U:          u,
			V:          v,
			N:          n,
			HoleRadius: p.HoleScale * avg * jitter,
			Depth:      o.Z,
		}
		for k, vi := range idx {
			face.Screen[k] = s.Verts[vi]
		}
		faces[f] = face
	}
	for i, n := range vertNormals {
		s.Visible[i] = n.Normalize().Dot(viewDir) > 0
	}

	// Smaller z is farther from the viewer.
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].Depth < faces[j].Depth })
	s.Faces = faces
	return s
}

func medianEdgeLength(verts [20]Vec2) float32 {
	seen := make(map[[2]int]bool)
	var lens []float32
	for _, idx := range dodecaFaces {
		for k := 0; k < 5; k++ {
			a, b := idx[k], idx[(k+1)%5]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if seen[key] {
				continue
			}
			seen[key] = true
			dx, dy := verts[a].X-verts[b].X, verts[a].Y-verts[b].Y
			lens = append(lens, sqrtf(dx*dx+dy*dy))
		}
	}
	if len(lens) == 0 {
		return 0
	}
	sort.Slice(lens, func(i, j int) bool { return lens[i] < lens[j] })
	return lens[len(lens)/2]
}
