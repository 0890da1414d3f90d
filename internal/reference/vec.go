package reference

import "math"

// Vec3 is a float32 3-vector in camera space.
type Vec3 struct {
	X, Y, Z float32
}

// Vec2 is a screen-space position in pixels.
type Vec2 struct {
	X, Y float32
}

func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Scale(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float32   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Neg() Vec3            { return Vec3{-a.X, -a.Y, -a.Z} }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

// Normalize returns a unit vector, or +Z for degenerate input.
func (a Vec3) Normalize() Vec3 {
	l := sqrtf(a.Dot(a))
	if l < 1e-6 {
		return Vec3{0, 0, 1}
	}
	return Vec3{a.X / l, a.Y / l, a.Z / l}
}

// Reflect mirrors v about the plane with normal n.
func (a Vec3) Reflect(n Vec3) Vec3 {
	d := a.Dot(n)
	return Vec3{a.X - 2*d*n.X, a.Y - 2*d*n.Y, a.Z - 2*d*n.Z}
}

func rotateY(v Vec3, ang float32) Vec3 {
	c, s := cosf(ang), sinf(ang)
	return Vec3{v.X*c + v.Z*s, v.Y, -v.X*s + v.Z*c}
}

func rotateX(v Vec3, ang float32) Vec3 {
	c, s := cosf(ang), sinf(ang)
	return Vec3{v.X, v.Y*c - v.Z*s, v.Y*s + v.Z*c}
}

func rotateZ(v Vec3, ang float32) Vec3 {
	c, s := cosf(ang), sinf(ang)
	return Vec3{v.X*c - v.Y*s, v.X*s + v.Y*c, v.Z}
}

// hsvToRGB converts hue, saturation and value in [0,1] to linear RGB.
func hsvToRGB(h, s, v float32) Vec3 {
	if s <= 0 {
		return Vec3{v, v, v}
	}
	h = float32(math.Mod(float64(h), 1)) * 6
	i := int(float32(math.Floor(float64(h))))
	f := h - float32(i)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch i {
	case 0:
		return Vec3{v, t, p}
	case 1:
		return Vec3{q, v, p}
	case 2:
		return Vec3{p, v, t}
	case 3:
		return Vec3{p, q, v}
	case 4:
		return Vec3{t, p, v}
	default:
		return Vec3{v, p, q}
	}
}

func sqrtf(v float32) float32 { return float32(math.Sqrt(float64(v))) }
func sinf(v float32) float32  { return float32(math.Sin(float64(v))) }
func cosf(v float32) float32  { return float32(math.Cos(float64(v))) }
func powf(b, e float32) float32 {
	return float32(math.Pow(float64(b), float64(e)))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// toByte quantizes a [0,1] intensity with rounding.
func toByte(v float32) uint8 {
	return uint8(clampInt32(int32(v*255+0.5), 0, 255))
}

func clampInt32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
