package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Identity returns the identity transform.
func Identity() sdf.M44 {
	return sdf.Identity3d()
}

// TRS builds a transform that rotates by Euler angles (degrees, applied
// X then Y then Z) and then translates.
func TRS(translation, rotationDeg v3.Vec) sdf.M44 {
	r := sdf.RotateZ(radians(rotationDeg.Z)).
		Mul(sdf.RotateY(radians(rotationDeg.Y))).
		Mul(sdf.RotateX(radians(rotationDeg.X)))
	return sdf.Translate3d(translation).Mul(r)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// MirrorsWinding reports whether m flips handedness, in which case polygon
// loops transformed by m must be reversed to keep facing outward.
func MirrorsWinding(m sdf.M44) bool {
	o := m.MulPosition(v3.Vec{})
	x := m.MulPosition(v3.Vec{X: 1}).Sub(o)
	y := m.MulPosition(v3.Vec{Y: 1}).Sub(o)
	z := m.MulPosition(v3.Vec{Z: 1}).Sub(o)
	return x.Cross(y).Dot(z) < 0
}

// TransformPlane maps a plane through an affine transform. The point and
// normal are transformed separately so non-uniform scale is handled.
func TransformPlane(m sdf.M44, pl Plane) Plane {
	onPlane := pl.Normal.MulScalar(pl.Offset)
	p := m.MulPosition(onPlane)

	// Normal transforms with the inverse transpose; build it from two
	// tangent vectors instead so only MulPosition is needed.
	t1, t2 := tangents(pl.Normal)
	a := m.MulPosition(onPlane.Add(t1)).Sub(p)
	b := m.MulPosition(onPlane.Add(t2)).Sub(p)
	n := a.Cross(b)
	if n.Dot(m.MulPosition(onPlane.Add(pl.Normal)).Sub(p)) < 0 {
		n = n.Neg()
	}
	n = n.Normalize()
	return Plane{Normal: n, Offset: n.Dot(p)}
}

// tangents returns two vectors spanning the plane perpendicular to n with
// t1 × t2 pointing along n.
func tangents(n v3.Vec) (v3.Vec, v3.Vec) {
	var up v3.Vec
	if math.Abs(n.Y) < 0.9 {
		up = v3.Vec{Y: 1}
	} else {
		up = v3.Vec{X: 1}
	}
	t1 := up.Cross(n).Normalize()
	t2 := n.Cross(t1)
	return t1, t2
}

// Bounds returns the axis-aligned box around points. An empty slice gives
// a zero box.
func Bounds(points []v3.Vec) sdf.Box3 {
	if len(points) == 0 {
		return sdf.Box3{}
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return sdf.Box3{Min: lo, Max: hi}
}

// BoundsContain reports whether p lies inside b, widened by
// BoundsDistanceEpsilon.
func BoundsContain(b sdf.Box3, p v3.Vec) bool {
	const e = BoundsDistanceEpsilon
	return p.X >= b.Min.X-e && p.X <= b.Max.X+e &&
		p.Y >= b.Min.Y-e && p.Y <= b.Max.Y+e &&
		p.Z >= b.Min.Z-e && p.Z <= b.Max.Z+e
}
