package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Plane is an oriented plane. Points p with Distance(p) > 0 lie in front
// of the plane (outside the solid for a brush face).
type Plane struct {
	Normal v3.Vec  `json:"normal" yaml:"normal"`
	Offset float64 `json:"offset" yaml:"offset"`
}

// Distance returns the signed distance of p to the plane.
func (pl Plane) Distance(p v3.Vec) float64 {
	return pl.Normal.Dot(p) - pl.Offset
}

// Flip returns the plane facing the opposite direction.
func (pl Plane) Flip() Plane {
	return Plane{Normal: pl.Normal.Neg(), Offset: -pl.Offset}
}

// IsValid reports whether the normal has unit length and no NaNs.
func (pl Plane) IsValid() bool {
	l := pl.Normal.Length()
	if math.IsNaN(l) || math.IsNaN(pl.Offset) {
		return false
	}
	return math.Abs(l-1) < DistanceEpsilon
}

// Aligned reports whether two planes describe the same oriented plane
// within tolerance.
func (pl Plane) Aligned(other Plane) bool {
	if pl.Normal.Dot(other.Normal) < NormalDotAlignEpsilon {
		return false
	}
	return math.Abs(pl.Offset-other.Offset) <= PlaneDAlignEpsilon
}

// NewellNormal computes the (unnormalized) polygon normal of a vertex loop
// with Newell's method. It is robust for non-planar and nearly degenerate
// loops; the length equals twice the projected polygon area.
func NewellNormal(points []v3.Vec) v3.Vec {
	var n v3.Vec
	for i := range points {
		a := points[i]
		b := points[(i+1)%len(points)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// PlaneFromPoints fits a plane through a vertex loop. The normal follows
// the counter-clockwise winding and the offset is the mean of n·p so that
// the plane passes through the centroid. ok is false for degenerate loops.
func PlaneFromPoints(points []v3.Vec) (pl Plane, ok bool) {
	if len(points) < 3 {
		return Plane{}, false
	}
	n := NewellNormal(points)
	l := n.Length()
	if l < SqrDistanceEpsilon {
		return Plane{}, false
	}
	n = n.DivScalar(l)
	var d float64
	for _, p := range points {
		d += n.Dot(p)
	}
	return Plane{Normal: n, Offset: d / float64(len(points))}, true
}
