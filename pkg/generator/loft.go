package generator

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/geom"
)

// loft describes a solid built from stacked rings of equal size. Each ring
// is closed at the bottom and top either by a flat cap or, when an apex is
// given, by a fan of triangles meeting in that apex. Consecutive rings are
// joined by quads; the quads are planar as long as each ring is an affine
// image of the one below it.
type loft struct {
	rings      [][]v3.Vec
	bottomApex *v3.Vec
	topApex    *v3.Vec

	bottom, top int             // cap surface slots
	band        func(k int) int // surface slot of the band above ring k
}

// build emits the mesh. Winding is fixed up afterwards, so rings may run in
// either direction.
func (l loft) build(surfaces *SurfaceDefinition) (*brush.Mesh, error) {
	if len(l.rings) == 0 {
		return nil, fmt.Errorf("loft has no rings")
	}
	n := len(l.rings[0])
	if n < 3 {
		return nil, fmt.Errorf("loft ring has %d points, need at least 3", n)
	}
	for k, r := range l.rings {
		if len(r) != n {
			return nil, fmt.Errorf("loft ring %d has %d points, want %d", k, len(r), n)
		}
	}

	vertices := make([]v3.Vec, 0, n*len(l.rings)+2)
	for _, r := range l.rings {
		vertices = append(vertices, r...)
	}
	at := func(k, i int) int32 { return int32(k*n + (i+n)%n) }

	var loops []brush.PolygonLoop

	if l.bottomApex != nil {
		apex := int32(len(vertices))
		vertices = append(vertices, *l.bottomApex)
		for i := 0; i < n; i++ {
			loops = append(loops, surfaces.loop(l.bottom, apex, at(0, i), at(0, i+1)))
		}
	} else {
		face := make([]int32, n)
		for i := range face {
			face[i] = at(0, i)
		}
		loops = append(loops, surfaces.loop(l.bottom, face...))
	}

	for k := 0; k+1 < len(l.rings); k++ {
		slot := l.bottom
		if l.band != nil {
			slot = l.band(k)
		}
		for i := 0; i < n; i++ {
			loops = append(loops, surfaces.loop(slot, at(k, i), at(k+1, i), at(k+1, i+1), at(k, i+1)))
		}
	}

	last := len(l.rings) - 1
	if l.topApex != nil {
		apex := int32(len(vertices))
		vertices = append(vertices, *l.topApex)
		for i := 0; i < n; i++ {
			loops = append(loops, surfaces.loop(l.top, apex, at(last, i+1), at(last, i)))
		}
	} else {
		face := make([]int32, n)
		for i := range face {
			face[i] = at(last, n-1-i)
		}
		loops = append(loops, surfaces.loop(l.top, face...))
	}

	m, err := brush.FromPolygonLoops(vertices, loops)
	if err != nil {
		return nil, err
	}
	if m.IsInsideOut() {
		m.Invert()
	}
	return m, nil
}

// prism joins two congruent loops, bottom and top, with quads.
func prism(bottom, top []v3.Vec, surfaces *SurfaceDefinition, bottomSlot, topSlot, sideSlot int) (*brush.Mesh, error) {
	return loft{
		rings:  [][]v3.Vec{bottom, top},
		bottom: bottomSlot,
		top:    topSlot,
		band:   func(int) int { return sideSlot },
	}.build(surfaces)
}

// box builds the axis-aligned box [min,max] in the frame (origin, ax, ay,
// az). Slots follow the box order: +Y, -Y, -X, +X, +Z, -Z.
func box(min, max v3.Vec, origin, ax, ay, az v3.Vec, surfaces *SurfaceDefinition) (*brush.Mesh, error) {
	p := func(x, y, z float64) v3.Vec {
		return origin.Add(ax.MulScalar(x)).Add(ay.MulScalar(y)).Add(az.MulScalar(z))
	}
	vertices := []v3.Vec{
		p(min.X, min.Y, min.Z), // 0
		p(max.X, min.Y, min.Z), // 1
		p(max.X, max.Y, min.Z), // 2
		p(min.X, max.Y, min.Z), // 3
		p(min.X, min.Y, max.Z), // 4
		p(max.X, min.Y, max.Z), // 5
		p(max.X, max.Y, max.Z), // 6
		p(min.X, max.Y, max.Z), // 7
	}
	loops := []brush.PolygonLoop{
		surfaces.loop(0, 3, 7, 6, 2), // +Y
		surfaces.loop(1, 0, 1, 5, 4), // -Y
		surfaces.loop(2, 0, 4, 7, 3), // -X
		surfaces.loop(3, 1, 2, 6, 5), // +X
		surfaces.loop(4, 4, 5, 6, 7), // +Z
		surfaces.loop(5, 0, 3, 2, 1), // -Z
	}
	m, err := brush.FromPolygonLoops(vertices, loops)
	if err != nil {
		return nil, err
	}
	if m.IsInsideOut() {
		m.Invert()
	}
	return m, nil
}

// axisBox builds an axis-aligned box in local space.
func axisBox(min, max v3.Vec, surfaces *SurfaceDefinition) (*brush.Mesh, error) {
	return box(min, max, v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1}, v3.Vec{Z: 1}, surfaces)
}

// ring returns n points of an ellipse with radii rx, rz at height y,
// starting at angle start (radians).
func ring(n int, rx, rz, y, start float64) []v3.Vec {
	pts := make([]v3.Vec, n)
	for i := range pts {
		a := start + 2*math.Pi*float64(i)/float64(n)
		pts[i] = v3.Vec{X: rx * math.Cos(a), Y: y, Z: rz * math.Sin(a)}
	}
	return pts
}

// revolvePoint places profile point p = (radius, height) at angle a
// (radians) around the Y axis.
func revolvePoint(p v2.Vec, a float64) v3.Vec {
	return v3.Vec{X: p.X * math.Cos(a), Y: p.Y, Z: p.X * math.Sin(a)}
}

// wedge revolves a convex profile between angles a0 and a1. The result is
// convex while a1-a0 is below 180 degrees and the profile stays off the
// axis.
func wedge(profile []v2.Vec, a0, a1 float64, surfaces *SurfaceDefinition, startSlot, endSlot, sideSlot int) (*brush.Mesh, error) {
	bottom := make([]v3.Vec, len(profile))
	top := make([]v3.Vec, len(profile))
	for i, p := range profile {
		bottom[i] = revolvePoint(p, a0)
		top[i] = revolvePoint(p, a1)
	}
	return prism(bottom, top, surfaces, startSlot, endSlot, sideSlot)
}

// turned returns m rotated k steps of step radians around +Y, in the
// direction sweeps advance. Step zero returns m itself; later steps are
// rotated copies, so every wedge of a sweep is congruent to the first.
func turned(m *brush.Mesh, step float64, k int) *brush.Mesh {
	if k == 0 {
		return m
	}
	c := m.Clone()
	c.Transform(sdf.RotateY(-float64(k) * step))
	return c
}

// signedArea2 returns the signed area of a 2D polygon, positive for
// counter-clockwise winding.
func signedArea2(pts []v2.Vec) float64 {
	var a float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// isConvex2 reports whether pts is a strictly convex polygon in either
// winding.
func isConvex2(pts []v2.Vec) bool {
	if len(pts) < 3 {
		return false
	}
	var sign float64
	for i := range pts {
		a, b, c := pts[i], pts[(i+1)%len(pts)], pts[(i+2)%len(pts)]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		if math.Abs(cross) < geom.SqrDistanceEpsilon {
			return false
		}
		if sign == 0 {
			sign = cross
		} else if sign*cross < 0 {
			return false
		}
	}
	return true
}

// minVertexSpacing is the smallest distance generators keep between two
// vertices of one mesh. It stays clear of VertexEqualEpsilon so rounding in
// later transforms cannot merge vertices.
const minVertexSpacing = 1.25 * geom.VertexEqualEpsilon

// minRoundDiameter is the smallest diameter of a round primitive: a
// triangular ring of this size and an apex level with its rim stay
// minVertexSpacing apart.
const minRoundDiameter = max(geom.MinDiameter, math.Sqrt2*minVertexSpacing)

// chordRadius returns the smallest ring radius that keeps n evenly spaced
// points minVertexSpacing apart.
func chordRadius(n int) float64 {
	return minVertexSpacing / (2 * math.Sin(math.Pi/float64(n)))
}

// ringFits accepts point counts a ring of radius r can carry.
func ringFits(r float64) func(int) bool {
	return func(n int) bool { return chordRadius(n) <= r }
}

// latitudeFits reports whether rings of sides points placed every dpsi
// radians of latitude on an ellipsoid with horizontal radius r and vertical
// radius h stay minVertexSpacing apart. polar is the latitude of the ring
// closest to a pole.
func latitudeFits(r, h, dpsi, polar float64, sides int) bool {
	if 2*math.Min(r, h)*math.Sin(dpsi/2) < minVertexSpacing {
		return false
	}
	return r*math.Cos(polar) >= chordRadius(sides)
}

// fitSegments lowers *n until fits accepts it, never below min, recording
// a warning when it had to.
func fitSegments(n *int, min int, name string, msgs *messages, fits func(int) bool) bool {
	v := *n
	for v > min && !fits(v) {
		v--
	}
	if v == *n {
		return false
	}
	msgs.warnf("%s %d is too fine for the shape size, reduced to %d", name, *n, v)
	*n = v
	return true
}

// clampMin raises *v to min, recording a warning.
func clampMin(v *float64, min float64, name string, msgs *messages) bool {
	if *v >= min {
		return false
	}
	if *v < 0 && -*v >= min {
		msgs.warnf("%s %g is negative, using %g", name, *v, -*v)
		*v = -*v
		return true
	}
	msgs.warnf("%s %g is below the minimum, clamped to %g", name, *v, min)
	*v = min
	return true
}

// clampInt keeps *v within [min,max], recording a warning.
func clampInt(v *int, min, max int, name string, msgs *messages) bool {
	switch {
	case *v < min:
		msgs.warnf("%s %d is below the minimum, clamped to %d", name, *v, min)
		*v = min
	case max > 0 && *v > max:
		msgs.warnf("%s %d is above the maximum, clamped to %d", name, *v, max)
		*v = max
	default:
		return false
	}
	return true
}
