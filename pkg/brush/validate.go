package brush

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/geom"
)

// ErrEmptyMesh is returned when a mesh has no vertices, edges or polygons.
var ErrEmptyMesh = errors.New("brush mesh is empty")

// ValidateData checks the structural integrity of the mesh: index ranges,
// contiguous polygon edge runs, twin symmetry, degenerate edges and
// duplicate vertices. It returns the first violation found.
func (m *Mesh) ValidateData() error {
	if m.IsEmpty() {
		return ErrEmptyMesh
	}

	nv := int32(len(m.Vertices))
	ne := int32(len(m.HalfEdges))

	var expectFirst int32
	for i, p := range m.Polygons {
		if p.EdgeCount < 3 {
			return fmt.Errorf("polygon %d has %d edges, need at least 3", i, p.EdgeCount)
		}
		if p.FirstEdge != expectFirst {
			return fmt.Errorf("polygon %d starts at edge %d, expected %d (edges must be contiguous)", i, p.FirstEdge, expectFirst)
		}
		if p.FirstEdge+p.EdgeCount > ne {
			return fmt.Errorf("polygon %d edge range [%d,%d) exceeds %d half-edges", i, p.FirstEdge, p.FirstEdge+p.EdgeCount, ne)
		}
		expectFirst = p.FirstEdge + p.EdgeCount
	}
	if expectFirst != ne {
		return fmt.Errorf("polygons cover %d of %d half-edges", expectFirst, ne)
	}

	for i, he := range m.HalfEdges {
		if he.VertexIndex < 0 || he.VertexIndex >= nv {
			return fmt.Errorf("half-edge %d references vertex %d out of range [0,%d)", i, he.VertexIndex, nv)
		}
		if he.TwinIndex < 0 || he.TwinIndex >= ne {
			return fmt.Errorf("half-edge %d has twin %d out of range [0,%d)", i, he.TwinIndex, ne)
		}
		if int(he.TwinIndex) == i {
			return fmt.Errorf("half-edge %d is its own twin", i)
		}
		if back := m.HalfEdges[he.TwinIndex].TwinIndex; int(back) != i {
			return fmt.Errorf("half-edge %d has twin %d whose twin is %d", i, he.TwinIndex, back)
		}
	}

	for pi, p := range m.Polygons {
		for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
			from := m.HalfEdges[e].VertexIndex
			to := m.HalfEdges[m.NextEdge(int32(pi), e)].VertexIndex
			twin := m.HalfEdges[e].TwinIndex
			if m.HalfEdges[twin].VertexIndex != to {
				return fmt.Errorf("half-edge %d (%d->%d) has twin %d starting at vertex %d", e, from, to, twin, m.HalfEdges[twin].VertexIndex)
			}
			if d := m.Vertices[from].Sub(m.Vertices[to]).Length2(); d < geom.SqrEdgeDistanceEpsilon {
				return fmt.Errorf("polygon %d has degenerate edge %d->%d (length %g)", pi, from, to, math.Sqrt(d))
			}
		}
	}

	for i := 0; i < len(m.Vertices); i++ {
		for j := i + 1; j < len(m.Vertices); j++ {
			if m.Vertices[i].Sub(m.Vertices[j]).Length2() < geom.SqrVertexEqualEpsilon {
				return fmt.Errorf("vertices %d and %d are duplicates", i, j)
			}
		}
	}
	return nil
}

// ValidateShape checks that the mesh is a convex solid: every vertex must
// lie on its own polygons' planes and on or behind every other plane.
// Planes must be current (see CalculatePlanes). Concavity is reported,
// never repaired.
func (m *Mesh) ValidateShape() error {
	if m.IsEmpty() {
		return ErrEmptyMesh
	}
	if len(m.LocalPlanes) != len(m.Polygons) {
		return fmt.Errorf("mesh has %d planes for %d polygons", len(m.LocalPlanes), len(m.Polygons))
	}
	for pi, pl := range m.LocalPlanes {
		if !pl.IsValid() {
			return fmt.Errorf("polygon %d is degenerate and has no plane", pi)
		}
		p := m.Polygons[pi]
		for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
			vi := m.HalfEdges[e].VertexIndex
			if d := pl.Distance(m.Vertices[vi]); math.Abs(d) > geom.PlaneDAlignEpsilon {
				return fmt.Errorf("vertex %d is %g off the plane of polygon %d (polygon is not planar)", vi, d, pi)
			}
		}
		for vi, v := range m.Vertices {
			if d := pl.Distance(v); d > geom.PlaneDAlignEpsilon {
				return fmt.Errorf("vertex %d lies %g in front of polygon %d (shape is concave)", vi, d, pi)
			}
		}
	}
	return nil
}

// SignedVolume returns the volume enclosed by the polygon loops. It is
// negative when the faces point inward.
func (m *Mesh) SignedVolume() float64 {
	var vol float64
	for pi := range m.Polygons {
		pts := m.PolygonPoints(pi)
		for i := 1; i+1 < len(pts); i++ {
			vol += pts[0].Dot(pts[i].Cross(pts[i+1]))
		}
	}
	return vol / 6
}

// IsInsideOut reports whether the polygons face into the solid.
func (m *Mesh) IsInsideOut() bool {
	return m.SignedVolume() < 0
}

// Invert reverses the winding of every polygon and recomputes planes.
// Each loop keeps its first vertex, so edge j of an n-edge polygon moves
// to position n-1-j and inverting twice restores the original exactly.
func (m *Mesh) Invert() {
	remap := make([]int32, len(m.HalfEdges))
	for _, p := range m.Polygons {
		for j := int32(0); j < p.EdgeCount; j++ {
			remap[p.FirstEdge+j] = p.FirstEdge + (p.EdgeCount - 1 - j)
		}
	}

	inverted := make([]HalfEdge, len(m.HalfEdges))
	for pi, p := range m.Polygons {
		for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
			next := m.NextEdge(int32(pi), e)
			twin := m.HalfEdges[e].TwinIndex
			if twin >= 0 && int(twin) < len(remap) {
				twin = remap[twin]
			}
			inverted[remap[e]] = HalfEdge{
				VertexIndex: m.HalfEdges[next].VertexIndex,
				TwinIndex:   twin,
			}
		}
	}
	m.HalfEdges = inverted
	m.CalculatePlanes()
}

// SplitNonPlanarPolygons splits every polygon whose vertices deviate from
// its fitted plane by more than the fat-plane width into triangles. It
// returns false, leaving the mesh unchanged, when a split would produce a
// degenerate triangle.
func (m *Mesh) SplitNonPlanarPolygons() bool {
	m.CalculatePlanes()

	var split bool
	loops := m.Loops()
	out := make([]PolygonLoop, 0, len(loops))
	for pi, l := range loops {
		if len(l.Vertices) == 3 || m.isPlanar(pi) {
			out = append(out, l)
			continue
		}
		split = true
		tris, ok := m.triangulate(l)
		if !ok {
			return false
		}
		out = append(out, tris...)
	}
	if !split {
		return true
	}
	if err := m.setLoops(out); err != nil {
		return false
	}
	m.CalculatePlanes()
	return true
}

func (m *Mesh) isPlanar(polygon int) bool {
	pl := m.LocalPlanes[polygon]
	if !pl.IsValid() {
		return false
	}
	for _, p := range m.PolygonPoints(polygon) {
		if math.Abs(pl.Distance(p)) > geom.FatPlaneWidthEpsilon {
			return false
		}
	}
	return true
}

// triangulate fans a convex loop from its first vertex.
func (m *Mesh) triangulate(l PolygonLoop) ([]PolygonLoop, bool) {
	tris := make([]PolygonLoop, 0, len(l.Vertices)-2)
	for i := 1; i+1 < len(l.Vertices); i++ {
		idx := []int32{l.Vertices[0], l.Vertices[i], l.Vertices[i+1]}
		pts := []v3.Vec{m.Vertices[idx[0]], m.Vertices[idx[1]], m.Vertices[idx[2]]}
		if geom.NewellNormal(pts).Length() < geom.SqrDistanceEpsilon {
			return nil, false
		}
		tris = append(tris, PolygonLoop{
			Vertices:  idx,
			SurfaceID: l.SurfaceID,
			LayerID:   l.LayerID,
			Surface:   l.Surface,
		})
	}
	return tris, true
}
