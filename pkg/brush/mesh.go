// Package brush implements the half-edge brush mesh: the authoritative
// geometry of one convex solid, with plane calculation, validation,
// inversion and wireframe outline extraction.
package brush

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/geom"
)

// HalfEdge is a directed edge of a polygon loop. VertexIndex is the origin
// of the edge; its destination is the origin of the next half-edge in the
// same polygon, which is also the origin of the twin.
type HalfEdge struct {
	VertexIndex int32 `json:"vertex_index"`
	TwinIndex   int32 `json:"twin_index"`
}

// UVMatrix maps a point in polygon plane space to texture coordinates:
// u = U·(x,y,z,1), v = V·(x,y,z,1).
type UVMatrix struct {
	U [4]float64 `json:"u" yaml:"u"`
	V [4]float64 `json:"v" yaml:"v"`
}

// DefaultUVMatrix is a unit planar projection.
var DefaultUVMatrix = UVMatrix{
	U: [4]float64{1, 0, 0, 0},
	V: [4]float64{0, 1, 0, 0},
}

// SurfaceDescription holds per-polygon texturing parameters.
type SurfaceDescription struct {
	UV             UVMatrix `json:"uv" yaml:"uv"`
	SmoothingGroup uint32   `json:"smoothing_group,omitempty" yaml:"smoothing_group,omitempty"`
}

// DefaultSurfaceDescription returns a description with the unit projection.
func DefaultSurfaceDescription() SurfaceDescription {
	return SurfaceDescription{UV: DefaultUVMatrix}
}

// Polygon is a contiguous run of half-edges forming one face loop.
type Polygon struct {
	FirstEdge int32              `json:"first_edge"`
	EdgeCount int32              `json:"edge_count"`
	SurfaceID int32              `json:"surface_id"` // slot in the generator's surface array
	LayerID   int32              `json:"layer_id"`   // opaque material/layer id
	Surface   SurfaceDescription `json:"surface"`
}

// Mesh is a half-edge brush mesh.
type Mesh struct {
	Vertices    []v3.Vec     `json:"vertices"`
	HalfEdges   []HalfEdge   `json:"half_edges"`
	Polygons    []Polygon    `json:"polygons"`
	LocalPlanes []geom.Plane `json:"local_planes"`
	LocalBounds sdf.Box3     `json:"local_bounds"`
}

// IsEmpty reports whether the mesh carries no usable geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0 || len(m.HalfEdges) == 0 || len(m.Polygons) == 0
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	return &Mesh{
		Vertices:    append([]v3.Vec(nil), m.Vertices...),
		HalfEdges:   append([]HalfEdge(nil), m.HalfEdges...),
		Polygons:    append([]Polygon(nil), m.Polygons...),
		LocalPlanes: append([]geom.Plane(nil), m.LocalPlanes...),
		LocalBounds: m.LocalBounds,
	}
}

// UpdateBounds recomputes LocalBounds from the vertices.
func (m *Mesh) UpdateBounds() {
	m.LocalBounds = geom.Bounds(m.Vertices)
}

// Centroid returns the average of all vertices.
func (m *Mesh) Centroid() v3.Vec {
	var c v3.Vec
	if len(m.Vertices) == 0 {
		return c
	}
	for _, v := range m.Vertices {
		c = c.Add(v)
	}
	return c.DivScalar(float64(len(m.Vertices)))
}

// NextEdge returns the half-edge following e within its polygon.
func (m *Mesh) NextEdge(polygon, e int32) int32 {
	p := m.Polygons[polygon]
	return p.FirstEdge + (e-p.FirstEdge+1)%p.EdgeCount
}

// PolygonPoints returns the vertex positions of a polygon loop in order.
func (m *Mesh) PolygonPoints(polygon int) []v3.Vec {
	p := m.Polygons[polygon]
	pts := make([]v3.Vec, 0, p.EdgeCount)
	for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
		pts = append(pts, m.Vertices[m.HalfEdges[e].VertexIndex])
	}
	return pts
}

// CalculatePlanes recomputes LocalPlanes from the vertices and polygon
// loops. Degenerate polygons get a zero plane, which ValidateShape and
// ValidateData report.
func (m *Mesh) CalculatePlanes() {
	if cap(m.LocalPlanes) >= len(m.Polygons) {
		m.LocalPlanes = m.LocalPlanes[:len(m.Polygons)]
	} else {
		m.LocalPlanes = make([]geom.Plane, len(m.Polygons))
	}
	for i := range m.Polygons {
		pl, ok := geom.PlaneFromPoints(m.PolygonPoints(i))
		if !ok {
			pl = geom.Plane{}
		}
		m.LocalPlanes[i] = pl
	}
}
