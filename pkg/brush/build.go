package brush

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// PolygonLoop describes one face as an ordered list of vertex indices,
// counter-clockwise seen from outside the solid.
type PolygonLoop struct {
	Vertices  []int32
	SurfaceID int32
	LayerID   int32
	Surface   SurfaceDescription
}

type edgeKey struct{ from, to int32 }

// FromPolygonLoops builds a closed half-edge mesh from polygon loops. Twins
// are matched by their endpoints; every directed edge must appear exactly
// once and have an opposite edge in another loop.
func FromPolygonLoops(vertices []v3.Vec, loops []PolygonLoop) (*Mesh, error) {
	m := &Mesh{Vertices: vertices}
	if err := m.setLoops(loops); err != nil {
		return nil, err
	}
	m.UpdateBounds()
	m.CalculatePlanes()
	return m, nil
}

// Loops returns the polygon loops of the mesh, the inverse of
// FromPolygonLoops.
func (m *Mesh) Loops() []PolygonLoop {
	loops := make([]PolygonLoop, len(m.Polygons))
	for i, p := range m.Polygons {
		idx := make([]int32, 0, p.EdgeCount)
		for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
			idx = append(idx, m.HalfEdges[e].VertexIndex)
		}
		loops[i] = PolygonLoop{
			Vertices:  idx,
			SurfaceID: p.SurfaceID,
			LayerID:   p.LayerID,
			Surface:   p.Surface,
		}
	}
	return loops
}

// setLoops replaces the topology with the given loops and rebuilds twins.
// On error the mesh is left unchanged.
func (m *Mesh) setLoops(loops []PolygonLoop) error {
	total := 0
	for i, l := range loops {
		if len(l.Vertices) < 3 {
			return fmt.Errorf("polygon %d has %d edges, need at least 3", i, len(l.Vertices))
		}
		total += len(l.Vertices)
	}

	halfEdges := make([]HalfEdge, 0, total)
	polygons := make([]Polygon, 0, len(loops))
	lookup := make(map[edgeKey]int32, total)

	for i, l := range loops {
		first := int32(len(halfEdges))
		n := len(l.Vertices)
		for j, vi := range l.Vertices {
			if vi < 0 || int(vi) >= len(m.Vertices) {
				return fmt.Errorf("polygon %d references vertex %d out of range [0,%d)", i, vi, len(m.Vertices))
			}
			next := l.Vertices[(j+1)%n]
			key := edgeKey{vi, next}
			if _, dup := lookup[key]; dup {
				return fmt.Errorf("edge %d->%d is used by more than one polygon (polygon %d)", vi, next, i)
			}
			lookup[key] = int32(len(halfEdges))
			halfEdges = append(halfEdges, HalfEdge{VertexIndex: vi, TwinIndex: -1})
		}
		polygons = append(polygons, Polygon{
			FirstEdge: first,
			EdgeCount: int32(n),
			SurfaceID: l.SurfaceID,
			LayerID:   l.LayerID,
			Surface:   l.Surface,
		})
	}

	for i, l := range loops {
		n := len(l.Vertices)
		for j, vi := range l.Vertices {
			next := l.Vertices[(j+1)%n]
			e := lookup[edgeKey{vi, next}]
			twin, ok := lookup[edgeKey{next, vi}]
			if !ok {
				return fmt.Errorf("edge %d->%d of polygon %d has no twin, mesh is not closed", vi, next, i)
			}
			halfEdges[e].TwinIndex = twin
		}
	}

	m.HalfEdges = halfEdges
	m.Polygons = polygons
	return nil
}
