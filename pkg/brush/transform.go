package brush

import (
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/chisel/pkg/geom"
)

// Transform bakes t into the vertices. Loops are reversed when t mirrors
// so that faces keep pointing outward.
func (m *Mesh) Transform(t sdf.M44) {
	for i, v := range m.Vertices {
		m.Vertices[i] = t.MulPosition(v)
	}
	if geom.MirrorsWinding(t) {
		m.Invert()
	}
	m.UpdateBounds()
	m.CalculatePlanes()
}
