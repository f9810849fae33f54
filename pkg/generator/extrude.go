package generator

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/geom"
)

// ExtrudedShape extrudes a 2D outline in the XZ plane along +Y. Concave
// outlines are split into convex pieces, one brush each.
type ExtrudedShape struct {
	Outline []v2.Vec `yaml:"outline"` // X, Z
	Height  float64  `yaml:"height"`

	msgs   messages
	pieces [][]v2.Vec
}

// NewExtrudedShape returns a unit square prism.
func NewExtrudedShape() *ExtrudedShape {
	e := &ExtrudedShape{}
	e.Reset()
	return e
}

func (e *ExtrudedShape) Reset() {
	e.Outline = []v2.Vec{{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5}}
	e.Height = 1
	e.msgs.reset()
	e.pieces = nil
}

func (e *ExtrudedShape) RequiredSurfaceCount() int { return latheSurfaceCount }

func (e *ExtrudedShape) GetMessages(h MessageHandler) { e.msgs.report(h) }

// Validate clamps the height and drops repeated outline points. A
// self-intersecting outline is left as is and fails in
// PrepareAndCountRequiredBrushMeshes.
func (e *ExtrudedShape) Validate() bool {
	e.msgs.reset()
	changed := clampMin(&e.Height, geom.MinSize, "height", &e.msgs)
	if n := dedupOutline(&e.Outline); n > 0 {
		e.msgs.warnf("removed %d repeated outline points", n)
		changed = true
	}
	return changed
}

// PrepareAndCountRequiredBrushMeshes splits the outline into convex
// pieces, one brush each. It returns 0 when the outline cannot be split.
func (e *ExtrudedShape) PrepareAndCountRequiredBrushMeshes() int {
	pieces, err := decompose(e.Outline)
	if err != nil {
		e.pieces = nil
		return 0
	}
	e.pieces = pieces
	return len(pieces)
}

func (e *ExtrudedShape) GenerateNodes(surfaces *SurfaceDefinition, out []GeneratedNode) ([]GeneratedNode, bool) {
	if e.pieces == nil && e.PrepareAndCountRequiredBrushMeshes() == 0 {
		return out, false
	}
	for i, piece := range e.pieces {
		bottom := make([]v3.Vec, len(piece))
		top := make([]v3.Vec, len(piece))
		for j, p := range piece {
			bottom[j] = v3.Vec{X: p.X, Z: p.Y}
			top[j] = v3.Vec{X: p.X, Y: e.Height, Z: p.Y}
		}
		m, err := prism(bottom, top, surfaces, SurfaceBottom, SurfaceTop, SurfaceSides)
		if err != nil {
			return out, false
		}
		out = append(out, brushNode(-1, m, fmt.Sprintf("piece %d", i)))
	}
	return out, true
}

func (e *ExtrudedShape) Dispose() {
	e.pieces = nil
}

// dedupOutline drops consecutive points closer than minVertexSpacing, the
// closing pair included, and returns how many were removed.
func dedupOutline(pts *[]v2.Vec) int {
	return dedupPoints(pts, minVertexSpacing, true)
}

// dedupPoints drops consecutive points closer than min. A closed polyline
// also drops its last point when it repeats the first.
func dedupPoints(pts *[]v2.Vec, min float64, closed bool) int {
	in := *pts
	if len(in) == 0 {
		return 0
	}
	out := make([]v2.Vec, 0, len(in))
	for _, p := range in {
		if len(out) > 0 && p.Sub(out[len(out)-1]).Length() < min {
			continue
		}
		out = append(out, p)
	}
	for closed && len(out) > 1 && out[0].Sub(out[len(out)-1]).Length() < min {
		out = out[:len(out)-1]
	}
	removed := len(in) - len(out)
	if removed > 0 {
		*pts = out
	}
	return removed
}
