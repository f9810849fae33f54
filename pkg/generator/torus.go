package generator

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/csg"
)

// Torus is a ring around the Y axis, split into one convex wedge brush per
// horizontal segment.
type Torus struct {
	OuterDiameter      float64 `yaml:"outer_diameter"`
	InnerDiameter      float64 `yaml:"inner_diameter"`
	TubeSegments       int     `yaml:"tube_segments"`
	HorizontalSegments int     `yaml:"horizontal_segments"`
	TubeRotation       float64 `yaml:"tube_rotation,omitempty"` // degrees
	Rotation           float64 `yaml:"rotation,omitempty"`      // degrees around Y

	msgs messages
	tube []v2.Vec
}

// NewTorus returns a unit torus with a quarter-unit tube.
func NewTorus() *Torus {
	t := &Torus{}
	t.Reset()
	return t
}

// Reset restores the default torus.
func (t *Torus) Reset() {
	t.OuterDiameter = 1
	t.InnerDiameter = 0.5
	t.TubeSegments = 8
	t.HorizontalSegments = 12
	t.TubeRotation = 0
	t.Rotation = 0
	t.msgs.reset()
	t.tube = nil
}

func (t *Torus) RequiredSurfaceCount() int { return 1 }

func (t *Torus) GetMessages(h MessageHandler) { t.msgs.report(h) }

// Validate keeps the outer diameter beyond the inner one and limits the
// tube and horizontal segments to what the tube and the inner rim can
// hold.
func (t *Torus) Validate() bool {
	t.msgs.reset()
	changed := clampMin(&t.InnerDiameter, minRoundDiameter, "inner diameter", &t.msgs)
	changed = clampMin(&t.OuterDiameter, t.InnerDiameter+2*minRoundDiameter, "outer diameter", &t.msgs) || changed
	changed = clampInt(&t.TubeSegments, 3, MaxSegments, "tube segments", &t.msgs) || changed
	changed = clampInt(&t.HorizontalSegments, 3, MaxSegments, "horizontal segments", &t.msgs) || changed

	tube := (t.OuterDiameter - t.InnerDiameter) / 4
	changed = fitSegments(&t.TubeSegments, 3, "tube segments", &t.msgs, ringFits(tube)) || changed
	changed = fitSegments(&t.HorizontalSegments, 3, "horizontal segments", &t.msgs, ringFits(t.InnerDiameter/2)) || changed
	return changed
}

// PrepareAndCountRequiredBrushMeshes computes the tube profile. The ring
// is split into one convex wedge per horizontal segment.
func (t *Torus) PrepareAndCountRequiredBrushMeshes() int {
	r := (t.OuterDiameter - t.InnerDiameter) / 4
	center := (t.OuterDiameter + t.InnerDiameter) / 4
	rot := t.TubeRotation * math.Pi / 180
	t.tube = make([]v2.Vec, t.TubeSegments)
	for j := range t.tube {
		a := rot + 2*math.Pi*float64(j)/float64(t.TubeSegments)
		t.tube[j] = v2.Vec{X: center + r*math.Cos(a), Y: r * math.Sin(a)}
	}
	return t.HorizontalSegments
}

func (t *Torus) GenerateNodes(surfaces *SurfaceDefinition, out []GeneratedNode) ([]GeneratedNode, bool) {
	if t.tube == nil {
		t.PrepareAndCountRequiredBrushMeshes()
	}
	start := t.Rotation * math.Pi / 180
	step := 2 * math.Pi / float64(t.HorizontalSegments)
	first, err := wedge(t.tube, start, start+step, surfaces, 0, 0, 0)
	if err != nil {
		return out, false
	}
	for i := 0; i < t.HorizontalSegments; i++ {
		out = append(out, brushNode(-1, turned(first, step, i), fmt.Sprintf("segment %d", i)))
	}
	return out, true
}

func (t *Torus) Dispose() {
	t.tube = nil
}

// brushNode is an additive brush entry with an identity transform.
func brushNode(parent int, m *brush.Mesh, name string) GeneratedNode {
	return GeneratedNode{
		ParentIndex:    parent,
		Operation:      csg.Additive,
		Transformation: sdf.Identity3d(),
		BrushMesh:      m,
		Name:           name,
	}
}
