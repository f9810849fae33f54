package generator

import (
	"fmt"

	"github.com/chazu/chisel/pkg/brush"
)

// ValidationResult reports the outcome of validating a definition.
type ValidationResult struct {
	Valid    bool
	Changed  bool // parameters were clamped
	Inverted bool // generated geometry was inside out and got inverted
	Messages []Message
	Err      error
}

// Warning returns the one-line message shown for an invalid shape, or the
// first warning for a valid one.
func (r ValidationResult) Warning() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if len(r.Messages) > 0 {
		return r.Messages[0].Text
	}
	return ""
}

// BrushDefinition pairs a BrushGenerator with its surfaces and caches the
// validated mesh.
type BrushDefinition struct {
	Generator BrushGenerator
	Surfaces  SurfaceDefinition

	mesh        *brush.Mesh
	validState  bool
	isInsideOut bool
}

// NewBrushDefinition wraps g. The definition is invalid until validated.
func NewBrushDefinition(g BrushGenerator) *BrushDefinition {
	return &BrushDefinition{Generator: g}
}

// Reset restores the generator defaults and drops the cached mesh.
func (d *BrushDefinition) Reset() {
	if d.Generator != nil {
		d.Generator.Reset()
	}
	d.Surfaces = SurfaceDefinition{}
	d.mesh = nil
	d.validState = false
	d.isInsideOut = false
}

// IsValid reports whether the definition holds a validated, non-empty mesh.
func (d *BrushDefinition) IsValid() bool {
	return d.validState && !d.mesh.IsEmpty()
}

// IsInsideOut reports whether the last generated mesh had to be inverted.
func (d *BrushDefinition) IsInsideOut() bool {
	return d.isInsideOut
}

// Mesh returns the validated mesh, or nil when the definition is invalid.
func (d *BrushDefinition) Mesh() *brush.Mesh {
	if !d.IsValid() {
		return nil
	}
	return d.mesh
}

// Apply replaces the generator parameters and validates once. Hosts batch
// parameter edits into g and call Apply instead of validating per field.
func (d *BrushDefinition) Apply(g BrushGenerator) ValidationResult {
	d.Generator = g
	return d.Validate()
}

// Validate clamps the parameters, regenerates the mesh, inverts it when it
// is inside out, recomputes planes and checks data and shape. Calling it
// again without changes produces an identical mesh.
func (d *BrushDefinition) Validate() ValidationResult {
	var res ValidationResult
	d.validState = false
	d.isInsideOut = false
	if d.Generator == nil {
		res.Err = fmt.Errorf("definition has no generator")
		return res
	}

	res.Changed = d.Generator.Validate()
	d.Generator.GetMessages(func(m Message) { res.Messages = append(res.Messages, m) })
	d.Surfaces.EnsureSize(d.Generator.RequiredSurfaceCount())

	m, err := d.Generator.GenerateMesh(&d.Surfaces)
	if err != nil {
		d.mesh = nil
		res.Err = fmt.Errorf("generate mesh: %w", err)
		return res
	}
	inverted, err := finishMesh(m)
	d.mesh = m
	d.isInsideOut = inverted
	res.Inverted = inverted
	if err != nil {
		res.Err = err
		return res
	}
	d.validState = true
	res.Valid = true
	return res
}

// finishMesh runs the post-generation pipeline shared by brush and branch
// definitions.
func finishMesh(m *brush.Mesh) (inverted bool, err error) {
	if m.IsEmpty() {
		return false, brush.ErrEmptyMesh
	}
	if !m.SplitNonPlanarPolygons() {
		return false, fmt.Errorf("mesh has degenerate non-planar polygons")
	}
	if m.IsInsideOut() {
		m.Invert()
		inverted = true
	}
	m.CalculatePlanes()
	m.UpdateBounds()
	if err := m.ValidateData(); err != nil {
		return inverted, fmt.Errorf("invalid mesh data: %w", err)
	}
	if err := m.ValidateShape(); err != nil {
		return inverted, fmt.Errorf("invalid mesh shape: %w", err)
	}
	return inverted, nil
}

// BranchDefinition pairs a BranchGenerator with its surfaces and caches the
// generated nodes.
type BranchDefinition struct {
	Generator BranchGenerator
	Surfaces  SurfaceDefinition

	nodes      []GeneratedNode
	validState bool
}

// NewBranchDefinition wraps g. Nothing is generated until Validate.
func NewBranchDefinition(g BranchGenerator) *BranchDefinition {
	return &BranchDefinition{Generator: g}
}

// Reset restores the generator defaults and drops the cached nodes.
func (d *BranchDefinition) Reset() {
	if d.Generator != nil {
		d.Generator.Reset()
		d.Generator.Dispose()
	}
	d.Surfaces = SurfaceDefinition{}
	d.nodes = nil
	d.validState = false
}

// IsValid reports whether the last validation produced at least one brush.
func (d *BranchDefinition) IsValid() bool {
	return d.validState && CountBrushes(d.nodes) > 0
}

// Nodes returns the generated nodes, or nil when the definition is invalid.
func (d *BranchDefinition) Nodes() []GeneratedNode {
	if !d.IsValid() {
		return nil
	}
	return d.nodes
}

// Apply swaps in g, disposing the previous generator, and revalidates.
func (d *BranchDefinition) Apply(g BranchGenerator) ValidationResult {
	if d.Generator != nil && d.Generator != g {
		d.Generator.Dispose()
	}
	d.Generator = g
	return d.Validate()
}

// Validate clamps the parameters, counts and generates the nodes and runs
// every produced mesh through the brush pipeline. On any failure the
// output is cleared.
func (d *BranchDefinition) Validate() ValidationResult {
	var res ValidationResult
	d.validState = false
	d.nodes = nil
	if d.Generator == nil {
		res.Err = fmt.Errorf("definition has no generator")
		return res
	}
	defer d.Generator.Dispose()

	res.Changed = d.Generator.Validate()
	d.Generator.GetMessages(func(m Message) { res.Messages = append(res.Messages, m) })
	d.Surfaces.EnsureSize(d.Generator.RequiredSurfaceCount())

	count := d.Generator.PrepareAndCountRequiredBrushMeshes()
	if count <= 0 {
		res.Err = fmt.Errorf("shape produces no brushes")
		return res
	}
	nodes, ok := d.Generator.GenerateNodes(&d.Surfaces, make([]GeneratedNode, 0, count))
	if !ok {
		res.Err = fmt.Errorf("generation failed on degenerate input")
		return res
	}
	if got := CountBrushes(nodes); got != count {
		res.Err = fmt.Errorf("generated %d brushes, expected %d", got, count)
		return res
	}
	for i := range nodes {
		if p := nodes[i].ParentIndex; p >= i || p < -1 || (p >= 0 && nodes[p].IsBrush()) {
			res.Err = fmt.Errorf("node %d has invalid parent %d", i, p)
			return res
		}
		if !nodes[i].IsBrush() {
			continue
		}
		inverted, err := finishMesh(nodes[i].BrushMesh)
		res.Inverted = res.Inverted || inverted
		if err != nil {
			res.Err = fmt.Errorf("%s: %w", nodes[i].Name, err)
			return res
		}
	}
	d.nodes = nodes
	d.validState = true
	res.Valid = true
	return res
}
