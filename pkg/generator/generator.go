// Package generator turns parametric shape definitions into validated
// brush meshes. Simple shapes implement BrushGenerator and produce one
// convex mesh; composite shapes implement BranchGenerator and expand into
// a flat list of GeneratedNode entries describing a sub-tree.
package generator

import (
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/csg"
)

// BrushGenerator produces a single convex mesh.
type BrushGenerator interface {
	// RequiredSurfaceCount is the number of surface slots the shape uses.
	RequiredSurfaceCount() int
	// GenerateMesh builds the mesh from the current parameters. Parameters
	// must have passed Validate.
	GenerateMesh(surfaces *SurfaceDefinition) (*brush.Mesh, error)
	// Validate clamps parameters into their domain and reports whether
	// anything changed. It never rejects input.
	Validate() bool
	// Reset restores the shape defaults.
	Reset()
	// GetMessages reports warnings collected by the last Validate.
	GetMessages(h MessageHandler)
}

// BranchGenerator expands into several brushes and sub-branches.
type BranchGenerator interface {
	RequiredSurfaceCount() int
	Validate() bool
	Reset()
	GetMessages(h MessageHandler)

	// PrepareAndCountRequiredBrushMeshes returns how many brush meshes
	// GenerateNodes will produce, without building them.
	PrepareAndCountRequiredBrushMeshes() int
	// GenerateNodes appends the generated nodes to out. It returns false on
	// degenerate input; callers discard the output in that case.
	GenerateNodes(surfaces *SurfaceDefinition, out []GeneratedNode) ([]GeneratedNode, bool)
	// Dispose releases scratch state. It is safe to call at any time.
	Dispose()
}

// GeneratedNode describes one node produced by a BranchGenerator.
// ParentIndex refers to an earlier entry of the same output, or is -1 for
// the branch the generator is attached to. A nil BrushMesh denotes a
// sub-branch.
type GeneratedNode struct {
	ParentIndex    int
	Operation      csg.Operation
	Transformation sdf.M44
	BrushMesh      *brush.Mesh
	Name           string
}

// IsBrush reports whether the node carries a mesh.
func (n GeneratedNode) IsBrush() bool {
	return n.BrushMesh != nil
}

// CountBrushes returns the number of brush entries in nodes.
func CountBrushes(nodes []GeneratedNode) int {
	var c int
	for _, n := range nodes {
		if n.IsBrush() {
			c++
		}
	}
	return c
}

var (
	_ BrushGenerator  = (*Box)(nil)
	_ BrushGenerator  = (*Cylinder)(nil)
	_ BrushGenerator  = (*Capsule)(nil)
	_ BrushGenerator  = (*Sphere)(nil)
	_ BranchGenerator = (*Torus)(nil)
	_ BranchGenerator = (*LinearStairs)(nil)
	_ BranchGenerator = (*PathedStairs)(nil)
	_ BranchGenerator = (*ExtrudedShape)(nil)
	_ BranchGenerator = (*RevolvedShape)(nil)
)
