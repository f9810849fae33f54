// Package kernel defines the geometry backend used to evaluate a CSG tree
// into triangle meshes. Brushes enter the kernel as convex plane sets and
// leave it as composed solids.
package kernel

import (
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/chisel/pkg/geom"
)

// Solid is an opaque handle to a kernel-specific solid representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() sdf.Box3
}

// Kernel composes convex brushes into solids and tessellates them.
// Implementations must treat every Solid as immutable.
type Kernel interface {
	// Brush returns the intersection of the back half-spaces of planes,
	// clipped to bounds. Planes face outward.
	Brush(planes []geom.Plane, bounds sdf.Box3) Solid

	// Boolean operations.
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transform places s in the space described by m.
	Transform(s Solid, m sdf.M44) Solid

	// ToMesh tessellates a solid into a triangle mesh.
	ToMesh(s Solid) (*Mesh, error)
}
