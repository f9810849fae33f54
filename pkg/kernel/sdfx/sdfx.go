// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/geom"
	"github.com/chazu/chisel/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest axis of a solid.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() sdf.Box3 {
	return s.s.BoundingBox()
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithCells sets the marching cubes resolution. Values below 1 keep the
// default.
func WithCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: DefaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Cells returns the marching cubes resolution.
func (k *SdfxKernel) Cells() int { return k.cells }

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// convexSDF3 is the intersection of the back half-spaces of its planes.
// The distance is exact on the faces and a lower bound near edges, which
// is all marching cubes needs.
type convexSDF3 struct {
	planes []geom.Plane
	bb     sdf.Box3
}

func (c *convexSDF3) Evaluate(p v3.Vec) float64 {
	d := -math.MaxFloat64
	for _, pl := range c.planes {
		d = math.Max(d, pl.Distance(p))
	}
	return d
}

func (c *convexSDF3) BoundingBox() sdf.Box3 {
	return c.bb
}

// boxPlanes returns the six outward planes of b.
func boxPlanes(b sdf.Box3) []geom.Plane {
	return []geom.Plane{
		{Normal: v3.Vec{X: 1}, Offset: b.Max.X},
		{Normal: v3.Vec{X: -1}, Offset: -b.Min.X},
		{Normal: v3.Vec{Y: 1}, Offset: b.Max.Y},
		{Normal: v3.Vec{Y: -1}, Offset: -b.Min.Y},
		{Normal: v3.Vec{Z: 1}, Offset: b.Max.Z},
		{Normal: v3.Vec{Z: -1}, Offset: -b.Min.Z},
	}
}

// Brush creates a convex solid from outward facing planes. The bounds
// clip the solid so that an open plane set stays finite.
func (k *SdfxKernel) Brush(planes []geom.Plane, bounds sdf.Box3) kernel.Solid {
	all := make([]geom.Plane, 0, len(planes)+6)
	all = append(all, planes...)
	all = append(all, boxPlanes(bounds)...)
	return wrap(&convexSDF3{planes: all, bb: bounds})
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Transform places a solid in the space described by m.
func (k *SdfxKernel) Transform(s kernel.Solid, m sdf.M44) kernel.Solid {
	if m == sdf.Identity3d() {
		return s
	}
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	if s == nil {
		return &kernel.Mesh{}, nil
	}
	sdf3, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("sdfx: foreign solid %T", s)
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3.s, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// SaveSTL writes the meshes to a single binary STL file.
func SaveSTL(path string, meshes ...*kernel.Mesh) error {
	var tris []*sdf.Triangle3
	for _, m := range meshes {
		if m.IsEmpty() {
			continue
		}
		for i := 0; i+2 < len(m.Indices); i += 3 {
			tris = append(tris, &sdf.Triangle3{
				m.Vertex(int(m.Indices[i])),
				m.Vertex(int(m.Indices[i+1])),
				m.Vertex(int(m.Indices[i+2])),
			})
		}
	}
	if len(tris) == 0 {
		return fmt.Errorf("sdfx: nothing to export to %s", path)
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("sdfx: save %s: %w", path, err)
	}
	return nil
}
