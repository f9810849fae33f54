package kernel

import (
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/geom"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("nil mesh", func(t *testing.T) {
		var m *Mesh
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for nil mesh, want true")
		}
	})
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{0, 0, 0, 2, -1, 0, 1, 3, 4}}
	want := sdf.Box3{Min: v3.Vec{X: 0, Y: -1, Z: 0}, Max: v3.Vec{X: 2, Y: 3, Z: 4}}
	if got := m.Bounds(); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if got := (&Mesh{}).Bounds(); got != (sdf.Box3{}) {
		t.Errorf("Bounds() of empty mesh = %v, want zero box", got)
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	bb sdf.Box3
}

func (s *stubSolid) BoundingBox() sdf.Box3 {
	return s.bb
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. Booleans keep the left operand.
type stubKernel struct{}

func (k *stubKernel) Brush(_ []geom.Plane, bounds sdf.Box3) Solid {
	return &stubSolid{bb: bounds}
}

func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Transform(s Solid, m sdf.M44) Solid {
	return &stubSolid{bb: m.MulBox(s.BoundingBox())}
}

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBrushBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	bounds := sdf.Box3{Max: v3.Vec{X: 10, Y: 20, Z: 30}}
	s := k.Brush(nil, bounds)
	if got := s.BoundingBox(); got != bounds {
		t.Errorf("BoundingBox() = %v, want %v", got, bounds)
	}
	moved := k.Transform(s, sdf.Translate3d(v3.Vec{X: 1}))
	if got := moved.BoundingBox().Min.X; got != 1 {
		t.Errorf("translated Min.X = %v, want 1", got)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Brush(nil, sdf.Box3{Max: v3.Vec{X: 1, Y: 1, Z: 1}})
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}
