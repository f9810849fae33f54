package generator

import (
	"context"
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/geom"
)

// checkMesh asserts the properties every generated mesh must have.
func checkMesh(t *testing.T, m *brush.Mesh) {
	t.Helper()
	require.False(t, m.IsEmpty())
	require.NoError(t, m.ValidateData())
	require.NoError(t, m.ValidateShape())
	assert.False(t, m.IsInsideOut())

	for h, e := range m.HalfEdges {
		require.Equal(t, int32(h), m.HalfEdges[e.TwinIndex].TwinIndex, "twin(twin(%d))", h)
	}

	for pi, pl := range m.LocalPlanes {
		own := map[int32]bool{}
		p := m.Polygons[pi]
		for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
			own[m.HalfEdges[e].VertexIndex] = true
		}
		for vi, v := range m.Vertices {
			d := pl.Distance(v)
			if own[int32(vi)] {
				assert.LessOrEqual(t, math.Abs(d), geom.PlaneDAlignEpsilon, "vertex %d off its polygon %d", vi, pi)
			} else {
				assert.LessOrEqual(t, d, geom.PlaneDAlignEpsilon, "vertex %d in front of polygon %d", vi, pi)
			}
		}
	}

	for _, v := range m.Vertices {
		assert.True(t, geom.BoundsContain(m.LocalBounds, v), "bounds do not contain %v", v)
	}
}

func brushGenerators() map[string]BrushGenerator {
	cone := NewCylinder()
	cone.TopScale = 0
	frustum := NewCylinder()
	frustum.TopScale = 0.5
	frustum.DiameterZ = 2
	flatCapsule := NewCapsule()
	flatCapsule.TopHeight = 0
	flatCapsule.BottomHeight = 0
	roundCapsule := NewCapsule()
	roundCapsule.Height = 1
	oneSided := NewCapsule()
	oneSided.BottomHeight = 0
	oneSided.TopSegments = 1

	return map[string]BrushGenerator{
		"box":           NewBox(),
		"cylinder":      NewCylinder(),
		"cone":          cone,
		"frustum":       frustum,
		"capsule":       NewCapsule(),
		"flat capsule":  flatCapsule,
		"round capsule": roundCapsule,
		"one-sided":     oneSided,
		"sphere":        NewSphere(),
	}
}

func branchGenerators() map[string]BranchGenerator {
	return map[string]BranchGenerator{
		"torus":         NewTorus(),
		"linear stairs": NewLinearStairs(),
		"pathed stairs": NewPathedStairs(),
		"extrude":       NewExtrudedShape(),
		"revolve":       NewRevolvedShape(),
	}
}

func TestUnitBox(t *testing.T) {
	d := NewBrushDefinition(NewBox())
	res := d.Validate()
	require.True(t, res.Valid, res.Warning())

	m := d.Mesh()
	assert.Len(t, m.Vertices, 8)
	assert.Len(t, m.Polygons, 6)
	assert.Len(t, m.HalfEdges, 24)
	for _, p := range m.Polygons {
		assert.EqualValues(t, 4, p.EdgeCount)
	}
	for _, pl := range m.LocalPlanes {
		n := pl.Normal
		axes := math.Abs(n.X) + math.Abs(n.Y) + math.Abs(n.Z)
		assert.InDelta(t, 1, axes, 1e-9, "plane %v is not axis aligned", n)
		assert.InDelta(t, 0.5, math.Abs(pl.Offset), 1e-9)
	}
	checkMesh(t, m)

	top := m.LocalPlanes[BoxTop]
	assert.InDelta(t, 1, top.Normal.Y, 1e-9)
	assert.EqualValues(t, BoxTop, m.Polygons[BoxTop].SurfaceID)
}

func TestBrushGenerators(t *testing.T) {
	for name, g := range brushGenerators() {
		t.Run(name, func(t *testing.T) {
			d := NewBrushDefinition(g)
			res := d.Validate()
			require.True(t, res.Valid, res.Warning())
			assert.False(t, res.Changed, "defaults should not need clamping")
			checkMesh(t, d.Mesh())
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	for name, g := range brushGenerators() {
		t.Run(name, func(t *testing.T) {
			d := NewBrushDefinition(g)
			require.True(t, d.Validate().Valid)
			first := d.Mesh().Clone()

			res := d.Validate()
			require.True(t, res.Valid)
			assert.False(t, res.Changed)
			assert.Equal(t, first, d.Mesh())
		})
	}
}

func TestBranchGenerators(t *testing.T) {
	for name, g := range branchGenerators() {
		t.Run(name, func(t *testing.T) {
			d := NewBranchDefinition(g)
			res := d.Validate()
			require.True(t, res.Valid, res.Warning())

			nodes := d.Nodes()
			require.NotEmpty(t, nodes)
			for i, n := range nodes {
				assert.Less(t, n.ParentIndex, i)
				if n.IsBrush() {
					checkMesh(t, n.BrushMesh)
				}
			}
		})
	}
}

func TestBranchDisposeWithoutGenerate(t *testing.T) {
	for name, g := range branchGenerators() {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				g.Dispose()
				g.Dispose()
			})
		})
	}
}

func TestPathedStairsCount(t *testing.T) {
	tests := []struct {
		name     string
		path     []v2.Vec
		closed   bool
		steps    int
		segments int
	}{
		{"straight", []v2.Vec{{X: 0, Y: 0}, {X: 0, Y: 3}}, false, 5, 1},
		{"corner", []v2.Vec{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}}, false, 4, 2},
		{"closed", []v2.Vec{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}, true, 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewPathedStairs()
			g.Path = tt.path
			g.Closed = tt.closed
			g.StepsPerSegment = tt.steps
			require.False(t, g.Validate())

			want := tt.segments * tt.steps
			assert.Equal(t, want, g.PrepareAndCountRequiredBrushMeshes())

			nodes, ok := g.GenerateNodes(&SurfaceDefinition{}, nil)
			require.True(t, ok)
			assert.Equal(t, want, CountBrushes(nodes))
			assert.Len(t, nodes, want+tt.segments)
			for i, n := range nodes {
				if n.IsBrush() {
					require.GreaterOrEqual(t, n.ParentIndex, 0)
					assert.False(t, nodes[n.ParentIndex].IsBrush(), "step %d parent is a brush", i)
				}
			}
			g.Dispose()
		})
	}
}

func TestPathedStairsZeroLength(t *testing.T) {
	g := NewPathedStairs()
	g.Path = []v2.Vec{{X: 1, Y: 1}, {X: 1, Y: 1}}
	g.Validate()
	g.PrepareAndCountRequiredBrushMeshes()
	_, ok := g.GenerateNodes(&SurfaceDefinition{}, nil)
	assert.False(t, ok)

	d := NewBranchDefinition(g)
	res := d.Validate()
	assert.False(t, res.Valid)
	assert.Error(t, res.Err)
	assert.Nil(t, d.Nodes(), "failed generation must leave no output")

	g.Path = nil
	assert.Equal(t, 0, g.PrepareAndCountRequiredBrushMeshes())
	_, ok = g.GenerateNodes(&SurfaceDefinition{}, nil)
	assert.False(t, ok)
}

func TestClampingReportsMessages(t *testing.T) {
	c := NewCylinder()
	c.DiameterX = -2
	c.DiameterZ = -0.5
	c.Sides = 1

	d := NewBrushDefinition(c)
	res := d.Validate()
	require.True(t, res.Valid, res.Warning())
	assert.True(t, res.Changed)
	assert.Equal(t, 2.0, c.DiameterX)
	assert.Equal(t, 0.5, c.DiameterZ)
	assert.Equal(t, 3, c.Sides)
	assert.Len(t, res.Messages, 3)

	var got []Message
	c.GetMessages(func(m Message) { got = append(got, m) })
	assert.Equal(t, res.Messages, got)

	// Clamped values are stable.
	assert.False(t, c.Validate())
}

func TestBoxReversedBounds(t *testing.T) {
	b := &Box{Min: v3.Vec{X: 1, Y: 1, Z: 1}, Max: v3.Vec{X: -1, Y: 2, Z: 1}}
	d := NewBrushDefinition(b)
	res := d.Validate()
	require.True(t, res.Valid, res.Warning())
	assert.True(t, res.Changed)
	assert.Equal(t, v3.Vec{X: -1, Y: 1, Z: 1}, b.Min)
	assert.InDelta(t, 1+geom.MinSize, b.Max.Z, 1e-12)
	checkMesh(t, d.Mesh())
}

func TestCapsuleCapsScaledToHeight(t *testing.T) {
	c := NewCapsule()
	c.Height = 1
	c.TopHeight = 1
	c.BottomHeight = 1
	assert.True(t, c.Validate())
	assert.InDelta(t, 1, c.TopHeight+c.BottomHeight, 1e-12)
	assert.False(t, c.Validate())
}

func TestExtrudeConcaveOutline(t *testing.T) {
	e := NewExtrudedShape()
	e.Outline = []v2.Vec{
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1},
		{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2},
	}
	d := NewBranchDefinition(e)
	res := d.Validate()
	require.True(t, res.Valid, res.Warning())

	var area float64
	for _, n := range d.Nodes() {
		checkMesh(t, n.BrushMesh)
		area += n.BrushMesh.SignedVolume() / e.Height
	}
	assert.InDelta(t, 3, area, 1e-3, "pieces should cover the L shape exactly")
	assert.Greater(t, len(d.Nodes()), 1)
}

func TestExtrudeConvexOutlineIsOneBrush(t *testing.T) {
	e := NewExtrudedShape()
	e.Outline = []v2.Vec{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}} // clockwise
	assert.Equal(t, 1, e.PrepareAndCountRequiredBrushMeshes())
	nodes, ok := e.GenerateNodes(&SurfaceDefinition{}, nil)
	require.True(t, ok)
	require.Len(t, nodes, 1)
	assert.Len(t, nodes[0].BrushMesh.Polygons, 6)
}

func TestRevolveAndTorusCounts(t *testing.T) {
	r := NewRevolvedShape()
	r.Degrees = 270
	r.Segments = 2
	assert.True(t, r.Validate(), "270 degrees needs at least 3 segments")
	assert.Equal(t, 3, r.Segments)
	assert.Equal(t, 3, r.PrepareAndCountRequiredBrushMeshes())

	tr := NewTorus()
	tr.HorizontalSegments = 9
	tr.Validate()
	assert.Equal(t, 9, tr.PrepareAndCountRequiredBrushMeshes())
}

func TestTorusDiameterClamp(t *testing.T) {
	tr := NewTorus()
	tr.InnerDiameter = 2
	tr.OuterDiameter = 1
	assert.True(t, tr.Validate())
	assert.Greater(t, tr.OuterDiameter, tr.InnerDiameter)

	tr = NewTorus()
	tr.InnerDiameter = 0.2
	tr.OuterDiameter = -1
	assert.True(t, tr.Validate())
	assert.Equal(t, 1.0, tr.OuterDiameter)

	d := NewBranchDefinition(tr)
	res := d.Validate()
	require.True(t, res.Valid, res.Warning())
	assert.Len(t, d.Nodes(), tr.HorizontalSegments)
}

func TestSurfaceAssignment(t *testing.T) {
	d := NewBrushDefinition(NewCylinder())
	d.Surfaces.Surfaces = []Surface{{LayerID: 7}, {LayerID: 8}, {LayerID: 9}}
	require.True(t, d.Validate().Valid)

	seen := map[int32]int32{}
	for _, p := range d.Mesh().Polygons {
		seen[p.SurfaceID] = p.LayerID
	}
	assert.Equal(t, map[int32]int32{SurfaceTop: 7, SurfaceBottom: 8, SurfaceSides: 9}, seen)
}

func TestResetInvalidates(t *testing.T) {
	d := NewBrushDefinition(NewSphere())
	require.True(t, d.Validate().Valid)
	d.Reset()
	assert.False(t, d.IsValid())
	assert.Nil(t, d.Mesh())

	var empty BrushDefinition
	res := empty.Validate()
	assert.False(t, res.Valid)
	assert.Error(t, res.Err)
}

func TestGenerateBatch(t *testing.T) {
	defs := []Definition{
		NewBrushDefinition(NewBox()),
		NewBrushDefinition(NewSphere()),
		NewBranchDefinition(NewTorus()),
		NewBranchDefinition(&PathedStairs{Path: []v2.Vec{{}, {}}, StepsPerSegment: 2, StepHeight: 1, Width: 1}),
	}
	results, err := GenerateBatch(context.Background(), defs, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.True(t, results[0].Valid)
	assert.True(t, results[1].Valid)
	assert.True(t, results[2].Valid)
	assert.False(t, results[3].Valid)
	for _, d := range defs[:3] {
		assert.True(t, d.IsValid())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = GenerateBatch(ctx, defs, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

type clampCase struct {
	name  string
	g     BrushGenerator
	check func(t *testing.T)
}

func TestClampedBrushExtremesGenerate(t *testing.T) {
	var tests []clampCase
	add := func(name string, g BrushGenerator, check func(t *testing.T)) {
		tests = append(tests, clampCase{name, g, check})
	}

	thin := NewCylinder()
	thin.DiameterX, thin.DiameterZ = 0.001, 0.001
	add("cylinder clamped diameter", thin, func(t *testing.T) {
		assert.Equal(t, minRoundDiameter, thin.DiameterX)
		assert.GreaterOrEqual(t, thin.Sides, 3)
	})

	fine := NewCylinder()
	fine.DiameterX, fine.DiameterZ = 0.5, 0.5
	fine.Sides = 128
	add("cylinder too many sides", fine, func(t *testing.T) {
		assert.Less(t, fine.Sides, 128)
		assert.LessOrEqual(t, chordRadius(fine.Sides), 0.25)
	})

	pinched := NewCylinder()
	pinched.TopScale = 0.001
	add("cylinder collapsed top", pinched, func(t *testing.T) {
		assert.Equal(t, 0.0, pinched.TopScale)
	})

	capped := NewCapsule()
	capped.TopSegments, capped.BottomSegments = 32, 32
	add("capsule fine caps", capped, nil)

	speck := NewCapsule()
	speck.DiameterX, speck.DiameterZ, speck.Height = 0.001, 0.001, 0.001
	speck.TopHeight, speck.BottomHeight = 0.001, 0.001
	speck.Sides, speck.TopSegments, speck.BottomSegments = 128, 32, 32
	add("capsule speck", speck, func(t *testing.T) {
		assert.Equal(t, 0.0, speck.TopHeight)
		assert.Equal(t, 0.0, speck.BottomHeight)
	})

	lopsided := NewCapsule()
	lopsided.Height = 0.03
	lopsided.TopHeight, lopsided.BottomHeight = 10, 0.03
	lopsided.TopSegments = 32
	add("capsule scaled caps", lopsided, func(t *testing.T) {
		assert.Equal(t, 0.0, lopsided.BottomHeight)
		assert.Less(t, lopsided.TopSegments, 32)
	})

	dust := NewSphere()
	dust.DiameterX, dust.DiameterY, dust.DiameterZ = 0.001, 0.001, 0.001
	dust.HorizontalSegments, dust.VerticalSegments = 128, 64
	add("sphere speck", dust, func(t *testing.T) {
		assert.Equal(t, 2, dust.VerticalSegments)
	})

	disc := NewSphere()
	disc.DiameterY = 0.001
	add("sphere flattened", disc, func(t *testing.T) {
		assert.Equal(t, 2, disc.VerticalSegments)
		assert.Equal(t, 12, disc.HorizontalSegments)
	})

	flat := &Box{Max: v3.Vec{X: 1}}
	add("box without volume", flat, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewBrushDefinition(tt.g)
			res := d.Validate()
			require.True(t, res.Valid, res.Warning())
			assert.True(t, res.Changed)
			assert.NotEmpty(t, res.Messages)
			checkMesh(t, d.Mesh())
			if tt.check != nil {
				tt.check(t)
			}
			assert.False(t, tt.g.Validate(), "clamped values should be stable")
		})
	}
}

func TestClampedBranchExtremesGenerate(t *testing.T) {
	steep := NewLinearStairs()
	steep.Min = v3.Vec{X: -0.5, Y: 0, Z: -0.05}
	steep.Max = v3.Vec{X: 0.5, Y: 10, Z: 0.06}
	steep.StepHeight = 0.0001

	ring := NewTorus()
	ring.InnerDiameter, ring.OuterDiameter = 0.001, 0.001
	ring.TubeSegments, ring.HorizontalSegments = 128, 128

	sliver := NewRevolvedShape()
	sliver.Profile = []v2.Vec{{X: 0, Y: 0}, {X: 0.3, Y: 0}, {X: 0.3, Y: 1}, {X: 0, Y: 1}}
	sliver.Degrees = 1
	sliver.Segments = 128

	short := NewPathedStairs()
	short.Path = []v2.Vec{{X: 0, Y: 0}, {X: 0, Y: 0.06}, {X: 0, Y: 0.06}, {X: 2, Y: 0.06}}
	short.StepsPerSegment = 128

	stutter := NewExtrudedShape()
	stutter.Outline = []v2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0.001}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}}

	tests := []struct {
		name  string
		g     BranchGenerator
		count int // brushes expected, 0 to skip the check
	}{
		{"linear stairs tiny steps", steep, 4},
		{"torus speck", ring, 0},
		{"revolve near the axis", sliver, 1},
		{"pathed stairs short segment", short, 4},
		{"extrude repeated points", stutter, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewBranchDefinition(tt.g)
			res := d.Validate()
			require.True(t, res.Valid, res.Warning())
			assert.True(t, res.Changed)
			if tt.count > 0 {
				assert.Equal(t, tt.count, CountBrushes(d.Nodes()))
			}
			for _, n := range d.Nodes() {
				if n.IsBrush() {
					checkMesh(t, n.BrushMesh)
				}
			}
			assert.False(t, tt.g.Validate(), "clamped values should be stable")
		})
	}
}

func TestRevolveSweepWidenedNearAxis(t *testing.T) {
	r := NewRevolvedShape()
	r.Profile = []v2.Vec{{X: 0, Y: 0}, {X: 0.3, Y: 0}, {X: 0.3, Y: 1}, {X: 0, Y: 1}}
	r.Degrees = 1
	r.Segments = 128
	require.True(t, r.Validate())
	assert.Greater(t, r.Degrees, 1.0)
	assert.Equal(t, 1, r.Segments)
	assert.Equal(t, minRoundDiameter, r.Profile[0].X)
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		name    string
		outline []v2.Vec
		area    float64
		pieces  int // 0 to skip the count
		wantErr bool
	}{
		{"convex", []v2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 0, Y: 1}}, 2, 1, false},
		{"l shape", []v2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}, 3, 4, false},
		{"u shape clockwise", []v2.Vec{
			{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 1},
			{X: 2, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 0},
		}, 5, 0, false},
		{"collinear run", []v2.Vec{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1},
			{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2},
		}, 3, 0, false},
		{"bow tie", []v2.Vec{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2}}, 0, 0, true},
		{"flat", []v2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}, 0, 0, true},
		{"too short", []v2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pieces, err := decompose(tt.outline)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.pieces > 0 {
				assert.Len(t, pieces, tt.pieces)
			}
			var area float64
			for _, p := range pieces {
				assert.True(t, isConvex2(p), "piece %v is not convex", p)
				assert.Greater(t, signedArea2(p), 0.0, "piece %v is not counter-clockwise", p)
				area += signedArea2(p)
			}
			assert.InDelta(t, tt.area, area, 1e-9)
		})
	}
}

func TestSweepWedgesAreTurnedCopies(t *testing.T) {
	r := NewRevolvedShape()
	r.Segments = 5
	r.StartAngle = 30
	require.False(t, r.Validate())
	require.Equal(t, 5, r.PrepareAndCountRequiredBrushMeshes())
	nodes, ok := r.GenerateNodes(&SurfaceDefinition{}, nil)
	require.True(t, ok)
	require.Len(t, nodes, 5)

	start := r.StartAngle * math.Pi / 180
	step := r.Degrees * math.Pi / 180 / float64(r.Segments)
	for k, n := range nodes {
		direct, err := wedge(r.pieces[0], start+float64(k)*step, start+float64(k+1)*step, &SurfaceDefinition{}, RevolveStart, RevolveEnd, RevolveSides)
		require.NoError(t, err)
		require.Len(t, n.BrushMesh.Vertices, len(direct.Vertices))
		for i, v := range n.BrushMesh.Vertices {
			assert.InDelta(t, 0, v.Sub(direct.Vertices[i]).Length(), 1e-9, "wedge %d vertex %d", k, i)
		}
		assert.InDelta(t, nodes[0].BrushMesh.SignedVolume(), n.BrushMesh.SignedVolume(), 1e-9)
	}
}
