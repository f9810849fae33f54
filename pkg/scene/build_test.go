package scene

import (
	"context"
	"errors"
	"strings"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/csg"
	"github.com/chazu/chisel/pkg/generator"
)

func mustBuild(t *testing.T, d *Document) *Result {
	t.Helper()
	res, err := Build(context.Background(), d, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return res
}

func children(t *testing.T, tree *csg.Tree, id csg.NodeID) []csg.NodeID {
	t.Helper()
	c, err := tree.Children(id)
	if err != nil {
		t.Fatalf("Children(%s): %v", id, err)
	}
	return c
}

func TestBuildSplicesPassthrough(t *testing.T) {
	d := buildValidScene(t)
	res := mustBuild(t, d)
	tree := res.Tree

	if res.Brushes != 2 {
		t.Errorf("brushes = %d, want 2", res.Brushes)
	}
	if res.Registry.Len() != 2 {
		t.Errorf("registry holds %d blobs, want 2", res.Registry.Len())
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}

	top := children(t, tree, tree.Root())
	room := res.Nodes[d.MustLookup("room").ID]
	if len(top) != 1 || top[0] != room {
		t.Fatalf("root children = %v, want [%s]", top, room)
	}
	if _, ok := res.Nodes[d.MustLookup("openings").ID]; ok {
		t.Error("passthrough should have no tree node")
	}

	wall := res.Nodes[d.MustLookup("wall").ID]
	door := res.Nodes[d.MustLookup("door").ID]
	got := children(t, tree, room)
	if len(got) != 2 || got[0] != wall || got[1] != door {
		t.Fatalf("room children = %v, want [%s %s]", got, wall, door)
	}
	if op, _ := tree.Operation(door); op != csg.Subtractive {
		t.Errorf("door operation = %s", op)
	}
	if uid, _ := tree.UserID(wall); uid != 2 {
		t.Errorf("wall user id = %d, want 2", uid)
	}

	blobID, err := tree.BrushMesh(wall)
	if err != nil {
		t.Fatal(err)
	}
	blob, err := res.Registry.Get(blobID)
	if err != nil {
		t.Fatal(err)
	}
	m := blob.Mesh()
	if len(m.Vertices) != 8 || len(m.Polygons) != 6 || len(m.HalfEdges) != 24 {
		t.Errorf("wall mesh = %d/%d/%d", len(m.Vertices), len(m.Polygons), len(m.HalfEdges))
	}
}

func TestBuildAppliesTransforms(t *testing.T) {
	d, err := Parse([]byte(sampleScene))
	if err != nil {
		t.Fatal(err)
	}
	d.MustLookup("room").Transform.Translation = v3.Vec{Y: 10}
	res := mustBuild(t, d)

	pillar := res.Nodes[d.MustLookup("pillar").ID]
	m, err := res.Tree.NodeToTreeSpace(pillar)
	if err != nil {
		t.Fatal(err)
	}
	got := m.MulPosition(v3.Vec{})
	want := v3.Vec{X: 1, Y: 10, Z: 1}
	if got.Sub(want).Length() > 1e-9 {
		t.Errorf("pillar origin in tree space = %v, want %v", got, want)
	}
}

func TestBuildExpandsBranchShapes(t *testing.T) {
	d := New()
	stairs := mustShape(t, ShapePathedStairs)
	p := stairs.Params.(*generator.PathedStairs)
	p.Path = []v2.Vec{{X: 0, Y: 0}, {X: 0, Y: 3}, {X: 3, Y: 3}}
	p.StepsPerSegment = 3

	id := NewNodeID("/stairs")
	d.AddNode(&Node{ID: id, Kind: KindBrush, Name: "stairs", Shape: stairs})
	d.AddRoot(id)

	res := mustBuild(t, d)
	if res.Brushes != 6 {
		t.Errorf("brushes = %d, want 6", res.Brushes)
	}
	owner := res.Nodes[id]
	if typ, _ := res.Tree.Type(owner); typ != csg.TypeBranch {
		t.Fatalf("composite shape should become a branch, got %s", typ)
	}
	segments := children(t, res.Tree, owner)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	for _, s := range segments {
		if n := len(children(t, res.Tree, s)); n != 3 {
			t.Errorf("segment %s has %d steps, want 3", s, n)
		}
	}
	// Root, owner, 2 segments and 6 steps.
	if res.Tree.Len() != 10 {
		t.Errorf("tree size = %d, want 10", res.Tree.Len())
	}
}

func TestBuildInvalidShapeLeavesEmptyBrush(t *testing.T) {
	d := buildValidScene(t)
	bad := mustShape(t, ShapeExtrude)
	bad.Params.(*generator.ExtrudedShape).Outline = []v2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}}
	id := NewNodeID("/room/sliver")
	d.AddNode(&Node{ID: id, Kind: KindBrush, Name: "sliver", Shape: bad})
	room := d.MustLookup("room")
	room.Children = append(room.Children, id)

	res := mustBuild(t, d)
	if res.Brushes != 2 {
		t.Errorf("brushes = %d, want 2", res.Brushes)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].NodeID != id {
		t.Fatalf("warnings = %v, want one for sliver", res.Warnings)
	}
	tid, ok := res.Nodes[id]
	if !ok {
		t.Fatal("invalid shape should keep its tree node")
	}
	if got := children(t, res.Tree, res.Nodes[room.ID]); len(got) != 3 || got[2] != tid {
		t.Errorf("room children = %v", got)
	}
}

func TestBuildClampedShapeWarns(t *testing.T) {
	d := New()
	id := NewNodeID("/speck")
	s := mustShape(t, ShapeSphere)
	s.Params.(*generator.Sphere).DiameterX = 0.001
	d.AddNode(&Node{ID: id, Kind: KindBrush, Name: "speck", Shape: s})
	d.AddRoot(id)

	res := mustBuild(t, d)
	blob, err := res.Tree.BrushMesh(res.Nodes[id])
	if err != nil {
		t.Fatal(err)
	}
	if blob == brush.InvalidBlobID {
		t.Fatal("clamped shape should still produce a mesh")
	}
	if res.Brushes != 1 {
		t.Errorf("brushes = %d, want 1", res.Brushes)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0].Message, "diameter x") {
		t.Fatalf("warnings = %v, want the diameter clamp first", res.Warnings)
	}
	for _, w := range res.Warnings {
		if w.NodeID != id || w.Severity != SeverityWarning {
			t.Errorf("unexpected finding %v", w)
		}
	}
}

func TestBuildRejectsInvalidDocument(t *testing.T) {
	d := buildValidScene(t)
	d.MustLookup("wall").Children = []NodeID{NewNodeID("nowhere")}

	_, err := Build(context.Background(), d, Options{})
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("error should carry the findings: %v", err)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, buildValidScene(t), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBuiltTreeOwnsBlobs(t *testing.T) {
	d := buildValidScene(t)
	res := mustBuild(t, d)

	wall := res.Nodes[d.MustLookup("wall").ID]
	blob, err := res.Tree.BrushMesh(wall)
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Tree.Destroy(wall); err != nil {
		t.Fatal(err)
	}
	if res.Registry.Len() != 1 {
		t.Errorf("registry holds %d blobs, want 1", res.Registry.Len())
	}
	if _, err := res.Registry.Get(blob); !errors.Is(err, brush.ErrUnknownBlob) {
		t.Errorf("destroyed brush blob still resolves: %v", err)
	}
}
