package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/csg"
	"github.com/chazu/chisel/pkg/generator"
)

// Options configures Build.
type Options struct {
	Workers  int             // parallel generation limit, GOMAXPROCS when <= 0
	Registry *brush.Registry // blob arena, a new one when nil
	Logger   *zap.Logger
}

// Result is a built scene.
type Result struct {
	Tree     *csg.Tree
	Registry *brush.Registry
	// Nodes maps document nodes to tree nodes. Passthrough nodes have no
	// tree node of their own and are absent.
	Nodes map[NodeID]csg.NodeID
	// Warnings holds validation warnings, the clamping notes of shapes
	// and one entry per shape that failed to generate.
	Warnings []ValidationError
	Brushes  int
}

// ErrInvalidDocument wraps the validation errors that stopped a build.
var ErrInvalidDocument = errors.New("invalid scene document")

// Build validates d, generates every shape in parallel and assembles the
// CSG tree. The tree root carries user id 0; every other tree node carries
// the 1-based position of its document node in depth-first order.
//
// Passthrough nodes are spliced: their children attach to the nearest
// non-passthrough ancestor. Brushes with a composite shape become a branch
// holding the generated sub-tree. A shape that fails to generate leaves an
// empty brush (or branch) and a warning, so the rest of the scene still
// builds.
func Build(ctx context.Context, d *Document, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	findings := Validate(d)
	var warnings []ValidationError
	var errs []error
	for _, f := range findings {
		if f.Severity == SeverityError {
			errs = append(errs, f)
		} else {
			warnings = append(warnings, f)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
	}

	// Collect the shapes in walk order.
	var order []*Node
	var defs []generator.Definition
	defIndex := make(map[NodeID]int)
	var shapeErrs []ValidationError
	d.Walk(func(n *Node, _ int) bool {
		order = append(order, n)
		if n.Kind != KindBrush {
			return true
		}
		def, err := n.Shape.Definition(n.Surfaces)
		if err != nil {
			shapeErrs = append(shapeErrs, ValidationError{NodeID: n.ID, Message: err.Error(), Severity: SeverityWarning})
			return true
		}
		defIndex[n.ID] = len(defs)
		defs = append(defs, def)
		return true
	})

	results, err := generator.GenerateBatch(ctx, defs, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("generate shapes: %w", err)
	}

	reg := opts.Registry
	if reg == nil {
		reg = brush.NewRegistry()
	}
	b := &builder{
		tree:    csg.NewTree(0, csg.WithLogger(log), csg.WithRegistry(reg)),
		reg:     reg,
		doc:     d,
		defs:    defs,
		results: results,
		index:   defIndex,
		userIDs: make(map[NodeID]int, len(order)),
		res: &Result{
			Registry: reg,
			Nodes:    make(map[NodeID]csg.NodeID, len(order)),
			Warnings: append(warnings, shapeErrs...),
		},
		log: log,
	}
	for i, n := range order {
		b.userIDs[n.ID] = i + 1
	}
	b.res.Tree = b.tree

	for _, r := range d.Roots {
		if err := b.attach(b.tree.Root(), r); err != nil {
			return nil, err
		}
	}
	log.Debug("scene built",
		zap.Int("nodes", b.tree.Len()),
		zap.Int("brushes", b.res.Brushes),
		zap.Int("warnings", len(b.res.Warnings)),
	)
	return b.res, nil
}

type builder struct {
	tree    *csg.Tree
	reg     *brush.Registry
	doc     *Document
	defs    []generator.Definition
	results []generator.ValidationResult
	index   map[NodeID]int
	userIDs map[NodeID]int
	res     *Result
	log     *zap.Logger
}

func (b *builder) warn(n *Node, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.res.Warnings = append(b.res.Warnings, ValidationError{NodeID: n.ID, Message: msg, Severity: SeverityWarning})
	b.log.Warn("shape skipped", zap.String("node", n.Label()), zap.String("reason", msg))
}

// notes records the clamping messages of a shape that validated.
func (b *builder) notes(n *Node, res generator.ValidationResult) {
	for _, m := range res.Messages {
		b.res.Warnings = append(b.res.Warnings, ValidationError{NodeID: n.ID, Message: m.Text, Severity: SeverityWarning})
		b.log.Debug("shape clamped", zap.String("node", n.Label()), zap.String("note", m.Text))
	}
}

// attach adds the subtree of id below parent.
func (b *builder) attach(parent csg.NodeID, id NodeID) error {
	n := b.doc.Nodes[id]
	uid := b.userIDs[id]

	switch n.Kind {
	case KindPassthrough:
		for _, c := range n.Children {
			if err := b.attach(parent, c); err != nil {
				return err
			}
		}
		return nil

	case KindBranch:
		tid, err := b.branch(parent, uid, n.Operation, n.Transform.Matrix())
		if err != nil {
			return fmt.Errorf("branch %q: %w", n.Label(), err)
		}
		b.res.Nodes[id] = tid
		for _, c := range n.Children {
			if err := b.attach(tid, c); err != nil {
				return err
			}
		}
		return nil
	}

	i, ok := b.index[id]
	if !ok {
		// Shape could not be turned into a definition; already warned.
		return b.emptyBrush(parent, n, uid)
	}
	res := b.results[i]
	switch def := b.defs[i].(type) {
	case *generator.BrushDefinition:
		if !res.Valid {
			b.warn(n, "%s", res.Warning())
			return b.emptyBrush(parent, n, uid)
		}
		b.notes(n, res)
		blob := b.reg.Register(brush.NewBlob(def.Mesh()))
		tid, err := b.tree.CreateBrush(uid, n.Operation, n.Transform.Matrix(), blob)
		if err != nil {
			return fmt.Errorf("brush %q: %w", n.Label(), err)
		}
		if err := b.tree.AddChild(parent, tid); err != nil {
			return fmt.Errorf("brush %q: %w", n.Label(), err)
		}
		b.res.Nodes[id] = tid
		b.res.Brushes++
		return nil

	case *generator.BranchDefinition:
		tid, err := b.branch(parent, uid, n.Operation, n.Transform.Matrix())
		if err != nil {
			return fmt.Errorf("shape %q: %w", n.Label(), err)
		}
		b.res.Nodes[id] = tid
		if !res.Valid {
			b.warn(n, "%s", res.Warning())
			return nil
		}
		b.notes(n, res)
		return b.expand(tid, uid, def.Nodes())
	}
	return fmt.Errorf("node %q: unexpected definition %T", n.Label(), b.defs[i])
}

func (b *builder) branch(parent csg.NodeID, uid int, op csg.Operation, m sdf.M44) (csg.NodeID, error) {
	tid, err := b.tree.CreateBranch(uid, op)
	if err != nil {
		return csg.InvalidNodeID, err
	}
	if err := b.tree.SetLocalTransform(tid, m); err != nil {
		return csg.InvalidNodeID, err
	}
	if err := b.tree.AddChild(parent, tid); err != nil {
		return csg.InvalidNodeID, err
	}
	return tid, nil
}

// emptyBrush keeps the node in the tree without geometry so the rest of
// the hierarchy keeps its shape.
func (b *builder) emptyBrush(parent csg.NodeID, n *Node, uid int) error {
	tid, err := b.tree.CreateBrush(uid, n.Operation, n.Transform.Matrix(), brush.InvalidBlobID)
	if err != nil {
		return fmt.Errorf("brush %q: %w", n.Label(), err)
	}
	if err := b.tree.AddChild(parent, tid); err != nil {
		return fmt.Errorf("brush %q: %w", n.Label(), err)
	}
	b.res.Nodes[n.ID] = tid
	return nil
}

// expand creates the nodes produced by a branch generator below owner.
// ParentIndex -1 refers to owner; other indices refer to earlier entries.
func (b *builder) expand(owner csg.NodeID, uid int, nodes []generator.GeneratedNode) error {
	ids := make([]csg.NodeID, len(nodes))
	for i, g := range nodes {
		parent := owner
		if g.ParentIndex >= 0 {
			parent = ids[g.ParentIndex]
		}
		if !g.IsBrush() {
			tid, err := b.branch(parent, uid, g.Operation, g.Transformation)
			if err != nil {
				return fmt.Errorf("%s: %w", g.Name, err)
			}
			ids[i] = tid
			continue
		}
		blob := b.reg.Register(brush.NewBlob(g.BrushMesh))
		tid, err := b.tree.CreateBrush(uid, g.Operation, g.Transformation, blob)
		if err != nil {
			return fmt.Errorf("%s: %w", g.Name, err)
		}
		if err := b.tree.AddChild(parent, tid); err != nil {
			return fmt.Errorf("%s: %w", g.Name, err)
		}
		ids[i] = tid
		b.res.Brushes++
	}
	return nil
}
