// Package tessellate evaluates a frozen CSG tree into triangle meshes
// using a geometry kernel. One mesh is produced per child of the tree
// root.
package tessellate

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/csg"
	"github.com/chazu/chisel/pkg/kernel"
)

// Options configures Tessellate.
type Options struct {
	// Workers bounds the number of root children meshed concurrently.
	// Zero means GOMAXPROCS.
	Workers int
	// Name labels the mesh produced for a root child. Defaults to
	// "node <user id>".
	Name   func(n csg.SnapshotNode) string
	Logger *zap.Logger
}

func defaultName(n csg.SnapshotNode) string {
	return fmt.Sprintf("node %d", n.UserID)
}

// evaluator folds a snapshot into solids. It only reads the snapshot and
// the registry, so root children can be evaluated in parallel.
type evaluator struct {
	snap *csg.Snapshot
	reg  *brush.Registry
	k    kernel.Kernel
	log  *zap.Logger
}

// Tessellate evaluates every child of the snapshot root and returns one
// mesh per child that produced geometry, in child order. Siblings are
// combined left to right: additive nodes union into the accumulated
// solid, subtractive nodes are removed from it and intersecting nodes
// clip it. Brushes whose blob cannot be resolved or is empty are skipped.
// The tessellator never mutates the tree; callers complete the
// evaluation on the tree once the meshes are consumed.
func Tessellate(ctx context.Context, snap *csg.Snapshot, reg *brush.Registry, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if snap == nil {
		return nil, nil
	}
	if reg == nil || k == nil {
		return nil, errors.New("tessellate: registry and kernel are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Name == nil {
		opts.Name = defaultName
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	e := &evaluator{snap: snap, reg: reg, k: k, log: opts.Logger}

	root, ok := snap.Node(snap.Root())
	if !ok {
		return nil, fmt.Errorf("tessellate: snapshot has no root")
	}
	meshes := make([]*kernel.Mesh, len(root.Children))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, id := range root.Children {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, _ := snap.Node(id)
			s := e.solid(n)
			if s == nil {
				return nil
			}
			m, err := k.ToMesh(s)
			if err != nil {
				return fmt.Errorf("tessellate: ToMesh failed for %s: %w", opts.Name(n), err)
			}
			if m.IsEmpty() {
				return nil
			}
			m.Name = opts.Name(n)
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := meshes[:0]
	for _, m := range meshes {
		if m != nil {
			out = append(out, m)
		}
	}
	e.log.Debug("tessellated",
		zap.Uint64("generation", snap.Generation()),
		zap.Int("roots", len(root.Children)),
		zap.Int("meshes", len(out)))
	return out, nil
}

// solid returns the solid of n in tree space, or nil when n is empty.
func (e *evaluator) solid(n csg.SnapshotNode) kernel.Solid {
	switch n.Type {
	case csg.TypeBrush:
		return e.brush(n)
	case csg.TypeBranch:
		return e.fold(n.Children)
	default:
		return nil
	}
}

// brush turns a blob into a convex solid placed by the accumulated
// transform.
func (e *evaluator) brush(n csg.SnapshotNode) kernel.Solid {
	if n.Blob == brush.InvalidBlobID {
		return nil
	}
	b, err := e.reg.Get(n.Blob)
	if err != nil {
		e.log.Warn("brush skipped", zap.Int("user_id", n.UserID), zap.Error(err))
		return nil
	}
	m := b.Mesh()
	if m.IsEmpty() {
		return nil
	}
	return e.k.Transform(e.k.Brush(m.LocalPlanes, m.LocalBounds), n.ToTree)
}

// fold combines siblings left to right. A nil accumulator is empty space:
// subtracting from or intersecting with it stays empty.
func (e *evaluator) fold(children []csg.NodeID) kernel.Solid {
	var acc kernel.Solid
	for _, id := range children {
		n, ok := e.snap.Node(id)
		if !ok {
			continue
		}
		s := e.solid(n)
		switch n.Operation {
		case csg.Additive:
			switch {
			case s == nil:
			case acc == nil:
				acc = s
			default:
				acc = e.k.Union(acc, s)
			}
		case csg.Subtractive:
			if acc != nil && s != nil {
				acc = e.k.Difference(acc, s)
			}
		case csg.Intersecting:
			if acc == nil || s == nil {
				acc = nil
			} else {
				acc = e.k.Intersection(acc, s)
			}
		}
	}
	return acc
}
