package csg

import (
	"github.com/deadsy/sdfx/sdf"
	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/brush"
)

// SnapshotNode is the frozen state of one node.
type SnapshotNode struct {
	ID        NodeID
	Type      NodeType
	UserID    int
	Operation Operation
	Local     sdf.M44
	ToTree    sdf.M44
	Children  []NodeID
	Blob      brush.BlobID
	Dirty     bool
}

// Snapshot is an immutable copy of the nodes reachable from the tree root,
// taken by BeginEvaluation. Evaluators read snapshots only, so the tree
// can keep changing while an evaluation runs.
type Snapshot struct {
	tree       *Tree
	generation uint64
	root       NodeID
	nodes      map[NodeID]SnapshotNode
	order      []NodeID
}

// BeginEvaluation freezes the current tree.
func (t *Tree) BeginEvaluation() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &Snapshot{
		tree:       t,
		generation: t.generation,
		root:       t.root,
		nodes:      make(map[NodeID]SnapshotNode),
	}
	var visit func(id NodeID, parent sdf.M44)
	visit = func(id NodeID, parent sdf.M44) {
		n := &t.nodes[id.slot()]
		toTree := parent.Mul(n.local)
		s.nodes[id] = SnapshotNode{
			ID:        id,
			Type:      n.typ,
			UserID:    n.userID,
			Operation: n.op,
			Local:     n.local,
			ToTree:    toTree,
			Children:  append([]NodeID(nil), n.children...),
			Blob:      n.blob,
			Dirty:     n.dirty,
		}
		s.order = append(s.order, id)
		for _, c := range n.children {
			visit(c, toTree)
		}
	}
	visit(t.root, sdf.Identity3d())
	t.log.Debug("begin evaluation",
		zap.Uint64("generation", s.generation),
		zap.Int("nodes", len(s.order)))
	return s
}

// CompleteEvaluation clears the dirty flag of every node that was not
// modified after snap was taken. Nodes changed during the evaluation stay
// dirty for the next one.
func (t *Tree) CompleteEvaluation(snap *Snapshot) error {
	if snap == nil || snap.tree != t {
		return ErrSnapshotMismatch
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var cleared int
	for i := 1; i < len(t.nodes); i++ {
		n := &t.nodes[i]
		if n.alive && n.dirty && n.modified <= snap.generation {
			n.dirty = false
			cleared++
		}
	}
	t.log.Debug("complete evaluation",
		zap.Uint64("generation", snap.generation),
		zap.Int("cleared", cleared))
	return nil
}

// Generation returns the tree generation the snapshot was taken at.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Root returns the id of the tree root.
func (s *Snapshot) Root() NodeID { return s.root }

// Len returns the number of nodes in the snapshot.
func (s *Snapshot) Len() int { return len(s.order) }

// Node returns the frozen state of id.
func (s *Snapshot) Node(id NodeID) (SnapshotNode, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Walk visits every node depth-first in child order, the root first.
// Returning false from fn stops the walk.
func (s *Snapshot) Walk(fn func(SnapshotNode) bool) {
	for _, id := range s.order {
		if !fn(s.nodes[id]) {
			return
		}
	}
}

// Brushes returns the brushes of the snapshot in depth-first order.
func (s *Snapshot) Brushes() []SnapshotNode {
	var out []SnapshotNode
	for _, id := range s.order {
		if n := s.nodes[id]; n.Type == TypeBrush {
			out = append(out, n)
		}
	}
	return out
}
