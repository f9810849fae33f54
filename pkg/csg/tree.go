package csg

import (
	"fmt"
	"sync"

	"github.com/deadsy/sdfx/sdf"
	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/brush"
)

// Tree owns a set of nodes. Exactly one node, the tree root, has type
// TypeTree; branches and brushes are created detached and become part of
// the model once attached under the root. All methods are safe for
// concurrent use; mutations are serialized.
type Tree struct {
	mu         sync.Mutex
	nodes      []node // slot 0 is never used
	free       []uint32
	root       NodeID
	generation uint64
	reg        *brush.Registry
	log        *zap.Logger
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.log = l
		}
	}
}

// WithRegistry hands the blobs of the tree's brushes to the tree: a blob is
// released when its brush is destroyed or pointed at another blob. Without
// a registry the caller owns the blobs.
func WithRegistry(r *brush.Registry) Option {
	return func(t *Tree) {
		t.reg = r
	}
}

// NewTree creates a tree whose root carries userID.
func NewTree(userID int, opts ...Option) *Tree {
	t := &Tree{
		nodes: make([]node, 1, 16),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(t)
	}
	t.root = t.alloc(node{typ: TypeTree, userID: userID, local: sdf.Identity3d()})
	return t
}

// Root returns the id of the tree root.
func (t *Tree) Root() NodeID {
	return t.root
}

// Generation returns the number of mutations applied so far.
func (t *Tree) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// CreateBranch creates a detached branch.
func (t *Tree) CreateBranch(userID int, op Operation) (NodeID, error) {
	if !op.IsValid() {
		return InvalidNodeID, ErrInvalidOperation
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alloc(node{typ: TypeBranch, userID: userID, op: op, local: sdf.Identity3d()}), nil
}

// CreateBrush creates a detached brush referring to blob.
func (t *Tree) CreateBrush(userID int, op Operation, transform sdf.M44, blob brush.BlobID) (NodeID, error) {
	if !op.IsValid() {
		return InvalidNodeID, ErrInvalidOperation
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alloc(node{typ: TypeBrush, userID: userID, op: op, local: transform, blob: blob}), nil
}

// Destroy detaches id from its parent and destroys it. Destroying a branch
// destroys its whole subtree. Brush blobs are released when the tree has a
// registry. The tree root cannot be destroyed.
func (t *Tree) Destroy(id NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.get(id)
	if err != nil {
		return err
	}
	if n.typ == TypeTree {
		return ErrRootNode
	}
	t.bump()
	if n.parent != InvalidNodeID {
		t.detach(id)
	}
	t.destroy(id)
	return nil
}

func (t *Tree) destroy(id NodeID) {
	n := &t.nodes[id.slot()]
	for _, c := range n.children {
		t.destroy(c)
	}
	if n.typ == TypeBrush {
		t.release(n.blob)
	}
	*n = node{gen: n.gen + 1}
	t.free = append(t.free, id.slot())
}

// State reports the lifecycle state of id.
func (t *Tree) State(id NodeID) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := id.slot()
	if s == 0 || int(s) >= len(t.nodes) {
		return StateUninitialized
	}
	n := &t.nodes[s]
	switch {
	case n.alive && n.gen == id.gen():
		if n.dirty {
			return StateDirty
		}
		return StateValid
	case n.gen > id.gen():
		return StateDestroyed
	default:
		return StateUninitialized
	}
}

// Exists reports whether id refers to a live node.
func (t *Tree) Exists(id NodeID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.get(id)
	return err == nil
}

// Type returns the type of id.
func (t *Tree) Type(id NodeID) (NodeType, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.get(id)
	if err != nil {
		return 0, err
	}
	return n.typ, nil
}

// UserID returns the user id given at creation.
func (t *Tree) UserID(id NodeID) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.get(id)
	if err != nil {
		return 0, err
	}
	return n.userID, nil
}

// Parent returns the parent of id, or InvalidNodeID for detached nodes and
// the tree root.
func (t *Tree) Parent(id NodeID) (NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.get(id)
	if err != nil {
		return InvalidNodeID, err
	}
	return n.parent, nil
}

// Children returns a copy of the ordered children of id.
func (t *Tree) Children(id NodeID) ([]NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.get(id)
	if err != nil {
		return nil, err
	}
	return append([]NodeID(nil), n.children...), nil
}

// AddChild appends child to parent's children. A child that already has a
// parent is moved.
func (t *Tree) AddChild(parent, child NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checkAttach(parent, child)
	if err != nil {
		return err
	}
	return t.insert(parent, p, len(p.children), child)
}

// InsertChild inserts child at index among parent's children.
func (t *Tree) InsertChild(parent NodeID, index int, child NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checkAttach(parent, child)
	if err != nil {
		return err
	}
	return t.insert(parent, p, index, child)
}

func (t *Tree) insert(parent NodeID, p *node, index int, child NodeID) error {
	// Moving within the same parent shifts the index of later siblings.
	cur := p.children
	if t.nodes[child.slot()].parent == parent {
		cur = remove(cur, child)
	}
	if index < 0 || index > len(cur) {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrIndexOutOfRange, index, len(cur))
	}

	t.bump()
	if t.nodes[child.slot()].parent != InvalidNodeID {
		t.detach(child)
		cur = p.children
	}
	next := make([]NodeID, 0, len(cur)+1)
	next = append(next, cur[:index]...)
	next = append(next, child)
	next = append(next, cur[index:]...)
	p.children = next
	t.nodes[child.slot()].parent = parent
	t.markDirty(child)
	return nil
}

// RemoveChild detaches child from parent. The child stays alive.
func (t *Tree) RemoveChild(parent, child NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.get(parent); err != nil {
		return fmt.Errorf("parent %v: %w", parent, err)
	}
	c, err := t.get(child)
	if err != nil {
		return fmt.Errorf("child %v: %w", child, err)
	}
	if c.parent != parent {
		return ErrNotChild
	}
	t.bump()
	t.detach(child)
	return nil
}

// SetChildren replaces the children of parent. All ids are checked first;
// on error the previous children are left untouched.
func (t *Tree) SetChildren(parent NodeID, children []NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.get(parent)
	if err != nil {
		return fmt.Errorf("parent %v: %w", parent, err)
	}
	if p.typ == TypeBrush {
		return ErrBrushHasChildren
	}
	seen := make(map[NodeID]struct{}, len(children))
	for _, c := range children {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: %v", ErrDuplicateChild, c)
		}
		seen[c] = struct{}{}
		if err := t.checkChild(parent, c); err != nil {
			t.log.Debug("set children rejected",
				zap.Stringer("parent", parent),
				zap.Stringer("child", c),
				zap.Error(err))
			return err
		}
	}

	t.bump()
	for _, old := range p.children {
		if _, kept := seen[old]; !kept {
			t.nodes[old.slot()].parent = InvalidNodeID
		}
	}
	for _, c := range children {
		if cp := t.nodes[c.slot()].parent; cp != InvalidNodeID && cp != parent {
			t.detach(c)
		}
		t.nodes[c.slot()].parent = parent
	}
	p.children = append([]NodeID(nil), children...)
	t.markDirty(parent)
	return nil
}

// Operation returns the operation of id.
func (t *Tree) Operation(id NodeID) (Operation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.get(id)
	if err != nil {
		return Additive, err
	}
	return n.op, nil
}

// SetOperation changes the operation of id. Setting the current value is a
// no-op and leaves the dirty state alone.
func (t *Tree) SetOperation(id NodeID, op Operation) error {
	if !op.IsValid() {
		return ErrInvalidOperation
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.get(id)
	if err != nil {
		return err
	}
	if n.op == op {
		return nil
	}
	t.bump()
	n.op = op
	t.markDirty(id)
	return nil
}

// LocalTransform returns the transform of id relative to its parent.
func (t *Tree) LocalTransform(id NodeID) (sdf.M44, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.get(id)
	if err != nil {
		return sdf.Identity3d(), err
	}
	return n.local, nil
}

// SetLocalTransform sets the transform of id relative to its parent.
func (t *Tree) SetLocalTransform(id NodeID, m sdf.M44) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.get(id)
	if err != nil {
		return err
	}
	if n.local == m {
		return nil
	}
	t.bump()
	n.local = m
	t.markDirty(id)
	return nil
}

// BrushMesh returns the blob referenced by a brush.
func (t *Tree) BrushMesh(id NodeID) (brush.BlobID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.get(id)
	if err != nil {
		return brush.InvalidBlobID, err
	}
	if n.typ != TypeBrush {
		return brush.InvalidBlobID, ErrNotBrush
	}
	return n.blob, nil
}

// SetBrushMesh points a brush at a different blob. The previous blob is
// released when the tree has a registry.
func (t *Tree) SetBrushMesh(id NodeID, blob brush.BlobID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.get(id)
	if err != nil {
		return err
	}
	if n.typ != TypeBrush {
		return ErrNotBrush
	}
	t.bump()
	if n.blob != blob {
		t.release(n.blob)
	}
	n.blob = blob
	t.markDirty(id)
	return nil
}

func (t *Tree) release(blob brush.BlobID) {
	if t.reg == nil || blob == brush.InvalidBlobID {
		return
	}
	t.reg.Release(blob)
	t.log.Debug("blob released", zap.Stringer("blob", blob))
}

// SetDirty marks id and its ancestors dirty, e.g. after the contents of
// the blob a brush refers to were regenerated.
func (t *Tree) SetDirty(id NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.get(id); err != nil {
		return err
	}
	t.bump()
	t.markDirty(id)
	return nil
}

// IsDirty reports whether id changed since the last completed evaluation.
// Unknown ids are reported clean.
func (t *Tree) IsDirty(id NodeID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.get(id)
	if err != nil {
		return false
	}
	return n.dirty
}

// NodeToTreeSpace returns the transform from id's local space to the space
// of its tree root: the product of the local transforms from the root down
// to id. Detached nodes resolve against their detached ancestry.
func (t *Tree) NodeToTreeSpace(id NodeID) (sdf.M44, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.get(id); err != nil {
		return sdf.Identity3d(), err
	}
	return t.toTree(id), nil
}

func (t *Tree) toTree(id NodeID) sdf.M44 {
	m := sdf.Identity3d()
	for cur := id; cur != InvalidNodeID; {
		n := &t.nodes[cur.slot()]
		m = n.local.Mul(m)
		cur = n.parent
	}
	return m
}

// Len returns the number of live nodes, the root included.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes) - 1 - len(t.free)
}

func (t *Tree) alloc(n node) NodeID {
	t.bump()
	n.alive = true
	n.dirty = true
	n.modified = t.generation
	if k := len(t.free); k > 0 {
		slot := t.free[k-1]
		t.free = t.free[:k-1]
		n.gen = t.nodes[slot].gen
		t.nodes[slot] = n
		return makeNodeID(slot, n.gen)
	}
	n.gen = 1
	t.nodes = append(t.nodes, n)
	return makeNodeID(uint32(len(t.nodes)-1), n.gen)
}

func (t *Tree) get(id NodeID) (*node, error) {
	s := id.slot()
	if s == 0 || int(s) >= len(t.nodes) {
		return nil, ErrInvalidNode
	}
	n := &t.nodes[s]
	if !n.alive || n.gen != id.gen() {
		return nil, ErrInvalidNode
	}
	return n, nil
}

func (t *Tree) checkAttach(parent, child NodeID) (*node, error) {
	p, err := t.get(parent)
	if err != nil {
		return nil, fmt.Errorf("parent %v: %w", parent, err)
	}
	if p.typ == TypeBrush {
		return nil, ErrBrushHasChildren
	}
	if err := t.checkChild(parent, child); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *Tree) checkChild(parent, child NodeID) error {
	c, err := t.get(child)
	if err != nil {
		return fmt.Errorf("child %v: %w", child, err)
	}
	if c.typ == TypeTree {
		return ErrRootNode
	}
	for cur := parent; cur != InvalidNodeID; cur = t.nodes[cur.slot()].parent {
		if cur == child {
			return ErrCycle
		}
	}
	return nil
}

// detach unlinks id from its parent and marks the former parent dirty.
func (t *Tree) detach(id NodeID) {
	n := &t.nodes[id.slot()]
	p := n.parent
	if p == InvalidNodeID {
		return
	}
	pn := &t.nodes[p.slot()]
	pn.children = remove(pn.children, id)
	n.parent = InvalidNodeID
	t.markDirty(p)
}

func (t *Tree) bump() {
	t.generation++
}

// markDirty flags id and every ancestor up to the root.
func (t *Tree) markDirty(id NodeID) {
	for cur := id; cur != InvalidNodeID; {
		n := &t.nodes[cur.slot()]
		n.dirty = true
		n.modified = t.generation
		cur = n.parent
	}
}

func remove(ids []NodeID, id NodeID) []NodeID {
	out := make([]NodeID, 0, len(ids))
	for _, c := range ids {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}
