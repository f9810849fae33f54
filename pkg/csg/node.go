package csg

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/chisel/pkg/brush"
)

// NodeID identifies a node within its tree. The low 32 bits index the node
// slot, the high 32 bits carry the slot generation, so the id of a
// destroyed node is never handed out again.
type NodeID uint64

// InvalidNodeID is the zero id; it never refers to a node.
const InvalidNodeID NodeID = 0

func makeNodeID(slot, gen uint32) NodeID { return NodeID(uint64(gen)<<32 | uint64(slot)) }

func (id NodeID) slot() uint32 { return uint32(id) }
func (id NodeID) gen() uint32  { return uint32(id >> 32) }

func (id NodeID) String() string {
	if id == InvalidNodeID {
		return "node(invalid)"
	}
	return fmt.Sprintf("node(%d:%d)", id.slot(), id.gen())
}

// NodeType distinguishes tree roots, branches and brushes.
type NodeType uint8

const (
	TypeTree NodeType = iota + 1
	TypeBranch
	TypeBrush
)

func (t NodeType) String() string {
	switch t {
	case TypeTree:
		return "tree"
	case TypeBranch:
		return "branch"
	case TypeBrush:
		return "brush"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a node.
type State uint8

const (
	StateUninitialized State = iota // never created
	StateValid                      // evaluated and unchanged since
	StateDirty                      // changed since the last completed evaluation
	StateDestroyed                  // destroyed; the id is dead
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateValid:
		return "valid"
	case StateDirty:
		return "dirty"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Errors returned by tree operations.
var (
	ErrInvalidNode      = errors.New("invalid or destroyed node")
	ErrBrushHasChildren = errors.New("brushes cannot have children")
	ErrNotBrush         = errors.New("node is not a brush")
	ErrRootNode         = errors.New("the tree root cannot be used here")
	ErrCycle            = errors.New("operation would create a cycle")
	ErrDuplicateChild   = errors.New("child appears more than once")
	ErrNotChild         = errors.New("node is not a child of the given parent")
	ErrIndexOutOfRange  = errors.New("child index out of range")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrSnapshotMismatch = errors.New("snapshot belongs to another tree")
)

type node struct {
	typ      NodeType
	gen      uint32
	alive    bool
	userID   int
	op       Operation
	local    sdf.M44
	parent   NodeID
	children []NodeID
	blob     brush.BlobID

	dirty    bool
	modified uint64 // tree generation of the last change
}
