package scene

import (
	"fmt"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/csg"
	"github.com/chazu/chisel/pkg/generator"
	"github.com/chazu/chisel/pkg/geom"
)

// NodeKind enumerates the types of nodes in a scene document.
type NodeKind int

const (
	KindBranch      NodeKind = iota // groups children under one operation
	KindBrush                       // leaf carrying a shape
	KindPassthrough                 // groups children without a CSG level of its own
)

func (k NodeKind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindBrush:
		return "brush"
	case KindPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// ParseNodeKind accepts the names produced by String.
func ParseNodeKind(s string) (NodeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "branch", "":
		return KindBranch, nil
	case "brush":
		return KindBrush, nil
	case "passthrough":
		return KindPassthrough, nil
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

func (k NodeKind) MarshalText() ([]byte, error) {
	if k < KindBranch || k > KindPassthrough {
		return nil, fmt.Errorf("unknown node kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *NodeKind) UnmarshalText(text []byte) error {
	v, err := ParseNodeKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Transform places a node relative to its parent. Rotation holds Euler
// angles in degrees, applied X then Y then Z, before the translation.
type Transform struct {
	Translation v3.Vec `yaml:"translation,omitempty"`
	Rotation    v3.Vec `yaml:"rotation,omitempty"`
}

// IsIdentity reports whether t leaves points in place.
func (t Transform) IsIdentity() bool {
	return t == Transform{}
}

// Matrix returns t as a 4x4 matrix.
func (t Transform) Matrix() sdf.M44 {
	if t.IsIdentity() {
		return geom.Identity()
	}
	return geom.TRS(t.Translation, t.Rotation)
}

// Node is the fundamental element of a scene document.
type Node struct {
	ID        NodeID
	Kind      NodeKind
	Name      string
	Operation csg.Operation
	Transform Transform
	Children  []NodeID
	Shape     *ShapeSpec                   // brush nodes only
	Surfaces  generator.SurfaceDefinition // brush nodes only
}

// Label returns the name of n, or its short id when it has none.
func (n *Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}
