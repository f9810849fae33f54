package scene

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/chazu/chisel/pkg/generator"
)

// ShapeKind names a parametric shape.
type ShapeKind string

const (
	ShapeBox          ShapeKind = "box"
	ShapeCylinder     ShapeKind = "cylinder"
	ShapeCapsule      ShapeKind = "capsule"
	ShapeSphere       ShapeKind = "sphere"
	ShapeTorus        ShapeKind = "torus"
	ShapeStairs       ShapeKind = "stairs"
	ShapePathedStairs ShapeKind = "pathed-stairs"
	ShapeExtrude      ShapeKind = "extrude"
	ShapeRevolve      ShapeKind = "revolve"
)

// ShapeKinds lists every supported shape.
var ShapeKinds = []ShapeKind{
	ShapeBox, ShapeCylinder, ShapeCapsule, ShapeSphere, ShapeTorus,
	ShapeStairs, ShapePathedStairs, ShapeExtrude, ShapeRevolve,
}

// newParams returns the generator for kind with its defaults.
func newParams(kind ShapeKind) (any, error) {
	switch kind {
	case ShapeBox:
		return generator.NewBox(), nil
	case ShapeCylinder:
		return generator.NewCylinder(), nil
	case ShapeCapsule:
		return generator.NewCapsule(), nil
	case ShapeSphere:
		return generator.NewSphere(), nil
	case ShapeTorus:
		return generator.NewTorus(), nil
	case ShapeStairs:
		return generator.NewLinearStairs(), nil
	case ShapePathedStairs:
		return generator.NewPathedStairs(), nil
	case ShapeExtrude:
		return generator.NewExtrudedShape(), nil
	case ShapeRevolve:
		return generator.NewRevolvedShape(), nil
	}
	return nil, fmt.Errorf("unknown shape kind %q", kind)
}

// ShapeSpec is the parameter set of one shape. Params holds the generator
// value for Kind, e.g. *generator.Box for ShapeBox.
type ShapeSpec struct {
	Kind   ShapeKind
	Params any
}

// NewShape returns a shape of the given kind with default parameters.
func NewShape(kind ShapeKind) (*ShapeSpec, error) {
	p, err := newParams(kind)
	if err != nil {
		return nil, err
	}
	return &ShapeSpec{Kind: kind, Params: p}, nil
}

// IsBranch reports whether the shape expands into several brushes.
func (s *ShapeSpec) IsBranch() bool {
	_, ok := s.Params.(generator.BranchGenerator)
	return ok
}

// check reports a problem that prevents building the shape.
func (s *ShapeSpec) check() error {
	if s == nil {
		return fmt.Errorf("missing shape")
	}
	want, err := newParams(s.Kind)
	if err != nil {
		return err
	}
	if s.Params == nil {
		return fmt.Errorf("shape %s has no parameters", s.Kind)
	}
	if fmt.Sprintf("%T", want) != fmt.Sprintf("%T", s.Params) {
		return fmt.Errorf("shape %s has parameters of type %T", s.Kind, s.Params)
	}
	return nil
}

// Definition returns a fresh definition for the shape. Validation clamps
// parameters, so the generator is a copy and s stays unchanged.
func (s *ShapeSpec) Definition(surfaces generator.SurfaceDefinition) (generator.Definition, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	g, err := s.copyParams()
	if err != nil {
		return nil, err
	}
	sf := generator.SurfaceDefinition{Surfaces: append([]generator.Surface(nil), surfaces.Surfaces...)}
	switch g := g.(type) {
	case generator.BranchGenerator:
		d := generator.NewBranchDefinition(g)
		d.Surfaces = sf
		return d, nil
	case generator.BrushGenerator:
		d := generator.NewBrushDefinition(g)
		d.Surfaces = sf
		return d, nil
	}
	return nil, fmt.Errorf("shape %s: %T is not a generator", s.Kind, g)
}

// copyParams deep copies Params by round-tripping them through a YAML node.
func (s *ShapeSpec) copyParams() (any, error) {
	g, err := newParams(s.Kind)
	if err != nil {
		return nil, err
	}
	var n yaml.Node
	if err := n.Encode(s.Params); err != nil {
		return nil, fmt.Errorf("encode %s parameters: %w", s.Kind, err)
	}
	if err := n.Decode(g); err != nil {
		return nil, fmt.Errorf("decode %s parameters: %w", s.Kind, err)
	}
	return g, nil
}

// MarshalYAML writes the kind followed by the generator parameters in one
// mapping.
func (s ShapeSpec) MarshalYAML() (any, error) {
	var n yaml.Node
	if err := n.Encode(s.Params); err != nil {
		return nil, err
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("shape %s parameters must encode as a mapping", s.Kind)
	}
	head := []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "kind"},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(s.Kind)},
	}
	n.Content = append(head, n.Content...)
	return &n, nil
}

// UnmarshalYAML reads a mapping written by MarshalYAML. Missing parameters
// keep their defaults.
func (s *ShapeSpec) UnmarshalYAML(n *yaml.Node) error {
	var head struct {
		Kind ShapeKind `yaml:"kind"`
	}
	if err := n.Decode(&head); err != nil {
		return err
	}
	p, err := newParams(head.Kind)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	if err := n.Decode(p); err != nil {
		return fmt.Errorf("line %d: %s parameters: %w", n.Line, head.Kind, err)
	}
	s.Kind = head.Kind
	s.Params = p
	return nil
}
