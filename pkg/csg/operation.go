// Package csg implements the CSG operation tree: a tree root, branches
// that group children under a boolean operation, and brushes that refer to
// a brush mesh blob. Children are ordered; each sibling combines with the
// accumulated result of the siblings before it.
package csg

import (
	"fmt"
	"strings"
)

// Operation describes how a node's solid combines with the result of the
// siblings before it.
type Operation uint8

const (
	Additive Operation = iota
	Subtractive
	Intersecting
)

func (op Operation) String() string {
	switch op {
	case Additive:
		return "additive"
	case Subtractive:
		return "subtractive"
	case Intersecting:
		return "intersecting"
	default:
		return fmt.Sprintf("Operation(%d)", int(op))
	}
}

// IsValid reports whether op is one of the defined operations.
func (op Operation) IsValid() bool {
	return op <= Intersecting
}

// ParseOperation accepts the names returned by String, case-insensitively,
// plus the short forms "add", "sub" and "intersect".
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "additive", "add", "union":
		return Additive, nil
	case "subtractive", "sub", "subtract", "difference":
		return Subtractive, nil
	case "intersecting", "intersect", "intersection":
		return Intersecting, nil
	}
	return Additive, fmt.Errorf("unknown operation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (op Operation) MarshalText() ([]byte, error) {
	if !op.IsValid() {
		return nil, fmt.Errorf("invalid operation %d", int(op))
	}
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Operation) UnmarshalText(text []byte) error {
	v, err := ParseOperation(string(text))
	if err != nil {
		return err
	}
	*op = v
	return nil
}
