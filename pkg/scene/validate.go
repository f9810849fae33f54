package scene

import (
	"fmt"

	"github.com/chazu/chisel/pkg/csg"
)

// ValidationSeverity indicates whether a validation finding blocks a build
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the build
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if document-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// HasErrors reports whether errs contains an error-severity finding.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs the structural checks on the document and returns the
// findings. An empty slice means the document is valid. It never mutates
// the document.
func Validate(d *Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(d)...)
	errs = append(errs, validateReferences(d)...)
	errs = append(errs, validateParents(d)...)
	errs = append(errs, validateNames(d)...)
	errs = append(errs, validateRoots(d)...)
	errs = append(errs, validateNodes(d)...)
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(d *Document) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := d.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range d.Nodes {
		if color[id] == white {
			if visit(id) {
				break
			}
		}
	}
	return errs
}

// validateReferences checks that every child reference points to a node
// that exists.
func validateReferences(d *Document) []ValidationError {
	var errs []ValidationError
	for _, node := range d.Nodes {
		for _, childID := range node.Children {
			if _, ok := d.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateParents checks that no node has two parents and that roots are
// not children of other nodes. A CSG tree node has exactly one parent.
func validateParents(d *Document) []ValidationError {
	var errs []ValidationError
	parents := make(map[NodeID]int)
	for _, node := range d.Nodes {
		seen := make(map[NodeID]bool, len(node.Children))
		for _, childID := range node.Children {
			if seen[childID] {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child %s is listed twice", childID.Short()),
					Severity: SeverityError,
				})
				continue
			}
			seen[childID] = true
			parents[childID]++
		}
	}
	for id, n := range parents {
		if n > 1 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node has %d parents", n),
				Severity: SeverityError,
			})
		}
	}
	for _, rid := range d.Roots {
		if parents[rid] > 0 {
			errs = append(errs, ValidationError{
				NodeID:   rid,
				Message:  "root is also a child of another node",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateNames checks that the NameIndex is injective and that every
// entry points to an existing node.
func validateNames(d *Document) []ValidationError {
	var errs []ValidationError

	for name, id := range d.NameIndex {
		if _, ok := d.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}

	nameToNodes := make(map[string][]NodeID)
	for id, node := range d.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name] = append(nameToNodes[node.Name], id)
		}
	}
	for name, ids := range nameToNodes {
		if len(ids) > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, len(ids)),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateRoots checks that every root ID references an existing node and
// warns about orphan nodes (nodes unreachable from any root).
func validateRoots(d *Document) []ValidationError {
	var errs []ValidationError

	for _, rid := range d.Roots {
		if _, ok := d.Nodes[rid]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
		}
	}
	if len(d.Nodes) == 0 {
		return errs
	}

	reachable := make(map[NodeID]bool)
	queue := make([]NodeID, 0, len(d.Roots))
	for _, rid := range d.Roots {
		if _, ok := d.Nodes[rid]; ok && !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := d.Nodes[current]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for id, node := range d.Nodes {
		if !reachable[id] {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not reachable from any root (orphan)", node.Label()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateNodes checks the per-kind rules: brushes carry a well-formed
// shape and no children, branches carry no shape, and passthrough nodes
// have no operation or transform of their own.
func validateNodes(d *Document) []ValidationError {
	var errs []ValidationError
	add := func(n *Node, sev ValidationSeverity, format string, args ...any) {
		errs = append(errs, ValidationError{NodeID: n.ID, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	for _, n := range d.Nodes {
		if !n.Operation.IsValid() {
			add(n, SeverityError, "invalid operation %d", n.Operation)
		}
		switch n.Kind {
		case KindBrush:
			if len(n.Children) > 0 {
				add(n, SeverityError, "brush %q has %d children", n.Label(), len(n.Children))
			}
			if err := n.Shape.check(); err != nil {
				add(n, SeverityError, "brush %q: %v", n.Label(), err)
			}
		case KindBranch:
			if n.Shape != nil {
				add(n, SeverityWarning, "branch %q has a shape, it is ignored", n.Label())
			}
		case KindPassthrough:
			if n.Operation != csg.Additive {
				add(n, SeverityWarning, "passthrough %q operation %s is ignored", n.Label(), n.Operation)
			}
			if !n.Transform.IsIdentity() {
				add(n, SeverityWarning, "passthrough %q transform is ignored", n.Label())
			}
			if n.Shape != nil {
				add(n, SeverityWarning, "passthrough %q has a shape, it is ignored", n.Label())
			}
		default:
			add(n, SeverityError, "unknown node kind %d", int(n.Kind))
		}
	}
	return errs
}
