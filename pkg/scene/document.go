package scene

import "fmt"

// Document is the result of loading or evaluating a scene. Each load or
// evaluation produces a new document; builders never mutate it.
type Document struct {
	Nodes     map[NodeID]*Node
	Roots     []NodeID
	NameIndex map[string]NodeID
	Version   uint64
}

// New creates an empty document.
func New() *Document {
	return &Document{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the document. It does not check for duplicates.
func (d *Document) AddNode(n *Node) {
	d.Nodes[n.ID] = n
	if n.Name != "" {
		d.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the document.
func (d *Document) AddRoot(id NodeID) {
	d.Roots = append(d.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (d *Document) Lookup(name string) *Node {
	id, ok := d.NameIndex[name]
	if !ok {
		return nil
	}
	return d.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (d *Document) MustLookup(name string) *Node {
	n := d.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (d *Document) Get(id NodeID) *Node {
	return d.Nodes[id]
}

// Brushes returns all brush nodes in the document.
func (d *Document) Brushes() []*Node {
	var out []*Node
	for _, n := range d.Nodes {
		if n.Kind == KindBrush {
			out = append(out, n)
		}
	}
	return out
}

// Children returns the child nodes of the given node.
func (d *Document) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := d.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// Walk visits the nodes reachable from the roots depth first, parents
// before children, in child order. A node reachable twice is visited
// twice; validated documents never contain such nodes. fn returning false
// skips the subtree.
func (d *Document) Walk(fn func(n *Node, depth int) bool) {
	var visit func(id NodeID, depth int, path map[NodeID]bool)
	visit = func(id NodeID, depth int, path map[NodeID]bool) {
		n := d.Nodes[id]
		if n == nil || path[id] {
			return
		}
		if !fn(n, depth) {
			return
		}
		path[id] = true
		for _, c := range n.Children {
			visit(c, depth+1, path)
		}
		delete(path, id)
	}
	for _, r := range d.Roots {
		visit(r, 0, make(map[NodeID]bool))
	}
}

// NodeCount returns the total number of nodes.
func (d *Document) NodeCount() int {
	return len(d.Nodes)
}
