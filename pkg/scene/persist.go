package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/chazu/chisel/pkg/csg"
	"github.com/chazu/chisel/pkg/generator"
)

// file is the on-disk layout: the roots with their subtrees nested.
type file struct {
	Version uint64     `yaml:"version,omitempty"`
	Nodes   []fileNode `yaml:"nodes"`
}

type fileNode struct {
	Name      string              `yaml:"name,omitempty"`
	Kind      NodeKind            `yaml:"kind"`
	Operation csg.Operation       `yaml:"operation,omitempty"`
	Transform Transform           `yaml:"transform,omitempty"`
	Shape     *ShapeSpec          `yaml:"shape,omitempty"`
	Surfaces  []generator.Surface `yaml:"surfaces,omitempty"`
	Children  []fileNode          `yaml:"children,omitempty"`
}

// Parse decodes a YAML scene. Node ids are derived from the position of
// each node in the file, so parsing the same text twice yields the same
// ids.
func Parse(data []byte) (*Document, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	d := New()
	d.Version = f.Version
	for i := range f.Nodes {
		id := addFileNode(d, &f.Nodes[i], "", i)
		d.AddRoot(id)
	}
	return d, nil
}

func addFileNode(d *Document, fn *fileNode, parent string, index int) NodeID {
	seg := fn.Name
	if seg == "" {
		seg = "#" + strconv.Itoa(index)
	}
	path := parent + "/" + seg
	n := &Node{
		ID:        NewNodeID(path),
		Kind:      fn.Kind,
		Name:      fn.Name,
		Operation: fn.Operation,
		Transform: fn.Transform,
		Shape:     fn.Shape,
		Surfaces:  generator.SurfaceDefinition{Surfaces: fn.Surfaces},
	}
	for i := range fn.Children {
		n.Children = append(n.Children, addFileNode(d, &fn.Children[i], path, i))
	}
	d.AddNode(n)
	return n.ID
}

// Load reads a YAML scene from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Marshal encodes the part of d reachable from its roots. It fails when a
// node is reachable more than once.
func Marshal(d *Document) ([]byte, error) {
	f := file{Version: d.Version}
	seen := make(map[NodeID]bool)
	var encode func(id NodeID) (fileNode, error)
	encode = func(id NodeID) (fileNode, error) {
		n := d.Nodes[id]
		if n == nil {
			return fileNode{}, fmt.Errorf("node %s does not exist", id.Short())
		}
		if seen[id] {
			return fileNode{}, fmt.Errorf("node %q is reachable more than once", n.Label())
		}
		seen[id] = true
		fn := fileNode{
			Name:      n.Name,
			Kind:      n.Kind,
			Operation: n.Operation,
			Transform: n.Transform,
			Shape:     n.Shape,
			Surfaces:  n.Surfaces.Surfaces,
		}
		for _, c := range n.Children {
			cn, err := encode(c)
			if err != nil {
				return fileNode{}, err
			}
			fn.Children = append(fn.Children, cn)
		}
		return fn, nil
	}
	for _, r := range d.Roots {
		fn, err := encode(r)
		if err != nil {
			return nil, err
		}
		f.Nodes = append(f.Nodes, fn)
	}
	return yaml.Marshal(&f)
}

// Save writes d to path as YAML, creating the parent directory if needed.
func Save(d *Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
