package engine

import (
	"fmt"
	"strings"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/chisel/pkg/csg"
	"github.com/chazu/chisel/pkg/generator"
	"github.com/chazu/chisel/pkg/scene"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a shape definition returned by the shape builtins and
// consumed by `brush`.
type sexpShape struct {
	spec *scene.ShapeSpec
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", s.spec.Kind)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a scene.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   scene.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpVec2 struct {
	vec v2.Vec
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, dup := result.kw[name]; !dup {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value, treat as flag with nil.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected integer, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			// Bare flag keyword.
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_sub) and plain strings ("sub").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toOperation converts :additive, :subtractive, :intersecting (or their
// short forms) to a csg.Operation.
func toOperation(s zygo.Sexp) (csg.Operation, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return csg.Additive, fmt.Errorf("expected operation keyword: %w", err)
	}
	return csg.ParseOperation(name)
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (scene.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return scene.ZeroID, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toVec2(s zygo.Sexp) (v2.Vec, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return v2.Vec{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

// toVec2List extracts a list or array of vec2 values.
func toVec2List(s zygo.Sexp) ([]v2.Vec, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]v2.Vec, 0, len(items))
	for i, item := range items {
		v, err := toVec2(item)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Keyword parameter tables
// ---------------------------------------------------------------------------

// param binds one keyword to a destination field.
type param struct {
	kw  string
	set func(zygo.Sexp) error
}

func floatParam(kw string, dst *float64) param {
	return param{kw, func(s zygo.Sexp) (err error) { *dst, err = toFloat64(s); return }}
}

func intParam(kw string, dst *int) param {
	return param{kw, func(s zygo.Sexp) (err error) { *dst, err = toInt(s); return }}
}

func boolParam(kw string, dst *bool) param {
	return param{kw, func(s zygo.Sexp) (err error) { *dst, err = toBool(s); return }}
}

func vec3Param(kw string, dst *v3.Vec) param {
	return param{kw, func(s zygo.Sexp) (err error) { *dst, err = toVec3(s); return }}
}

func vec2ListParam(kw string, dst *[]v2.Vec) param {
	return param{kw, func(s zygo.Sexp) (err error) { *dst, err = toVec2List(s); return }}
}

// applyParams assigns the keyword arguments of fn to their destinations in
// source order. Unknown keywords are errors.
func applyParams(fn string, pa kwArgs, params ...param) error {
	byName := make(map[string]param, len(params))
	for _, p := range params {
		byName[p.kw] = p
	}
	for _, kw := range pa.order {
		p, ok := byName[kw]
		if !ok {
			return fmt.Errorf("%s: unknown keyword :%s", fn, kw)
		}
		if err := p.set(pa.kw[kw]); err != nil {
			return fmt.Errorf("%s: %s: %w", fn, kw, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder accumulates the document while a program runs.
type builder struct {
	doc   *scene.Document
	order []scene.NodeID // creation order
	child map[scene.NodeID]bool
	anon  int
}

func newBuilder() *builder {
	return &builder{doc: scene.New(), child: make(map[scene.NodeID]bool)}
}

// nodeID derives the id of a new node. Anonymous nodes are numbered per
// evaluation, so the same program always yields the same ids.
func (b *builder) nodeID(kind scene.NodeKind, name string) scene.NodeID {
	if name == "" {
		b.anon++
		name = fmt.Sprintf("_anon_%d", b.anon)
	}
	return scene.NewNodeID(kind.String() + "/" + name)
}

func (b *builder) add(n *scene.Node) *sexpNodeRef {
	b.doc.AddNode(n)
	b.order = append(b.order, n.ID)
	for _, c := range n.Children {
		b.child[c] = true
	}
	return &sexpNodeRef{id: n.ID, name: n.Name}
}

// finish roots every node that no other node adopted when the program
// never called `scene`.
func (b *builder) finish() *scene.Document {
	if len(b.doc.Roots) == 0 {
		for _, id := range b.order {
			if !b.child[id] {
				b.doc.AddRoot(id)
			}
		}
	}
	return b.doc
}

// nodeHeader parses what brush, branch and passthrough have in common: an
// optional leading name plus :op, :at and :rotate.
func nodeHeader(fn string, pa kwArgs, n *scene.Node) ([]zygo.Sexp, error) {
	rest := pa.positional
	if len(rest) > 0 {
		if s, ok := rest[0].(*zygo.SexpStr); ok {
			n.Name = s.S
			rest = rest[1:]
		}
	}
	err := applyParams(fn, pa,
		param{"op", func(s zygo.Sexp) (err error) { n.Operation, err = toOperation(s); return }},
		vec3Param("at", &n.Transform.Translation),
		vec3Param("rotate", &n.Transform.Rotation),
	)
	return rest, err
}

func childRefs(fn string, args []zygo.Sexp) ([]scene.NodeID, error) {
	var out []scene.NodeID
	for i, a := range args {
		id, err := toNodeRef(a)
		if err != nil {
			return nil, fmt.Errorf("%s: child %d: %w", fn, i+1, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// shapeBuiltin registers a shape constructor whose keywords map onto the
// fields of the generator returned by newShape.
func shapeBuiltin[T any](env *zygo.Zlisp, name string, kind scene.ShapeKind, params func(p T) []param) {
	env.AddFunction(name, func(env *zygo.Zlisp, fn string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		display := strings.ReplaceAll(name, "_", "-")
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("%s takes keyword arguments only", display)
		}
		spec, err := scene.NewShape(kind)
		if err != nil {
			return zygo.SexpNull, err
		}
		p, ok := spec.Params.(T)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("%s: unexpected parameters %T", display, spec.Params)
		}
		if err := applyParams(display, pa, params(p)...); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{spec: spec}, nil
	})
}

// diameterParam sets both horizontal diameters.
func diameterParam(x, z *float64) param {
	return param{"diameter", func(s zygo.Sexp) error {
		d, err := toFloat64(s)
		*x, *z = d, d
		return err
	}}
}

// registerBuiltins installs the scene DSL into a zygomys environment. The
// builtins populate b while the program runs.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3) (vec2 1 2)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: v2.Vec{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// Shapes
	// -----------------------------------------------------------------------

	// (box :min (vec3 -1 0 -1) :max (vec3 1 2 1)) or (box :size (vec3 2 2 2))
	shapeBuiltin(env, "box", scene.ShapeBox, func(p *generator.Box) []param {
		return []param{
			vec3Param("min", &p.Min),
			vec3Param("max", &p.Max),
			{"size", func(s zygo.Sexp) error {
				size, err := toVec3(s)
				p.Min, p.Max = size.MulScalar(-0.5), size.MulScalar(0.5)
				return err
			}},
		}
	})

	// (cylinder :diameter 1 :height 2 :sides 16 :top-scale 0.5)
	shapeBuiltin(env, "cylinder", scene.ShapeCylinder, func(p *generator.Cylinder) []param {
		return []param{
			diameterParam(&p.DiameterX, &p.DiameterZ),
			floatParam("diameter-x", &p.DiameterX),
			floatParam("diameter-z", &p.DiameterZ),
			floatParam("height", &p.Height),
			floatParam("top-scale", &p.TopScale),
			intParam("sides", &p.Sides),
			floatParam("rotation", &p.Rotation),
		}
	})

	// (capsule :diameter 1 :height 2 :top-height 0.5 :bottom-height 0.5)
	shapeBuiltin(env, "capsule", scene.ShapeCapsule, func(p *generator.Capsule) []param {
		return []param{
			diameterParam(&p.DiameterX, &p.DiameterZ),
			floatParam("diameter-x", &p.DiameterX),
			floatParam("diameter-z", &p.DiameterZ),
			floatParam("height", &p.Height),
			floatParam("top-height", &p.TopHeight),
			floatParam("bottom-height", &p.BottomHeight),
			intParam("sides", &p.Sides),
			intParam("top-segments", &p.TopSegments),
			intParam("bottom-segments", &p.BottomSegments),
			floatParam("rotation", &p.Rotation),
		}
	})

	// (sphere :diameter 1 :horizontal-segments 12 :vertical-segments 6)
	shapeBuiltin(env, "sphere", scene.ShapeSphere, func(p *generator.Sphere) []param {
		return []param{
			{"diameter", func(s zygo.Sexp) error {
				d, err := toFloat64(s)
				p.DiameterX, p.DiameterY, p.DiameterZ = d, d, d
				return err
			}},
			floatParam("diameter-x", &p.DiameterX),
			floatParam("diameter-y", &p.DiameterY),
			floatParam("diameter-z", &p.DiameterZ),
			intParam("horizontal-segments", &p.HorizontalSegments),
			intParam("vertical-segments", &p.VerticalSegments),
			floatParam("rotation", &p.Rotation),
		}
	})

	// (torus :outer-diameter 2 :inner-diameter 1 :tube-segments 8)
	shapeBuiltin(env, "torus", scene.ShapeTorus, func(p *generator.Torus) []param {
		return []param{
			floatParam("outer-diameter", &p.OuterDiameter),
			floatParam("inner-diameter", &p.InnerDiameter),
			intParam("tube-segments", &p.TubeSegments),
			intParam("horizontal-segments", &p.HorizontalSegments),
			floatParam("tube-rotation", &p.TubeRotation),
			floatParam("rotation", &p.Rotation),
		}
	})

	// (stairs :min (vec3 ...) :max (vec3 ...) :step-height 0.2)
	shapeBuiltin(env, "stairs", scene.ShapeStairs, func(p *generator.LinearStairs) []param {
		return []param{
			vec3Param("min", &p.Min),
			vec3Param("max", &p.Max),
			floatParam("step-height", &p.StepHeight),
		}
	})

	// (pathed-stairs :path (list (vec2 0 0) (vec2 0 4)) :steps-per-segment 8)
	shapeBuiltin(env, "pathed_stairs", scene.ShapePathedStairs, func(p *generator.PathedStairs) []param {
		return []param{
			vec2ListParam("path", &p.Path),
			boolParam("closed", &p.Closed),
			intParam("steps-per-segment", &p.StepsPerSegment),
			floatParam("step-height", &p.StepHeight),
			floatParam("width", &p.Width),
			floatParam("base-y", &p.BaseY),
		}
	})

	// (extrude :outline (list (vec2 0 0) (vec2 2 0) (vec2 2 1)) :height 3)
	shapeBuiltin(env, "extrude", scene.ShapeExtrude, func(p *generator.ExtrudedShape) []param {
		return []param{
			vec2ListParam("outline", &p.Outline),
			floatParam("height", &p.Height),
		}
	})

	// (revolve :profile (list (vec2 1 0) (vec2 2 0) (vec2 2 1)) :degrees 180)
	shapeBuiltin(env, "revolve", scene.ShapeRevolve, func(p *generator.RevolvedShape) []param {
		return []param{
			vec2ListParam("profile", &p.Profile),
			floatParam("degrees", &p.Degrees),
			floatParam("start-angle", &p.StartAngle),
			intParam("segments", &p.Segments),
		}
	})

	// -----------------------------------------------------------------------
	// (brush "name" (box ...) :op :subtractive :at (vec3 0 1 0) :rotate (vec3 0 45 0))
	// -----------------------------------------------------------------------
	env.AddFunction("brush", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		n := &scene.Node{Kind: scene.KindBrush}
		rest, err := nodeHeader("brush", pa, n)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(rest) != 1 {
			return zygo.SexpNull, fmt.Errorf("brush requires exactly one shape, got %d arguments", len(rest))
		}
		shape, ok := rest[0].(*sexpShape)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("brush: expected shape expression, got %T (%s)", rest[0], rest[0].SexpString(nil))
		}
		n.Shape = shape.spec
		n.ID = b.nodeID(scene.KindBrush, n.Name)
		return b.add(n), nil
	})

	// -----------------------------------------------------------------------
	// (branch "name" :op :intersecting :at (vec3 ...) child...)
	// -----------------------------------------------------------------------
	env.AddFunction("branch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		n := &scene.Node{Kind: scene.KindBranch}
		rest, err := nodeHeader("branch", pa, n)
		if err != nil {
			return zygo.SexpNull, err
		}
		if n.Children, err = childRefs("branch", rest); err != nil {
			return zygo.SexpNull, err
		}
		n.ID = b.nodeID(scene.KindBranch, n.Name)
		return b.add(n), nil
	})

	// -----------------------------------------------------------------------
	// (passthrough "name" child...)
	// -----------------------------------------------------------------------
	env.AddFunction("passthrough", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		n := &scene.Node{Kind: scene.KindPassthrough}
		rest, err := nodeHeader("passthrough", pa, n)
		if err != nil {
			return zygo.SexpNull, err
		}
		if n.Children, err = childRefs("passthrough", rest); err != nil {
			return zygo.SexpNull, err
		}
		n.ID = b.nodeID(scene.KindPassthrough, n.Name)
		return b.add(n), nil
	})

	// -----------------------------------------------------------------------
	// (node "name") looks up an earlier node by name.
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("node requires a name argument")
		}
		nodeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: name: %w", err)
		}
		n := b.doc.Lookup(nodeName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("node: no node named %q", nodeName)
		}
		return &sexpNodeRef{id: n.ID, name: nodeName}, nil
	})

	// -----------------------------------------------------------------------
	// (scene child...) declares the roots, in order.
	// -----------------------------------------------------------------------
	env.AddFunction("scene", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		roots, err := childRefs("scene", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		for _, id := range roots {
			b.doc.AddRoot(id)
		}
		return zygo.SexpNull, nil
	})
}
