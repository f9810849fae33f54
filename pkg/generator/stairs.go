package generator

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/csg"
	"github.com/chazu/chisel/pkg/geom"
)

// LinearStairs fills Min..Max with a straight flight rising towards +Z.
// Each step is a box reaching down to Min.Y.
type LinearStairs struct {
	Min        v3.Vec  `yaml:"min"`
	Max        v3.Vec  `yaml:"max"`
	StepHeight float64 `yaml:"step_height"`

	msgs  messages
	steps int
}

// NewLinearStairs returns a one unit high flight of five steps.
func NewLinearStairs() *LinearStairs {
	s := &LinearStairs{}
	s.Reset()
	return s
}

// Reset restores the default flight.
func (s *LinearStairs) Reset() {
	s.Min = v3.Vec{X: -0.5, Y: 0, Z: -1}
	s.Max = v3.Vec{X: 0.5, Y: 1, Z: 1}
	s.StepHeight = 0.2
	s.msgs.reset()
	s.steps = 0
}

func (s *LinearStairs) RequiredSurfaceCount() int { return boxSurfaceCount }

func (s *LinearStairs) GetMessages(h MessageHandler) { s.msgs.report(h) }

// Validate orders the bounds like a Box and keeps the step height between
// MinSize and the stairs height. Steps are made taller when the flight is
// too shallow to give every step MinSize of depth.
func (s *LinearStairs) Validate() bool {
	s.msgs.reset()
	bounds := Box{Min: s.Min, Max: s.Max}
	changed := bounds.Validate()
	s.Min, s.Max = bounds.Min, bounds.Max
	s.msgs = append(s.msgs, bounds.msgs...)
	changed = clampMin(&s.StepHeight, geom.MinSize, "step height", &s.msgs) || changed
	height := s.Max.Y - s.Min.Y
	if s.StepHeight > height {
		s.msgs.warnf("step height %g exceeds the stairs height, clamped to %g", s.StepHeight, height)
		s.StepHeight = height
		changed = true
	}
	if n, most := s.StepCount(), s.maxSteps(); n > most {
		h := height / float64(most)
		s.msgs.warnf("%d steps do not fit the stairs depth, step height raised to %g for %d steps", n, h, most)
		s.StepHeight = h
		changed = true
	}
	return changed
}

// maxSteps is the largest step count that leaves every step MinSize deep.
func (s *LinearStairs) maxSteps() int {
	return max(1, int(math.Floor((s.Max.Z-s.Min.Z)/geom.MinSize)))
}

// StepCount returns the number of steps the stairs are split into.
func (s *LinearStairs) StepCount() int {
	n := int(math.Round((s.Max.Y - s.Min.Y) / s.StepHeight))
	if n < 1 {
		n = 1
	}
	return n
}

func (s *LinearStairs) PrepareAndCountRequiredBrushMeshes() int {
	s.steps = s.StepCount()
	return s.steps
}

func (s *LinearStairs) GenerateNodes(surfaces *SurfaceDefinition, out []GeneratedNode) ([]GeneratedNode, bool) {
	if s.steps == 0 {
		s.PrepareAndCountRequiredBrushMeshes()
	}
	h := (s.Max.Y - s.Min.Y) / float64(s.steps)
	d := (s.Max.Z - s.Min.Z) / float64(s.steps)
	for i := 0; i < s.steps; i++ {
		lo := v3.Vec{X: s.Min.X, Y: s.Min.Y, Z: s.Min.Z + float64(i)*d}
		hi := v3.Vec{X: s.Max.X, Y: s.Min.Y + float64(i+1)*h, Z: s.Min.Z + float64(i+1)*d}
		m, err := axisBox(lo, hi, surfaces)
		if err != nil {
			return out, false
		}
		out = append(out, brushNode(-1, m, fmt.Sprintf("step %d", i)))
	}
	return out, true
}

func (s *LinearStairs) Dispose() {
	s.steps = 0
}

// PathedStairs lays a flight of stairs along a polyline in the XZ plane.
// Every path segment becomes a sub-branch holding StepsPerSegment steps, so
// the stairs need segments*StepsPerSegment brushes.
type PathedStairs struct {
	Path            []v2.Vec `yaml:"path"` // X, Z
	Closed          bool     `yaml:"closed,omitempty"`
	StepsPerSegment int      `yaml:"steps_per_segment"`
	StepHeight      float64  `yaml:"step_height"`
	Width           float64  `yaml:"width"`
	BaseY           float64  `yaml:"base_y,omitempty"`

	msgs     messages
	segments [][2]v2.Vec
}

// NewPathedStairs returns stairs turning one corner.
func NewPathedStairs() *PathedStairs {
	s := &PathedStairs{}
	s.Reset()
	return s
}

// Reset restores an L shaped open path.
func (s *PathedStairs) Reset() {
	s.Path = []v2.Vec{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}}
	s.Closed = false
	s.StepsPerSegment = 4
	s.StepHeight = 0.2
	s.Width = 1
	s.BaseY = 0
	s.msgs.reset()
	s.segments = nil
}

func (s *PathedStairs) RequiredSurfaceCount() int { return boxSurfaceCount }

func (s *PathedStairs) GetMessages(h MessageHandler) { s.msgs.report(h) }

// Validate drops path points that repeat their predecessor and keeps the
// steps of the shortest segment at least MinSize deep.
func (s *PathedStairs) Validate() bool {
	s.msgs.reset()
	changed := clampInt(&s.StepsPerSegment, 1, MaxSegments, "steps per segment", &s.msgs)
	changed = clampMin(&s.StepHeight, geom.MinSize, "step height", &s.msgs) || changed
	changed = clampMin(&s.Width, geom.MinSize, "width", &s.msgs) || changed
	if n := dedupPoints(&s.Path, geom.MinSize, s.Closed); n > 0 {
		s.msgs.warnf("removed %d repeated path points", n)
		changed = true
	}
	if s.SegmentCount() > 0 {
		shortest := s.shortestSegment()
		changed = fitSegments(&s.StepsPerSegment, 1, "steps per segment", &s.msgs, func(n int) bool {
			return shortest/float64(n) >= geom.MinSize
		}) || changed
	}
	return changed
}

func (s *PathedStairs) shortestSegment() float64 {
	shortest := math.Inf(1)
	for i := 0; i < s.SegmentCount(); i++ {
		shortest = math.Min(shortest, s.Path[(i+1)%len(s.Path)].Sub(s.Path[i]).Length())
	}
	return shortest
}

// SegmentCount returns the number of path segments.
func (s *PathedStairs) SegmentCount() int {
	switch {
	case len(s.Path) < 2:
		return 0
	case s.Closed && len(s.Path) > 2:
		return len(s.Path)
	default:
		return len(s.Path) - 1
	}
}

// PrepareAndCountRequiredBrushMeshes caches the path segments. Every
// segment contributes StepsPerSegment brushes.
func (s *PathedStairs) PrepareAndCountRequiredBrushMeshes() int {
	n := s.SegmentCount()
	s.segments = s.segments[:0]
	for i := 0; i < n; i++ {
		s.segments = append(s.segments, [2]v2.Vec{s.Path[i], s.Path[(i+1)%len(s.Path)]})
	}
	return n * s.StepsPerSegment
}

// GenerateNodes emits, per segment, a sub-branch translated to the segment
// start followed by its steps. It fails on an empty path or a zero-length
// segment.
func (s *PathedStairs) GenerateNodes(surfaces *SurfaceDefinition, out []GeneratedNode) ([]GeneratedNode, bool) {
	if s.segments == nil {
		s.PrepareAndCountRequiredBrushMeshes()
	}
	if len(s.segments) == 0 {
		return out, false
	}

	up := v3.Vec{Y: 1}
	step := 0
	for k, seg := range s.segments {
		dir := v3.Vec{X: seg[1].X - seg[0].X, Z: seg[1].Y - seg[0].Y}
		length := dir.Length()
		if length < geom.DistanceEpsilon {
			return out, false
		}
		along := dir.DivScalar(length)
		across := along.Cross(up)
		origin := v3.Vec{X: seg[0].X, Y: s.BaseY, Z: seg[0].Y}

		parent := len(out)
		out = append(out, GeneratedNode{
			ParentIndex:    -1,
			Operation:      csg.Additive,
			Transformation: sdf.Translate3d(origin),
			Name:           fmt.Sprintf("segment %d", k),
		})

		depth := length / float64(s.StepsPerSegment)
		for i := 0; i < s.StepsPerSegment; i++ {
			step++
			lo := v3.Vec{X: -s.Width / 2, Y: 0, Z: float64(i) * depth}
			hi := v3.Vec{X: s.Width / 2, Y: float64(step) * s.StepHeight, Z: float64(i+1) * depth}
			m, err := box(lo, hi, v3.Vec{}, across, up, along, surfaces)
			if err != nil {
				return out, false
			}
			out = append(out, brushNode(parent, m, fmt.Sprintf("step %d", step-1)))
		}
	}
	return out, true
}

func (s *PathedStairs) Dispose() {
	s.segments = nil
}
