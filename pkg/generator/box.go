package generator

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/geom"
)

// Box surface slots.
const (
	BoxTop = iota
	BoxBottom
	BoxLeft
	BoxRight
	BoxFront
	BoxBack
	boxSurfaceCount
)

// Box is an axis-aligned box between Min and Max.
type Box struct {
	Min v3.Vec `yaml:"min"`
	Max v3.Vec `yaml:"max"`

	msgs messages
}

// NewBox returns a unit box centred on the origin.
func NewBox() *Box {
	b := &Box{}
	b.Reset()
	return b
}

// Reset restores the unit cube.
func (b *Box) Reset() {
	b.Min = v3.Vec{X: -0.5, Y: -0.5, Z: -0.5}
	b.Max = v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	b.msgs.reset()
}

func (b *Box) RequiredSurfaceCount() int { return boxSurfaceCount }

func (b *Box) GetMessages(h MessageHandler) { b.msgs.report(h) }

// Validate orders each axis so that Min <= Max and grows degenerate axes
// to geom.MinSize.
func (b *Box) Validate() bool {
	b.msgs.reset()
	changed := false
	axes := []struct {
		name     string
		min, max *float64
	}{
		{"x", &b.Min.X, &b.Max.X},
		{"y", &b.Min.Y, &b.Max.Y},
		{"z", &b.Min.Z, &b.Max.Z},
	}
	for _, a := range axes {
		if *a.min > *a.max {
			*a.min, *a.max = *a.max, *a.min
			b.msgs.warnf("box %s bounds were reversed", a.name)
			changed = true
		}
		if *a.max-*a.min < geom.MinSize {
			*a.max = *a.min + geom.MinSize
			b.msgs.warnf("box %s size is below the minimum, grown to %g", a.name, geom.MinSize)
			changed = true
		}
	}
	return changed
}

// GenerateMesh builds the axis aligned box between Min and Max.
func (b *Box) GenerateMesh(surfaces *SurfaceDefinition) (*brush.Mesh, error) {
	return axisBox(b.Min, b.Max, surfaces)
}
