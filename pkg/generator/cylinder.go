package generator

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/geom"
)

// Cylinder, capsule and sphere surface slots.
const (
	SurfaceTop = iota
	SurfaceBottom
	SurfaceSides
	latheSurfaceCount
)

// MaxSegments bounds every segment count.
const MaxSegments = 128

// Cylinder is an elliptic cylinder standing on the XZ plane. TopScale
// scales the top ring: below one gives a frustum, zero a cone.
type Cylinder struct {
	DiameterX float64 `yaml:"diameter_x"`
	DiameterZ float64 `yaml:"diameter_z"`
	Height    float64 `yaml:"height"`
	TopScale  float64 `yaml:"top_scale"`
	Sides     int     `yaml:"sides"`
	Rotation  float64 `yaml:"rotation,omitempty"` // degrees around Y

	msgs messages
}

// NewCylinder returns a unit cylinder with 16 sides.
func NewCylinder() *Cylinder {
	c := &Cylinder{}
	c.Reset()
	return c
}

// Reset restores the unit cylinder.
func (c *Cylinder) Reset() {
	c.DiameterX = 1
	c.DiameterZ = 1
	c.Height = 1
	c.TopScale = 1
	c.Sides = 16
	c.Rotation = 0
	c.msgs.reset()
}

func (c *Cylinder) RequiredSurfaceCount() int { return latheSurfaceCount }

func (c *Cylinder) GetMessages(h MessageHandler) { c.msgs.report(h) }

// Validate clamps the diameters and height, limits Sides to what the
// narrower ring can hold and turns a top ring too small to keep its
// vertices apart into a cone apex.
func (c *Cylinder) Validate() bool {
	c.msgs.reset()
	changed := clampMin(&c.DiameterX, minRoundDiameter, "diameter x", &c.msgs)
	changed = clampMin(&c.DiameterZ, minRoundDiameter, "diameter z", &c.msgs) || changed
	changed = clampMin(&c.Height, geom.MinSize, "height", &c.msgs) || changed
	changed = clampInt(&c.Sides, 3, MaxSegments, "sides", &c.msgs) || changed
	r := math.Min(c.DiameterX, c.DiameterZ) / 2
	changed = fitSegments(&c.Sides, 3, "sides", &c.msgs, ringFits(r)) || changed
	if c.TopScale < 0 {
		c.msgs.warnf("top scale %g is negative, using 0", c.TopScale)
		c.TopScale = 0
		changed = true
	}
	if c.TopScale > 0 && r*c.TopScale < chordRadius(c.Sides) {
		c.msgs.warnf("top scale %g collapses the top ring, using a cone", c.TopScale)
		c.TopScale = 0
		changed = true
	}
	return changed
}

func (c *Cylinder) GenerateMesh(surfaces *SurfaceDefinition) (*brush.Mesh, error) {
	start := c.Rotation * math.Pi / 180
	rx, rz := c.DiameterX/2, c.DiameterZ/2
	l := loft{
		rings:  [][]v3.Vec{ring(c.Sides, rx, rz, 0, start)},
		bottom: SurfaceBottom,
		top:    SurfaceSides,
	}
	if c.TopScale == 0 {
		l.topApex = &v3.Vec{Y: c.Height}
	} else {
		l.rings = append(l.rings, ring(c.Sides, rx*c.TopScale, rz*c.TopScale, c.Height, start))
		l.top = SurfaceTop
		l.band = func(int) int { return SurfaceSides }
	}
	return l.build(surfaces)
}
