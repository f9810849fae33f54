package generator

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/brush"
	"github.com/chazu/chisel/pkg/geom"
)

// Capsule is a cylinder standing on the XZ plane with half-ellipsoid caps.
// Height is the total height; TopHeight and BottomHeight are the heights of
// the caps, zero meaning flat.
type Capsule struct {
	DiameterX      float64 `yaml:"diameter_x"`
	DiameterZ      float64 `yaml:"diameter_z"`
	Height         float64 `yaml:"height"`
	TopHeight      float64 `yaml:"top_height"`
	BottomHeight   float64 `yaml:"bottom_height"`
	Sides          int     `yaml:"sides"`
	TopSegments    int     `yaml:"top_segments"`
	BottomSegments int     `yaml:"bottom_segments"`
	Rotation       float64 `yaml:"rotation,omitempty"`

	msgs messages
}

// NewCapsule returns a unit-diameter capsule two units tall.
func NewCapsule() *Capsule {
	c := &Capsule{}
	c.Reset()
	return c
}

// Reset restores the default capsule.
func (c *Capsule) Reset() {
	c.DiameterX = 1
	c.DiameterZ = 1
	c.Height = 2
	c.TopHeight = 0.5
	c.BottomHeight = 0.5
	c.Sides = 16
	c.TopSegments = 4
	c.BottomSegments = 4
	c.Rotation = 0
	c.msgs.reset()
}

func (c *Capsule) RequiredSurfaceCount() int { return latheSurfaceCount }

func (c *Capsule) GetMessages(h MessageHandler) { c.msgs.report(h) }

// Validate clamps the capsule into a meshable domain. Caps taller than the
// capsule are scaled down together, caps that end up thinner than MinSize
// become flat and segment counts are reduced until neighbouring vertices
// stay apart.
func (c *Capsule) Validate() bool {
	c.msgs.reset()
	changed := clampMin(&c.DiameterX, minRoundDiameter, "diameter x", &c.msgs)
	changed = clampMin(&c.DiameterZ, minRoundDiameter, "diameter z", &c.msgs) || changed
	changed = clampMin(&c.Height, geom.MinSize, "height", &c.msgs) || changed
	changed = clampInt(&c.Sides, 3, MaxSegments, "sides", &c.msgs) || changed
	changed = clampInt(&c.TopSegments, 1, MaxSegments/4, "top segments", &c.msgs) || changed
	changed = clampInt(&c.BottomSegments, 1, MaxSegments/4, "bottom segments", &c.msgs) || changed
	changed = c.clampCap(&c.TopHeight, "top height") || changed
	changed = c.clampCap(&c.BottomHeight, "bottom height") || changed

	if sum := c.TopHeight + c.BottomHeight; sum > c.Height {
		// Shrink both caps proportionally; the result leaves no straight
		// section.
		c.TopHeight = c.Height * c.TopHeight / sum
		c.BottomHeight = c.Height - c.TopHeight
		c.msgs.warnf("cap heights exceed the total height, scaled to %g and %g", c.TopHeight, c.BottomHeight)
		changed = true
		changed = c.clampCap(&c.TopHeight, "top height") || changed
		changed = c.clampCap(&c.BottomHeight, "bottom height") || changed
	}

	r := math.Min(c.DiameterX, c.DiameterZ) / 2
	changed = fitSegments(&c.Sides, 3, "sides", &c.msgs, ringFits(r)) || changed
	changed = c.fitCap(&c.TopSegments, c.TopHeight, r, "top segments") || changed
	changed = c.fitCap(&c.BottomSegments, c.BottomHeight, r, "bottom segments") || changed
	return changed
}

// fitCap limits the segments of a quarter-ellipse cap of height h.
func (c *Capsule) fitCap(n *int, h, r float64, name string) bool {
	if h == 0 {
		return false
	}
	return fitSegments(n, 1, name, &c.msgs, func(k int) bool {
		dpsi := math.Pi / 2 / float64(k)
		return latitudeFits(r, h, dpsi, math.Pi/2-dpsi, c.Sides)
	})
}

func (c *Capsule) clampCap(h *float64, name string) bool {
	switch {
	case *h < 0:
		c.msgs.warnf("%s %g is negative, using %g", name, *h, -*h)
		*h = -*h
		return true
	case *h > 0 && *h < geom.MinSize:
		c.msgs.warnf("%s %g is below the minimum, using a flat cap", name, *h)
		*h = 0
		return true
	}
	return false
}

func (c *Capsule) GenerateMesh(surfaces *SurfaceDefinition) (*brush.Mesh, error) {
	start := c.Rotation * math.Pi / 180
	rx, rz := c.DiameterX/2, c.DiameterZ/2
	bottomY := c.BottomHeight
	topY := c.Height - c.TopHeight

	l := loft{bottom: SurfaceBottom, top: SurfaceTop}
	var slots []int

	if c.BottomHeight > 0 {
		l.bottomApex = &v3.Vec{}
		for k := 1; k <= c.BottomSegments; k++ {
			psi := -math.Pi/2 + float64(k)*(math.Pi/2)/float64(c.BottomSegments)
			s := math.Cos(psi)
			l.rings = append(l.rings, ring(c.Sides, rx*s, rz*s, bottomY+c.BottomHeight*math.Sin(psi), start))
			if k > 1 {
				slots = append(slots, SurfaceBottom)
			}
		}
	} else {
		l.rings = append(l.rings, ring(c.Sides, rx, rz, 0, start))
	}

	if topY-bottomY >= geom.MinSize || (c.BottomHeight == 0 && c.TopHeight == 0) {
		slots = append(slots, SurfaceSides)
		l.rings = append(l.rings, ring(c.Sides, rx, rz, topY, start))
	}

	if c.TopHeight > 0 {
		l.topApex = &v3.Vec{Y: c.Height}
		for k := 1; k < c.TopSegments; k++ {
			psi := float64(k) * (math.Pi / 2) / float64(c.TopSegments)
			s := math.Cos(psi)
			slots = append(slots, SurfaceTop)
			l.rings = append(l.rings, ring(c.Sides, rx*s, rz*s, topY+c.TopHeight*math.Sin(psi), start))
		}
	}

	l.band = func(k int) int { return slots[k] }
	return l.build(surfaces)
}
