package generator

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/chisel/pkg/brush"
)

// Sphere is an ellipsoid centred on the origin.
type Sphere struct {
	DiameterX          float64 `yaml:"diameter_x"`
	DiameterY          float64 `yaml:"diameter_y"`
	DiameterZ          float64 `yaml:"diameter_z"`
	HorizontalSegments int     `yaml:"horizontal_segments"`
	VerticalSegments   int     `yaml:"vertical_segments"`
	Rotation           float64 `yaml:"rotation,omitempty"`

	msgs messages
}

// NewSphere returns a unit sphere.
func NewSphere() *Sphere {
	s := &Sphere{}
	s.Reset()
	return s
}

// Reset restores the unit sphere.
func (s *Sphere) Reset() {
	s.DiameterX = 1
	s.DiameterY = 1
	s.DiameterZ = 1
	s.HorizontalSegments = 12
	s.VerticalSegments = 6
	s.Rotation = 0
	s.msgs.reset()
}

func (s *Sphere) RequiredSurfaceCount() int { return 1 }

func (s *Sphere) GetMessages(h MessageHandler) { s.msgs.report(h) }

// Validate clamps the diameters, then lowers the vertical and horizontal
// segment counts until the rings nearest the poles keep their vertices
// apart.
func (s *Sphere) Validate() bool {
	s.msgs.reset()
	changed := clampMin(&s.DiameterX, minRoundDiameter, "diameter x", &s.msgs)
	changed = clampMin(&s.DiameterY, minRoundDiameter, "diameter y", &s.msgs) || changed
	changed = clampMin(&s.DiameterZ, minRoundDiameter, "diameter z", &s.msgs) || changed
	changed = clampInt(&s.HorizontalSegments, 3, MaxSegments, "horizontal segments", &s.msgs) || changed
	changed = clampInt(&s.VerticalSegments, 2, MaxSegments/2, "vertical segments", &s.msgs) || changed

	r, h := math.Min(s.DiameterX, s.DiameterZ)/2, s.DiameterY/2
	changed = fitSegments(&s.VerticalSegments, 2, "vertical segments", &s.msgs, func(v int) bool {
		dpsi := math.Pi / float64(v)
		return latitudeFits(r, h, dpsi, math.Pi/2-dpsi, 3)
	}) || changed
	polar := r * math.Sin(math.Pi/float64(s.VerticalSegments))
	changed = fitSegments(&s.HorizontalSegments, 3, "horizontal segments", &s.msgs, ringFits(polar)) || changed
	return changed
}

// GenerateMesh lofts the latitude rings between two single point poles.
func (s *Sphere) GenerateMesh(surfaces *SurfaceDefinition) (*brush.Mesh, error) {
	start := s.Rotation * math.Pi / 180
	rx, ry, rz := s.DiameterX/2, s.DiameterY/2, s.DiameterZ/2

	l := loft{
		bottomApex: &v3.Vec{Y: -ry},
		topApex:    &v3.Vec{Y: ry},
	}
	for k := 1; k < s.VerticalSegments; k++ {
		psi := -math.Pi/2 + float64(k)*math.Pi/float64(s.VerticalSegments)
		c := math.Cos(psi)
		l.rings = append(l.rings, ring(s.HorizontalSegments, rx*c, rz*c, ry*math.Sin(psi), start))
	}
	return l.build(surfaces)
}
