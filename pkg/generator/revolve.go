package generator

import (
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Revolve surface slots.
const (
	RevolveStart = iota
	RevolveEnd
	RevolveSides
	revolveSurfaceCount
)

// RevolvedShape sweeps a 2D profile (radius, height) around the Y axis.
// The profile is split into convex pieces and each piece is swept in
// Segments wedges, one brush per piece and wedge.
type RevolvedShape struct {
	Profile    []v2.Vec `yaml:"profile"` // X = radius, Y = height
	Degrees    float64  `yaml:"degrees"`
	StartAngle float64  `yaml:"start_angle,omitempty"`
	Segments   int      `yaml:"segments"`

	msgs   messages
	pieces [][]v2.Vec
}

// NewRevolvedShape returns a full turn of a square ring profile.
func NewRevolvedShape() *RevolvedShape {
	r := &RevolvedShape{}
	r.Reset()
	return r
}

// Reset restores the default profile and sweep.
func (r *RevolvedShape) Reset() {
	r.Profile = []v2.Vec{{X: 0.25, Y: 0}, {X: 0.5, Y: 0}, {X: 0.5, Y: 1}, {X: 0.25, Y: 1}}
	r.Degrees = 360
	r.StartAngle = 0
	r.Segments = 12
	r.msgs.reset()
	r.pieces = nil
}

func (r *RevolvedShape) RequiredSurfaceCount() int { return revolveSurfaceCount }

func (r *RevolvedShape) GetMessages(h MessageHandler) { r.msgs.report(h) }

// Validate moves profile points off the axis and keeps the sweep within
// one turn. Segments are chosen so no wedge spans more than 90 degrees and
// no wedge is so thin that its corners nearest the axis merge.
func (r *RevolvedShape) Validate() bool {
	r.msgs.reset()
	changed := false
	rho := math.Inf(1)
	for i := range r.Profile {
		if r.Profile[i].X < minRoundDiameter {
			r.Profile[i].X = minRoundDiameter
			changed = true
			r.msgs.warnf("profile point %d lies on or past the axis, moved to radius %g", i, minRoundDiameter)
		}
		rho = math.Min(rho, r.Profile[i].X)
	}
	if n := dedupOutline(&r.Profile); n > 0 {
		r.msgs.warnf("removed %d repeated profile points", n)
		changed = true
	}

	if r.Degrees < 0 {
		r.msgs.warnf("sweep angle %g is negative, using %g", r.Degrees, -r.Degrees)
		r.Degrees = -r.Degrees
		changed = true
	}
	if r.Degrees > 360 {
		r.msgs.warnf("sweep angle %g exceeds a full turn, clamped to 360", r.Degrees)
		r.Degrees = 360
		changed = true
	}
	wedgeMin := 2 * math.Asin(math.Min(1, minVertexSpacing/(2*rho))) * 180 / math.Pi
	changed = clampMin(&r.Degrees, math.Max(1, math.Ceil(wedgeMin)), "sweep angle", &r.msgs) || changed

	minSegments := int(math.Ceil(r.Degrees / 90))
	changed = clampInt(&r.Segments, minSegments, MaxSegments, "segments", &r.msgs) || changed
	sweep := r.Degrees * math.Pi / 180
	changed = fitSegments(&r.Segments, minSegments, "segments", &r.msgs, func(n int) bool {
		return 2*rho*math.Sin(sweep/float64(n)/2) >= minVertexSpacing
	}) || changed
	return changed
}

func (r *RevolvedShape) PrepareAndCountRequiredBrushMeshes() int {
	pieces, err := decompose(r.Profile)
	if err != nil {
		r.pieces = nil
		return 0
	}
	r.pieces = pieces
	return len(pieces) * r.Segments
}

func (r *RevolvedShape) GenerateNodes(surfaces *SurfaceDefinition, out []GeneratedNode) ([]GeneratedNode, bool) {
	if r.pieces == nil && r.PrepareAndCountRequiredBrushMeshes() == 0 {
		return out, false
	}
	start := r.StartAngle * math.Pi / 180
	step := r.Degrees * math.Pi / 180 / float64(r.Segments)
	for i, piece := range r.pieces {
		first, err := wedge(piece, start, start+step, surfaces, RevolveStart, RevolveEnd, RevolveSides)
		if err != nil {
			return out, false
		}
		for k := 0; k < r.Segments; k++ {
			out = append(out, brushNode(-1, turned(first, step, k), fmt.Sprintf("piece %d wedge %d", i, k)))
		}
	}
	return out, true
}

// Dispose drops the cached convex pieces.
func (r *RevolvedShape) Dispose() {
	r.pieces = nil
}
