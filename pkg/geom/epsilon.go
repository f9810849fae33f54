package geom

// Tolerances used by mesh construction, validation and merging. Every
// geometric comparison in the module goes through one of these.
const (
	DistanceEpsilon       = 0.0006
	BoundsDistanceEpsilon = 0.0006
	PlaneDAlignEpsilon    = 0.0006
	FatPlaneWidthEpsilon  = 0.0006
	NormalDotAlignEpsilon = 0.9999
	VertexEqualEpsilon    = 0.0125

	SqrDistanceEpsilon     = DistanceEpsilon * DistanceEpsilon
	SqrEdgeDistanceEpsilon = DistanceEpsilon * DistanceEpsilon
	SqrVertexEqualEpsilon  = VertexEqualEpsilon * VertexEqualEpsilon

	// MinDiameter is the smallest diameter a round primitive is clamped to.
	MinDiameter = 0.01
	// MinSize is the smallest extent a box-like primitive is clamped to. It
	// keeps opposite corners apart by more than VertexEqualEpsilon.
	MinSize = 2 * VertexEqualEpsilon
)
