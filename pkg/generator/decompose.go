package generator

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/chisel/pkg/geom"
)

// decompose splits a simple 2D polygon into convex counter-clockwise
// pieces. Convex input is returned as a single piece; anything else is
// cut into triangles by ear clipping. Points lying on a straight run of
// the outline are dropped.
func decompose(outline []v2.Vec) ([][]v2.Vec, error) {
	if len(outline) < 3 {
		return nil, fmt.Errorf("outline has %d points, need at least 3", len(outline))
	}
	if isConvex2(outline) {
		return [][]v2.Vec{ccw(outline)}, nil
	}
	if abs(signedArea2(outline)) < geom.SqrDistanceEpsilon {
		return nil, fmt.Errorf("outline has no area")
	}

	poly := ccw(outline)
	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}
	var pieces [][]v2.Vec
	for len(idx) > 3 {
		ear := -1
		for i := range idx {
			a := poly[idx[(i+len(idx)-1)%len(idx)]]
			b := poly[idx[i]]
			c := poly[idx[(i+1)%len(idx)]]
			turn := orient2(a, b, c)
			if abs(turn) < geom.SqrDistanceEpsilon {
				ear = i
				break
			}
			if turn > 0 && !blocksEar(poly, idx, i) {
				pieces = append(pieces, []v2.Vec{a, b, c})
				ear = i
				break
			}
		}
		if ear < 0 {
			return nil, fmt.Errorf("outline is not a simple polygon")
		}
		idx = append(idx[:ear], idx[ear+1:]...)
	}
	if last := []v2.Vec{poly[idx[0]], poly[idx[1]], poly[idx[2]]}; abs(signedArea2(last)) >= geom.SqrDistanceEpsilon {
		pieces = append(pieces, ccw(last))
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("outline has no area")
	}
	return pieces, nil
}

// blocksEar reports whether a remaining vertex other than the ear's own
// corners lies inside or on the triangle cut at position i.
func blocksEar(poly []v2.Vec, idx []int, i int) bool {
	n := len(idx)
	prev, next := (i+n-1)%n, (i+1)%n
	a, b, c := poly[idx[prev]], poly[idx[i]], poly[idx[next]]
	for j := range idx {
		if j == prev || j == i || j == next {
			continue
		}
		p := poly[idx[j]]
		if orient2(a, b, p) >= -geom.SqrDistanceEpsilon &&
			orient2(b, c, p) >= -geom.SqrDistanceEpsilon &&
			orient2(c, a, p) >= -geom.SqrDistanceEpsilon {
			return true
		}
	}
	return false
}

// orient2 is twice the signed area of triangle a, b, c: positive when the
// corners run counter-clockwise.
func orient2(a, b, c v2.Vec) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func ccw(pts []v2.Vec) []v2.Vec {
	out := append([]v2.Vec(nil), pts...)
	if signedArea2(out) < 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
