package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MTV is the minimum translation vector between two overlapping polygons:
// the unit axis of least penetration and the penetration depth along it.
type MTV struct {
	Axis    mgl64.Vec2
	Overlap float64
}

// Collide runs the separating axis test on two convex polygons. It reports
// false when either polygon has fewer than 3 vertices or when any edge normal
// separates them; touching within Epsilon counts as separated.
func Collide(a, b Polygon) (MTV, bool) {
	if len(a) < 3 || len(b) < 3 {
		return MTV{}, false
	}

	best := MTV{Overlap: math.Inf(1)}
	for _, p := range [2]Polygon{a, b} {
		for i := range p {
			axis := EdgeNormal(p[i], p[(i+1)%len(p)])
			if axis == (mgl64.Vec2{}) {
				continue
			}

			minA, maxA := Project(a, axis)
			minB, maxB := Project(b, axis)
			depth := overlap(minA, maxA, minB, maxB)
			if depth <= Epsilon {
				return MTV{}, false
			}
			if depth < best.Overlap {
				best = MTV{Axis: axis, Overlap: depth}
			}
		}
	}

	// every edge was degenerate
	if math.IsInf(best.Overlap, 1) {
		return MTV{}, false
	}
	return best, true
}

// overlap returns how far two projected intervals intersect, or 0.
func overlap(minA, maxA, minB, maxB float64) float64 {
	if maxA < minB || maxB < minA {
		return 0
	}
	return math.Min(maxA-minB, maxB-minA)
}
