// Package geom holds the 2D primitives shared by the collision managers:
// axis-aligned bounds, polygon projection, edge normals and the
// separating axis test.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the tolerance below which a projection overlap is treated as
// touching rather than colliding.
const Epsilon = 1e-9

// MachineEpsilon is the float64 spacing at 1.0.
const MachineEpsilon = 2.220446049250313e-16

// Polygon is a closed loop of vertices. The last vertex connects to the first.
type Polygon []mgl64.Vec2

// Rect returns the axis-aligned rectangle spanning the two corners,
// listed counter-clockwise from the minimum corner.
func Rect(minX, minY, maxX, maxY float64) Polygon {
	return Polygon{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
	}
}

// Clone returns a copy that shares no memory with p.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Translate returns p moved by d.
func (p Polygon) Translate(d mgl64.Vec2) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Add(d)
	}
	return out
}

// Rotate returns p rotated counter-clockwise by angle radians around center.
func (p Polygon) Rotate(center mgl64.Vec2, angle float64) Polygon {
	m := mgl64.Rotate2D(angle)
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = m.Mul2x1(v.Sub(center)).Add(center)
	}
	return out
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl64.Vec2 `yaml:"min"`
	Max mgl64.Vec2 `yaml:"max"`
}

// Bounds returns the bounding box of p. It reports false for an empty polygon.
func Bounds(p Polygon) (AABB, bool) {
	if len(p) == 0 {
		return AABB{}, false
	}
	box := AABB{Min: p[0], Max: p[0]}
	for _, v := range p[1:] {
		box.Min = mgl64.Vec2{math.Min(box.Min[0], v[0]), math.Min(box.Min[1], v[1])}
		box.Max = mgl64.Vec2{math.Max(box.Max[0], v[0]), math.Max(box.Max[1], v[1])}
	}
	return box, true
}

// Union returns the smallest box containing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: mgl64.Vec2{math.Min(a.Min[0], b.Min[0]), math.Min(a.Min[1], b.Min[1])},
		Max: mgl64.Vec2{math.Max(a.Max[0], b.Max[0]), math.Max(a.Max[1], b.Max[1])},
	}
}

// Overlaps reports whether the boxes intersect. Touching edges count.
func (a AABB) Overlaps(b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1]
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	return a.Min[0] <= b.Min[0] && a.Min[1] <= b.Min[1] &&
		a.Max[0] >= b.Max[0] && a.Max[1] >= b.Max[1]
}

// Width and Height return the extent of a along each axis.
func (a AABB) Width() float64  { return a.Max[0] - a.Min[0] }
func (a AABB) Height() float64 { return a.Max[1] - a.Min[1] }

// Project returns the interval covered by p on axis.
func Project(p Polygon, axis mgl64.Vec2) (lo, hi float64) {
	if len(p) == 0 {
		return 0, 0
	}
	lo = p[0].Dot(axis)
	hi = lo
	for _, v := range p[1:] {
		d := v.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// EdgeNormal returns the unit normal (-dy, dx) of the edge p1→p2, or the
// zero vector for a degenerate edge.
func EdgeNormal(p1, p2 mgl64.Vec2) mgl64.Vec2 {
	d := p2.Sub(p1)
	n := mgl64.Vec2{-d[1], d[0]}
	l := n.Len()
	if l <= MachineEpsilon {
		return mgl64.Vec2{}
	}
	return n.Mul(1 / l)
}

