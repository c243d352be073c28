// Package calcs has the planar geometry used to reason about static
// stability: which feet carry the body and how far the body centre sits
// inside the polygon they span.
package calcs

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/go-gl/mathgl/mgl64"
	. "math"
	"sort"
)

const shiftIterations = 8

// Mean of the points. Zero for an empty set.
func Centroid(points []mgl64.Vec2) (c mgl64.Vec2) {
	if len(points) == 0 {
		return
	}
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(points)))
}

func cross(o, a, b mgl64.Vec2) float64 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}

// ConvexHull returns the hull of points in counter clockwise order using the
// monotone chain method. Collinear points are dropped.
func ConvexHull(points []mgl64.Vec2) []mgl64.Vec2 {
	pts := make([]mgl64.Vec2, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X() != pts[j].X() {
			return pts[i].X() < pts[j].X()
		}
		return pts[i].Y() < pts[j].Y()
	})
	if len(pts) < 3 {
		return pts
	}

	hull := make([]mgl64.Vec2, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// SupportPolygon is the hull of the feet within threshold of the lowest foot,
// projected onto the ground plane. except lists legs to leave out.
func SupportPolygon(feet geometry.Locations, threshold float64, except ...int) []mgl64.Vec2 {
	skip := make(map[int]bool, len(except))
	for _, leg := range except {
		skip[leg] = true
	}

	var points []mgl64.Vec2
	for _, leg := range feet.Grounded(threshold) {
		if !skip[leg] {
			points = append(points, feet[leg].Vec2())
		}
	}
	return ConvexHull(points)
}

// Signed distance from p to the polygon edge it is closest to crossing,
// together with that edge's inward normal. Positive inside.
func nearestEdge(poly []mgl64.Vec2, p mgl64.Vec2) (margin float64, normal mgl64.Vec2) {
	margin = Inf(1)
	for i, a := range poly {
		b := poly[(i+1)%len(poly)]
		edge := b.Sub(a)
		if edge.Len() == 0 {
			continue
		}
		n := mgl64.Vec2{-edge.Y(), edge.X()}.Normalize()
		if d := n.Dot(p.Sub(a)); d < margin {
			margin, normal = d, n
		}
	}
	return
}

// Margin is the stability margin of p in a counter clockwise convex polygon:
// the distance to the nearest edge, negative when p lies outside. Fewer than
// three vertices enclose nothing, so the result is minus the distance to the
// closest vertex or segment.
func Margin(poly []mgl64.Vec2, p mgl64.Vec2) float64 {
	switch len(poly) {
	case 0:
		return Inf(-1)
	case 1:
		return -p.Sub(poly[0]).Len()
	case 2:
		return -segmentDistance(poly[0], poly[1], p)
	}
	m, _ := nearestEdge(poly, p)
	return m
}

func segmentDistance(a, b, p mgl64.Vec2) float64 {
	ab := b.Sub(a)
	l := ab.Dot(ab)
	if l == 0 {
		return p.Sub(a).Len()
	}
	t := Max(0, Min(1, p.Sub(a).Dot(ab)/l))
	return p.Sub(a.Add(ab.Mul(t))).Len()
}

// Contains reports whether p is inside or on the boundary of the polygon.
func Contains(poly []mgl64.Vec2, p mgl64.Vec2) bool {
	return len(poly) >= 3 && Margin(poly, p) >= -1e-9
}

// ShiftInto finds the translation to apply to the polygon so p ends up at
// least margin inside it. A zero vector means p already is.
func ShiftInto(poly []mgl64.Vec2, p mgl64.Vec2, margin float64) (shift mgl64.Vec2) {
	if len(poly) < 3 {
		return p.Sub(Centroid(poly))
	}

	moved := make([]mgl64.Vec2, len(poly))
	copy(moved, poly)
	for i := 0; i < shiftIterations; i++ {
		d, n := nearestEdge(moved, p)
		if d >= margin-1e-9 {
			break
		}
		step := n.Mul(d - margin)
		for j := range moved {
			moved[j] = moved[j].Add(step)
		}
		shift = shift.Add(step)
	}
	return
}
