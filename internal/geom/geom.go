// Package geom provides the small set of 2-D primitives the topology engine
// needs: points in diagram coordinates, axis-aligned windows, polyline
// measures, and ring predicates (signed area, point-in-polygon). Coordinates
// are always (X, Y) in the section's two free variables, e.g. T and P.
package geom

import "math"

// Point is a position in the diagram's two free variables.
type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned window, the section's declared variable ranges.
type Rect struct {
	X0, Y0 float64 // lower-left
	X1, Y1 float64 // upper-right
}

// Contains reports whether p lies inside or on the boundary of r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X <= r.X1 && p.Y >= r.Y0 && p.Y <= r.Y1
}

// Width returns the X extent of r.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the Y extent of r.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Clamp returns p moved to the nearest position inside r.
func (r Rect) Clamp(p Point) Point {
	return Point{
		X: math.Min(math.Max(p.X, r.X0), r.X1),
		Y: math.Min(math.Max(p.Y, r.Y0), r.Y1),
	}
}

// Corners returns the four corners of r in counter-clockwise order,
// starting at the lower-left.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{r.X0, r.Y0},
		{r.X1, r.Y0},
		{r.X1, r.Y1},
		{r.X0, r.Y1},
	}
}

// Length returns the total arc length of the polyline.
func Length(pts []Point) float64 {
	var sum float64
	for i := 1; i < len(pts); i++ {
		sum += pts[i-1].Dist(pts[i])
	}
	return sum
}

// SignedArea returns the signed area of the ring (positive for
// counter-clockwise orientation). The ring need not repeat its first point.
func SignedArea(ring []Point) float64 {
	var sum float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

// InRing reports whether p lies inside the ring using the even-odd rule.
// Points exactly on an edge may report either side; callers sampling face
// interiors must pick points away from boundaries.
func InRing(p Point, ring []Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// Centroid returns the area centroid of the ring. For degenerate rings it
// falls back to the vertex mean.
func Centroid(ring []Point) Point {
	var cx, cy, area float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
		cx += (ring[i].X + ring[j].X) * cross
		cy += (ring[i].Y + ring[j].Y) * cross
		area += cross
	}
	if math.Abs(area) < 1e-12 {
		var sx, sy float64
		for _, p := range ring {
			sx += p.X
			sy += p.Y
		}
		return Point{sx / float64(n), sy / float64(n)}
	}
	return Point{cx / (3 * area), cy / (3 * area)}
}

// SegIntersect reports whether segments a0-a1 and b0-b1 properly intersect
// (crossing at an interior point of both).
func SegIntersect(a0, a1, b0, b1 Point) bool {
	d1 := cross(b0, b1, a0)
	d2 := cross(b0, b1, a1)
	d3 := cross(a0, a1, b0)
	d4 := cross(a0, a1, b1)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Project returns the arc-length position of the point on the polyline
// nearest to p. Used to order endpoints along a curve.
func Project(pts []Point, p Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	best := math.Inf(1)
	bestAt := 0.0
	var walked float64
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		segLen := a.Dist(b)
		t := 0.0
		if segLen > 0 {
			t = ((p.X-a.X)*(b.X-a.X) + (p.Y-a.Y)*(b.Y-a.Y)) / (segLen * segLen)
			t = math.Min(math.Max(t, 0), 1)
		}
		q := Point{a.X + t*(b.X-a.X), a.Y + t*(b.Y-a.Y)}
		if d := p.Dist(q); d < best {
			best = d
			bestAt = walked + t*segLen
		}
		walked += segLen
	}
	return bestAt
}
