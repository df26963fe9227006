package geom

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SignedArea returns the shoelace area of r: positive for counter-clockwise
// rings, negative for clockwise ones. The ring may be open or closed.
func SignedArea(r orb.Ring) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a, b := r[i], r[(i+1)%n]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum / 2
}

// PolygonArea returns the area of p with holes subtracted.
func PolygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	area := math.Abs(SignedArea(p[0]))
	for _, h := range p[1:] {
		area -= math.Abs(SignedArea(h))
	}
	return area
}

// Centroid returns the area centroid of a polygonal geometry, the length
// centroid of a linear one, or the point itself.
func Centroid(g orb.Geometry) orb.Point {
	c, _ := planar.CentroidArea(g)
	return c
}

// Closed reports whether ls starts and ends on the same point.
func Closed(ls orb.LineString) bool {
	return len(ls) > 3 && ls[0].Equal(ls[len(ls)-1])
}

// CloseRing returns r with its first point repeated at the end if needed.
func CloseRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r[0].Equal(r[len(r)-1]) {
		return r
	}
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}

// PolygonContains reports whether pt lies inside p (and outside its holes).
func PolygonContains(p orb.Polygon, pt orb.Point) bool {
	return planar.PolygonContains(p, pt)
}

// GeometryContains reports whether pt lies inside a polygonal geometry.
// Non-polygonal geometries contain nothing.
func GeometryContains(g orb.Geometry, pt orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	case orb.Ring:
		return planar.RingContains(g, pt)
	}
	return false
}

// Polygons extracts the polygons of a polygonal geometry.
// Closed line strings are promoted to single-ring polygons.
func Polygons(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return g
	case orb.Ring:
		return []orb.Polygon{{g}}
	case orb.LineString:
		if Closed(g) {
			return []orb.Polygon{{orb.Ring(g)}}
		}
	case orb.Collection:
		var out []orb.Polygon
		for _, c := range g {
			out = append(out, Polygons(c)...)
		}
		return out
	}
	return nil
}

// Lines returns the linework of g: line strings as-is, and every ring of a
// polygonal geometry as a closed line string.
func Lines(g orb.Geometry) []orb.LineString {
	switch g := g.(type) {
	case orb.LineString:
		return []orb.LineString{g}
	case orb.MultiLineString:
		return g
	case orb.Ring:
		return []orb.LineString{orb.LineString(CloseRing(g))}
	case orb.Polygon:
		out := make([]orb.LineString, 0, len(g))
		for _, r := range g {
			out = append(out, orb.LineString(CloseRing(r)))
		}
		return out
	case orb.MultiPolygon:
		var out []orb.LineString
		for _, p := range g {
			out = append(out, Lines(p)...)
		}
		return out
	case orb.Collection:
		var out []orb.LineString
		for _, c := range g {
			out = append(out, Lines(c)...)
		}
		return out
	}
	return nil
}

// IsEmpty reports whether g carries no usable coordinates.
func IsEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) < 2
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) >= 2 {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(g) < 3
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) < 3
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) > 0 && len(p[0]) >= 3 {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range g {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	}
	return true
}

// InteriorPoint returns a point guaranteed to lie strictly inside p.
// The centroid is used when it qualifies; otherwise the midpoint of the
// widest interior span of a horizontal scan line that avoids every vertex.
func InteriorPoint(p orb.Polygon) orb.Point {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(p)
	if planar.PolygonContains(p, c) && boundaryDistance(p, c) > 0 {
		return c
	}

	var ys []float64
	for _, r := range p {
		for _, pt := range r {
			ys = append(ys, pt[1])
		}
	}
	sort.Float64s(ys)
	bestGap, y := -1.0, ys[0]
	for i := 1; i < len(ys); i++ {
		if gap := ys[i] - ys[i-1]; gap > bestGap {
			bestGap, y = gap, (ys[i]+ys[i-1])/2
		}
	}

	var xs []float64
	for _, r := range p {
		n := len(r)
		for i := 0; i < n; i++ {
			a, b := r[i], r[(i+1)%n]
			if (a[1] > y) == (b[1] > y) {
				continue
			}
			xs = append(xs, a[0]+(y-a[1])*(b[0]-a[0])/(b[1]-a[1]))
		}
	}
	sort.Float64s(xs)
	best, x := -1.0, c[0]
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > best {
			best, x = w, (xs[i]+xs[i+1])/2
		}
	}
	return orb.Point{x, y}
}

func boundaryDistance(p orb.Polygon, pt orb.Point) float64 {
	d := math.Inf(1)
	for _, r := range p {
		n := len(r)
		for i := 0; i < n; i++ {
			d = math.Min(d, planar.Distance(pt, ClosestOnSegment(r[i], r[(i+1)%n], pt)))
		}
	}
	return d
}

// ClosestOnSegment returns the point of segment ab nearest to p.
func ClosestOnSegment(a, b, p orb.Point) orb.Point {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return a
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return orb.Point{a[0] + t*dx, a[1] + t*dy}
}

// DistanceToLines returns the smallest distance from p to any segment in
// lines, and the nearest point on it.
func DistanceToLines(lines []orb.LineString, p orb.Point) (float64, orb.Point) {
	best, at := math.Inf(1), p
	for _, ls := range lines {
		for i := 0; i+1 < len(ls); i++ {
			q := ClosestOnSegment(ls[i], ls[i+1], p)
			if d := planar.Distance(p, q); d < best {
				best, at = d, q
			}
		}
	}
	return best, at
}
