package geom

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// =============================================================================
// Segments
// =============================================================================

type segment struct {
	index int
	a, b  orb.Point
	rect  rtreego.Rect
}

func (s *segment) Bounds() rtreego.Rect { return s.rect }

// split is a point on a segment at parameter t in [0, 1].
type split struct {
	t  float64
	pt orb.Point
}

func newSegment(index int, a, b orb.Point, tol float64) (*segment, error) {
	minX, minY := math.Min(a[0], b[0])-tol, math.Min(a[1], b[1])-tol
	w := math.Abs(a[0]-b[0]) + 2*tol
	h := math.Abs(a[1]-b[1]) + 2*tol
	r, err := rtreego.NewRect(rtreego.Point{minX, minY}, []float64{w, h})
	if err != nil {
		return nil, err
	}
	return &segment{index: index, a: a, b: b, rect: r}, nil
}

func sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }
func cross(a, b orb.Point) float64 { return a[0]*b[1] - a[1]*b[0] }
func dot(a, b orb.Point) float64 { return a[0]*b[0] + a[1]*b[1] }
func norm(a orb.Point) float64 { return math.Hypot(a[0], a[1]) }
func clamp01(t float64) float64 { return math.Max(0, math.Min(1, t)) }
func lerp(a, r orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + t*r[0], a[1] + t*r[1]}
}

// intersect returns the split points segment p gains from q and those q
// gains from p. Collinear overlaps contribute the overlapping endpoints.
func intersect(p, q *segment, tol float64) (onP, onQ []split) {
	r, s := sub(p.b, p.a), sub(q.b, q.a)
	lr, ls := norm(r), norm(s)
	qp := sub(q.a, p.a)
	denom := cross(r, s)

	if math.Abs(denom) <= 1e-12*lr*ls {
		if math.Abs(cross(qp, r))/lr > tol {
			return nil, nil
		}
		rr, ss := dot(r, r), dot(s, s)
		eT, eU := tol/lr, tol/ls
		for _, pt := range []orb.Point{q.a, q.b} {
			if t := dot(sub(pt, p.a), r) / rr; t >= -eT && t <= 1+eT {
				onP = append(onP, split{clamp01(t), pt})
			}
		}
		for _, pt := range []orb.Point{p.a, p.b} {
			if u := dot(sub(pt, q.a), s) / ss; u >= -eU && u <= 1+eU {
				onQ = append(onQ, split{clamp01(u), pt})
			}
		}
		return onP, onQ
	}

	t := cross(qp, s) / denom
	u := cross(qp, r) / denom
	eT, eU := tol/lr, tol/ls
	if t < -eT || t > 1+eT || u < -eU || u > 1+eU {
		return nil, nil
	}
	pt := lerp(p.a, r, clamp01(t))
	return []split{{clamp01(t), pt}}, []split{{clamp01(u), pt}}
}

// =============================================================================
// Arrangement
// =============================================================================

// arrangement is the planar graph induced by a set of line strings after
// splitting every segment at every intersection.
type arrangement struct {
	snap  *Snapper
	adj   map[int]map[int]bool
	edges [][2]int
}

func buildArrangement(lines []orb.LineString, tol float64) *arrangement {
	if tol <= 0 {
		tol = pointExtent
	}
	ar := &arrangement{snap: NewSnapper(tol), adj: make(map[int]map[int]bool)}

	var segs []*segment
	tree := rtreego.NewTree(2, 25, 50)
	for _, ls := range lines {
		for i := 0; i+1 < len(ls); i++ {
			a, b := ls[i], ls[i+1]
			if norm(sub(b, a)) <= tol {
				continue
			}
			s, err := newSegment(len(segs), a, b, tol)
			if err != nil {
				continue
			}
			segs = append(segs, s)
			tree.Insert(s)
		}
	}

	// Original endpoints become canonical before computed intersections.
	splits := make([][]split, len(segs))
	for _, s := range segs {
		ar.snap.Snap(s.a)
		ar.snap.Snap(s.b)
		splits[s.index] = append(splits[s.index], split{0, s.a}, split{1, s.b})
	}

	for _, p := range segs {
		for _, h := range tree.SearchIntersect(p.rect) {
			q := h.(*segment)
			if q.index <= p.index {
				continue
			}
			onP, onQ := intersect(p, q, tol)
			splits[p.index] = append(splits[p.index], onP...)
			splits[q.index] = append(splits[q.index], onQ...)
		}
	}

	seen := make(map[[2]int]bool)
	for _, s := range segs {
		sp := splits[s.index]
		sort.SliceStable(sp, func(i, j int) bool { return sp[i].t < sp[j].t })
		prev := -1
		for _, x := range sp {
			v := ar.snap.Snap(x.pt)
			if prev >= 0 && v != prev {
				key := [2]int{min(prev, v), max(prev, v)}
				if !seen[key] {
					seen[key] = true
					ar.edges = append(ar.edges, key)
					ar.link(key[0], key[1])
				}
			}
			prev = v
		}
	}
	return ar
}

func (ar *arrangement) link(u, v int) {
	if ar.adj[u] == nil {
		ar.adj[u] = make(map[int]bool)
	}
	if ar.adj[v] == nil {
		ar.adj[v] = make(map[int]bool)
	}
	ar.adj[u][v] = true
	ar.adj[v][u] = true
}

// prune removes dangling vertices until every vertex has degree two or more.
func (ar *arrangement) prune() {
	var queue []int
	for _, v := range sortedKeys(ar.adj) {
		if len(ar.adj[v]) < 2 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		nbrs, ok := ar.adj[v]
		if !ok || len(nbrs) >= 2 {
			continue
		}
		delete(ar.adj, v)
		for w := range nbrs {
			delete(ar.adj[w], v)
			if len(ar.adj[w]) < 2 {
				queue = append(queue, w)
			}
		}
	}
}

// cycle is one traced boundary walk of the arrangement.
type cycle struct {
	ring      orb.Ring
	area      float64
	component int
}

// cycles walks every half-edge once, keeping the face on the left. Bounded
// faces come out counter-clockwise (positive area); the outer boundary of
// each connected component comes out clockwise.
func (ar *arrangement) cycles() []cycle {
	verts := sortedKeys(ar.adj)
	out := make(map[int][]int, len(verts))
	pos := make(map[[2]int]int)
	for _, v := range verts {
		pv := ar.snap.Point(v)
		nbrs := sortedKeys(ar.adj[v])
		sort.SliceStable(nbrs, func(i, j int) bool {
			a, b := ar.snap.Point(nbrs[i]), ar.snap.Point(nbrs[j])
			return math.Atan2(a[1]-pv[1], a[0]-pv[0]) < math.Atan2(b[1]-pv[1], b[0]-pv[0])
		})
		out[v] = nbrs
		for i, w := range nbrs {
			pos[[2]int{v, w}] = i
		}
	}

	comp := ar.components(verts)
	visited := make(map[[2]int]bool)
	var result []cycle
	for _, u := range verts {
		for _, v := range out[u] {
			start := [2]int{u, v}
			if visited[start] {
				continue
			}
			var ring orb.Ring
			cur := start
			for !visited[cur] {
				visited[cur] = true
				ring = append(ring, ar.snap.Point(cur[0]))
				from, at := cur[0], cur[1]
				nbrs := out[at]
				i := pos[[2]int{at, from}]
				cur = [2]int{at, nbrs[(i-1+len(nbrs))%len(nbrs)]}
			}
			ring = append(ring, ring[0])
			result = append(result, cycle{ring: ring, area: SignedArea(ring), component: comp[u]})
		}
	}
	return result
}

func (ar *arrangement) components(verts []int) map[int]int {
	comp := make(map[int]int, len(verts))
	next := 0
	for _, v := range verts {
		if _, ok := comp[v]; ok {
			continue
		}
		stack := []int{v}
		comp[v] = next
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range sortedKeys(ar.adj[x]) {
				if _, ok := comp[w]; !ok {
					comp[w] = next
					stack = append(stack, w)
				}
			}
		}
		next++
	}
	return comp
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// =============================================================================
// Polygonize
// =============================================================================

// Polygonize returns the bounded faces of the arrangement formed by lines.
// Segments are split at every crossing, vertices closer than tol are merged
// and dangling pieces are discarded. A connected component nested inside a
// face of another component becomes a hole of the smallest such face.
//
// Faces are returned in discovery order, which depends only on the input.
func Polygonize(lines []orb.LineString, tol float64) []orb.Polygon {
	ar := buildArrangement(lines, tol)
	ar.prune()
	cycles := ar.cycles()

	minArea := tol * tol
	var faces, outers []int
	for i, c := range cycles {
		switch {
		case c.area > minArea:
			faces = append(faces, i)
		case c.area < -minArea:
			outers = append(outers, i)
		}
	}

	holes := make(map[int][]orb.Ring)
	for _, oi := range outers {
		o := cycles[oi]
		probe := o.ring[0]
		best, bestArea := -1, math.Inf(1)
		for _, fi := range faces {
			f := cycles[fi]
			if f.component == o.component || f.area >= bestArea {
				continue
			}
			if PolygonContains(orb.Polygon{f.ring}, probe) {
				best, bestArea = fi, f.area
			}
		}
		if best >= 0 {
			holes[best] = append(holes[best], o.ring)
		}
	}

	polys := make([]orb.Polygon, 0, len(faces))
	for _, fi := range faces {
		p := orb.Polygon{cycles[fi].ring}
		p = append(p, holes[fi]...)
		polys = append(polys, p)
	}
	return polys
}

// ConnectEnds returns connector segments joining the open ends of lines to
// the nearest point of any other line when the gap is at most reach.
// Ends already within tol of another line are left alone. Closed lines have
// no ends.
func ConnectEnds(lines []orb.LineString, reach, tol float64) []orb.LineString {
	var connectors []orb.LineString
	for i, ls := range lines {
		if len(ls) < 2 || Closed(ls) {
			continue
		}
		others := make([]orb.LineString, 0, len(lines)-1)
		others = append(others, lines[:i]...)
		others = append(others, lines[i+1:]...)
		for _, end := range []orb.Point{ls[0], ls[len(ls)-1]} {
			d, at := DistanceToLines(others, end)
			if d <= tol || d > reach {
				continue
			}
			connectors = append(connectors, orb.LineString{end, at})
		}
	}
	return connectors
}

// LinesCross reports whether any segment of a comes within tol of any
// segment of b.
func LinesCross(a, b []orb.LineString, tol float64) bool {
	for _, la := range a {
		for i := 0; i+1 < len(la); i++ {
			p := &segment{a: la[i], b: la[i+1]}
			if norm(sub(p.b, p.a)) == 0 {
				continue
			}
			for _, lb := range b {
				for j := 0; j+1 < len(lb); j++ {
					q := &segment{a: lb[j], b: lb[j+1]}
					if norm(sub(q.b, q.a)) == 0 {
						continue
					}
					if onP, _ := intersect(p, q, tol); len(onP) > 0 {
						return true
					}
				}
			}
		}
	}
	return false
}
