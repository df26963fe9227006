package geom

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// pointExtent is the half-size of the rectangle stored for a point; rtreego
// does not accept degenerate rectangles for insertion.
const pointExtent = 1e-12

// Snapper deduplicates points within a tolerance. The first point inserted
// in a neighbourhood becomes the canonical one and keeps its index.
type Snapper struct {
	tol    float64
	tree   *rtreego.Rtree
	points []orb.Point
}

type snapEntry struct {
	index int
	rect  rtreego.Rect
}

func (e *snapEntry) Bounds() rtreego.Rect { return e.rect }

// NewSnapper creates a snapper that merges points closer than tol.
func NewSnapper(tol float64) *Snapper {
	return &Snapper{
		tol:  tol,
		tree: rtreego.NewTree(2, 25, 50),
	}
}

// Snap returns the index of the canonical point within tolerance of p,
// inserting p as a new canonical point if there is none.
func (s *Snapper) Snap(p orb.Point) int {
	if i, ok := s.Find(p); ok {
		return i
	}
	return s.insert(p)
}

// Find returns the index of the nearest canonical point within tolerance.
// Ties resolve to the lowest index.
func (s *Snapper) Find(p orb.Point) (int, bool) {
	hits := s.tree.SearchIntersect(rtreego.Point{p[0], p[1]}.ToRect(math.Max(s.tol, pointExtent)))
	best, bestDist := -1, math.Inf(1)
	for _, h := range hits {
		e := h.(*snapEntry)
		d := planar.Distance(p, s.points[e.index])
		if d > s.tol {
			continue
		}
		if d < bestDist || (d == bestDist && e.index < best) {
			best, bestDist = e.index, d
		}
	}
	return best, best >= 0
}

// Point returns canonical point i.
func (s *Snapper) Point(i int) orb.Point { return s.points[i] }

// Len returns the number of canonical points.
func (s *Snapper) Len() int { return len(s.points) }

func (s *Snapper) insert(p orb.Point) int {
	i := len(s.points)
	s.points = append(s.points, p)
	s.tree.Insert(&snapEntry{index: i, rect: rtreego.Point{p[0], p[1]}.ToRect(pointExtent)})
	return i
}
