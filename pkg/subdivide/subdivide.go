// Package subdivide partitions boundary polygons into regions.
//
// A boundary shape and the shapes drawn next to it form one subdivision
// problem. Every sibling contributes its linework as a cut line: open lines
// split the boundary, closed outlines carve out faces of their own. The
// bounded faces of the resulting planar arrangement that lie inside the
// boundary are the regions.
//
// Region shapes (points or small outlines carrying a region directive) are
// matched to the region containing their centroid afterwards; see [Run].
package subdivide

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/flatmap/pkg/diag"
	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/geom"
)

const (
	// DefaultTolerance is the vertex merge distance in projected units.
	DefaultTolerance = 1e-6

	// DefaultExtend is how far an open divider end may be extended to reach
	// neighbouring linework.
	DefaultExtend = 0.0
)

// Options configures a subdivision.
type Options struct {
	Tolerance float64
	Extend    float64
}

func (o *Options) setDefaults() {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Extend < 0 {
		o.Extend = DefaultExtend
	}
}

// Divider is a sibling shape's geometry used as a cut line. ID names the
// divider in Region.OverlappingSiblingIDs; Shape is the source shape that
// diagnostics refer to and defaults to ID.
type Divider struct {
	ID       string
	Shape    string
	Geometry orb.Geometry
}

func (d Divider) shape() string {
	if d.Shape != "" {
		return d.Shape
	}
	return d.ID
}

// Annotation is a region shape waiting to be matched to a region.
type Annotation struct {
	ID       string
	Geometry orb.Geometry
}

// Input is one boundary subdivision problem.
type Input struct {
	BoundaryID  string
	Boundary    orb.Polygon
	Dividers    []Divider
	Holes       []Divider // interior outlines removed from an exterior boundary
	Annotations []Annotation
}

// Region is one face of a subdivided boundary.
type Region struct {
	BoundaryID            string
	Polygon               orb.Polygon
	OverlappingSiblingIDs []string

	// Annotation is the index into Input.Annotations of the region shape
	// merged into this region, or -1.
	Annotation int

	centroid orb.Point
	area     float64
}

// Centroid returns the region's area centroid.
func (r Region) Centroid() orb.Point { return r.centroid }

// Area returns the region's area.
func (r Region) Area() float64 { return r.area }

// Result is the outcome of [Subdivide].
type Result struct {
	Regions  []Region
	Dropped  []string // IDs of dividers outside the boundary
	Warnings *diag.List
}

// Run subdivides in.Boundary and matches annotations to regions. It is
// [Subdivide] without the dropped divider list.
func Run(in Input, opts Options) ([]Region, *diag.List) {
	res := Subdivide(in, opts)
	return res.Regions, res.Warnings
}

// Subdivide subdivides in.Boundary and matches annotations to regions.
//
// Regions are returned ordered by centroid x, then y, then area, so that
// identifiers assigned by position are stable across runs. Problems are
// reported as warnings: dividers entirely outside the boundary are dropped,
// annotations outside every region are ignored, and annotations that could
// belong to more than one region go to the first candidate.
func Subdivide(in Input, opts Options) Result {
	opts.setDefaults()
	warnings := &diag.List{}
	tol := opts.Tolerance

	boundaryLines := geom.Lines(in.Boundary)
	lines := append([]orb.LineString(nil), boundaryLines...)

	type kept struct {
		id    string
		lines []orb.LineString
	}
	var dividers []kept
	var dropped []string
	for _, d := range in.Dividers {
		dl := geom.Lines(d.Geometry)
		if len(dl) == 0 {
			continue
		}
		if !touchesBoundary(dl, in.Boundary, boundaryLines, tol) {
			warnings.Warn(errors.ErrCodeDividerOutside, d.shape(), "divider lies outside boundary %s", in.BoundaryID)
			dropped = append(dropped, d.ID)
			continue
		}
		dividers = append(dividers, kept{d.ID, dl})
		lines = append(lines, dl...)
	}

	var holes []orb.Polygon
	for _, h := range in.Holes {
		for _, p := range geom.Polygons(h.Geometry) {
			holes = append(holes, p)
			lines = append(lines, geom.Lines(p)...)
		}
	}

	if opts.Extend > 0 {
		lines = append(lines, geom.ConnectEnds(lines, opts.Extend, tol)...)
	}

	var regions []Region
	for _, face := range geom.Polygonize(lines, tol) {
		probe := geom.InteriorPoint(face)
		if !geom.PolygonContains(in.Boundary, probe) || insideAny(holes, probe) {
			continue
		}
		c, _ := planar.CentroidArea(face)
		regions = append(regions, Region{
			BoundaryID: in.BoundaryID,
			Polygon:    face,
			Annotation: -1,
			centroid:   c,
			area:       geom.PolygonArea(face),
		})
	}
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.centroid[0] != b.centroid[0] {
			return a.centroid[0] < b.centroid[0]
		}
		if a.centroid[1] != b.centroid[1] {
			return a.centroid[1] < b.centroid[1]
		}
		return a.area < b.area
	})

	for i := range regions {
		rl := geom.Lines(regions[i].Polygon)
		for _, d := range dividers {
			if geom.LinesCross(d.lines, rl, tol) {
				regions[i].OverlappingSiblingIDs = append(regions[i].OverlappingSiblingIDs, d.id)
			}
		}
	}

	matchAnnotations(in, regions, tol, warnings)
	return Result{Regions: regions, Dropped: dropped, Warnings: warnings}
}

func matchAnnotations(in Input, regions []Region, tol float64, warnings *diag.List) {
	for ai, a := range in.Annotations {
		if geom.IsEmpty(a.Geometry) {
			warnings.Warn(errors.ErrCodeRegionUnmatched, a.ID, "region shape has no geometry")
			continue
		}
		pt := geom.Centroid(a.Geometry)

		var inside, near []int
		for ri, r := range regions {
			d, _ := geom.DistanceToLines(geom.Lines(r.Polygon), pt)
			switch {
			case d <= tol:
				near = append(near, ri)
			case geom.PolygonContains(r.Polygon, pt):
				inside = append(inside, ri)
			}
		}

		target := -1
		switch {
		case len(inside) == 1 && len(near) == 0:
			target = inside[0]
		case len(inside)+len(near) == 0:
			warnings.Warn(errors.ErrCodeRegionUnmatched, a.ID, "region shape lies outside every region of %s", in.BoundaryID)
			continue
		default:
			cands := append(inside, near...)
			sort.Ints(cands)
			target = cands[0]
			warnings.Warn(errors.ErrCodeAmbiguousContainment, a.ID,
				"region shape centroid is on the edge of %d regions of %s", len(cands), in.BoundaryID)
		}

		if regions[target].Annotation >= 0 {
			warnings.Warn(errors.ErrCodeAmbiguousContainment, a.ID,
				"region already annotated by %s", in.Annotations[regions[target].Annotation].ID)
			continue
		}
		regions[target].Annotation = ai
	}
}

func touchesBoundary(dl []orb.LineString, boundary orb.Polygon, boundaryLines []orb.LineString, tol float64) bool {
	for _, ls := range dl {
		for _, p := range ls {
			if geom.PolygonContains(boundary, p) {
				return true
			}
			if d, _ := geom.DistanceToLines(boundaryLines, p); d <= tol {
				return true
			}
		}
	}
	return geom.LinesCross(dl, boundaryLines, tol)
}

func insideAny(polys []orb.Polygon, p orb.Point) bool {
	for _, poly := range polys {
		if geom.PolygonContains(poly, p) {
			return true
		}
	}
	return false
}

// TotalArea sums the areas of regions.
func TotalArea(regions []Region) float64 {
	var a float64
	for _, r := range regions {
		a += r.area
	}
	return math.Abs(a)
}
