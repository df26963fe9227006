package geom

import "github.com/paulmach/orb"

// Transform maps a point from source coordinates to projected coordinates.
type Transform func(orb.Point) orb.Point

// Identity returns p unchanged.
func Identity(p orb.Point) orb.Point { return p }

// Affine returns a transform that scales then offsets each axis.
func Affine(sx, sy, dx, dy float64) Transform {
	return func(p orb.Point) orb.Point {
		return orb.Point{p[0]*sx + dx, p[1]*sy + dy}
	}
}

// Apply returns a transformed deep copy of g. A nil transform copies g.
// Unsupported geometry types are returned as nil.
func Apply(g orb.Geometry, t Transform) orb.Geometry {
	if t == nil {
		t = Identity
	}
	switch g := g.(type) {
	case orb.Point:
		return t(g)
	case orb.MultiPoint:
		out := make(orb.MultiPoint, len(g))
		for i, p := range g {
			out[i] = t(p)
		}
		return out
	case orb.LineString:
		return applyLine(g, t)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = applyLine(ls, t)
		}
		return out
	case orb.Ring:
		return orb.Ring(applyLine(orb.LineString(g), t))
	case orb.Polygon:
		return applyPolygon(g, t)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = applyPolygon(p, t)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, 0, len(g))
		for _, c := range g {
			if tc := Apply(c, t); tc != nil {
				out = append(out, tc)
			}
		}
		return out
	case orb.Bound:
		return orb.Bound{Min: t(g.Min), Max: t(g.Max)}
	}
	return nil
}

func applyLine(ls orb.LineString, t Transform) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = t(p)
	}
	return out
}

func applyPolygon(p orb.Polygon, t Transform) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = orb.Ring(applyLine(orb.LineString(r), t))
	}
	return out
}
