package resolve

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/matzehuels/flatmap/pkg/diag"
	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/feature"
	"github.com/matzehuels/flatmap/pkg/geom"
	"github.com/matzehuels/flatmap/pkg/shape"
	"github.com/matzehuels/flatmap/pkg/subdivide"
)

// Resolver converts Shape Trees into features. A Resolver holds no state
// between calls and may be shared by goroutines resolving different trees.
type Resolver struct {
	// Transform projects source coordinates. Nil means identity.
	Transform geom.Transform

	// Subdivide configures boundary subdivision.
	Subdivide subdivide.Options
}

// New returns a Resolver using transform t.
func New(t geom.Transform, opts subdivide.Options) *Resolver {
	return &Resolver{Transform: t, Subdivide: opts}
}

// Resolve flattens tree into features. The error is non-nil only when the
// tree is malformed or two features end up with the same id; everything else
// is reported through the returned diagnostics.
func (r *Resolver) Resolve(tree *shape.Tree) (*feature.Collection, *diag.List, error) {
	if err := tree.Validate(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "source %s", tree.Source)
	}
	t := r.Transform
	if t == nil {
		t = geom.Identity
	}
	st := &run{
		source:    tree.Source,
		transform: t,
		opts:      r.Subdivide,
		out:       feature.NewCollection(),
		diags:     &diag.List{},
	}
	root, ok := readAttrs(tree.Root, st.diags)
	if ok {
		st.visit(tree.Root, root, Context{})
	}
	if st.err != nil {
		return nil, st.diags, st.err
	}
	return st.out, st.diags, nil
}

// run is the per-call state of one resolution.
type run struct {
	source    string
	transform geom.Transform
	opts      subdivide.Options
	out       *feature.Collection
	diags     *diag.List
	err       error
}

func (st *run) add(f *feature.Feature) {
	if st.err != nil {
		return
	}
	if err := st.out.Add(f); err != nil {
		st.err = err
	}
}

// visit resolves n and returns the features emitted for its subtree.
func (st *run) visit(n *shape.Node, a attrs, ctx Context) []*feature.Feature {
	if st.err != nil {
		return nil
	}
	if !n.IsGroup() {
		if a.region {
			st.diags.Warn(errors.ErrCodeRegionUnmatched, n.ID, "region shape is not inside a boundary group")
			return nil
		}
		if f := st.leaf(n, a, ctx); f != nil {
			st.add(f)
			return []*feature.Feature{f}
		}
		return nil
	}
	return st.group(n, a, ctx)
}

type child struct {
	node  *shape.Node
	attrs attrs
}

func (st *run) group(n *shape.Node, a attrs, ctx Context) []*feature.Feature {
	childCtx := ctx.derive(a)

	var children []child
	for _, c := range n.Children {
		ca, ok := readAttrs(c, st.diags)
		if !ok {
			continue
		}
		if ca.siblings && ca.class != "" {
			childCtx.Class = ca.class
		}
		children = append(children, child{c, ca})
	}

	boundary := -1
	for i, c := range children {
		if !c.attrs.boundary || c.node.IsGroup() {
			continue
		}
		if boundary >= 0 {
			st.diags.Error(errors.New(errors.ErrCodeMarkupConflict,
				"group already has boundary %s", children[boundary].node.ID), c.node.ID)
			children[i].attrs.boundary = false
			continue
		}
		boundary = i
	}

	var emitted []*feature.Feature
	if boundary >= 0 {
		emitted = st.regions(children, boundary, childCtx)
	} else {
		for _, c := range children {
			emitted = append(emitted, st.visit(c.node, c.attrs, childCtx)...)
		}
	}

	if a.group && st.err == nil {
		if f := st.groupFeature(n, a, ctx, emitted); f != nil {
			st.add(f)
			emitted = append(emitted, f)
		}
	}
	return emitted
}

// regions resolves a group containing a boundary shape.
func (st *run) regions(children []child, boundary int, ctx Context) []*feature.Feature {
	var emitted []*feature.Feature

	// Nested groups first: their boundaries cut this one.
	var nested []subdivide.Divider
	cuts := make(map[string]*feature.Feature)
	for _, c := range children {
		if !c.node.IsGroup() {
			continue
		}
		for _, f := range st.visit(c.node, c.attrs, ctx) {
			emitted = append(emitted, f)
			if f.Flag(feature.PropBoundary) {
				nested = append(nested, subdivide.Divider{ID: f.ID, Shape: f.Text(feature.PropShape), Geometry: f.Geometry})
				cuts[f.ID] = f
			}
		}
	}
	if st.err != nil {
		return emitted
	}

	b := children[boundary]
	bf := st.leaf(b.node, b.attrs, ctx)
	if bf == nil {
		return emitted
	}
	bf.Properties[feature.PropBoundary] = true
	st.add(bf)
	emitted = append(emitted, bf)

	poly, ok := asPolygon(bf.Geometry)
	if !ok {
		st.diags.Warn(errors.ErrCodeEmptyGeometry, b.node.ID, "boundary is not a polygon")
		return emitted
	}

	in := subdivide.Input{BoundaryID: bf.ID, Boundary: poly}
	regionCtx := ctx
	regionCtx.RegionMode = true
	var notes []child
	for i, c := range children {
		if i == boundary || c.node.IsGroup() {
			continue
		}
		if c.attrs.region {
			g := st.project(c.node.Geometry)
			if geom.IsEmpty(g) {
				st.diags.Warn(errors.ErrCodeEmptyGeometry, c.node.ID, "region shape has no geometry")
				continue
			}
			in.Annotations = append(in.Annotations, subdivide.Annotation{ID: c.node.ID, Geometry: g})
			notes = append(notes, c)
			continue
		}
		f := st.leaf(c.node, c.attrs, regionCtx)
		if f == nil {
			continue
		}
		d := subdivide.Divider{ID: f.ID, Shape: c.node.ID, Geometry: f.Geometry}
		if b.attrs.exterior && c.attrs.interior {
			delete(f.Properties, feature.PropDivider)
			in.Holes = append(in.Holes, d)
		} else {
			in.Dividers = append(in.Dividers, d)
			cuts[f.ID] = f
		}
		st.add(f)
		emitted = append(emitted, f)
	}
	in.Dividers = append(in.Dividers, nested...)
	if st.err != nil {
		return emitted
	}

	out := subdivide.Subdivide(in, st.opts)
	st.diags.Extend(out.Warnings)
	for _, id := range out.Dropped {
		if f := cuts[id]; f != nil {
			delete(f.Properties, feature.PropDivider)
		}
	}

	for i, reg := range out.Regions {
		f := &feature.Feature{
			ID:       fmt.Sprintf("%s/region-%d", bf.ID, i+1),
			Class:    bf.Class,
			Geometry: reg.Polygon,
			Layer:    ctx.Layer,
			Visible:  !ctx.Hidden,
			Properties: map[string]any{
				feature.PropRegion: true,
				feature.PropSource: st.source,
			},
		}
		if len(reg.OverlappingSiblingIDs) > 0 {
			f.Properties["dividers"] = reg.OverlappingSiblingIDs
		}
		if reg.Annotation >= 0 {
			c := notes[reg.Annotation]
			if c.attrs.id != "" {
				f.ID = c.attrs.id
			}
			if c.attrs.class != "" {
				f.Class = c.attrs.class
			}
			if c.attrs.layer != "" {
				f.Layer = c.attrs.layer
			}
			if c.attrs.invisible {
				f.Visible = false
			}
			f.Properties[feature.PropShape] = c.node.ID
			setProperties(f, c.attrs)
		}
		st.add(f)
		emitted = append(emitted, f)
	}
	return emitted
}

// leaf builds the feature for a primitive shape, or nil when it has no
// usable geometry.
func (st *run) leaf(n *shape.Node, a attrs, ctx Context) *feature.Feature {
	g := st.project(n.Geometry)
	if geom.IsEmpty(g) {
		st.diags.Warn(errors.ErrCodeEmptyGeometry, n.ID, "shape has no geometry")
		return nil
	}
	if a.closed || a.boundary {
		if ls, ok := g.(orb.LineString); ok && len(ls) >= 3 {
			g = orb.Polygon{geom.CloseRing(orb.Ring(ls))}
		}
	}

	f := &feature.Feature{
		ID:       st.featureID(n, a),
		Class:    a.class,
		Geometry: g,
		Layer:    ctx.Layer,
		Visible:  !(ctx.Hidden || a.invisible),
		Properties: map[string]any{
			feature.PropShape:  n.ID,
			feature.PropSource: st.source,
		},
	}
	if f.Class == "" {
		f.Class = ctx.Class
	}
	if a.layer != "" {
		f.Layer = a.layer
	}
	if a.divider || ctx.RegionMode {
		f.Properties[feature.PropDivider] = true
	}
	setProperties(f, a)
	return f
}

func (st *run) groupFeature(n *shape.Node, a attrs, ctx Context, members []*feature.Feature) *feature.Feature {
	var mp orb.MultiPolygon
	for _, f := range members {
		if f.Flag(feature.PropRegion) {
			continue
		}
		mp = append(mp, geom.Polygons(f.Geometry)...)
	}
	if len(mp) == 0 {
		st.diags.Warn(errors.ErrCodeEmptyGeometry, n.ID, "group has no polygons")
		return nil
	}
	f := &feature.Feature{
		ID:       st.featureID(n, a),
		Class:    a.class,
		Geometry: mp,
		Layer:    ctx.Layer,
		Visible:  !(ctx.Hidden || a.invisible),
		Properties: map[string]any{
			feature.PropGroup:  true,
			feature.PropShape:  n.ID,
			feature.PropSource: st.source,
		},
	}
	if a.layer != "" {
		f.Layer = a.layer
	}
	setProperties(f, a)
	return f
}

func (st *run) featureID(n *shape.Node, a attrs) string {
	if a.id != "" {
		return a.id
	}
	return feature.SynthesizeID(st.source, n.ID)
}

func (st *run) project(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return geom.Apply(g, st.transform)
}

// setProperties copies directive-derived properties onto f.
func setProperties(f *feature.Feature, a attrs) {
	p := f.Properties
	if a.label != "" {
		p[feature.PropLabel] = a.label
	}
	if a.models != "" {
		p[feature.PropAnatomicalID] = a.models
	}
	if a.path != "" {
		p[feature.PropPath] = a.path
	}
	if a.details != "" {
		p[feature.PropDetails] = a.details
		if a.zoom != 0 {
			p[feature.PropZoom] = a.zoom
		}
	}
	if a.capacity > 0 {
		p[feature.PropCapacity] = a.capacity
	}
	if len(a.style) > 0 {
		p[feature.PropStyle] = a.style
	}
	for key, set := range map[string]bool{
		feature.PropCentreline: a.centreline,
		feature.PropNode:       a.node,
		feature.PropMarker:     a.marker,
	} {
		if set {
			p[key] = true
		}
	}
}

// asPolygon returns the first polygon of g, closing a ring-shaped line.
func asPolygon(g orb.Geometry) (orb.Polygon, bool) {
	if ps := geom.Polygons(g); len(ps) > 0 {
		return ps[0], true
	}
	if ls, ok := g.(orb.LineString); ok && geom.Closed(ls) {
		return orb.Polygon{orb.Ring(ls)}, true
	}
	return nil, false
}
