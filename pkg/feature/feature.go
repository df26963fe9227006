// Package feature defines the flat, annotated output of feature resolution.
//
// A [Feature] is created once while a Shape Tree is resolved and is treated
// as immutable afterwards. The one exception is [Collection.AttachRoute],
// which hangs a routed polyline off a drawn path feature once routing has
// finished.
package feature

import (
	"maps"
	"slices"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/flatmap/pkg/errors"
)

// Well-known property keys.
const (
	PropAnatomicalID = "anatomicalId"
	PropLabel        = "label"
	PropStyle        = "style"
	PropCentreline   = "centreline"
	PropNode         = "node"
	PropCapacity     = "capacity"
	PropBoundary     = "boundary"
	PropRegion       = "region"
	PropDivider      = "divider"
	PropGroup        = "group"
	PropPath         = "path"
	PropDetails      = "details"
	PropZoom         = "zoom"
	PropMarker       = "marker"
	PropShape        = "shape"
	PropSource       = "source"
	PropRouted       = "routed"
	PropRouteEdges   = "route-edges"
)

// Feature is one resolved map feature.
type Feature struct {
	ID         string
	Class      string
	Geometry   orb.Geometry
	Properties map[string]any
	Layer      string
	Visible    bool

	// Route is the routed polyline attached to a drawn path feature.
	Route orb.LineString
}

// Flag reports whether boolean property key is set.
func (f *Feature) Flag(key string) bool {
	v, _ := f.Properties[key].(bool)
	return v
}

// Text returns string property key, or "".
func (f *Feature) Text(key string) string {
	v, _ := f.Properties[key].(string)
	return v
}

// Int returns integer property key, or 0.
func (f *Feature) Int(key string) int {
	switch v := f.Properties[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// SynthesizeID derives a deterministic feature id from the source and the
// source shape's native id.
func SynthesizeID(source, shapeID string) string {
	if source == "" {
		return shapeID
	}
	return source + "/" + shapeID
}

// =============================================================================
// Collection
// =============================================================================

// Collection is an ordered set of features with unique ids.
type Collection struct {
	features []*Feature
	index    map[string]int
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string]int)}
}

// Add appends f. A feature whose id is already present is rejected with
// DUPLICATE_FEATURE_ID.
func (c *Collection) Add(f *Feature) error {
	if _, ok := c.index[f.ID]; ok {
		return errors.New(errors.ErrCodeDuplicateFeatureID, "duplicate feature id %q", f.ID)
	}
	c.index[f.ID] = len(c.features)
	c.features = append(c.features, f)
	return nil
}

// Merge appends every feature of other in order.
func (c *Collection) Merge(other *Collection) error {
	for _, f := range other.features {
		if err := c.Add(f); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the feature with the given id.
func (c *Collection) Get(id string) (*Feature, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.features[i], true
}

// Len returns the number of features.
func (c *Collection) Len() int { return len(c.features) }

// Features returns all features in insertion order.
func (c *Collection) Features() []*Feature { return c.features }

// Visible returns the visible features in insertion order.
func (c *Collection) Visible() []*Feature {
	var out []*Feature
	for _, f := range c.features {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}

// Tagged returns features whose boolean property key is set, sorted by id.
func (c *Collection) Tagged(key string) []*Feature {
	var out []*Feature
	for _, f := range c.features {
		if f.Flag(key) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AttachRoute records a routed polyline on every drawn path feature tagged
// with path(pathID). It returns the number of features updated.
func (c *Collection) AttachRoute(pathID string, route orb.LineString, edges []string) int {
	n := 0
	for _, f := range c.features {
		if f.Text(PropPath) != pathID {
			continue
		}
		f.Route = route
		f.Properties[PropRouted] = true
		f.Properties[PropRouteEdges] = slices.Clone(edges)
		n++
	}
	return n
}

// ToGeoJSON converts the collection into a GeoJSON feature collection
// sorted by id. Invisible features are skipped unless includeHidden is set.
func (c *Collection) ToGeoJSON(includeHidden bool) *geojson.FeatureCollection {
	fs := slices.Clone(c.features)
	sort.Slice(fs, func(i, j int) bool { return fs[i].ID < fs[j].ID })

	fc := geojson.NewFeatureCollection()
	for _, f := range fs {
		if !f.Visible && !includeHidden {
			continue
		}
		fc.Append(f.ToGeoJSON())
	}
	return fc
}

// ToGeoJSON converts f into a GeoJSON feature. A drawn path with an attached
// route is emitted with the routed geometry.
func (f *Feature) ToGeoJSON() *geojson.Feature {
	g := f.Geometry
	if len(f.Route) > 0 {
		g = f.Route
	}
	gf := geojson.NewFeature(g)
	gf.ID = f.ID
	gf.Properties = maps.Clone(f.Properties)
	if gf.Properties == nil {
		gf.Properties = geojson.Properties{}
	}
	gf.Properties["id"] = f.ID
	if f.Class != "" {
		gf.Properties["class"] = f.Class
	}
	if f.Layer != "" {
		gf.Properties["layer"] = f.Layer
	}
	if !f.Visible {
		gf.Properties["invisible"] = true
	}
	return gf
}
