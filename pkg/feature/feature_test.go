package feature

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/flatmap/pkg/errors"
)

func newFeature(id string, visible bool) *Feature {
	return &Feature{ID: id, Geometry: orb.Point{1, 1}, Properties: map[string]any{}, Visible: visible}
}

func TestCollectionAddDuplicate(t *testing.T) {
	c := NewCollection()
	if err := c.Add(newFeature("a", true)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	err := c.Add(newFeature("a", true))
	if !errors.Is(err, errors.ErrCodeDuplicateFeatureID) {
		t.Errorf("Add(duplicate) = %v, want DUPLICATE_FEATURE_ID", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCollectionMerge(t *testing.T) {
	a, b := NewCollection(), NewCollection()
	_ = a.Add(newFeature("x", true))
	_ = b.Add(newFeature("y", false))
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if a.Len() != 2 || len(a.Visible()) != 1 {
		t.Errorf("Len() = %d, Visible() = %d, want 2 and 1", a.Len(), len(a.Visible()))
	}

	c := NewCollection()
	_ = c.Add(newFeature("y", true))
	if err := a.Merge(c); !errors.Is(err, errors.ErrCodeDuplicateFeatureID) {
		t.Errorf("Merge(collision) = %v, want DUPLICATE_FEATURE_ID", err)
	}
}

func TestTagged(t *testing.T) {
	c := NewCollection()
	for _, id := range []string{"c", "a", "b"} {
		f := newFeature(id, true)
		f.Properties[PropCentreline] = id != "b"
		_ = c.Add(f)
	}
	got := c.Tagged(PropCentreline)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("Tagged() = %v, want [a c]", got)
	}
}

func TestAttachRoute(t *testing.T) {
	c := NewCollection()
	f := newFeature("drawn", true)
	f.Properties[PropPath] = "p1"
	_ = c.Add(f)
	_ = c.Add(newFeature("other", true))

	route := orb.LineString{{0, 0}, {3, 0}}
	if n := c.AttachRoute("p1", route, []string{"e1"}); n != 1 {
		t.Fatalf("AttachRoute() = %d, want 1", n)
	}
	gf := f.ToGeoJSON()
	if !orb.Equal(gf.Geometry, route) {
		t.Errorf("ToGeoJSON geometry = %v, want routed polyline", gf.Geometry)
	}
	if gf.Properties[PropRouted] != true {
		t.Errorf("routed property = %v, want true", gf.Properties[PropRouted])
	}
}

func TestToGeoJSONSortedAndHidden(t *testing.T) {
	c := NewCollection()
	_ = c.Add(newFeature("b", true))
	_ = c.Add(newFeature("a", true))
	_ = c.Add(newFeature("hidden", false))

	fc := c.ToGeoJSON(false)
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}
	if fc.Features[0].ID != "a" {
		t.Errorf("first feature = %v, want a", fc.Features[0].ID)
	}
	if all := c.ToGeoJSON(true); len(all.Features) != 3 {
		t.Errorf("with hidden = %d features, want 3", len(all.Features))
	}

	first, err := json.Marshal(c.ToGeoJSON(false))
	if err != nil {
		t.Fatal(err)
	}
	second, _ := json.Marshal(c.ToGeoJSON(false))
	if string(first) != string(second) {
		t.Error("ToGeoJSON output is not stable")
	}
}

func TestSynthesizeID(t *testing.T) {
	if got := SynthesizeID("body", "s7"); got != "body/s7" {
		t.Errorf("SynthesizeID() = %q, want body/s7", got)
	}
	if got := SynthesizeID("", "s7"); got != "s7" {
		t.Errorf("SynthesizeID() = %q, want s7", got)
	}
}
