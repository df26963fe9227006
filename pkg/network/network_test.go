package network

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	flaterrors "github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/feature"
)

func centreline(id string, ls orb.LineString, capacity int) *feature.Feature {
	props := map[string]any{feature.PropCentreline: true}
	if capacity > 0 {
		props[feature.PropCapacity] = capacity
	}
	return &feature.Feature{ID: id, Geometry: ls, Properties: props, Visible: true}
}

func node(id string, g orb.Geometry, models string) *feature.Feature {
	props := map[string]any{feature.PropNode: true}
	if models != "" {
		props[feature.PropAnatomicalID] = models
	}
	return &feature.Feature{ID: id, Geometry: g, Properties: props, Visible: true}
}

func collection(t *testing.T, fs ...*feature.Feature) *feature.Collection {
	t.Helper()
	c := feature.NewCollection()
	for _, f := range fs {
		if err := c.Add(f); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	return c
}

func TestBuild(t *testing.T) {
	fc := collection(t,
		node("A", orb.Polygon{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}}, "UBERON:1"),
		node("B", orb.Point{10, 0}, ""),
		centreline("e1", orb.LineString{{0.5, 0}, {5, 0}}, 0),
		centreline("e2", orb.LineString{{5, 0}, {10, 0}}, 2),
		centreline("e3", orb.LineString{{5, 0}, {5, 5}}, 0),
	)
	g, diags, err := Build(fc, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if diags.Len() != 0 {
		t.Errorf("Build() diagnostics = %v, want none", diags.Items())
	}
	if len(g.Nodes) != 4 {
		t.Fatalf("Nodes = %d, want 4", len(g.Nodes))
	}
	if len(g.Edges) != 3 {
		t.Fatalf("Edges = %d, want 3", len(g.Edges))
	}

	a, _ := g.Node("A")
	e1 := g.Edges[g.Incident(a)[0]]
	if e1.ID != "e1" {
		t.Errorf("Incident(A) = %s, want e1", e1.ID)
	}
	if !e1.Geometry[0].Equal(g.Nodes[a].Point) {
		t.Errorf("e1 starts at %v, want node point %v", e1.Geometry[0], g.Nodes[a].Point)
	}

	j, ok := g.Node("junction-1")
	if !ok {
		t.Fatal("junction-1 missing")
	}
	if g.Degree(j) != 3 {
		t.Errorf("Degree(junction-1) = %d, want 3", g.Degree(j))
	}
	if _, ok := g.Node("junction-2"); !ok {
		t.Error("junction-2 missing")
	}

	if got := g.Resolve("UBERON:1"); len(got) != 1 || got[0] != a {
		t.Errorf("Resolve(UBERON:1) = %v, want [%d]", got, a)
	}
	i, _ := g.Edge("e2")
	if g.Edges[i].Capacity != 2 {
		t.Errorf("e2 capacity = %d, want 2", g.Edges[i].Capacity)
	}
	if g.Edges[i].Length != 5 {
		t.Errorf("e2 length = %v, want 5", g.Edges[i].Length)
	}
}

func TestBuildPrunesIsolatedNodes(t *testing.T) {
	fc := collection(t,
		node("lonely", orb.Point{100, 100}, ""),
		centreline("e", orb.LineString{{0, 0}, {1, 0}}, 0),
	)
	g, _, err := Build(fc, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Pruned) != 1 || g.Pruned[0] != "lonely" {
		t.Errorf("Pruned = %v, want [lonely]", g.Pruned)
	}
	if _, ok := g.Node("lonely"); ok {
		t.Error("pruned node still indexed")
	}
}

func TestBuildSelfLoop(t *testing.T) {
	fc := collection(t,
		centreline("loop", orb.LineString{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, 0),
		centreline("e", orb.LineString{{5, 5}, {6, 5}}, 0),
	)
	g, diags, err := Build(fc, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !diags.HasCode(flaterrors.ErrCodeSelfLoop) {
		t.Errorf("diagnostics = %v, want %s", diags.Items(), flaterrors.ErrCodeSelfLoop)
	}
	if len(g.Edges) != 1 {
		t.Errorf("Edges = %d, want 1", len(g.Edges))
	}
	if len(g.Pruned) != 1 {
		t.Errorf("Pruned = %v, want the loop junction", g.Pruned)
	}
}

func TestBuildNoCentrelines(t *testing.T) {
	_, _, err := Build(collection(t, node("A", orb.Point{0, 0}, "")), Options{})
	if !errors.Is(err, ErrNoNodes) {
		t.Errorf("Build() error = %v, want ErrNoNodes", err)
	}
}

func TestBuildSnapsWithinTolerance(t *testing.T) {
	fc := collection(t,
		centreline("a", orb.LineString{{0, 0}, {1, 0}}, 0),
		centreline("b", orb.LineString{{1.05, 0}, {2, 0}}, 0),
	)
	g, _, err := Build(fc, Options{Tolerance: 0.1})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Errorf("Nodes = %d, want 3", len(g.Nodes))
	}
	ea, _ := g.Edge("a")
	eb, _ := g.Edge("b")
	if !g.Edges[ea].Geometry[1].Equal(g.Edges[eb].Geometry[0]) {
		t.Errorf("edges do not meet exactly: %v vs %v", g.Edges[ea].Geometry[1], g.Edges[eb].Geometry[0])
	}
}
