package nodelink

import (
	"fmt"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/flatmap/pkg/feature"
	"github.com/matzehuels/flatmap/pkg/network"
	"github.com/matzehuels/flatmap/pkg/route"
)

func testGraph(t *testing.T) *network.Graph {
	t.Helper()
	fc := feature.NewCollection()
	add := func(id string, g orb.Geometry, props map[string]any) {
		if err := fc.Add(&feature.Feature{ID: id, Geometry: g, Visible: true, Properties: props}); err != nil {
			t.Fatal(err)
		}
	}
	add("A", orb.Point{0, 0}, map[string]any{feature.PropNode: true, feature.PropAnatomicalID: "UBERON:1"})
	add("B", orb.Point{10, 0}, map[string]any{feature.PropNode: true})
	add("c1", orb.LineString{{0, 0}, {5, 0}}, map[string]any{feature.PropCentreline: true, feature.PropCapacity: 1})
	add("c2", orb.LineString{{5, 0}, {10, 0}}, map[string]any{feature.PropCentreline: true})
	g, _, err := network.Build(fc, network.Options{})
	if err != nil {
		t.Fatalf("network.Build() error = %v", err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	g := testGraph(t)
	paths := []route.RoutedPath{
		{ID: "p2", Type: "symp", Edges: []string{"c1"}},
		{ID: "p1", Type: "para", Edges: []string{"c1", "c2"}},
	}
	dot := ToDOT(g, paths, Options{Routes: true, Detailed: true})

	for _, want := range []string{
		"graph G {",
		`"A" [label="A\nUBERON:1"];`,
		`"junction-1" [label="", shape=point, width=0.08];`,
		`"A" -- "junction-1" [label="c1\n5.0\ncap 1", color="#3f8f4a", penwidth=3, tooltip="p1, p2", style=dashed];`,
		`"junction-1" -- "B" [label="c2\n5.0", color="#3f8f4a", penwidth=2, tooltip="p1"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %s\n%s", want, dot)
		}
	}
}

func TestToDOTPlain(t *testing.T) {
	dot := ToDOT(testGraph(t), []route.RoutedPath{{ID: "p1", Edges: []string{"c1"}}}, Options{})
	if strings.Contains(dot, "color=") && strings.Contains(dot, "tooltip") {
		t.Errorf("ToDOT() without Routes coloured edges:\n%s", dot)
	}
	if !strings.Contains(dot, `[label="c1"];`) {
		t.Errorf("ToDOT() edge label not plain:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}
}

func ExampleToDOT() {
	fc := feature.NewCollection()
	_ = fc.Add(&feature.Feature{ID: "c", Geometry: orb.LineString{{0, 0}, {3, 4}}, Visible: true,
		Properties: map[string]any{feature.PropCentreline: true}})
	g, _, _ := network.Build(fc, network.Options{})
	fmt.Print(ToDOT(g, nil, Options{Detailed: true}))
	// Output:
	// graph G {
	//   rankdir=LR;
	//   bgcolor="transparent";
	//   node [shape=box, style="rounded,filled", fillcolor=white, fontsize=14, margin="0.1,0.05"];
	//   edge [fontsize=10, color="#bbbbbb"];
	//
	//   "junction-1" [label="", shape=point, width=0.08];
	//   "junction-2" [label="", shape=point, width=0.08];
	//
	//   "junction-1" -- "junction-2" [label="c\n5.0"];
	// }
}
