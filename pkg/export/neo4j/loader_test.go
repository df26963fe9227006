package neo4j

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/feature"
	"github.com/matzehuels/flatmap/pkg/network"
	"github.com/matzehuels/flatmap/pkg/route"
)

type statement struct {
	cypher string
	params map[string]any
}

type recorder struct {
	statements []statement
	failOn     string
}

func (r *recorder) Execute(_ context.Context, cypher string, params map[string]any) error {
	if r.failOn != "" && strings.Contains(cypher, r.failOn) {
		return errors.New(errors.ErrCodeNetwork, "connection refused")
	}
	r.statements = append(r.statements, statement{cypher, params})
	return nil
}

func (r *recorder) batch(t *testing.T, contains string) []map[string]any {
	t.Helper()
	for _, s := range r.statements {
		if strings.Contains(s.cypher, contains) {
			b, _ := s.params["batch"].([]map[string]any)
			return b
		}
	}
	t.Fatalf("no statement containing %q", contains)
	return nil
}

func testGraph(t *testing.T) *network.Graph {
	t.Helper()
	fc := feature.NewCollection()
	for _, f := range []*feature.Feature{
		{ID: "A", Geometry: orb.Point{0, 0}, Properties: map[string]any{feature.PropNode: true}},
		{ID: "B", Geometry: orb.Point{10, 0}, Properties: map[string]any{feature.PropNode: true}},
		{ID: "c1", Geometry: orb.LineString{{0, 0}, {5, 0}}, Properties: map[string]any{feature.PropCentreline: true}},
		{ID: "c2", Geometry: orb.LineString{{5, 0}, {10, 0}}, Properties: map[string]any{feature.PropCentreline: true, feature.PropCapacity: 2}},
	} {
		if err := fc.Add(f); err != nil {
			t.Fatal(err)
		}
	}
	g, _, err := network.Build(fc, network.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func quiet() *log.Logger { return log.NewWithOptions(io.Discard, log.Options{}) }

func TestExport(t *testing.T) {
	rec := &recorder{}
	l := NewLoader(rec, "map-1", quiet())
	paths := []route.RoutedPath{{
		ID:     "p1",
		Type:   "symp",
		Nodes:  []string{"A", "junction-1", "B"},
		Edges:  []string{"c1", "c2"},
		Length: 10,
	}}
	if err := l.Export(context.Background(), testGraph(t), paths); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if got := len(rec.statements); got != 8 {
		t.Errorf("statements = %d, want 8", got)
	}
	for _, s := range rec.statements {
		if strings.Contains(s.cypher, "$map") && s.params["map"] != "map-1" {
			t.Errorf("statement %q has map %v, want map-1", s.cypher, s.params["map"])
		}
	}

	nodes := rec.batch(t, "SET n.models")
	if len(nodes) != 3 {
		t.Errorf("node batch = %d, want 3", len(nodes))
	}
	edges := rec.batch(t, "CENTRELINE")
	if len(edges) != 2 || edges[1]["capacity"] != 2 || edges[1]["a"] != "junction-1" {
		t.Errorf("edge batch = %v", edges)
	}
	hops := rec.batch(t, "ROUTED_OVER")
	if len(hops) != 3 {
		t.Fatalf("hop batch = %d, want 3", len(hops))
	}
	if hops[0]["edge"] != "" || hops[2]["edge"] != "c2" || hops[2]["seq"] != 2 {
		t.Errorf("hops = %v", hops)
	}
}

func TestExportEmpty(t *testing.T) {
	rec := &recorder{}
	if err := NewLoader(rec, "m", quiet()).Export(context.Background(), nil, nil); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	for _, s := range rec.statements {
		if strings.Contains(s.cypher, "UNWIND") {
			t.Errorf("empty export ran %q", s.cypher)
		}
	}
}

func TestExportError(t *testing.T) {
	rec := &recorder{failOn: "CENTRELINE"}
	err := NewLoader(rec, "m", quiet()).Export(context.Background(), testGraph(t), nil)
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Fatalf("Export() error = %v, want %s", err, errors.ErrCodeNetwork)
	}
	if !strings.HasPrefix(err.Error(), "edges: ") {
		t.Errorf("Export() error = %q, want edges prefix", err)
	}
}

func TestConnectRequiresURI(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}, "m", quiet()); !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("Connect() error = %v, want %s", err, errors.ErrCodeInvalidManifest)
	}
}
