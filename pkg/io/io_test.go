package io

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/flatmap/pkg/diag"
	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/feature"
	"github.com/matzehuels/flatmap/pkg/route"
)

const tree = `{
  "source": "body",
  "root": {
    "id": "g",
    "markup": ".children(organ)",
    "children": [
      {"id": "b", "markup": ".boundary", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
      {"id": "r", "markup": ".region id(liver)", "geometry": {"type": "Point", "coordinates": [3,4]}}
    ]
  }
}`

func TestReadShapes(t *testing.T) {
	tr, err := ReadShapes(strings.NewReader(tree))
	if err != nil {
		t.Fatalf("ReadShapes() error = %v", err)
	}
	if tr.Source != "body" {
		t.Errorf("Source = %q, want body", tr.Source)
	}
	if got := tr.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	if p, ok := tr.Root.Children[1].Geometry.(orb.Point); !ok || !p.Equal(orb.Point{3, 4}) {
		t.Errorf("region geometry = %v, want [3 4]", tr.Root.Children[1].Geometry)
	}
}

func TestReadShapesInvalid(t *testing.T) {
	if _, err := ReadShapes(strings.NewReader("{")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ReadShapes() error = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
	if _, err := ImportShapes(filepath.Join(t.TempDir(), "none.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ImportShapes() error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
}

func TestWriteFeatures(t *testing.T) {
	fc := feature.NewCollection()
	for _, f := range []*feature.Feature{
		{ID: "b", Geometry: orb.Point{1, 1}, Visible: true, Properties: map[string]any{}},
		{ID: "a", Geometry: orb.Point{0, 0}, Visible: true, Properties: map[string]any{}},
		{ID: "hidden", Geometry: orb.Point{2, 2}, Properties: map[string]any{}},
	} {
		if err := fc.Add(f); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := WriteFeatures(fc, &buf); err != nil {
		t.Fatalf("WriteFeatures() error = %v", err)
	}
	var out struct {
		Features []struct {
			ID string `json:"id"`
		} `json:"features"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(out.Features) != 2 || out.Features[0].ID != "a" || out.Features[1].ID != "b" {
		t.Errorf("features = %+v, want [a b]", out.Features)
	}
}

func TestWritePaths(t *testing.T) {
	paths := []route.RoutedPath{
		{ID: "p2", Type: "symp", Geometry: orb.LineString{{0, 0}, {1, 0}}, Edges: []string{"e1"}},
		{ID: "p1", Label: "Vagus", Geometry: orb.LineString{{0, 0}, {0, 1}}, Edges: []string{"e2"}},
	}
	fc := PathsToGeoJSON(paths)
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}
	first := fc.Features[0]
	if first.ID != "p1" || first.Properties["path-id"] != "p1" || first.Properties["label"] != "Vagus" {
		t.Errorf("first = %v %v, want p1 with label", first.ID, first.Properties)
	}
	if _, ok := first.Properties["type"]; ok {
		t.Error("empty type written")
	}
	if fc.Features[1].Properties["type"] != "symp" {
		t.Errorf("p2 type = %v, want symp", fc.Features[1].Properties["type"])
	}

	var a, b bytes.Buffer
	if err := WritePaths(paths, &a); err != nil {
		t.Fatalf("WritePaths() error = %v", err)
	}
	if err := WritePaths([]route.RoutedPath{paths[1], paths[0]}, &b); err != nil {
		t.Fatalf("WritePaths() error = %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("WritePaths() depends on input order")
	}
}

func TestWriteDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDiagnostics(nil, &buf); err != nil {
		t.Fatalf("WriteDiagnostics() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("WriteDiagnostics(nil) = %q, want []", got)
	}

	l := &diag.List{}
	l.Warn(errors.ErrCodeDividerOutside, "d1", "outside")
	l.WarnPath(errors.ErrCodeNoRoute, "p1", "no route")
	buf.Reset()
	if err := WriteDiagnostics(l, &buf); err != nil {
		t.Fatalf("WriteDiagnostics() error = %v", err)
	}
	var out []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(out) != 2 || out[0]["shape"] != "d1" || out[1]["path"] != "p1" || out[1]["code"] != "NO_ROUTE" {
		t.Errorf("diagnostics = %v", out)
	}
}

func TestExportDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var idx bytes.Buffer
	if err := WriteIndex(Index{ID: "rat", Features: 3}, &idx); err != nil {
		t.Fatal(err)
	}
	if err := ExportDir(dir, map[string][]byte{FileIndex: idx.Bytes()}); err != nil {
		t.Fatalf("ExportDir() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, FileIndex))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got Index
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "rat" || got.Features != 3 {
		t.Errorf("index = %+v", got)
	}
}
