package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/flatmap/pkg/cache"
	"github.com/matzehuels/flatmap/pkg/config"
	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/feature"
	mapio "github.com/matzehuels/flatmap/pkg/io"
)

const bodyTree = `{
  "source": "body",
  "root": {"id": "g", "markup": ".children(organ)", "children": [
    {"id": "b", "markup": ".boundary", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"id": "d", "markup": "", "geometry": {"type": "LineString", "coordinates": [[5,0],[5,10]]}},
    {"id": "r", "markup": ".region id(liver)", "geometry": {"type": "Point", "coordinates": [8,5]}}
  ]}
}`

const nerveTree = `{
  "source": "nerves",
  "root": {"id": "g", "markup": "", "children": [
    {"id": "a", "markup": ".node id(A)", "geometry": {"type": "Point", "coordinates": [0,20]}},
    {"id": "b", "markup": ".node id(B)", "geometry": {"type": "Point", "coordinates": [10,20]}},
    {"id": "c1", "markup": ".centreline id(c1)", "geometry": {"type": "LineString", "coordinates": [[0,20],[5,20]]}},
    {"id": "c2", "markup": ".centreline id(c2)", "geometry": {"type": "LineString", "coordinates": [[5,20],[10,20]]}},
    {"id": "drawn", "markup": ".path(p1)", "geometry": {"type": "LineString", "coordinates": [[0,21],[10,21]]}}
  ]}
}`

const paths = `{"id": "doc", "paths": [
  {"id": "p1", "route": ["A", "B"], "models": "ilxtr:n1"},
  {"id": "lost", "route": ["A", "Z"]}
]}`

const knowledge = `[{"id": "ilxtr:n1", "label": "Neuron 1", "phenotypes": ["ilxtr:SympatheticPhenotype"]}]`

const manifest = `
id = "test"
knowledge = "knowledge.json"

[[sources]]
id = "body"
href = "body.json"

[[sources]]
id = "nerves"
href = "nerves.json"

[[connectivity]]
href = "paths.json"
`

func writeMap(t *testing.T, files map[string]string) *config.Manifest {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m, err := config.Load(filepath.Join(dir, "manifest.toml"))
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return m
}

func testMap(t *testing.T) *config.Manifest {
	return writeMap(t, map[string]string{
		"manifest.toml":  manifest,
		"body.json":      bodyTree,
		"nerves.json":    nerveTree,
		"paths.json":     paths,
		"knowledge.json": knowledge,
	})
}

func TestValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("ValidateAndSetDefaults() without manifest succeeded")
	}
	opts.Manifest = &config.Manifest{ID: "x", Sources: []config.Source{{ID: "a", Href: "a.json"}}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}
}

func TestBuild(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Build(context.Background(), Options{Manifest: testMap(t)})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, ok := res.Features.Get("liver"); !ok {
		t.Error("region liver missing")
	}
	if res.Stats.Sources != 2 || res.Stats.Nodes != 3 || res.Stats.Edges != 2 {
		t.Errorf("Stats = %+v, want 2 sources, 3 nodes, 2 edges", res.Stats)
	}
	if res.Stats.Routed != 1 || res.Stats.Dropped != 1 {
		t.Errorf("Stats = %+v, want 1 routed, 1 dropped", res.Stats)
	}
	if !res.Diagnostics.HasCode(errors.ErrCodeUnknownReference) {
		t.Errorf("diagnostics = %v, want %s", res.Diagnostics.Items(), errors.ErrCodeUnknownReference)
	}

	p := res.Routes.Paths[0]
	if p.Label != "Neuron 1" || p.Type != "symp" {
		t.Errorf("p1 = %q/%q, want Neuron 1/symp", p.Label, p.Type)
	}
	drawn, ok := res.Features.Get("nerves/drawn")
	if !ok {
		t.Fatal("drawn path missing")
	}
	if !drawn.Flag(feature.PropRouted) {
		t.Error("drawn path not marked routed")
	}

	for _, name := range []string{mapio.FileFeatures, mapio.FilePaths, mapio.FileDiagnostics, mapio.FileIndex} {
		if len(res.Artifacts[name]) == 0 {
			t.Errorf("artifact %s missing", name)
		}
	}
	var idx mapio.Index
	if err := json.Unmarshal(res.Artifacts[mapio.FileIndex], &idx); err != nil {
		t.Fatal(err)
	}
	if idx.ID != "test" || idx.Paths != 1 || idx.UUID == "" {
		t.Errorf("index = %+v", idx)
	}
}

func TestExecuteCaches(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	m := testMap(t)
	ctx := context.Background()

	first, err := r.Execute(ctx, Options{Manifest: m})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first.CacheInfo.BuildHit {
		t.Error("first Execute() hit the cache")
	}
	second, err := r.Execute(ctx, Options{Manifest: m})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !second.CacheInfo.BuildHit {
		t.Error("second Execute() missed the cache")
	}
	if second.InputHash != first.InputHash {
		t.Errorf("InputHash = %s, want %s", second.InputHash, first.InputHash)
	}
	for name, data := range first.Artifacts {
		if string(second.Artifacts[name]) != string(data) {
			t.Errorf("cached %s differs", name)
		}
	}
	if second.Diagnostics.Len() != first.Diagnostics.Len() {
		t.Errorf("cached diagnostics = %d, want %d", second.Diagnostics.Len(), first.Diagnostics.Len())
	}

	refreshed, err := r.Execute(ctx, Options{Manifest: m, Refresh: true})
	if err != nil {
		t.Fatalf("Execute(refresh) error = %v", err)
	}
	if refreshed.CacheInfo.BuildHit {
		t.Error("Execute(refresh) hit the cache")
	}
}

func TestBuildDeterministic(t *testing.T) {
	m := testMap(t)
	r := NewRunner(nil, nil, nil)
	first, err := r.Build(context.Background(), Options{Manifest: m})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := r.Build(context.Background(), Options{Manifest: m})
		if err != nil {
			t.Fatal(err)
		}
		for name, data := range first.Artifacts {
			if string(again.Artifacts[name]) != string(data) {
				t.Fatalf("run %d: %s differs", i, name)
			}
		}
	}
}

func TestBuildDuplicateAcrossSources(t *testing.T) {
	m := writeMap(t, map[string]string{
		"manifest.toml": "id = \"dup\"\n[[sources]]\nid = \"a\"\nhref = \"a.json\"\n[[sources]]\nid = \"b\"\nhref = \"b.json\"\n",
		"a.json":        `{"root": {"id": "x", "markup": ".id(same)", "geometry": {"type": "Point", "coordinates": [0,0]}}}`,
		"b.json":        `{"root": {"id": "y", "markup": ".id(same)", "geometry": {"type": "Point", "coordinates": [1,1]}}}`,
	})
	_, err := NewRunner(nil, nil, nil).Build(context.Background(), Options{Manifest: m})
	if !errors.Is(err, errors.ErrCodeDuplicateFeatureID) {
		t.Fatalf("Build() error = %v, want %s", err, errors.ErrCodeDuplicateFeatureID)
	}
}

func TestBuildMissingSource(t *testing.T) {
	m := writeMap(t, map[string]string{
		"manifest.toml": "id = \"gone\"\n[[sources]]\nid = \"a\"\nhref = \"a.json\"\n",
	})
	_, err := NewRunner(nil, nil, nil).Build(context.Background(), Options{Manifest: m})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("Build() error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
}

func TestInputsHash(t *testing.T) {
	a := &Inputs{Manifest: []byte("m"), Sources: [][]byte{[]byte("ab"), []byte("c")}}
	b := &Inputs{Manifest: []byte("m"), Sources: [][]byte{[]byte("a"), []byte("bc")}}
	if a.Hash() == b.Hash() {
		t.Error("Hash() ignores file boundaries")
	}
}
