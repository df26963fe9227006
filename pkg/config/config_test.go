package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/route"
)

const minimal = `
id = "rat"

[[sources]]
id = "body"
href = "body.json"
`

func TestParseDefaults(t *testing.T) {
	m, err := Parse(minimal, "/maps/rat")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	opts := m.RouterOptions()
	if opts.ReuseDiscount != route.DefaultReuseDiscount {
		t.Errorf("ReuseDiscount = %v, want %v", opts.ReuseDiscount, route.DefaultReuseDiscount)
	}
	if opts.SolveTimeout != route.DefaultSolveTimeout {
		t.Errorf("SolveTimeout = %v, want %v", opts.SolveTimeout, route.DefaultSolveTimeout)
	}
	if m.CacheTTL() != DefaultCacheTTL {
		t.Errorf("CacheTTL() = %v, want %v", m.CacheTTL(), DefaultCacheTTL)
	}
	if got := m.Resolve("body.json"); got != filepath.Join("/maps/rat", "body.json") {
		t.Errorf("Resolve() = %q", got)
	}
	if got := m.Resolve("/abs/x.json"); got != "/abs/x.json" {
		t.Errorf("Resolve(abs) = %q, want unchanged", got)
	}
	if p := m.Projection()(orb.Point{3, 4}); !p.Equal(orb.Point{3, 4}) {
		t.Errorf("Projection() moved point to %v", p)
	}
}

func TestParseFull(t *testing.T) {
	text := `
id = "rat"
url = "https://example.org/maps/rat"
knowledge = "knowledge.json"

[[sources]]
id = "body"
href = "body.json"

[[sources]]
id = "nerves"
href = "nerves.json"

[[connectivity]]
href = "paths/vagal.json"

[transform]
scale = [2.0, -1.0]
offset = [10.0, 100.0]

[subdivide]
extend = 0.5

[router]
reuse-discount = 0.5
max-candidates = 3
solve-timeout = "250ms"
workers = 2

[cache]
redis = "localhost:6379"
ttl = "1h"

[neo4j]
uri = "neo4j://localhost:7687"
user = "neo4j"
password = "secret"
`
	m, err := Parse(text, "/maps/rat")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(m.Sources) != 2 || m.Sources[1].ID != "nerves" {
		t.Errorf("Sources = %+v", m.Sources)
	}
	want := route.Options{ReuseDiscount: 0.5, MaxCandidates: 3, SolveTimeout: 250 * time.Millisecond, Workers: 2}
	if got := m.RouterOptions(); got != want {
		t.Errorf("RouterOptions() = %+v, want %+v", got, want)
	}
	if got := m.SubdivideOptions().Extend; got != 0.5 {
		t.Errorf("Extend = %v, want 0.5", got)
	}
	if p := m.Projection()(orb.Point{1, 1}); !p.Equal(orb.Point{12, 99}) {
		t.Errorf("Projection()(1,1) = %v, want [12 99]", p)
	}
	if m.Neo4j.Database != DefaultNeo4jDatabase {
		t.Errorf("Neo4j.Database = %q, want %q", m.Neo4j.Database, DefaultNeo4jDatabase)
	}
	if m.CacheTTL() != time.Hour {
		t.Errorf("CacheTTL() = %v, want 1h", m.CacheTTL())
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no id", "[[sources]]\nid = \"a\"\nhref = \"a.json\"\n"},
		{"no sources", "id = \"x\"\n"},
		{"duplicate source", minimal + "\n[[sources]]\nid = \"body\"\nhref = \"b.json\"\n"},
		{"unknown key", minimal + "\ncolour = \"red\"\n"},
		{"bad discount", minimal + "\n[router]\nreuse-discount = 1.5\n"},
		{"bad timeout", minimal + "\n[router]\nsolve-timeout = \"soon\"\n"},
		{"zero scale", minimal + "\n[transform]\nscale = [0.0, 1.0]\n"},
		{"bad url", "url = \"ftp://x\"\n" + minimal},
		{"not toml", "id = "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, "")
			if !errors.Is(err, errors.ErrCodeInvalidManifest) {
				t.Errorf("Parse() error = %v, want %s", err, errors.ErrCodeInvalidManifest)
			}
		})
	}
}

func TestUUID(t *testing.T) {
	a := &Manifest{ID: "rat", URL: "https://example.org/maps/rat"}
	b := &Manifest{ID: "other", URL: "https://example.org/maps/rat"}
	c := &Manifest{ID: "rat"}
	if a.UUID() != b.UUID() {
		t.Error("UUID() differs for the same url")
	}
	if a.UUID() == c.UUID() {
		t.Error("UUID() ignores url")
	}
	if a.UUID().Version() != 5 {
		t.Errorf("UUID().Version() = %d, want 5", a.UUID().Version())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.toml")
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := m.Resolve(m.Sources[0].Href); got != filepath.Join(dir, "body.json") {
		t.Errorf("Resolve() = %q, want %q", got, filepath.Join(dir, "body.json"))
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
}
