package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/geom"
	"github.com/matzehuels/flatmap/pkg/network"
	"github.com/matzehuels/flatmap/pkg/route"
	"github.com/matzehuels/flatmap/pkg/subdivide"
)

const (
	// DefaultCacheTTL is how long cached builds stay valid.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultNeo4jDatabase is the database written by the graph export.
	DefaultNeo4jDatabase = "neo4j"
)

// Manifest describes one map.
type Manifest struct {
	ID           string         `toml:"id"`
	URL          string         `toml:"url"`
	Knowledge    string         `toml:"knowledge"`
	Sources      []Source       `toml:"sources"`
	Connectivity []Connectivity `toml:"connectivity"`

	Transform Transform `toml:"transform"`
	Network   Network   `toml:"network"`
	Subdivide Subdivide `toml:"subdivide"`
	Router    Router    `toml:"router"`
	Cache     Cache     `toml:"cache"`
	Neo4j     Neo4j     `toml:"neo4j"`

	// Dir is the directory relative hrefs resolve against.
	Dir string `toml:"-"`
}

// Source is one shape tree.
type Source struct {
	ID   string `toml:"id"`
	Href string `toml:"href"`
}

// Connectivity is one connectivity document.
type Connectivity struct {
	Href string `toml:"href"`
}

// Transform is the affine projection applied to every source.
type Transform struct {
	Scale  []float64 `toml:"scale"`
	Offset []float64 `toml:"offset"`
}

// Network configures the connectivity graph.
type Network struct {
	Tolerance float64 `toml:"tolerance"`
}

// Subdivide configures boundary subdivision.
type Subdivide struct {
	Tolerance float64 `toml:"tolerance"`
	Extend    float64 `toml:"extend"`
}

// Router configures path routing.
type Router struct {
	ReuseDiscount float64 `toml:"reuse-discount"`
	MaxCandidates int     `toml:"max-candidates"`
	SolveTimeout  string  `toml:"solve-timeout"`
	Workers       int     `toml:"workers"`
}

// Cache selects the build cache. Redis takes precedence over Dir.
type Cache struct {
	Dir   string `toml:"dir"`
	Redis string `toml:"redis"`
	TTL   string `toml:"ttl"`
}

// Neo4j is the graph export target.
type Neo4j struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

// =============================================================================
// Loading
// =============================================================================

// Load reads, defaults and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	m, err := Parse(string(data), dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest text. Relative hrefs resolve against dir.
func Parse(text, dir string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(text, &m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode manifest")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidManifest, "unknown keys: %s", strings.Join(keys, ", "))
	}
	m.Dir = dir
	m.SetDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetDefaults fills unset fields.
func (m *Manifest) SetDefaults() {
	if len(m.Transform.Scale) == 0 {
		m.Transform.Scale = []float64{1, 1}
	}
	if len(m.Transform.Offset) == 0 {
		m.Transform.Offset = []float64{0, 0}
	}
	if m.Network.Tolerance <= 0 {
		m.Network.Tolerance = network.DefaultTolerance
	}
	if m.Subdivide.Tolerance <= 0 {
		m.Subdivide.Tolerance = subdivide.DefaultTolerance
	}
	if m.Router.ReuseDiscount == 0 {
		m.Router.ReuseDiscount = route.DefaultReuseDiscount
	}
	if m.Router.MaxCandidates == 0 {
		m.Router.MaxCandidates = route.DefaultMaxCandidates
	}
	if m.Router.SolveTimeout == "" {
		m.Router.SolveTimeout = route.DefaultSolveTimeout.String()
	}
	if m.Router.Workers == 0 {
		m.Router.Workers = route.DefaultWorkers
	}
	if m.Cache.TTL == "" {
		m.Cache.TTL = DefaultCacheTTL.String()
	}
	if m.Neo4j.Database == "" {
		m.Neo4j.Database = DefaultNeo4jDatabase
	}
}

// Validate checks the manifest for errors.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return errors.New(errors.ErrCodeInvalidManifest, "manifest has no id")
	}
	if m.URL != "" {
		if err := errors.ValidateURL(m.URL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidManifest, err, "url")
		}
	}
	if len(m.Sources) == 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "manifest has no sources")
	}
	seen := make(map[string]bool, len(m.Sources))
	for i, s := range m.Sources {
		if s.ID == "" || s.Href == "" {
			return errors.New(errors.ErrCodeInvalidManifest, "source %d needs id and href", i+1)
		}
		if seen[s.ID] {
			return errors.New(errors.ErrCodeInvalidManifest, "duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
	}
	for i, c := range m.Connectivity {
		if c.Href == "" {
			return errors.New(errors.ErrCodeInvalidManifest, "connectivity %d has no href", i+1)
		}
	}
	if len(m.Transform.Scale) != 2 || len(m.Transform.Offset) != 2 {
		return errors.New(errors.ErrCodeInvalidManifest, "transform scale and offset take two numbers")
	}
	if m.Transform.Scale[0] == 0 || m.Transform.Scale[1] == 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "transform scale cannot be zero")
	}
	if m.Subdivide.Extend < 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "subdivide extend cannot be negative")
	}
	if d := m.Router.ReuseDiscount; d <= 0 || d > 1 {
		return errors.New(errors.ErrCodeInvalidManifest, "router reuse-discount must be in (0, 1], got %v", d)
	}
	if m.Router.MaxCandidates < 0 || m.Router.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "router limits cannot be negative")
	}
	if _, err := time.ParseDuration(m.Router.SolveTimeout); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidManifest, err, "router solve-timeout")
	}
	if _, err := time.ParseDuration(m.Cache.TTL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidManifest, err, "cache ttl")
	}
	return nil
}

// =============================================================================
// Derived settings
// =============================================================================

// Resolve returns href as a path, relative hrefs taken from the manifest
// directory.
func (m *Manifest) Resolve(href string) string {
	if filepath.IsAbs(href) || m.Dir == "" {
		return href
	}
	return filepath.Join(m.Dir, filepath.FromSlash(href))
}

// UUID is the stable identifier of the map, derived from its URL or, when
// it has none, its id.
func (m *Manifest) UUID() uuid.UUID {
	name := m.URL
	if name == "" {
		name = "flatmap:" + m.ID
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
}

// Projection returns the configured affine transform.
func (m *Manifest) Projection() geom.Transform {
	t := m.Transform
	if t.Scale[0] == 1 && t.Scale[1] == 1 && t.Offset[0] == 0 && t.Offset[1] == 0 {
		return geom.Identity
	}
	return geom.Affine(t.Scale[0], t.Scale[1], t.Offset[0], t.Offset[1])
}

// RouterOptions converts the [router] section.
func (m *Manifest) RouterOptions() route.Options {
	timeout, _ := time.ParseDuration(m.Router.SolveTimeout)
	return route.Options{
		ReuseDiscount: m.Router.ReuseDiscount,
		MaxCandidates: m.Router.MaxCandidates,
		SolveTimeout:  timeout,
		Workers:       m.Router.Workers,
	}
}

// SubdivideOptions converts the [subdivide] section.
func (m *Manifest) SubdivideOptions() subdivide.Options {
	return subdivide.Options{Tolerance: m.Subdivide.Tolerance, Extend: m.Subdivide.Extend}
}

// NetworkOptions converts the [network] section.
func (m *Manifest) NetworkOptions() network.Options {
	return network.Options{Tolerance: m.Network.Tolerance}
}

// CacheTTL returns the configured cache lifetime.
func (m *Manifest) CacheTTL() time.Duration {
	ttl, err := time.ParseDuration(m.Cache.TTL)
	if err != nil || ttl <= 0 {
		return DefaultCacheTTL
	}
	return ttl
}
