// Package pipeline builds a map from a manifest.
//
// This package runs the resolve → network → route pipeline shared by the
// CLI and the HTTP server, so that both produce identical output for the
// same inputs.
//
// # Architecture
//
// A build has four stages:
//
//  1. Load: read every file the manifest names and hash their contents
//  2. Resolve: turn each shape tree into features, sources in parallel
//  3. Network: build the centreline graph from the merged features
//  4. Route: route connectivity paths over the graph and attach the routes
//     to drawn path features
//
// The encoded outputs of a build are cached under the hash of its inputs.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Manifest: m})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	features := result.Artifacts[io.FileFeatures]
//
// [Runner.Build] runs the stages without the cache and keeps the in-memory
// features, graph and routes for callers that need more than the encoded
// documents.
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flatmap/pkg/config"
	"github.com/matzehuels/flatmap/pkg/connectivity"
	"github.com/matzehuels/flatmap/pkg/diag"
	"github.com/matzehuels/flatmap/pkg/feature"
	"github.com/matzehuels/flatmap/pkg/network"
	"github.com/matzehuels/flatmap/pkg/route"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one build.
type Options struct {
	// Manifest describes the map. Required.
	Manifest *config.Manifest

	// Knowledge resolves path models to labels and phenotypes. When nil the
	// manifest's knowledge file is used, if it names one. A source given
	// here is wrapped in the runner's cache.
	Knowledge connectivity.Knowledge

	// Refresh skips cache reads. Results are still written back.
	Refresh bool

	// Logger overrides the runner's logger.
	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Manifest == nil {
		return fmt.Errorf("manifest is required")
	}
	o.Manifest.SetDefaults()
	if err := o.Manifest.Validate(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a build.
type Result struct {
	// Features, Graph and Routes are the in-memory results. They are nil
	// when the result came from the cache. Graph is also nil when the map
	// has no centrelines.
	Features *feature.Collection
	Graph    *network.Graph
	Routes   *route.Result

	// Diagnostics lists every non-fatal problem in emission order: sources
	// in manifest order, then the network, connectivity and routing.
	Diagnostics *diag.List

	// Artifacts holds the encoded output documents keyed by file name.
	Artifacts map[string][]byte

	// InputHash is the content hash of every input file.
	InputHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the build came from the cache.
	CacheInfo CacheInfo
}

// Stats contains build statistics.
type Stats struct {
	Sources     int           `json:"sources"`
	Features    int           `json:"features"`
	Visible     int           `json:"visible"`
	Nodes       int           `json:"nodes"`
	Edges       int           `json:"edges"`
	Paths       int           `json:"paths"`
	Routed      int           `json:"routed"`
	Dropped     int           `json:"dropped"`
	Contended   int           `json:"contended"`
	Infeasible  int           `json:"infeasible"`
	Warnings    int           `json:"warnings"`
	Errors      int           `json:"errors"`
	ResolveTime time.Duration `json:"resolve_time"`
	NetworkTime time.Duration `json:"network_time"`
	RouteTime   time.Duration `json:"route_time"`
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	BuildHit bool // Whether the encoded documents came from cache
}
