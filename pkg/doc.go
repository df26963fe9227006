// Package pkg provides the core libraries for flatmap.
//
// # Overview
//
// Flatmap turns annotated vector drawings of anatomy into map features. Shape
// names carry a small markup language that says what each shape is: an
// organ boundary, a divider, a nerve centreline, a node. From the resolved
// features flatmap builds a centreline network and routes neuron connectivity
// paths over it.
//
// # Architecture
//
// The data flow through flatmap:
//
//	Shape trees (one per source) + manifest
//	         ↓
//	    [markup] + [resolve] (directives → features, [subdivide] boundaries into regions)
//	         ↓
//	    [network] (centrelines → graph of nodes and edges)
//	         ↓
//	    [connectivity] + [route] (path specs → routed paths under capacity limits)
//	         ↓
//	    GeoJSON features, paths and diagnostics
//
// [pipeline] runs the stages with caching and is shared by the CLI and the
// HTTP server.
//
// # Quick Start
//
//	m, _ := config.Load("flatmap.toml")
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Manifest: m})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = io.ExportDir("out", result.Artifacts)
//
// # Main Packages
//
// ## Core Domain Logic
//
// [markup] - Parser for the shape-name directive language.
//
// [resolve] - Flattens a shape tree into features, applying inherited
// classes, layers and visibility.
//
// [subdivide] - Splits a boundary polygon into regions along divider lines.
//
// [network] - Builds the centreline graph, snapping centreline ends to named
// nodes and to each other.
//
// [route] - Routes connectivity paths over the network. Paths of the same type
// prefer to share edges and edges with a capacity are shared by at most that
// many paths.
//
// [connectivity] - Reads connectivity documents and resolves path models
// against a knowledge source.
//
// ## Data Types
//
// [shape] - Input shape trees.
//
// [feature] - Map features and GeoJSON encoding.
//
// [geom] - Planar geometry helpers on top of paulmach/orb.
//
// [diag] - Non-fatal build diagnostics.
//
// ## Infrastructure
//
// [pipeline] - The complete build used by the CLI and server.
//
// [config] - TOML map manifests.
//
// [cache] - File, Redis and no-op caches for builds, knowledge lookups and
// renderings.
//
// [io] - Reading shape trees and writing output documents.
//
// [render/nodelink] - Graphviz diagrams of the centreline network.
//
// [export/neo4j] - Loads the network and routed paths into Neo4j.
//
// [observability] - Hooks for metrics and tracing.
//
// # Testing
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/route/...    # Specific package
//	go test -run Example       # Examples only
//
// [markup]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/markup
// [resolve]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/resolve
// [subdivide]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/subdivide
// [network]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/network
// [route]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/route
// [connectivity]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/connectivity
// [shape]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/shape
// [feature]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/feature
// [geom]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/geom
// [diag]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/diag
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/cache
// [io]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/io
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/render/nodelink
// [export/neo4j]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/export/neo4j
// [observability]: https://pkg.go.dev/github.com/matzehuels/flatmap/pkg/observability
package pkg
