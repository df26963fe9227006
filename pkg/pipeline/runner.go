package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/flatmap/pkg/buildinfo"
	"github.com/matzehuels/flatmap/pkg/cache"
	"github.com/matzehuels/flatmap/pkg/config"
	"github.com/matzehuels/flatmap/pkg/connectivity"
	"github.com/matzehuels/flatmap/pkg/diag"
	"github.com/matzehuels/flatmap/pkg/feature"
	mapio "github.com/matzehuels/flatmap/pkg/io"
	"github.com/matzehuels/flatmap/pkg/network"
	"github.com/matzehuels/flatmap/pkg/observability"
	"github.com/matzehuels/flatmap/pkg/resolve"
	"github.com/matzehuels/flatmap/pkg/route"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedBuild is the cache payload of a build.
type cachedBuild struct {
	Artifacts map[string][]byte `json:"artifacts"`
	Stats     Stats             `json:"stats"`
}

// Execute runs the complete pipeline, serving the encoded documents from the
// cache when the inputs are unchanged.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.logger(opts)

	in, err := LoadInputs(ctx, opts.Manifest)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	inputHash := in.Hash()
	m := opts.Manifest
	cacheKey := r.Keyer.BuildKey(inputHash, cache.BuildKeyOpts{
		Tolerance:     m.Network.Tolerance,
		Extend:        m.Subdivide.Extend,
		ReuseDiscount: m.Router.ReuseDiscount,
		MaxCandidates: m.Router.MaxCandidates,
	})

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached cachedBuild
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "build")
				logger.Info("using cached build", "hash", inputHash[:12])
				return &Result{
					Diagnostics: decodeDiagnostics(cached.Artifacts[mapio.FileDiagnostics]),
					Artifacts:   cached.Artifacts,
					InputHash:   inputHash,
					Stats:       cached.Stats,
					CacheInfo:   CacheInfo{BuildHit: true},
				}, nil
			}
			// Unreadable entries fall through to a rebuild.
		}
		observability.Cache().OnCacheMiss(ctx, "build")
	}

	result, err := r.build(ctx, opts, in)
	if err != nil {
		return nil, err
	}
	result.InputHash = inputHash

	if data, err := json.Marshal(cachedBuild{Artifacts: result.Artifacts, Stats: result.Stats}); err == nil {
		err := cache.RetryWithBackoff(ctx, func() error {
			return r.Cache.Set(ctx, cacheKey, data, m.CacheTTL())
		})
		if err != nil {
			logger.Warn("cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "build", len(data))
		}
	}
	return result, nil
}

// Build runs every stage without consulting the cache.
func (r *Runner) Build(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	in, err := LoadInputs(ctx, opts.Manifest)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result, err := r.build(ctx, opts, in)
	if err != nil {
		return nil, err
	}
	result.InputHash = in.Hash()
	return result, nil
}

func (r *Runner) build(ctx context.Context, opts Options, in *Inputs) (*Result, error) {
	logger := r.logger(opts)
	m := opts.Manifest
	result := &Result{Diagnostics: &diag.List{}}

	// Stage 1: Resolve
	start := time.Now()
	fc, diags, err := r.Resolve(ctx, m, in)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	result.Features = fc
	result.Diagnostics.Extend(diags)
	result.Stats.Sources = len(m.Sources)
	result.Stats.ResolveTime = time.Since(start)
	logger.Info("resolved sources",
		"sources", len(m.Sources),
		"features", fc.Len(),
		"duration", result.Stats.ResolveTime)

	// Stage 2: Network
	start = time.Now()
	g, diags, err := network.Build(fc, m.NetworkOptions())
	switch {
	case stderrors.Is(err, network.ErrNoNodes):
		logger.Info("no centrelines, skipping network")
	case err != nil:
		return nil, fmt.Errorf("network: %w", err)
	default:
		result.Graph = g
		result.Stats.Nodes = len(g.Nodes)
		result.Stats.Edges = len(g.Edges)
	}
	result.Diagnostics.Extend(diags)
	result.Stats.NetworkTime = time.Since(start)
	logger.Info("built network",
		"nodes", result.Stats.Nodes,
		"edges", result.Stats.Edges,
		"duration", result.Stats.NetworkTime)

	// Stage 3: Route
	start = time.Now()
	specs, diags, err := r.Specs(ctx, opts, in)
	if err != nil {
		return nil, fmt.Errorf("connectivity: %w", err)
	}
	result.Diagnostics.Extend(diags)
	routes, err := r.Route(ctx, m, result.Graph, specs)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}
	result.Routes = routes
	result.Diagnostics.Extend(routes.Diagnostics)
	for _, p := range routes.Paths {
		fc.AttachRoute(p.ID, p.Geometry, p.Edges)
	}
	result.Stats.Paths = routes.Stats.Paths
	result.Stats.Routed = routes.Stats.Routed
	result.Stats.Dropped = routes.Stats.Dropped
	result.Stats.Contended = routes.Stats.Contended
	result.Stats.Infeasible = routes.Stats.Infeasible
	result.Stats.RouteTime = time.Since(start)
	logger.Info("routed paths",
		"paths", routes.Stats.Paths,
		"routed", routes.Stats.Routed,
		"duration", result.Stats.RouteTime)

	result.Stats.Features = fc.Len()
	result.Stats.Visible = len(fc.Visible())
	result.Stats.Warnings = result.Diagnostics.Count(diag.SeverityWarning)
	result.Stats.Errors = result.Diagnostics.Count(diag.SeverityError)

	artifacts, err := encode(m, result)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	return result, nil
}

// Resolve turns every source into features. Sources are resolved in
// parallel and merged in manifest order; an id shared by two sources is
// fatal.
func (r *Runner) Resolve(ctx context.Context, m *config.Manifest, in *Inputs) (*feature.Collection, *diag.List, error) {
	resolver := resolve.New(m.Projection(), m.SubdivideOptions())
	type resolved struct {
		features *feature.Collection
		diags    *diag.List
	}
	out := make([]resolved, len(m.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range m.Sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, err := mapio.ReadShapes(bytes.NewReader(in.Sources[i]))
			if err != nil {
				return fmt.Errorf("source %s: %w", s.ID, err)
			}
			tree.Source = s.ID
			tree.SortByOrder()

			start := time.Now()
			observability.Pipeline().OnResolveStart(gctx, s.ID)
			fc, diags, err := resolver.Resolve(tree)
			n := 0
			if fc != nil {
				n = fc.Len()
			}
			observability.Pipeline().OnResolveComplete(gctx, s.ID, n, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("source %s: %w", s.ID, err)
			}
			r.Logger.Debug("resolved source", "source", s.ID, "features", n, "diagnostics", diags.Len())
			out[i] = resolved{fc, diags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := feature.NewCollection()
	diags := &diag.List{}
	for i, res := range out {
		if err := merged.Merge(res.features); err != nil {
			return nil, nil, fmt.Errorf("source %s: %w", m.Sources[i].ID, err)
		}
		diags.Extend(res.diags)
	}
	return merged, diags, nil
}

// Specs reads the connectivity documents into path specs.
func (r *Runner) Specs(ctx context.Context, opts Options, in *Inputs) ([]route.PathSpec, *diag.List, error) {
	k, err := r.knowledge(opts, in)
	if err != nil {
		return nil, nil, err
	}
	var specs []route.PathSpec
	diags := &diag.List{}
	for i, data := range in.Connectivity {
		doc, err := connectivity.Read(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", opts.Manifest.Connectivity[i].Href, err)
		}
		s, d := doc.Specs(ctx, k)
		specs = append(specs, s...)
		diags.Extend(d)
	}
	return specs, diags, nil
}

func (r *Runner) knowledge(opts Options, in *Inputs) (connectivity.Knowledge, error) {
	if opts.Knowledge != nil {
		return connectivity.NewCachedKnowledge(opts.Knowledge, r.Cache, r.Keyer, cache.TTLKnowledge), nil
	}
	if in.Knowledge == nil {
		return nil, nil
	}
	k, err := connectivity.ReadStatic(bytes.NewReader(in.Knowledge))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Manifest.Knowledge, err)
	}
	return k, nil
}

// Route routes specs over g. A nil graph routes nothing.
func (r *Runner) Route(ctx context.Context, m *config.Manifest, g *network.Graph, specs []route.PathSpec) (*route.Result, error) {
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnRouteStart(ctx, len(specs))
	res, err := route.New(g, m.RouterOptions()).Route(ctx, specs)
	if err != nil {
		hooks.OnRouteComplete(ctx, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnRouteComplete(ctx, res.Stats.Routed, time.Since(start), nil)
	if res.Stats.Contended > 0 {
		hooks.OnContention(ctx, res.Stats.Contended, res.Stats.Infeasible, res.Stats.TimedOut)
		r.Logger.Debug("resolved contention",
			"contended", res.Stats.Contended,
			"infeasible", res.Stats.Infeasible,
			"steps", res.Stats.SolveSteps,
			"timed_out", res.Stats.TimedOut)
	}
	return res, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}

// encode renders the output documents of a build.
func encode(m *config.Manifest, result *Result) (map[string][]byte, error) {
	var paths []route.RoutedPath
	if result.Routes != nil {
		paths = result.Routes.Paths
	}
	docs := make(map[string][]byte, 4)
	write := func(name string, fn func(*bytes.Buffer) error) error {
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		docs[name] = buf.Bytes()
		return nil
	}
	idx := mapio.Index{
		ID:       m.ID,
		UUID:     m.UUID().String(),
		Version:  buildinfo.Current(),
		Features: result.Stats.Visible,
		Paths:    len(paths),
		Warnings: result.Stats.Warnings,
		Errors:   result.Stats.Errors,
	}
	steps := []struct {
		name string
		fn   func(*bytes.Buffer) error
	}{
		{mapio.FileFeatures, func(b *bytes.Buffer) error { return mapio.WriteFeatures(result.Features, b) }},
		{mapio.FilePaths, func(b *bytes.Buffer) error { return mapio.WritePaths(paths, b) }},
		{mapio.FileDiagnostics, func(b *bytes.Buffer) error { return mapio.WriteDiagnostics(result.Diagnostics, b) }},
		{mapio.FileIndex, func(b *bytes.Buffer) error { return mapio.WriteIndex(idx, b) }},
	}
	for _, s := range steps {
		if err := write(s.name, s.fn); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func decodeDiagnostics(data []byte) *diag.List {
	l := &diag.List{}
	var items []diag.Diagnostic
	if json.Unmarshal(data, &items) == nil {
		for _, d := range items {
			l.Add(d)
		}
	}
	return l
}
