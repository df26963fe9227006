// Package route computes routed polylines for connectivity paths.
//
// A [PathSpec] names an ordered list of steps. Each step is a set of
// network nodes (a terminal set; the first and last steps are commonly
// sets) or the id of another path whose route is spliced in verbatim.
// [Router.Route] resolves every spec over a [network.Graph]:
//
//  1. Paths are ordered by their sub-path references. Paths on the same
//     level are independent and are routed on a bounded worker pool.
//  2. Each leg is a Dijkstra search by geometric length. A second pass makes
//     edges already used by other paths of the same type cheaper, so paths
//     of one kind bundle along shared centrelines.
//  3. After each level, edges with a capacity used by more paths than they
//     allow trigger one batched 0/1 assignment over alternative routes for
//     that level, solved by branch-and-bound. A spliced sub-path counts as
//     one use of its edges. Paths that cannot be placed keep their shortest
//     route and are reported as infeasible.
//
// Results are deterministic: ties break on node index, edge id and path id.
package route

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/flatmap/pkg/diag"
	flaterrors "github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/network"
)

// ErrCycle is returned when paths reference each other in a loop.
var ErrCycle = flaterrors.New(flaterrors.ErrCodeCyclicReference, "cyclic path reference")

// Filter selects how a path is handled.
type Filter string

const (
	FilterInclude Filter = "include"
	FilterExclude Filter = "exclude"
	FilterTrace   Filter = "trace"
)

// Valid reports whether f is a known filter. The empty filter is valid and
// means include.
func (f Filter) Valid() bool {
	switch f {
	case "", FilterInclude, FilterExclude, FilterTrace:
		return true
	}
	return false
}

const (
	// DefaultReuseDiscount multiplies the cost of edges already used by
	// another path of the same type.
	DefaultReuseDiscount = 0.9

	// DefaultMaxCandidates bounds the alternative routes considered per
	// path during contention resolution.
	DefaultMaxCandidates = 8

	// DefaultSolveTimeout bounds the contention search. Zero means no limit.
	DefaultSolveTimeout = 5 * time.Second

	// DefaultWorkers bounds concurrent path searches.
	DefaultWorkers = 4
)

// Options configures a Router.
type Options struct {
	ReuseDiscount float64
	MaxCandidates int
	SolveTimeout  time.Duration
	Workers       int
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.ReuseDiscount <= 0 || o.ReuseDiscount > 1 {
		o.ReuseDiscount = DefaultReuseDiscount
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.SolveTimeout < 0 {
		o.SolveTimeout = 0
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
}

// PathSpec is an abstract path description.
type PathSpec struct {
	ID     string
	Steps  [][]string
	Type   string
	Filter Filter

	Label  string
	Models string
}

// Trace records how a traced path was routed.
type Trace struct {
	Nodes     []string `json:"nodes"`
	Edges     []string `json:"edges"`
	Decisions []string `json:"decisions,omitempty"`
}

// RoutedPath is a path with concrete geometry.
type RoutedPath struct {
	ID       string
	Type     string
	Label    string
	Models   string
	Geometry orb.LineString
	Edges    []string
	Nodes    []string
	Length   float64
	Warnings []diag.Diagnostic
	Trace    *Trace
}

// Stats summarises a routing run.
type Stats struct {
	Paths      int
	Routed     int
	Dropped    int
	Excluded   int
	Levels     int
	Contended  int
	Infeasible int
	SolveSteps int
	TimedOut   bool
}

// Result is the output of [Router.Route].
type Result struct {
	Paths       []RoutedPath
	Diagnostics *diag.List
	Stats       Stats
}

// Router routes paths over one graph.
type Router struct {
	Graph   *network.Graph
	Options Options
}

// New returns a Router. A nil graph routes nothing; every step is then an
// unknown reference.
func New(g *network.Graph, opts Options) *Router {
	if g == nil {
		g = &network.Graph{}
	}
	opts.SetDefaults()
	return &Router{Graph: g, Options: opts}
}

// plan is a routed path in graph indices.
type plan struct {
	leg
	length float64
}

// job is the per-path routing state.
type job struct {
	spec     PathSpec
	diags    *diag.List
	dropped  bool
	first    plan // pass 1, pure length
	final    plan
	trace    *Trace
	fallback bool // kept the unconstrained route after contention
}

// Route resolves specs. The error is non-nil only for cyclic references or
// cancellation; per-path problems are diagnostics.
func (r *Router) Route(ctx context.Context, specs []PathSpec) (*Result, error) {
	res := &Result{Diagnostics: &diag.List{}}
	res.Stats.Paths = len(specs)

	jobs := make(map[string]*job, len(specs))
	var ids []string
	for _, s := range specs {
		if s.Filter == FilterExclude {
			res.Stats.Excluded++
			continue
		}
		if _, dup := jobs[s.ID]; dup {
			res.Diagnostics.WarnPath(flaterrors.ErrCodeInvalidInput, s.ID, "duplicate path id")
			continue
		}
		j := &job{spec: s, diags: &diag.List{}}
		if s.Filter == FilterTrace {
			j.trace = &Trace{}
		}
		jobs[s.ID] = j
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)

	levels, err := r.levels(ids, jobs)
	if err != nil {
		return nil, err
	}
	res.Stats.Levels = len(levels)

	// Contention is settled level by level, so a path always splices the
	// final route of its sub-paths.
	var deadline time.Time
	if r.Options.SolveTimeout > 0 {
		deadline = time.Now().Add(r.Options.SolveTimeout)
	}
	var cs contention
	for _, level := range levels {
		if err := r.routeLevel(ctx, level, jobs); err != nil {
			return nil, err
		}
		cs.merge(r.resolveContention(ctx, level, jobs, deadline))
	}
	res.Stats.Contended = cs.contended
	res.Stats.Infeasible = cs.infeasible
	res.Stats.SolveSteps = cs.steps
	res.Stats.TimedOut = cs.timedOut

	for _, id := range ids {
		j := jobs[id]
		res.Diagnostics.Extend(j.diags)
		if j.dropped {
			res.Stats.Dropped++
			continue
		}
		res.Paths = append(res.Paths, r.materialise(j))
	}
	if cs.timedOut {
		res.Diagnostics.WarnPath(flaterrors.ErrCodeTimeout, "", "contention search stopped after %d steps; using best assignment found", cs.steps)
	}
	res.Stats.Routed = len(res.Paths)
	return res, nil
}

// routeLevel routes one dependency level in two passes.
func (r *Router) routeLevel(ctx context.Context, level []string, jobs map[string]*job) error {
	g := r.Graph
	base := lengthCost(g)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.Options.Workers)
	for _, id := range level {
		j := jobs[id]
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, ok := r.routeSpec(j.spec, jobs, base, j.diags)
			if !ok {
				j.dropped = true
				return nil
			}
			j.first = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	// Edges used by each type after pass 1, counting paths from earlier
	// levels by their final route.
	used := make(map[string]map[int][]string)
	mark := func(typ, id string, edges []int) {
		if typ == "" {
			return
		}
		if used[typ] == nil {
			used[typ] = make(map[int][]string)
		}
		for _, e := range edges {
			used[typ][e] = append(used[typ][e], id)
		}
	}
	inLevel := make(map[string]bool, len(level))
	for _, id := range level {
		inLevel[id] = true
	}
	for id, j := range jobs {
		switch {
		case j.dropped:
		case inLevel[id]:
			mark(j.spec.Type, id, j.first.edges)
		case j.final.nodes != nil:
			mark(j.spec.Type, id, j.final.edges)
		}
	}

	eg, gctx = errgroup.WithContext(ctx)
	eg.SetLimit(r.Options.Workers)
	for _, id := range level {
		j := jobs[id]
		if j.dropped {
			continue
		}
		shared := used[j.spec.Type]
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			j.final = j.first
			if j.spec.Type == "" || !sharedByOthers(shared, id) {
				return nil
			}
			discount := r.Options.ReuseDiscount
			cost := func(e int) float64 {
				w := base(e)
				for _, other := range shared[e] {
					if other != id {
						return w * discount
					}
				}
				return w
			}
			if p, ok := r.routeSpec(j.spec, jobs, cost, &diag.List{}); ok {
				j.final = p
			}
			return nil
		})
	}
	return eg.Wait()
}

func sharedByOthers(shared map[int][]string, id string) bool {
	for _, users := range shared {
		for _, u := range users {
			if u != id {
				return true
			}
		}
	}
	return false
}

// materialise converts a job's final plan into a RoutedPath.
func (r *Router) materialise(j *job) RoutedPath {
	g := r.Graph
	rp := RoutedPath{
		ID:       j.spec.ID,
		Type:     j.spec.Type,
		Label:    j.spec.Label,
		Models:   j.spec.Models,
		Geometry: chain(g, j.final.leg),
		Length:   j.final.length,
		Warnings: j.diags.Items(),
	}
	for _, e := range j.final.edges {
		rp.Edges = append(rp.Edges, g.Edges[e].ID)
	}
	for _, n := range j.final.nodes {
		rp.Nodes = append(rp.Nodes, g.Nodes[n].ID)
	}
	if j.trace != nil {
		j.trace.Nodes = rp.Nodes
		j.trace.Edges = rp.Edges
		rp.Trace = j.trace
	}
	return rp
}

// chain joins edge geometries along l into one polyline whose joints are
// shared exactly.
func chain(g *network.Graph, l leg) orb.LineString {
	if len(l.edges) == 0 {
		if len(l.nodes) == 1 {
			return orb.LineString{g.Nodes[l.nodes[0]].Point}
		}
		return nil
	}
	var ls orb.LineString
	for i, e := range l.edges {
		edge := g.Edges[e]
		pts := edge.Geometry
		if edge.A != l.nodes[i] {
			pts = reversed(pts)
		}
		if i > 0 {
			pts = pts[1:]
		}
		ls = append(ls, pts...)
	}
	return ls
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

func cycleError(id string) error {
	return fmt.Errorf("%w: path %s is on a reference cycle", ErrCycle, id)
}
