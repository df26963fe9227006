package route

import (
	"math"

	"github.com/matzehuels/flatmap/pkg/diag"
	flaterrors "github.com/matzehuels/flatmap/pkg/errors"
)

// stepKind tells how a step was resolved.
type stepKind int

const (
	stepNodes stepKind = iota
	stepPath
)

type step struct {
	kind  stepKind
	nodes []int
	path  string
}

// resolveSteps maps step names to node sets or sub-path references. Node
// ids take precedence over path ids.
func (r *Router) resolveSteps(spec PathSpec, jobs map[string]*job, diags *diag.List) ([]step, bool) {
	g := r.Graph
	steps := make([]step, 0, len(spec.Steps))
	for _, names := range spec.Steps {
		if len(names) == 0 {
			continue
		}
		var st step
		for _, name := range names {
			if ns := g.Resolve(name); len(ns) > 0 {
				st.nodes = append(st.nodes, ns...)
				continue
			}
			if _, ok := jobs[name]; ok && len(names) == 1 {
				st = step{kind: stepPath, path: name}
				continue
			}
			diags.WarnPath(flaterrors.ErrCodeUnknownReference, spec.ID, "unknown node or path %q", name)
			return nil, false
		}
		steps = append(steps, st)
	}
	if len(steps) == 0 || (len(steps) == 1 && steps[0].kind == stepNodes) {
		diags.WarnPath(flaterrors.ErrCodeInvalidInput, spec.ID, "path needs at least two steps")
		return nil, false
	}
	return steps, true
}

// routeSpec routes spec leg by leg with the given edge cost.
func (r *Router) routeSpec(spec PathSpec, jobs map[string]*job, cost costFunc, diags *diag.List) (plan, bool) {
	steps, ok := r.resolveSteps(spec, jobs, diags)
	if !ok {
		return plan{}, false
	}

	var out leg
	var frontier []int
	for i, st := range steps {
		switch st.kind {
		case stepNodes:
			if i == 0 {
				frontier = st.nodes
				continue
			}
			l, ok := shortest(r.Graph, frontier, st.nodes, cost)
			if !ok {
				diags.WarnPath(flaterrors.ErrCodeNoRoute, spec.ID, "no route to step %d", i+1)
				return plan{}, false
			}
			out = appendLeg(out, l)
			frontier = []int{l.nodes[len(l.nodes)-1]}

		case stepPath:
			sub := jobs[st.path]
			if sub.dropped || sub.final.nodes == nil {
				diags.WarnPath(flaterrors.ErrCodeUnknownReference, spec.ID, "referenced path %s was not routed", st.path)
				return plan{}, false
			}
			start := sub.final.nodes[0]
			if i > 0 {
				l, ok := shortest(r.Graph, frontier, []int{start}, cost)
				if !ok {
					diags.WarnPath(flaterrors.ErrCodeNoRoute, spec.ID, "no route to path %s", st.path)
					return plan{}, false
				}
				out = appendLeg(out, l)
			}
			out = appendLeg(out, splice(st.path, sub.final.leg))
			frontier = []int{sub.final.nodes[len(sub.final.nodes)-1]}
		}
	}
	return plan{leg: out, length: r.length(out.edges)}, true
}

func (r *Router) length(edges []int) float64 {
	var sum float64
	for _, e := range edges {
		sum += r.Graph.Edges[e].Length
	}
	return sum
}

// appendLeg concatenates b onto a; b must start where a ends.
func appendLeg(a, b leg) leg {
	if len(a.nodes) == 0 {
		out := leg{
			nodes: append([]int(nil), b.nodes...),
			edges: append([]int(nil), b.edges...),
		}
		if b.owner != nil {
			out.owner = owners(b)
		}
		return out
	}
	if a.owner != nil || b.owner != nil {
		a.owner = append(owners(a), owners(b)...)
	}
	a.nodes = append(a.nodes, b.nodes[1:]...)
	a.edges = append(a.edges, b.edges...)
	return a
}

// owners returns a copy of l.owner padded to one entry per edge.
func owners(l leg) []string {
	out := make([]string, len(l.edges))
	copy(out, l.owner)
	return out
}

// splice marks every edge of l that l routed itself as owned by id. Edges
// l spliced from deeper paths keep their owner.
func splice(id string, l leg) leg {
	out := leg{nodes: l.nodes, edges: l.edges, owner: make([]string, len(l.edges))}
	for i := range l.edges {
		out.owner[i] = l.ownerOf(i, id)
	}
	return out
}

// forbid wraps cost so the given edges are unusable.
func forbid(cost costFunc, edges map[int]bool) costFunc {
	return func(e int) float64 {
		if edges[e] {
			return math.Inf(1)
		}
		return cost(e)
	}
}
