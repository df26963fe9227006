package route

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/flatmap/pkg/diag"
	flaterrors "github.com/matzehuels/flatmap/pkg/errors"
)

// contention is the outcome of capacity resolution.
type contention struct {
	contended  int
	infeasible int
	steps      int
	timedOut   bool
}

func (c *contention) merge(o contention) {
	c.contended += o.contended
	c.infeasible += o.infeasible
	c.steps += o.steps
	c.timedOut = c.timedOut || o.timedOut
}

// option is one candidate route of a contending path.
type option struct {
	candidate int
	extra     float64
	capped    []int // distinct capacity-limited edges the path routes itself
}

// resolveContention reroutes the paths of one dependency level over edges
// used beyond their capacity. Paths of earlier levels are already settled
// and only reduce the capacity left.
//
// An edge a path splices in from a sub-path is the sub-path's use of that
// edge, so it is counted once under the sub-path and never rerouted by
// the splicing path.
//
// Each contending path chooses one candidate route or none. The assignment
// minimises the total extra length over every path's shortest candidate,
// subject to the capacity left after non-contending paths are counted. A
// path left without a route keeps its shortest route and is reported
// infeasible.
func (r *Router) resolveContention(ctx context.Context, level []string, jobs map[string]*job, deadline time.Time) contention {
	var out contention
	g := r.Graph

	users := make(map[int][]string)
	for id, j := range jobs {
		if j.dropped || j.final.nodes == nil {
			continue
		}
		for i, e := range j.final.edges {
			owner := j.final.ownerOf(i, id)
			if !slices.Contains(users[e], owner) {
				users[e] = append(users[e], owner)
			}
		}
	}

	over := make(map[int]bool)
	for e, us := range users {
		if c := g.Edges[e].Capacity; c > 0 && len(us) > c {
			over[e] = true
		}
	}
	if len(over) == 0 {
		return out
	}

	var participants []string
	isParticipant := make(map[string]bool)
	for _, id := range level {
		j := jobs[id]
		if j.dropped {
			continue
		}
		for _, e := range j.final.own() {
			if over[e] {
				participants = append(participants, id)
				isParticipant[id] = true
				break
			}
		}
	}
	out.contended = len(participants)
	if len(participants) == 0 {
		return out
	}

	cands := make([][]plan, len(participants))
	for i, id := range participants {
		cands[i] = r.candidates(jobs[id], jobs, over)
	}

	residual := make(map[int]int)
	options := make([][]option, len(participants))
	var extraSum float64
	for i, cs := range cands {
		minLen := math.Inf(1)
		for _, c := range cs {
			minLen = math.Min(minLen, c.length)
		}
		for k, c := range cs {
			o := option{candidate: k, extra: c.length - minLen}
			for _, e := range c.own() {
				capacity := g.Edges[e].Capacity
				if capacity == 0 {
					continue
				}
				o.capped = append(o.capped, e)
				if _, seen := residual[e]; !seen {
					n := 0
					for _, u := range users[e] {
						if !isParticipant[u] {
							n++
						}
					}
					residual[e] = capacity - n
				}
			}
			options[i] = append(options[i], o)
			extraSum += o.extra
		}
		sort.SliceStable(options[i], func(a, b int) bool { return options[i][a].extra < options[i][b].extra })
	}

	s := &solver{
		ctx:      ctx,
		options:  options,
		residual: residual,
		load:     make(map[int]int),
		choice:   make([]int, len(participants)),
		bigM:     extraSum + 1,
		deadline: deadline,
	}
	s.solve()
	out.steps = s.steps
	out.timedOut = s.timedOut

	for i, id := range participants {
		j := jobs[id]
		k := s.best[i]
		switch {
		case k < 0:
			out.infeasible++
			j.fallback = true
			j.diags.WarnPath(flaterrors.ErrCodeRoutingInfeasible, id,
				"no route within capacity of edges %s; keeping shortest route", r.edgeNames(j.final.leg, over))
			j.note("infeasible under capacity; kept shortest route")
		case k == 0:
			j.note("kept shortest route under capacity")
		default:
			j.final = cands[i][k]
			j.note(fmt.Sprintf("rerouted to candidate %d (+%.3g length)", k, options[i][indexOf(options[i], k)].extra))
		}
	}
	return out
}

// candidates returns the path's current route followed by alternatives
// avoiding each over-capacity edge it routes itself in turn, then all of
// them at once. Spliced sub-paths are taken as they are. Duplicates are
// removed and the list is capped at MaxCandidates.
func (r *Router) candidates(j *job, jobs map[string]*job, over map[int]bool) []plan {
	out := []plan{j.final}
	seen := map[string]bool{key(j.final.edges): true}
	add := func(forbidden map[int]bool) {
		if len(out) >= r.Options.MaxCandidates {
			return
		}
		p, ok := r.routeSpec(j.spec, jobs, forbid(lengthCost(r.Graph), forbidden), &diag.List{})
		if !ok || seen[key(p.edges)] {
			return
		}
		seen[key(p.edges)] = true
		out = append(out, p)
	}

	var used []int
	for _, e := range j.final.own() {
		if over[e] {
			used = append(used, e)
		}
	}
	sort.Slice(used, func(a, b int) bool { return r.Graph.Edges[used[a]].ID < r.Graph.Edges[used[b]].ID })
	for _, e := range used {
		add(map[int]bool{e: true})
	}
	if len(used) > 1 {
		all := make(map[int]bool, len(used))
		for _, e := range used {
			all[e] = true
		}
		add(all)
	}
	return out
}

func (j *job) note(msg string) {
	if j.trace != nil {
		j.trace.Decisions = append(j.trace.Decisions, msg)
	}
}

func (r *Router) edgeNames(l leg, over map[int]bool) string {
	var names []string
	for _, e := range l.own() {
		if over[e] {
			names = append(names, r.Graph.Edges[e].ID)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// =============================================================================
// Branch and bound
// =============================================================================

// solver assigns one option (or none) to every contending path. Paths are
// branched in id order and options in increasing extra length, with "none"
// last; the first assignment found at a given cost is kept.
type solver struct {
	ctx      context.Context
	options  [][]option
	residual map[int]int
	load     map[int]int
	bigM     float64

	deadline time.Time
	steps    int
	timedOut bool

	choice   []int
	cost     float64
	best     []int
	bestCost float64
}

func (s *solver) solve() {
	s.greedy()
	s.search(0)
}

// greedy seeds the incumbent with each path's first option that fits.
func (s *solver) greedy() {
	s.best = make([]int, len(s.options))
	s.bestCost = 0
	for i, opts := range s.options {
		s.best[i] = -1
		for _, o := range opts {
			if s.fits(o) {
				s.take(o, 1)
				s.best[i] = o.candidate
				s.bestCost += o.extra
				break
			}
		}
		if s.best[i] < 0 {
			s.bestCost += s.bigM
		}
	}
	clear(s.load)
}

func (s *solver) fits(o option) bool {
	for _, e := range o.capped {
		if s.load[e]+1 > s.residual[e] {
			return false
		}
	}
	return true
}

func (s *solver) take(o option, delta int) {
	for _, e := range o.capped {
		s.load[e] += delta
	}
}

func (s *solver) expired() bool {
	if s.timedOut {
		return true
	}
	s.steps++
	if s.steps%1024 != 0 {
		return false
	}
	if s.ctx.Err() != nil || (!s.deadline.IsZero() && time.Now().After(s.deadline)) {
		s.timedOut = true
	}
	return s.timedOut
}

func (s *solver) search(i int) {
	if s.expired() || s.cost >= s.bestCost {
		return
	}
	if i == len(s.options) {
		s.best = slices.Clone(s.choice)
		s.bestCost = s.cost
		return
	}
	for _, o := range s.options[i] {
		if !s.fits(o) {
			continue
		}
		s.take(o, 1)
		s.choice[i] = o.candidate
		s.cost += o.extra
		s.search(i + 1)
		s.cost -= o.extra
		s.take(o, -1)
	}
	s.choice[i] = -1
	s.cost += s.bigM
	s.search(i + 1)
	s.cost -= s.bigM
}

func key(edges []int) string {
	var b strings.Builder
	for _, e := range edges {
		fmt.Fprintf(&b, "%d,", e)
	}
	return b.String()
}

func indexOf(opts []option, candidate int) int {
	for i, o := range opts {
		if o.candidate == candidate {
			return i
		}
	}
	return 0
}
