package route

import (
	"container/heap"
	"math"

	"github.com/matzehuels/flatmap/pkg/network"
)

// costFunc returns the traversal cost of edge e. +Inf marks the edge as
// unusable.
type costFunc func(e int) float64

// lengthCost weighs edges by geometric length.
func lengthCost(g *network.Graph) costFunc {
	return func(e int) float64 { return g.Edges[e].Length }
}

// leg is a walk through the graph: nodes[i] and nodes[i+1] are joined by
// edges[i]. owner[i] names the path edges[i] was spliced from, or is empty
// when the walk routed the edge itself. A nil owner means no splices.
type leg struct {
	nodes []int
	edges []int
	owner []string
}

// ownerOf returns the path that routed edge i of l, which is self unless
// the edge was spliced in.
func (l leg) ownerOf(i int, self string) string {
	if i < len(l.owner) && l.owner[i] != "" {
		return l.owner[i]
	}
	return self
}

// own returns the distinct edges l routed itself, in walk order.
func (l leg) own() []int {
	seen := make(map[int]bool, len(l.edges))
	var out []int
	for i, e := range l.edges {
		if l.ownerOf(i, "") != "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

type item struct {
	node int
	dist float64
}

// queue is a min-heap with lazy decrease-key: stale entries stay in the heap
// and are skipped when popped. Ties break on node index.
type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// shortest returns the cheapest walk from any source to any target.
// Sources are tried together, so the result starts at whichever source
// reaches a target most cheaply. The second result is false when no target
// is reachable.
func shortest(g *network.Graph, sources, targets []int, cost costFunc) (leg, bool) {
	n := len(g.Nodes)
	dist := make([]float64, n)
	prevEdge := make([]int, n)
	done := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prevEdge[i] = -1
	}
	isTarget := make(map[int]bool, len(targets))
	for _, t := range targets {
		isTarget[t] = true
	}

	q := &queue{}
	for _, s := range sources {
		if dist[s] == 0 {
			continue
		}
		dist[s] = 0
		heap.Push(q, item{node: s})
	}

	for q.Len() > 0 {
		it := heap.Pop(q).(item)
		u := it.node
		if done[u] || it.dist > dist[u] {
			continue
		}
		done[u] = true
		if isTarget[u] {
			return unwind(g, prevEdge, u), true
		}
		for _, e := range g.Incident(u) {
			w := cost(e)
			if math.IsInf(w, 1) {
				continue
			}
			v := g.Edges[e].Other(u)
			if done[v] {
				continue
			}
			if nd := dist[u] + w; nd < dist[v] {
				dist[v] = nd
				prevEdge[v] = e
				heap.Push(q, item{node: v, dist: nd})
			}
		}
	}
	return leg{}, false
}

func unwind(g *network.Graph, prevEdge []int, end int) leg {
	var l leg
	l.nodes = []int{end}
	for at := end; prevEdge[at] >= 0; {
		e := prevEdge[at]
		at = g.Edges[e].Other(at)
		l.nodes = append(l.nodes, at)
		l.edges = append(l.edges, e)
	}
	for i, j := 0, len(l.nodes)-1; i < j; i, j = i+1, j-1 {
		l.nodes[i], l.nodes[j] = l.nodes[j], l.nodes[i]
	}
	for i, j := 0, len(l.edges)-1; i < j; i, j = i+1, j-1 {
		l.edges[i], l.edges[j] = l.edges[j], l.edges[i]
	}
	return l
}
