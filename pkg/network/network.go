// Package network builds the undirected connectivity graph that paths are
// routed over.
//
// Every feature tagged centreline contributes an edge. Features tagged node
// are named nodes: a centreline end inside a node's polygon, or within
// tolerance of its centroid, attaches to it. Remaining ends are merged into
// anonymous junctions through an R-tree backed [geom.Snapper].
//
// The graph is rebuilt for every routing run and never mutated afterwards.
package network

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/flatmap/pkg/diag"
	flaterrors "github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/feature"
	"github.com/matzehuels/flatmap/pkg/geom"
)

// ErrNoNodes is returned when the features contain no centrelines.
var ErrNoNodes = errors.New("no centreline features to build a network from")

// DefaultTolerance is the distance within which centreline ends are merged.
const DefaultTolerance = 1e-6

// Options configures [Build].
type Options struct {
	Tolerance float64
}

// Node is a graph vertex: a named node feature or an anonymous junction.
type Node struct {
	ID        string
	Point     orb.Point
	FeatureID string // empty for junctions
	Models    string // anatomical id of the node feature, if any
}

// IsJunction reports whether n was created by snapping centreline ends.
func (n Node) IsJunction() bool { return n.FeatureID == "" }

// Edge is one centreline between two nodes. A and B index Graph.Nodes.
type Edge struct {
	ID        string
	A, B      int
	Geometry  orb.LineString
	FeatureID string
	Capacity  int // 0 means unlimited
	Length    float64
}

// Other returns the endpoint of e opposite n.
func (e Edge) Other(n int) int {
	if e.A == n {
		return e.B
	}
	return e.A
}

// Graph is the connectivity network.
type Graph struct {
	Nodes  []Node
	Edges  []Edge
	Pruned []string // ids of nodes dropped for having no edges

	nodeIndex map[string]int
	edgeIndex map[string]int
	models    map[string][]int
	incident  [][]int
}

// Node returns the index of the node with the given id.
func (g *Graph) Node(id string) (int, bool) {
	i, ok := g.nodeIndex[id]
	return i, ok
}

// Edge returns the index of the edge with the given id.
func (g *Graph) Edge(id string) (int, bool) {
	i, ok := g.edgeIndex[id]
	return i, ok
}

// Resolve maps a route step name to node indices. A node id matches
// exactly; otherwise every node whose feature models the name matches.
func (g *Graph) Resolve(name string) []int {
	if i, ok := g.nodeIndex[name]; ok {
		return []int{i}
	}
	return g.models[name]
}

// Incident returns the edges touching node n, ordered by edge id.
func (g *Graph) Incident(n int) []int { return g.incident[n] }

// Degree returns the number of edges touching node n.
func (g *Graph) Degree(n int) int { return len(g.incident[n]) }

// Build constructs the graph from features.
func Build(fc *feature.Collection, opts Options) (*Graph, *diag.List, error) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	diags := &diag.List{}
	centrelines := fc.Tagged(feature.PropCentreline)
	if len(centrelines) == 0 {
		return nil, diags, ErrNoNodes
	}

	b := &builder{
		tol:       opts.Tolerance,
		named:     geom.NewSnapper(opts.Tolerance),
		junctions: geom.NewSnapper(opts.Tolerance),
		byNamed:   make(map[int]int),
		byJunc:    make(map[int]int),
	}
	for _, f := range fc.Tagged(feature.PropNode) {
		b.addNamed(f)
	}

	var edges []Edge
	for _, f := range centrelines {
		lines := geom.Lines(f.Geometry)
		if len(lines) == 0 {
			diags.Warn(flaterrors.ErrCodeEmptyGeometry, f.ID, "centreline has no line geometry")
			continue
		}
		for k, ls := range lines {
			id := f.ID
			if len(lines) > 1 {
				id = fmt.Sprintf("%s#%d", f.ID, k+1)
			}
			a := b.attach(ls[0])
			z := b.attach(ls[len(ls)-1])
			if a == z {
				diags.Warn(flaterrors.ErrCodeSelfLoop, f.ID, "centreline %s starts and ends at %s", id, b.nodes[a].ID)
				continue
			}
			geomCopy := append(orb.LineString(nil), ls...)
			geomCopy[0] = b.nodes[a].Point
			geomCopy[len(geomCopy)-1] = b.nodes[z].Point
			edges = append(edges, Edge{
				ID:        id,
				A:         a,
				B:         z,
				Geometry:  geomCopy,
				FeatureID: f.ID,
				Capacity:  f.Int(feature.PropCapacity),
				Length:    planar.Length(geomCopy),
			})
		}
	}
	return assemble(b.nodes, edges), diags, nil
}

type builder struct {
	tol       float64
	nodes     []Node
	polygons  []orb.Polygon // node polygons, indexed like nodes; nil for points
	named     *geom.Snapper
	junctions *geom.Snapper
	byNamed   map[int]int // snapper index -> node index
	byJunc    map[int]int
}

func (b *builder) addNamed(f *feature.Feature) {
	if geom.IsEmpty(f.Geometry) {
		return
	}
	var poly orb.Polygon
	if ps := geom.Polygons(f.Geometry); len(ps) > 0 {
		poly = ps[0]
	}
	p := geom.Centroid(f.Geometry)
	i := len(b.nodes)
	b.nodes = append(b.nodes, Node{ID: f.ID, Point: p, FeatureID: f.ID, Models: f.Text(feature.PropAnatomicalID)})
	b.polygons = append(b.polygons, poly)
	if s := b.named.Snap(p); !b.hasNamed(s) {
		b.byNamed[s] = i
	}
}

func (b *builder) hasNamed(s int) bool {
	_, ok := b.byNamed[s]
	return ok
}

// attach returns the node an end point belongs to, creating a junction when
// no node is close enough.
func (b *builder) attach(p orb.Point) int {
	for i, poly := range b.polygons {
		if poly != nil && geom.PolygonContains(poly, p) {
			return i
		}
	}
	if s, ok := b.named.Find(p); ok {
		if i, ok := b.byNamed[s]; ok {
			return i
		}
	}
	s := b.junctions.Snap(p)
	if i, ok := b.byJunc[s]; ok {
		return i
	}
	i := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		ID:    fmt.Sprintf("junction-%d", len(b.byJunc)+1),
		Point: b.junctions.Point(s),
	})
	b.polygons = append(b.polygons, nil)
	b.byJunc[s] = i
	return i
}

// assemble prunes isolated nodes and builds the lookup tables.
func assemble(nodes []Node, edges []Edge) *Graph {
	degree := make([]int, len(nodes))
	for _, e := range edges {
		degree[e.A]++
		degree[e.B]++
	}

	g := &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]int),
		models:    make(map[string][]int),
	}
	remap := make([]int, len(nodes))
	for i, n := range nodes {
		if degree[i] == 0 {
			g.Pruned = append(g.Pruned, n.ID)
			remap[i] = -1
			continue
		}
		remap[i] = len(g.Nodes)
		g.nodeIndex[n.ID] = len(g.Nodes)
		if n.Models != "" {
			g.models[n.Models] = append(g.models[n.Models], len(g.Nodes))
		}
		g.Nodes = append(g.Nodes, n)
	}

	g.incident = make([][]int, len(g.Nodes))
	for _, e := range edges {
		e.A, e.B = remap[e.A], remap[e.B]
		i := len(g.Edges)
		g.edgeIndex[e.ID] = i
		g.Edges = append(g.Edges, e)
		g.incident[e.A] = append(g.incident[e.A], i)
		g.incident[e.B] = append(g.incident[e.B], i)
	}
	for _, inc := range g.incident {
		sort.Slice(inc, func(i, j int) bool { return g.Edges[inc[i]].ID < g.Edges[inc[j]].ID })
	}
	return g
}
