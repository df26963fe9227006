// Package shape defines the normalised Shape Tree that format-specific
// adapters (slide decks, diagram files, segmented images) hand to flatmap.
//
// A tree is a plain ownership hierarchy: a [Node] is either a primitive with
// geometry and a markup string, or a group of ordered children. Geometry is
// in source coordinates; projection happens during feature resolution.
//
// Trees are read from JSON documents of the form
//
//	{
//	  "source": "body",
//	  "root": {
//	    "id": "g1",
//	    "markup": ".children(nerve)",
//	    "children": [
//	      {"id": "s1", "markup": ".id(vagus) centreline",
//	       "geometry": {"type": "LineString", "coordinates": [[0,0],[5,0]]}}
//	    ]
//	  }
//	}
//
// where "geometry" is any GeoJSON geometry object.
package shape

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Sentinel errors for tree validation.
var (
	// ErrEmptyID is returned when a node has no id.
	ErrEmptyID = errors.New("shape has no id")

	// ErrDuplicateShape is returned when two nodes of one tree share an id.
	ErrDuplicateShape = errors.New("duplicate shape id")

	// ErrCycle is returned when a node is reachable from itself.
	ErrCycle = errors.New("shape tree contains a cycle")
)

// Node is one shape in a Shape Tree.
type Node struct {
	ID       string
	Markup   string
	Geometry orb.Geometry
	Order    int
	Children []*Node
}

// IsGroup reports whether n has children.
func (n *Node) IsGroup() bool { return len(n.Children) > 0 }

// Tree is one source's Shape Tree.
type Tree struct {
	// Source identifies the contributing source; it prefixes synthesised
	// feature ids so independent sources cannot collide by accident.
	Source string
	Root   *Node
}

// Validate checks that every node has a unique non-empty id and that the
// hierarchy is acyclic.
func (t *Tree) Validate() error {
	if t.Root == nil {
		return nil
	}
	seen := make(map[string]bool)
	onPath := make(map[*Node]bool)
	var visit func(n *Node) error
	visit = func(n *Node) error {
		if onPath[n] {
			return fmt.Errorf("%w at %s", ErrCycle, n.ID)
		}
		if n.ID == "" {
			return ErrEmptyID
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateShape, n.ID)
		}
		seen[n.ID] = true
		onPath[n] = true
		for _, c := range n.Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		delete(onPath, n)
		return nil
	}
	return visit(t.Root)
}

// SortByOrder stably orders every child list by ascending z-order.
func (t *Tree) SortByOrder() {
	var visit func(n *Node)
	visit = func(n *Node) {
		sort.SliceStable(n.Children, func(i, j int) bool {
			return n.Children[i].Order < n.Children[j].Order
		})
		for _, c := range n.Children {
			visit(c)
		}
	}
	if t.Root != nil {
		visit(t.Root)
	}
}

// Count returns the number of nodes in the tree.
func (t *Tree) Count() int {
	var count func(n *Node) int
	count = func(n *Node) int {
		c := 1
		for _, ch := range n.Children {
			c += count(ch)
		}
		return c
	}
	if t.Root == nil {
		return 0
	}
	return count(t.Root)
}

// =============================================================================
// JSON
// =============================================================================

type nodeJSON struct {
	ID       string            `json:"id"`
	Markup   string            `json:"markup,omitempty"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
	Order    int               `json:"order,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// MarshalJSON encodes n with a GeoJSON geometry member.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{ID: n.ID, Markup: n.Markup, Order: n.Order, Children: n.Children}
	if n.Geometry != nil {
		out.Geometry = geojson.NewGeometry(n.Geometry)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes n, accepting any GeoJSON geometry object.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	n.ID, n.Markup, n.Order, n.Children = in.ID, in.Markup, in.Order, in.Children
	n.Geometry = nil
	if in.Geometry != nil {
		n.Geometry = in.Geometry.Geometry()
	}
	return nil
}

type treeJSON struct {
	Source string `json:"source"`
	Root   *Node  `json:"root"`
}

// MarshalJSON encodes the tree document.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(treeJSON{Source: t.Source, Root: t.Root})
}

// UnmarshalJSON decodes the tree document.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var in treeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.Source, t.Root = in.Source, in.Root
	return nil
}
