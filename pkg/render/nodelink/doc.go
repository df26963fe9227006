// Package nodelink draws the centreline network as a Graphviz diagram.
//
// Named nodes are boxes and junctions are points. Every edge is one
// centreline. With [Options].Routes set, edges are coloured by the type of
// the paths using them and get thicker with each extra path; an edge used
// beyond its capacity is dashed. The diagram is for debugging snapping and
// contention, not for publication.
//
//	dot := nodelink.ToDOT(g, routes.Paths, nodelink.Options{Routes: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// SVG rendering runs Graphviz in process through goccy/go-graphviz.
package nodelink
