package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flatmap/pkg/network"
	"github.com/matzehuels/flatmap/pkg/route"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Routes colours edges used by routed paths.
	Routes bool

	// Detailed adds length and capacity to edge labels.
	// When false, only the edge id is shown.
	Detailed bool
}

// typeColors assigns a stroke colour to each path type. Other types use
// defaultRouteColor.
var typeColors = map[string]string{
	"cns":       "#9b1fc1",
	"lcn":       "#f19e38",
	"para":      "#3f8f4a",
	"para-pre":  "#3f8f4a",
	"para-post": "#3f8f4a",
	"sensory":   "#2a62f6",
	"somatic":   "#98561d",
	"symp":      "#ea3423",
	"symp-pre":  "#ea3423",
	"symp-post": "#ea3423",
	"enteric":   "#e5e5e5",
	"intestine": "#e5e5e5",
}

const defaultRouteColor = "#444444"

// ToDOT converts the network to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Edges shared by more paths than their capacity are drawn dashed so that
// contention is visible at a glance.
func ToDOT(g *network.Graph, paths []route.RoutedPath, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.1,0.05\"];\n")
	buf.WriteString("  edge [fontsize=10, color=\"#bbbbbb\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
	}

	users := edgeUsers(paths)
	buf.WriteString("\n")
	for _, e := range g.Edges {
		attrs := []string{fmt.Sprintf("label=%q", edgeLabel(e, opts.Detailed))}
		if opts.Routes {
			attrs = append(attrs, routeAttrs(e, users[e.ID])...)
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", g.Nodes[e.A].ID, g.Nodes[e.B].ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n network.Node) []string {
	if n.IsJunction() {
		return []string{"label=\"\"", "shape=point", "width=0.08"}
	}
	label := n.ID
	if n.Models != "" {
		label += "\n" + n.Models
	}
	return []string{fmt.Sprintf("label=%q", label)}
}

func edgeLabel(e network.Edge, detailed bool) string {
	if !detailed {
		return e.ID
	}
	label := fmt.Sprintf("%s\n%.1f", e.ID, e.Length)
	if e.Capacity > 0 {
		label += fmt.Sprintf("\ncap %d", e.Capacity)
	}
	return label
}

// edgeUsers maps edge ids to the routed paths using them, sorted by path id.
func edgeUsers(paths []route.RoutedPath) map[string][]route.RoutedPath {
	users := make(map[string][]route.RoutedPath)
	for _, p := range paths {
		for _, e := range slices.Compact(slices.Sorted(slices.Values(p.Edges))) {
			users[e] = append(users[e], p)
		}
	}
	for _, ps := range users {
		slices.SortFunc(ps, func(a, b route.RoutedPath) int { return strings.Compare(a.ID, b.ID) })
	}
	return users
}

func routeAttrs(e network.Edge, users []route.RoutedPath) []string {
	if len(users) == 0 {
		return nil
	}
	color := defaultRouteColor
	if c, ok := typeColors[users[0].Type]; ok {
		color = c
	}
	ids := make([]string, len(users))
	for i, p := range users {
		ids[i] = p.ID
	}
	attrs := []string{
		fmt.Sprintf("color=%q", color),
		fmt.Sprintf("penwidth=%d", 1+len(users)),
		fmt.Sprintf("tooltip=%q", strings.Join(ids, ", ")),
	}
	if e.Capacity > 0 && len(users) > e.Capacity {
		attrs = append(attrs, "style=dashed")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
