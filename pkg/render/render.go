// Package render turns flow graphs into static node-link diagrams.
//
// Rendering is a two-step pipeline: [ToDOT] converts a graph to Graphviz
// DOT format, and [RenderSVG] rasterizes the DOT through Graphviz. The
// DOT output alone is useful for debugging and for external tooling.
//
// Static rendering is a server-side convenience for exports and previews;
// the live canvas renders the graph itself from sync messages.
package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/flowpanel/flowpanel/pkg/graph"
	"github.com/flowpanel/flowpanel/pkg/observability"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed includes type and data entries in node labels.
	// When false, only the node label (or id) is shown.
	Detailed bool

	// Positions pins nodes to their canvas coordinates instead of
	// letting Graphviz lay the graph out.
	Positions bool
}

// ToDOT converts a graph to Graphviz DOT format.
// The resulting DOT string can be rendered with [RenderSVG].
//
// Selected nodes are drawn with a highlighted outline so exports reflect
// the canvas state.
func ToDOT(g graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}
		if opts.Detailed {
			parts := []string{fmt.Sprintf("type: %s", n.Type)}
			for _, k := range slices.Sorted(maps.Keys(n.Data)) {
				parts = append(parts, fmt.Sprintf("%s: %v", k, n.Data[k]))
			}
			label = label + "\n" + strings.Join(parts, "\n")
		}

		attrs := []string{fmt.Sprintf("label=%q", label)}
		if opts.Positions {
			// Canvas y grows downward; DOT y grows upward.
			attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.Position.X, -n.Position.Y))
		}
		if n.Selected {
			attrs = append(attrs, "color=steelblue", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		var attrs []string
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, g graph.Graph, opts Options) ([]byte, error) {
	observability.Render().OnRenderStart(ctx, "svg", len(g.Nodes))
	start := time.Now()
	out, err := renderSVG(ctx, ToDOT(g, opts))
	observability.Render().OnRenderComplete(ctx, "svg", time.Since(start), err)
	return out, err
}

func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the SVG root element so the diagram scales
// cleanly when embedded.
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
