// Package nodelink renders a spanning-tree transform result as a flat 2D
// node-link diagram.
//
// The 3D radial layout is consumed by an external renderer; this package
// exists for debugging and documentation. It produces Graphviz DOT source
// showing the chosen spanning tree (solid edges), the cycle edges traversal
// rejected (dashed), and orphans (grey, disconnected).
//
// # Usage
//
//	dot := nodelink.ToDOT(t, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(dot)
package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/memlens/memlens/pkg/tree"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes depth, occurrence counts, and relationship types in
	// labels. When false, only the display label is shown.
	Detailed bool

	// ShowCycles includes the rejected cycle edges as dashed connections.
	ShowCycles bool

	// ShowOrphans includes unreached nodes as disconnected grey boxes.
	ShowOrphans bool
}

// ToDOT converts a transform result to Graphviz DOT format.
// The resulting DOT string can be rendered with [RenderSVG].
// Returns an empty digraph for a nil result.
func ToDOT(t *tree.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph memlens {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")
	if t == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	var writeNode func(n *tree.Node)
	writeNode = func(n *tree.Node) {
		fmt.Fprintf(&buf, "  %q [label=%q];\n", n.ID, nodeLabel(n, opts.Detailed))
		for _, c := range n.Children {
			writeNode(c)
		}
	}
	writeNode(t.Root)

	if opts.ShowOrphans {
		for _, o := range t.Orphans {
			fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n",
				o.ID, o.DisplayLabel())
		}
	}

	buf.WriteString("\n")
	for _, e := range t.TreeEdges {
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", e.ParentID, e.ChildID, edgeAttrs(e, opts.Detailed))
	}
	if opts.ShowCycles {
		for i := range t.CycleEdges {
			ce := &t.CycleEdges[i]
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, dir=none, color=grey];\n", ce.A, ce.B)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *tree.Node, detailed bool) string {
	label := n.ID
	if n.Entity != nil {
		label = n.Entity.DisplayLabel()
	}
	if !detailed {
		return label
	}

	parts := []string{fmt.Sprintf("depth: %d", n.Depth)}
	if n.Entity != nil && n.Entity.Type != "" {
		parts = append(parts, "type: "+n.Entity.Type)
	}
	if n.Edge != nil {
		parts = append(parts, fmt.Sprintf("count: %d", n.Edge.OccurrenceCount))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func edgeAttrs(e *tree.TreeEdge, detailed bool) string {
	if !detailed || len(e.Types) == 0 {
		return ""
	}
	return fmt.Sprintf(" [label=%q, fontsize=16]", strings.Join(e.Types, ", "))
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
