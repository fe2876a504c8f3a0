package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// RenderDOT converts the visible tree to Graphviz DOT. Graphviz computes
// its own positions; the output preserves structure, direction and
// colours, not render positions.
func RenderDOT(st *diagram.RenderState) ([]byte, error) {
	if err := check(st); err != nil {
		return nil, err
	}
	pal := DefaultPalette()
	nodes := make([]nodeView, 0, len(st.Nodes))
	for _, n := range st.Visible() {
		nodes = append(nodes, nodeView{RenderNode: n})
	}
	deepest := maxLevel(nodes)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir(st.Direction))
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"monospace\", fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [arrowhead=none];\n")
	if st.Title != "" {
		fmt.Fprintf(&buf, "  label=%s;\n", dotQuote(st.Title))
	}
	buf.WriteString("\n")

	for _, n := range nodes {
		fill := pal.Fill(n.Kind, n.Level, deepest)
		attrs := []string{
			"label=" + dotQuote(dotLabel(n.RenderNode)),
			fmt.Sprintf("fillcolor=%q", fill.Hex()),
			fmt.Sprintf("fontcolor=%q", pal.TextOn(fill).Hex()),
		}
		if n.Kind == outline.KindQnA && n.State == outline.StatePending {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"")
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", dotQuote(n.ID), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range st.VisibleEdges() {
		fmt.Fprintf(&buf, "  %s -> %s;\n", dotQuote(e.From), dotQuote(e.To))
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func dotLabel(n diagram.RenderNode) string {
	if n.Kind == outline.KindQnA && n.State != outline.StatePending && n.Description != "" {
		return n.Title + "\n" + n.Description
	}
	return n.Title
}

// dotQuote makes s a DOT double-quoted string. DOT only knows the \" and
// \\ escapes; line breaks become the \n label escape, tabs become spaces and
// other control characters are dropped.
func dotQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func rankdir(d layout.Direction) string {
	if d == "" {
		return string(layout.LeftToRight)
	}
	return string(d)
}

// RenderGraphviz renders the DOT form of the tree to SVG with Graphviz.
func RenderGraphviz(ctx context.Context, st *diagram.RenderState) ([]byte, error) {
	dot, err := RenderDOT(st)
	if err != nil {
		return nil, err
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
