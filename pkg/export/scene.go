package export

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// Label metrics, matching basicfont.Face7x13.
const (
	charWidth  = 7.0
	lineHeight = 16.0
	labelPad   = 12.0
	cornerR    = 8.0
)

// nodeView is a visible node with its resolved colours and label lines.
type nodeView struct {
	diagram.RenderNode
	fill  colorful.Color
	text  colorful.Color
	lines []string
}

// scene is the visible part of a render state in export coordinates.
type scene struct {
	bounds geom.Rect
	dir    layout.Direction
	nodes  []nodeView
	edges  []diagram.RenderEdge
	pal    Palette
}

func newScene(st *diagram.RenderState, o options) (*scene, error) {
	b, err := Bounds(st, o.padding)
	if err != nil {
		return nil, err
	}
	s := &scene{bounds: b, dir: st.Direction, edges: st.VisibleEdges(), pal: o.palette}
	for _, n := range st.Visible() {
		s.nodes = append(s.nodes, nodeView{RenderNode: n})
	}
	deepest := maxLevel(s.nodes)
	for i := range s.nodes {
		n := &s.nodes[i]
		n.fill = o.palette.Fill(n.Kind, n.Level, deepest)
		n.text = o.palette.TextOn(n.fill)
		n.lines = labelLines(n.RenderNode)
	}
	return s, nil
}

// labelLines fits the title, and for follow-ups the answer, into the node
// width.
func labelLines(n diagram.RenderNode) []string {
	cols := int((n.Size.W - 2*labelPad) / charWidth)
	rows := int((n.Size.H - labelPad) / lineHeight)
	if cols < 1 || rows < 1 {
		return nil
	}
	lines := []string{runewidth.Truncate(n.Title, cols, "…")}
	if n.Kind == outline.KindQnA && n.Description != "" {
		for _, l := range strings.Split(n.Description, "\n") {
			if len(lines) == rows {
				break
			}
			lines = append(lines, runewidth.Truncate(l, cols, "…"))
		}
	}
	return lines
}

// curve returns the control points of the edge from start to end: a
// cubic bend along the layout's main axis.
func curve(dir layout.Direction, start, end geom.Point) (c1, c2 geom.Point) {
	switch dir {
	case layout.TopToBottom, layout.BottomToTop:
		my := (start.Y + end.Y) / 2
		return geom.Point{X: start.X, Y: my}, geom.Point{X: end.X, Y: my}
	default:
		mx := (start.X + end.X) / 2
		return geom.Point{X: mx, Y: start.Y}, geom.Point{X: mx, Y: end.Y}
	}
}
