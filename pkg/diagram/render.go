package diagram

import (
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/interaction"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/visibility"
)

// RenderNode is one node as drawn. Position is always Base + Offset.
type RenderNode struct {
	ID          string
	ParentID    string
	Title       string
	Description string
	Level       int
	Kind        outline.Kind
	State       outline.State
	Position    geom.Point
	Base        geom.Point
	Offset      geom.Point
	Size        geom.Size
	HasChildren bool
	Collapsed   bool
	Selected    bool
	Hidden      bool
}

// Rect returns the node's rectangle at its render position.
func (n RenderNode) Rect() geom.Rect { return geom.RectAt(n.Position, n.Size) }

// RenderEdge connects a parent to a child between their render positions.
type RenderEdge struct {
	From, To   string
	Start, End geom.Point
	Hidden     bool
}

// RenderState is an immutable snapshot of everything needed to draw a
// diagram. Nodes are in pre-order; hidden nodes are included and flagged
// so that views can animate them.
type RenderState struct {
	Title     string
	Direction layout.Direction
	Nodes     []RenderNode
	Edges     []RenderEdge
	Viewport  interaction.Viewport
	// Bounds encloses every visible node.
	Bounds   geom.Rect
	Editing  string
	Selected []string

	index map[string]int
}

// Visible returns the nodes that are not hidden, in pre-order.
func (s *RenderState) Visible() []RenderNode {
	out := make([]RenderNode, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if !n.Hidden {
			out = append(out, n)
		}
	}
	return out
}

// VisibleEdges returns the edges that are not hidden.
func (s *RenderState) VisibleEdges() []RenderEdge {
	out := make([]RenderEdge, 0, len(s.Edges))
	for _, e := range s.Edges {
		if !e.Hidden {
			out = append(out, e)
		}
	}
	return out
}

// Node returns the render node for id.
func (s *RenderState) Node(id string) (RenderNode, bool) {
	i, ok := s.index[id]
	if !ok {
		return RenderNode{}, false
	}
	return s.Nodes[i], true
}

// HitTest returns the topmost visible node containing the diagram point
// p. Later nodes in pre-order are drawn on top.
func (s *RenderState) HitTest(p geom.Point) (string, bool) {
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		n := s.Nodes[i]
		if !n.Hidden && n.Rect().Contains(p) {
			return n.ID, true
		}
	}
	return "", false
}

// HitTestScreen is HitTest for a screen point.
func (s *RenderState) HitTestScreen(p geom.Point) (string, bool) {
	return s.HitTest(s.Viewport.ToDiagram(p))
}

// RenderState combines base positions, offsets, sizes and visibility into
// one snapshot. Nodes added to the outline directly are placed first.
func (d *Diagram) RenderState() *RenderState {
	d.ensurePlaced()

	ix := d.outline.Index()
	hidden := d.resolver.Hidden()
	order := ix.PreOrder()
	dir := d.Direction()

	st := &RenderState{
		Title:     d.outline.Title(),
		Direction: dir,
		Nodes:     make([]RenderNode, 0, len(order)),
		Viewport:  d.ui.Viewport(),
		Editing:   d.ui.Editing(),
		Selected:  d.ui.Selected(),
		index:     make(map[string]int, len(order)),
	}
	for _, id := range order {
		n, _ := d.outline.Node(id)
		base := d.base[id]
		off := d.ui.Offset(id)
		rn := RenderNode{
			ID:          id,
			ParentID:    n.ParentID,
			Title:       n.Title,
			Description: n.Description,
			Level:       n.Level,
			Kind:        n.Kind,
			State:       n.State,
			Position:    base.Add(off),
			Base:        base,
			Offset:      off,
			Size:        d.sizeOf(n),
			HasChildren: len(ix.Children(id)) > 0,
			Collapsed:   d.resolver.IsCollapsed(id),
			Selected:    d.ui.IsSelected(id),
			Hidden:      hidden.Has(id),
		}
		st.index[id] = len(st.Nodes)
		st.Nodes = append(st.Nodes, rn)
		if !rn.Hidden {
			st.Bounds = st.Bounds.Union(rn.Rect())
		}
	}

	for _, n := range st.Nodes {
		if n.ParentID == "" {
			continue
		}
		p := st.Nodes[st.index[n.ParentID]]
		start, end := anchors(dir, p.Rect(), n.Rect())
		st.Edges = append(st.Edges, RenderEdge{
			From:   p.ID,
			To:     n.ID,
			Start:  start,
			End:    end,
			Hidden: visibility.EdgeHidden(n.ID, hidden, ix),
		})
	}
	return st
}

// anchors returns where an edge leaves the parent and enters the child:
// the middle of the parent's trailing side and of the child's leading side
// along the layout direction.
func anchors(dir layout.Direction, parent, child geom.Rect) (geom.Point, geom.Point) {
	pc, cc := parent.Center(), child.Center()
	switch dir {
	case layout.RightToLeft:
		return geom.Point{X: parent.Left, Y: pc.Y}, geom.Point{X: child.Right, Y: cc.Y}
	case layout.TopToBottom:
		return geom.Point{X: pc.X, Y: parent.Bottom}, geom.Point{X: cc.X, Y: child.Top}
	case layout.BottomToTop:
		return geom.Point{X: pc.X, Y: parent.Top}, geom.Point{X: cc.X, Y: child.Bottom}
	default:
		return geom.Point{X: parent.Right, Y: pc.Y}, geom.Point{X: child.Left, Y: cc.Y}
	}
}
