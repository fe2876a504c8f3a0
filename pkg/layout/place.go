package layout

import (
	"math"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
)

// Place computes a provisional top-left position for the node newID of in,
// treating pinned (the current on-screen positions of the other nodes) as
// already correct. No pinned node moves.
//
// The new node goes on the rank line next to its parent. Along the cross
// axis it follows the furthest pinned sibling, or lines up with the parent
// when it has none. A new root is stacked after the existing roots.
//
// Returns NODE_NOT_FOUND if newID is not in the input and UNKNOWN_PARENT
// if its parent has no pinned position.
func (e *Engine) Place(in Input, pinned map[string]geom.Point, newID string) (geom.Point, error) {
	cfg := e.cfg
	horiz := cfg.Direction.horizontal()

	var target Node
	found := false
	sizes := make(map[string]geom.Size, len(in.Nodes))
	for _, n := range in.Nodes {
		s := geom.Size{W: n.Width, H: n.Height}
		if s.W <= 0 {
			s.W = cfg.NodeWidth
		}
		if s.H <= 0 {
			s.H = cfg.NodeHeight
		}
		sizes[n.ID] = s
		if n.ID == newID {
			target, found = n, true
		}
	}
	if !found {
		return geom.Point{}, mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q not in layout input", newID)
	}

	// split converts a box into (main start, main size, cross start, cross size).
	split := func(p geom.Point, s geom.Size) (float64, float64, float64, float64) {
		if horiz {
			return p.X, s.W, p.Y, s.H
		}
		return p.Y, s.H, p.X, s.W
	}
	join := func(main, cross float64) geom.Point {
		if horiz {
			return geom.Point{X: main, Y: cross}
		}
		return geom.Point{X: cross, Y: main}
	}
	_, newMain, _, newCross := split(geom.Point{}, sizes[newID])

	// The furthest cross-axis edge among pinned siblings.
	crossEnd, haveSibling := math.Inf(-1), false
	mainMin := math.Inf(1)
	for _, n := range in.Nodes {
		if n.ID == newID || n.Parent != target.Parent {
			continue
		}
		p, ok := pinned[n.ID]
		if !ok {
			continue
		}
		m, _, c, cs := split(p, sizes[n.ID])
		crossEnd = math.Max(crossEnd, c+cs)
		mainMin = math.Min(mainMin, m)
		haveSibling = true
	}

	if target.Parent == "" {
		if !haveSibling {
			return geom.Point{}, nil
		}
		return join(mainMin, crossEnd+cfg.NodeSpacing), nil
	}

	pp, ok := pinned[target.Parent]
	if !ok {
		return geom.Point{}, mmerrors.New(mmerrors.ErrCodeUnknownParent, "parent %q has no position", target.Parent)
	}
	pm, pms, pc, pcs := split(pp, sizes[target.Parent])

	main := pm + pms + cfg.RankSpacing
	if cfg.Direction.reversed() {
		main = pm - cfg.RankSpacing - newMain
	}
	cross := pc + pcs/2 - newCross/2
	if haveSibling {
		cross = crossEnd + cfg.NodeSpacing
	}
	return join(main, cross), nil
}
