package layout

import (
	"math"

	"github.com/matzehuels/mindmap/pkg/geom"
)

// coordinates assigns the top-left corner of every node.
//
// The main axis (the one ranks advance along) puts each rank at the sum of
// the extents of the ranks before it plus the rank spacing. The cross axis
// gives every subtree a contiguous band wide enough for its children laid
// side by side; a parent sits at the midpoint of its first and last child.
func (e *Engine) coordinates(t *tree, ranks map[int][]string) (map[string]geom.Point, map[string]geom.Size) {
	cfg := e.cfg
	horiz := cfg.Direction.horizontal()

	sizes := make(map[string]geom.Size, len(t.ids))
	for _, id := range t.ids {
		n := t.nodes[id]
		s := geom.Size{W: n.Width, H: n.Height}
		if s.W <= 0 {
			s.W = cfg.NodeWidth
		}
		if s.H <= 0 {
			s.H = cfg.NodeHeight
		}
		sizes[id] = s
	}
	mainSize := func(id string) float64 {
		if horiz {
			return sizes[id].W
		}
		return sizes[id].H
	}
	crossSize := func(id string) float64 {
		if horiz {
			return sizes[id].H
		}
		return sizes[id].W
	}

	// Main axis.
	rankStart := make([]float64, t.maxRank+1)
	extent := make([]float64, t.maxRank+1)
	for r := 0; r <= t.maxRank; r++ {
		for _, id := range ranks[r] {
			extent[r] = math.Max(extent[r], mainSize(id))
		}
		if r > 0 {
			rankStart[r] = rankStart[r-1] + extent[r-1] + cfg.RankSpacing
		}
	}
	totalMain := rankStart[t.maxRank] + extent[t.maxRank]

	// Cross axis. Child order within a parent follows the rank order.
	kids := make(map[string][]string, len(t.ids))
	for r := 1; r <= t.maxRank; r++ {
		for _, id := range ranks[r] {
			p := t.nodes[id].Parent
			kids[p] = append(kids[p], id)
		}
	}
	p := packer{kids: kids, crossSize: crossSize, spacing: cfg.NodeSpacing,
		span: make(map[string]float64, len(t.ids)), center: make(map[string]float64, len(t.ids))}
	cursor := 0.0
	for _, root := range ranks[0] {
		p.measure(root)
		p.assign(root, cursor)
		cursor += p.span[root] + cfg.NodeSpacing
	}

	pos := make(map[string]geom.Point, len(t.ids))
	for _, id := range t.ids {
		m := rankStart[t.rank[id]]
		if cfg.Direction.reversed() {
			m = totalMain - m - mainSize(id)
		}
		c := p.center[id] - crossSize(id)/2
		if horiz {
			pos[id] = geom.Point{X: m, Y: c}
		} else {
			pos[id] = geom.Point{X: c, Y: m}
		}
	}
	return pos, sizes
}

// packer lays subtrees out along the cross axis.
type packer struct {
	kids      map[string][]string
	crossSize func(string) float64
	spacing   float64
	span      map[string]float64 // cross extent of each subtree's band
	center    map[string]float64 // cross-axis centre of each node
}

func (p *packer) childrenSpan(id string) float64 {
	total := 0.0
	for i, k := range p.kids[id] {
		if i > 0 {
			total += p.spacing
		}
		total += p.span[k]
	}
	return total
}

func (p *packer) measure(id string) float64 {
	for _, k := range p.kids[id] {
		p.measure(k)
	}
	s := math.Max(p.crossSize(id), p.childrenSpan(id))
	p.span[id] = s
	return s
}

func (p *packer) assign(id string, start float64) {
	span, cs := p.span[id], p.crossSize(id)
	kids := p.kids[id]
	if len(kids) == 0 {
		p.center[id] = start + span/2
		return
	}
	off := start + (span-p.childrenSpan(id))/2
	for _, k := range kids {
		p.assign(k, off)
		off += p.span[k] + p.spacing
	}
	c := (p.center[kids[0]] + p.center[kids[len(kids)-1]]) / 2
	// Keep the node inside its band when the children are lopsided.
	c = math.Max(c, start+cs/2)
	c = math.Min(c, start+span-cs/2)
	p.center[id] = c
}
