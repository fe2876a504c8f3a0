package export

import (
	"bytes"
	"fmt"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/mindmap/pkg/diagram"
)

// RenderSVG draws the visible nodes and edges as SVG with the viewBox set
// to [Bounds].
func RenderSVG(st *diagram.RenderState, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	s, err := newScene(st, o)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	w, h := int(math.Ceil(s.bounds.Width())), int(math.Ceil(s.bounds.Height()))
	left, top := int(math.Floor(s.bounds.Left)), int(math.Floor(s.bounds.Top))
	canvas.StartviewUnit(w, h, "px", left, top, w, h)
	canvas.Title(st.Title)
	canvas.Rect(left, top, w, h, "fill:"+s.pal.background().Hex())

	canvas.Gstyle(fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", s.pal.edge().Hex()))
	for _, e := range s.edges {
		c1, c2 := curve(s.dir, e.Start, e.End)
		canvas.Bezier(ix(e.Start.X), ix(e.Start.Y), ix(c1.X), ix(c1.Y), ix(c2.X), ix(c2.Y), ix(e.End.X), ix(e.End.Y))
	}
	canvas.Gend()

	for _, n := range s.nodes {
		x, y, nw, nh := ix(n.Position.X), ix(n.Position.Y), ix(n.Size.W), ix(n.Size.H)
		stroke := 1.2
		if n.Selected {
			stroke = 3
		}
		canvas.Gid(n.ID)
		canvas.Roundrect(x, y, nw, nh, int(cornerR), int(cornerR),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g", n.fill.Hex(), s.pal.stroke().Hex(), stroke))
		for i, line := range n.lines {
			col := n.text.Hex()
			if i > 0 {
				col = s.pal.subtle().Hex()
			}
			ly := ix(n.Position.Y + labelPad + lineHeight*(float64(i)+0.5) + 4)
			canvas.Text(x+int(labelPad), ly, line, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", col))
		}
		if n.Collapsed {
			canvas.Circle(x+nw-int(labelPad), y+nh/2, 4, "fill:"+s.pal.stroke().Hex())
		}
		canvas.Gend()
	}

	canvas.End()
	return buf.Bytes(), nil
}

func ix(f float64) int { return int(math.Round(f)) }
