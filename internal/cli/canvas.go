package cli

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// One terminal cell covers this many screen units. Cells are roughly
// twice as tall as wide.
const (
	cellWidth  = 10.0
	cellHeight = 20.0
)

type cellStyle uint8

const (
	cellPlain cellStyle = iota
	cellEdge
	cellNode
	cellSelected
	cellPending
	cellCollapsed
)

var canvasStyles = map[cellStyle]lipgloss.Style{
	cellPlain:     lipgloss.NewStyle(),
	cellEdge:      lipgloss.NewStyle().Foreground(colorDim),
	cellNode:      lipgloss.NewStyle().Foreground(colorWhite),
	cellSelected:  lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
	cellPending:   lipgloss.NewStyle().Foreground(colorYellow),
	cellCollapsed: lipgloss.NewStyle().Foreground(colorGray),
}

// Line directions, combined per cell so that crossing edges join.
const (
	lineUp uint8 = 1 << iota
	lineDown
	lineLeft
	lineRight
)

var lineRunes = [16]rune{
	' ', '│', '│', '│',
	'─', '┘', '┐', '┤',
	'─', '└', '┌', '├',
	'─', '┴', '┬', '┼',
}

type cell struct {
	r     rune
	lines uint8
	style cellStyle

	// cont marks the right half of a wide rune.
	cont bool
}

// canvas is a character grid the viewer draws a render state onto.
type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	w, h = max(w, 0), max(h, 0)
	return &canvas{w: w, h: h, cells: make([]cell, w*h)}
}

func (c *canvas) at(x, y int) *cell {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return nil
	}
	return &c.cells[y*c.w+x]
}

func (c *canvas) set(x, y int, r rune, s cellStyle) {
	if p := c.at(x, y); p != nil {
		*p = cell{r: r, style: s}
	}
}

func (c *canvas) line(x, y int, bits uint8) {
	if p := c.at(x, y); p != nil && p.r == 0 {
		p.lines |= bits
		p.style = cellEdge
	}
}

func (c *canvas) hseg(x0, x1, y int) {
	lo, hi := min(x0, x1), max(x0, x1)
	for x := lo; x <= hi && lo != hi; x++ {
		var bits uint8
		if x > lo {
			bits |= lineLeft
		}
		if x < hi {
			bits |= lineRight
		}
		c.line(x, y, bits)
	}
}

func (c *canvas) vseg(x, y0, y1 int) {
	lo, hi := min(y0, y1), max(y0, y1)
	for y := lo; y <= hi && lo != hi; y++ {
		var bits uint8
		if y > lo {
			bits |= lineUp
		}
		if y < hi {
			bits |= lineDown
		}
		c.line(x, y, bits)
	}
}

// text writes s from (x, y), clipped to maxW columns. Wide runes take two
// cells.
func (c *canvas) text(x, y, maxW int, s string, st cellStyle) {
	s = runewidth.Truncate(s, maxW, "…")
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		c.set(x, y, r, st)
		if rw == 2 {
			if p := c.at(x+1, y); p != nil {
				*p = cell{style: st, cont: true}
			}
		}
		x += rw
	}
}

func (c *canvas) box(x0, y0, x1, y1 int, st cellStyle) {
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			c.set(x, y, ' ', st)
		}
	}
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, '─', st)
		c.set(x, y1, '─', st)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, '│', st)
		c.set(x1, y, '│', st)
	}
	c.set(x0, y0, '╭', st)
	c.set(x1, y0, '╮', st)
	c.set(x0, y1, '╰', st)
	c.set(x1, y1, '╯', st)
}

// String renders the grid with one lipgloss style per run of cells.
func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		var run strings.Builder
		cur := cellPlain
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(canvasStyles[cur].Render(run.String()))
				run.Reset()
			}
		}
		for x := 0; x < c.w; x++ {
			p := c.cells[y*c.w+x]
			if p.cont {
				continue
			}
			if p.style != cur {
				flush()
				cur = p.style
			}
			switch {
			case p.r != 0:
				run.WriteRune(p.r)
			default:
				run.WriteRune(lineRunes[p.lines])
			}
		}
		flush()
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// toCell maps a screen point to its terminal cell.
func toCell(p geom.Point) (int, int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

// fromCell returns the screen point at the centre of a terminal cell.
func fromCell(x, y int) geom.Point {
	return geom.Point{X: (float64(x) + 0.5) * cellWidth, Y: (float64(y) + 0.5) * cellHeight}
}

// drawDiagram draws the visible nodes and edges of st on a w×h canvas.
// Edges are drawn as elbows along the layout direction; nodes are drawn
// on top in pre-order.
func drawDiagram(st *diagram.RenderState, w, h int) *canvas {
	c := newCanvas(w, h)
	vp := st.Viewport
	vertical := st.Direction == layout.TopToBottom || st.Direction == layout.BottomToTop

	for _, e := range st.VisibleEdges() {
		sx, sy := toCell(vp.ToScreen(e.Start))
		ex, ey := toCell(vp.ToScreen(e.End))
		if vertical {
			mid := (sy + ey) / 2
			c.vseg(sx, sy, mid)
			c.hseg(sx, ex, mid)
			c.vseg(ex, mid, ey)
			continue
		}
		mid := (sx + ex) / 2
		c.hseg(sx, mid, sy)
		c.vseg(mid, sy, ey)
		c.hseg(mid, ex, ey)
	}

	for _, n := range st.Visible() {
		r := n.Rect()
		x0, y0 := toCell(vp.ToScreen(geom.Point{X: r.Left, Y: r.Top}))
		x1, y1 := toCell(vp.ToScreen(geom.Point{X: r.Right, Y: r.Bottom}))
		x1, y1 = max(x1-1, x0), max(y1-1, y0)
		if x1 < 0 || y1 < 0 || x0 >= w || y0 >= h {
			continue
		}
		drawNode(c, n, x0, y0, x1, y1)
	}
	return c
}

func drawNode(c *canvas, n diagram.RenderNode, x0, y0, x1, y1 int) {
	style := cellNode
	switch {
	case n.Selected:
		style = cellSelected
	case n.State == outline.StatePending:
		style = cellPending
	case n.Collapsed:
		style = cellCollapsed
	}

	title := n.Title
	if n.State == outline.StatePending {
		title = "? " + title
	}
	if n.Collapsed && n.HasChildren {
		title += " +"
	}

	if y1-y0 < 2 || x1-x0 < 3 {
		c.text(x0, y0, x1-x0+1, "["+title+"]", style)
		return
	}
	c.box(x0, y0, x1, y1, style)
	inner := x1 - x0 - 1
	c.text(x0+1, y0+1, inner, title, style)

	desc := n.Description
	if n.State == outline.StatePending {
		desc = "waiting for answer…"
	}
	lines := wrapText(desc, inner)
	for i := 0; y0+2+i < y1 && i < len(lines); i++ {
		c.text(x0+1, y0+2+i, inner, lines[i], cellCollapsed)
	}
}

// wrapText breaks s into lines of at most width columns on word
// boundaries.
func wrapText(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var (
		lines []string
		cur   strings.Builder
		curW  int
	)
	for _, word := range strings.Fields(s) {
		ww := runewidth.StringWidth(word)
		if curW > 0 && curW+1+ww > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curW = 0
		}
		if curW > 0 {
			cur.WriteByte(' ')
			curW++
		}
		cur.WriteString(word)
		curW += ww
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
