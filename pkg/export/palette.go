package export

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/mindmap/pkg/outline"
)

// Palette holds the colours of an export. Node fills blend from Root to
// Leaf by level; follow-ups use FollowUp regardless of depth.
type Palette struct {
	Background string
	Root       string
	Leaf       string
	FollowUp   string
	Stroke     string
	Edge       string
	Text       string
	Subtle     string
}

// DefaultPalette returns the standard light palette.
func DefaultPalette() Palette {
	return Palette{
		Background: "#ffffff",
		Root:       "#4f6bed",
		Leaf:       "#e8edff",
		FollowUp:   "#fff4d6",
		Stroke:     "#2b2f3a",
		Edge:       "#8a94a6",
		Text:       "#111318",
		Subtle:     "#4a5060",
	}
}

// parse returns c, or fallback when c is not a valid hex colour.
func parse(c, fallback string) colorful.Color {
	if col, err := colorful.Hex(c); err == nil {
		return col
	}
	col, _ := colorful.Hex(fallback)
	return col
}

// Fill returns the fill colour of a node at level in a tree maxLevel deep.
func (p Palette) Fill(kind outline.Kind, level, maxLevel int) colorful.Color {
	d := DefaultPalette()
	if kind == outline.KindQnA {
		return parse(p.FollowUp, d.FollowUp)
	}
	t := 0.0
	if maxLevel > 0 {
		t = float64(level) / float64(maxLevel)
	}
	return parse(p.Root, d.Root).BlendLab(parse(p.Leaf, d.Leaf), t).Clamped()
}

// TextOn returns the label colour that reads best on fill.
func (p Palette) TextOn(fill colorful.Color) colorful.Color {
	d := DefaultPalette()
	if _, _, l := fill.Hcl(); l < 0.55 {
		return parse(p.Background, d.Background)
	}
	return parse(p.Text, d.Text)
}

func (p Palette) background() colorful.Color { return parse(p.Background, DefaultPalette().Background) }
func (p Palette) stroke() colorful.Color     { return parse(p.Stroke, DefaultPalette().Stroke) }
func (p Palette) edge() colorful.Color       { return parse(p.Edge, DefaultPalette().Edge) }
func (p Palette) subtle() colorful.Color     { return parse(p.Subtle, DefaultPalette().Subtle) }

// rgba converts to an opaque image colour.
func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func maxLevel(nodes []nodeView) int {
	m := 0
	for _, n := range nodes {
		m = max(m, n.Level)
	}
	return m
}
