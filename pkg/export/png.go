package export

import (
	"bytes"
	"fmt"
	"image/png"
	"math"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/matzehuels/mindmap/pkg/diagram"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// RenderPNG rasterises the visible nodes and edges, cropped to [Bounds]
// and scaled by the scale option.
func RenderPNG(st *diagram.RenderState, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	s, err := newScene(st, o)
	if err != nil {
		return nil, err
	}

	w := int(math.Ceil(s.bounds.Width() * o.scale))
	h := int(math.Ceil(s.bounds.Height() * o.scale))
	if float64(w)*float64(h) > MaxPixels {
		return nil, mmerrors.New(mmerrors.ErrCodeInvalidInput,
			"png of %dx%d pixels exceeds the %d pixel limit; lower the scale", w, h, MaxPixels)
	}
	dc := gg.NewContext(w, h)
	dc.SetColor(rgba(s.pal.background()))
	dc.Clear()

	dc.Scale(o.scale, o.scale)
	dc.Translate(-s.bounds.Left, -s.bounds.Top)
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(rgba(s.pal.edge()))
	dc.SetLineWidth(2)
	for _, e := range s.edges {
		c1, c2 := curve(s.dir, e.Start, e.End)
		dc.NewSubPath()
		dc.MoveTo(e.Start.X, e.Start.Y)
		dc.CubicTo(c1.X, c1.Y, c2.X, c2.Y, e.End.X, e.End.Y)
		dc.Stroke()
	}

	for _, n := range s.nodes {
		drawNode(dc, n, s.pal)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawNode(dc *gg.Context, n nodeView, pal Palette) {
	x, y, w, h := n.Position.X, n.Position.Y, n.Size.W, n.Size.H
	dc.SetColor(rgba(n.fill))
	dc.DrawRoundedRectangle(x, y, w, h, cornerR)
	dc.Fill()

	dc.SetColor(rgba(pal.stroke()))
	dc.SetLineWidth(1.2)
	if n.Selected {
		dc.SetLineWidth(3)
	}
	dc.DrawRoundedRectangle(x, y, w, h, cornerR)
	dc.Stroke()

	for i, line := range n.lines {
		dc.SetColor(rgba(n.text))
		if i > 0 {
			dc.SetColor(rgba(pal.subtle()))
		}
		dc.DrawStringAnchored(line, x+labelPad, y+labelPad+lineHeight*(float64(i)+0.5), 0, 0.5)
	}

	if n.Collapsed {
		// Marker for hidden children.
		dc.SetColor(rgba(pal.stroke()))
		dc.DrawCircle(x+w-labelPad, y+h/2, 4)
		dc.Fill()
	}
}
