package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/matzehuels/mindmap/pkg/diagram"
)

// RenderPDF produces a single-page PDF sized to [Bounds] (one point per
// diagram unit) with the PNG raster embedded full-page.
func RenderPDF(st *diagram.RenderState, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	b, err := Bounds(st, o.padding)
	if err != nil {
		return nil, err
	}
	raster, err := RenderPNG(st, opts...)
	if err != nil {
		return nil, err
	}

	w, h := b.Width(), b.Height()
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(st.Title, true)
	pdf.AddPage()

	img := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("scene", img, bytes.NewReader(raster))
	pdf.ImageOptions("scene", 0, 0, w, h, false, img, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
