package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mindmap/pkg/diagram"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/outline"
)

func threeNode(t *testing.T) *diagram.Diagram {
	t.Helper()
	o := outline.New("Cells")
	for _, n := range []struct{ id, parent string }{{"R", ""}, {"C1", "R"}, {"C2", "R"}} {
		if err := o.AddNodeWithID(n.id, n.parent, n.id, "", outline.KindRegular); err != nil {
			t.Fatal(err)
		}
	}
	d, err := diagram.Open(context.Background(), o, diagram.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRenderTextThreeNodes(t *testing.T) {
	got, err := RenderText(threeNode(t).RenderState())
	if err != nil {
		t.Fatal(err)
	}
	if want := "- R\n\n  - C1\n\n  - C2\n"; string(got) != want {
		t.Errorf("RenderText() = %q, want %q", got, want)
	}
}

func TestRenderTextFollowUps(t *testing.T) {
	d := threeNode(t)
	ctx := context.Background()
	q, _ := d.InsertFollowUp(ctx, "C1", "Why?")
	pending, _ := d.InsertFollowUp(ctx, "C2", "How?")
	if err := d.Answer(q, "Because\nit is."); err != nil {
		t.Fatal(err)
	}
	_ = pending

	got, err := RenderText(d.RenderState())
	if err != nil {
		t.Fatal(err)
	}
	want := "- R\n\n  - C1\n\n    - Why?: Because it is.\n\n  - C2\n\n    - How?\n"
	if string(got) != want {
		t.Errorf("RenderText() = %q, want %q", got, want)
	}
}

func TestMissingTarget(t *testing.T) {
	empty := diagram.New(outline.New("empty"), diagram.WithLogger(log.New(io.Discard))).RenderState()
	for _, tt := range []struct {
		name string
		st   *diagram.RenderState
	}{
		{"nil", nil},
		{"empty", empty},
	} {
		t.Run(tt.name, func(t *testing.T) {
			for _, f := range Formats {
				_, err := Render(context.Background(), tt.st, f)
				if !mmerrors.Is(err, mmerrors.ErrCodeExportTargetMissing) {
					t.Errorf("Render(%s) = %v, want EXPORT_TARGET_MISSING", f, err)
				}
				if !mmerrors.Recoverable(err) {
					t.Errorf("Render(%s) error not recoverable", f)
				}
			}
			if _, err := All(context.Background(), tt.st, Formats); !mmerrors.Is(err, mmerrors.ErrCodeExportTargetMissing) {
				t.Errorf("All() = %v, want EXPORT_TARGET_MISSING", err)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	d := threeNode(t)

	b, err := Bounds(d.RenderState(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if want := (geom.Rect{Left: -10, Top: -10, Right: 610, Bottom: 210}); b != want {
		t.Errorf("Bounds() = %+v, want %+v", b, want)
	}

	// Bounds follow render positions.
	d.Interaction().SetOffset("C2", geom.Point{X: 50, Y: 30})
	b, _ = Bounds(d.RenderState(), 0)
	if b.Right != 650 || b.Bottom != 230 {
		t.Errorf("Bounds() after drag = %+v, want right 650 bottom 230", b)
	}

	// Hidden nodes are excluded.
	d.Visibility().SetCollapsed("R", true)
	b, _ = Bounds(d.RenderState(), 0)
	if want := (geom.Rect{Left: 0, Top: 60, Right: 250, Bottom: 140}); b != want {
		t.Errorf("Bounds() collapsed = %+v, want %+v", b, want)
	}
}

func TestRenderPNG(t *testing.T) {
	data, err := RenderPNG(threeNode(t).RenderState(), WithPadding(40), WithScale(2))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	if got := img.Bounds().Size(); got.X != 1360 || got.Y != 560 {
		t.Errorf("image size = %v, want 1360x560", got)
	}
}

func TestRenderPNGPixelLimit(t *testing.T) {
	_, err := RenderPNG(threeNode(t).RenderState(), WithPadding(MaxPadding), WithScale(MaxScale))
	if !mmerrors.Is(err, mmerrors.ErrCodeInvalidInput) {
		t.Errorf("RenderPNG() oversized error = %v, want INVALID_INPUT", err)
	}
}

func TestOptionLimits(t *testing.T) {
	tests := []struct {
		name         string
		opts         []Option
		scale, pad float64
	}{
		{"defaults", nil, DefaultScale, DefaultPadding},
		{"clamped", []Option{WithScale(50), WithPadding(5000)}, MaxScale, MaxPadding},
		{"ignored", []Option{WithScale(-1), WithPadding(-1)}, DefaultScale, DefaultPadding},
		{"in range", []Option{WithScale(3), WithPadding(0)}, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOptions(tt.opts)
			if o.scale != tt.scale || o.padding != tt.pad {
				t.Errorf("scale, padding = %v, %v, want %v, %v", o.scale, o.padding, tt.scale, tt.pad)
			}
		})
	}
}

func TestRenderPDF(t *testing.T) {
	data, err := RenderPDF(threeNode(t).RenderState(), WithScale(1))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("RenderPDF() output starts with %q", data[:min(len(data), 8)])
	}
}

func TestRenderSVG(t *testing.T) {
	d := threeNode(t)
	d.Visibility().SetCollapsed("R", true)
	data, err := RenderSVG(d.RenderState())
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "<svg") || !strings.Contains(s, `id="R"`) {
		t.Errorf("RenderSVG() missing root:\n%s", s)
	}
	if strings.Contains(s, `id="C1"`) {
		t.Error("RenderSVG() drew a hidden node")
	}
}

func TestRenderDOT(t *testing.T) {
	data, err := RenderDOT(threeNode(t).RenderState())
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{"rankdir=LR;", `"R" -> "C1";`, `"R" -> "C2";`, `label="Cells";`} {
		if !strings.Contains(s, want) {
			t.Errorf("RenderDOT() missing %q:\n%s", want, s)
		}
	}
}

// quotedDiagram has node IDs and titles that need escaping in every
// markup format.
func quotedDiagram(t *testing.T) *diagram.Diagram {
	t.Helper()
	o := outline.New(`Say "hi"`)
	if err := o.AddNodeWithID(`a"b`, "", `x < y & "z"`, "", outline.KindRegular); err != nil {
		t.Fatal(err)
	}
	if err := o.AddNodeWithID("c&d", `a"b`, "C:\\tmp\tdir", "", outline.KindRegular); err != nil {
		t.Fatal(err)
	}
	d, err := diagram.Open(context.Background(), o, diagram.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRenderSVGEscapesIDs(t *testing.T) {
	data, err := RenderSVG(quotedDiagram(t).RenderState())
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]bool{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("RenderSVG() output is not XML: %v\n%s", err, data)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "g" {
			for _, a := range se.Attr {
				if a.Name.Local == "id" {
					ids[a.Value] = true
				}
			}
		}
	}
	for _, want := range []string{`a"b`, "c&d"} {
		if !ids[want] {
			t.Errorf("RenderSVG() group ids = %v, missing %q", ids, want)
		}
	}
}

func TestRenderDOTEscapes(t *testing.T) {
	data, err := RenderDOT(quotedDiagram(t).RenderState())
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{
		`label="Say \"hi\"";`,
		`"a\"b" -> "c&d";`,
		`label="x < y & \"z\""`,
		`label="C:\\tmp dir"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("RenderDOT() missing %s:\n%s", want, s)
		}
	}
}

func TestDotQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{`a"b`, `"a\"b"`},
		{`back\slash`, `"back\\slash"`},
		{"two\nlines", `"two\nlines"`},
		{"tab\there", `"tab here"`},
		{"bell\x01", `"bell"`},
		{"sep\u2028ok", "\"sep\u2028ok\""},
	}
	for _, tt := range tests {
		if got := dotQuote(tt.in); got != tt.want {
			t.Errorf("dotQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRenderGraphviz(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering in short mode")
	}
	data, err := Render(context.Background(), threeNode(t).RenderState(), DOT, WithGraphviz())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("graphviz output is not SVG")
	}
}

func TestRenderJSONRoundTrip(t *testing.T) {
	d := threeNode(t)
	d.Interaction().SetOffset("C1", geom.Point{X: 12, Y: -4})
	st := d.RenderState()

	data, err := RenderJSON(st)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := outline.ReadJSON(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := diagram.Load(context.Background(), doc, diagram.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range st.Nodes {
		got, _ := loaded.RenderPosition(n.ID)
		if got != n.Position {
			t.Errorf("%s loaded at %v, want %v", n.ID, got, n.Position)
		}
	}
}

func TestAllAndWriteFiles(t *testing.T) {
	st := threeNode(t).RenderState()
	formats := []Format{PNG, PDF, SVG, JSON, TXT, DOT}

	out, err := All(context.Background(), st, formats, WithScale(1))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range formats {
		if len(out[f]) == 0 {
			t.Errorf("All() produced no %s", f)
		}
	}

	dir := t.TempDir()
	paths, err := WriteFiles(context.Background(), st, dir, "cells", []Format{TXT, JSON})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != filepath.Join(dir, "cells.txt") {
		t.Errorf("WriteFiles() = %v", paths)
	}
	if b, _ := os.ReadFile(paths[0]); string(b) != "- R\n\n  - C1\n\n  - C2\n" {
		t.Errorf("cells.txt = %q", b)
	}
}

func TestAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := All(ctx, threeNode(t).RenderState(), []Format{TXT}); err == nil {
		t.Error("All() with cancelled context succeeded")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", PNG, false},
		{".PDF", PDF, false},
		{" txt ", TXT, false},
		{"dot", DOT, false},
		{"jpeg", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	fs, err := ParseFormats("png, svg,,txt")
	if err != nil || len(fs) != 3 {
		t.Errorf("ParseFormats() = %v, %v", fs, err)
	}
	if _, err := ParseFormats("png,bmp"); !mmerrors.Is(err, mmerrors.ErrCodeInvalidFormat) {
		t.Errorf("ParseFormats(bmp) = %v, want INVALID_FORMAT", err)
	}
}

func TestPaletteFill(t *testing.T) {
	p := DefaultPalette()
	root := p.Fill(outline.KindRegular, 0, 2)
	leaf := p.Fill(outline.KindRegular, 2, 2)
	if root.Hex() != p.Root || leaf.Hex() != p.Leaf {
		t.Errorf("Fill() root %s leaf %s, want %s %s", root.Hex(), leaf.Hex(), p.Root, p.Leaf)
	}
	if got := p.Fill(outline.KindQnA, 1, 2).Hex(); got != p.FollowUp {
		t.Errorf("Fill(qna) = %s, want %s", got, p.FollowUp)
	}
	bad := Palette{Root: "not-a-colour"}
	if got := bad.Fill(outline.KindRegular, 0, 0).Hex(); got != p.Root {
		t.Errorf("Fill() with bad colour = %s, want fallback %s", got, p.Root)
	}
}
