package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/geom"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"the unit of life", 8, []string{"the unit", "of life"}},
		{"short", 20, []string{"short"}},
		{"", 10, nil},
		{"anything", 0, nil},
		{"overlongword fits", 4, []string{"overlongword", "fits"}},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestCanvasJoinsLines(t *testing.T) {
	c := newCanvas(5, 5)
	c.hseg(0, 4, 2)
	c.vseg(2, 0, 4)

	rows := strings.Split(c.String(), "\n")
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(rows))
	}
	if rows[2] != "──┼──" {
		t.Errorf("crossing row = %q, want %q", rows[2], "──┼──")
	}
	if rows[0] != "  │  " {
		t.Errorf("top row = %q, want %q", rows[0], "  │  ")
	}
}

func TestCanvasBoxAndText(t *testing.T) {
	c := newCanvas(8, 3)
	c.box(0, 0, 7, 2, cellNode)
	c.text(1, 1, 6, "Nucleus", cellNode)

	want := "╭──────╮\n│Nucle…│\n╰──────╯"
	if got := c.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestCanvasWideRunes(t *testing.T) {
	c := newCanvas(6, 1)
	c.text(0, 0, 6, "細胞核", cellNode)
	if got := c.String(); got != "細胞核" {
		t.Errorf("String() = %q, want %q", got, "細胞核")
	}
}

func TestCellRoundTrip(t *testing.T) {
	x, y := toCell(fromCell(7, 3))
	if x != 7 || y != 3 {
		t.Errorf("toCell(fromCell(7, 3)) = (%d, %d)", x, y)
	}
	if x, y := toCell(geom.Point{X: -1, Y: -1}); x != -1 || y != -1 {
		t.Errorf("toCell(-1, -1) = (%d, %d), want (-1, -1)", x, y)
	}
}

func TestDrawDiagram(t *testing.T) {
	d := sampleDiagram(t)
	d.Dispatch(context.Background(), diagram.FitView{Screen: geom.Size{W: 1200, H: 480}, Padding: 20})

	out := drawDiagram(d.RenderState(), 120, 24).String()
	for _, title := range []string{"Root", "Alpha", "Beta"} {
		if !strings.Contains(out, title) {
			t.Errorf("drawDiagram() missing %q:\n%s", title, out)
		}
	}
}

func TestDrawDiagramHidesCollapsed(t *testing.T) {
	d := sampleDiagram(t)
	d.Dispatch(context.Background(), diagram.ToggleCollapse{ID: "R"})
	d.Dispatch(context.Background(), diagram.FitView{Screen: geom.Size{W: 1200, H: 480}, Padding: 20})

	out := drawDiagram(d.RenderState(), 120, 24).String()
	if strings.Contains(out, "Alpha") {
		t.Errorf("drawDiagram() shows a node under a collapsed root:\n%s", out)
	}
	if !strings.Contains(out, "Root +") {
		t.Errorf("drawDiagram() should mark the collapsed root:\n%s", out)
	}
}
