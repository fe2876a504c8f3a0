package diagram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"pgregory.net/rapid"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/interaction"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/source"
)

var quiet = log.New(io.Discard)

func seqIDs() outline.Option {
	i := 0
	return outline.WithIDGenerator(func() string {
		i++
		return fmt.Sprintf("q%d", i)
	})
}

// threeNode builds R with children C1 and C2.
func threeNode(t *testing.T) *outline.Outline {
	t.Helper()
	o := outline.New("Cells", seqIDs())
	for _, n := range []struct{ id, parent string }{{"R", ""}, {"C1", "R"}, {"C2", "R"}} {
		if err := o.AddNodeWithID(n.id, n.parent, n.id, "", outline.KindRegular); err != nil {
			t.Fatalf("AddNodeWithID(%s) error: %v", n.id, err)
		}
	}
	return o
}

func open(t *testing.T, opts ...Option) *Diagram {
	t.Helper()
	opts = append([]Option{WithLogger(quiet)}, opts...)
	d, err := Open(context.Background(), threeNode(t), opts...)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return d
}

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

func wantRender(t *testing.T, d *Diagram, id string, want geom.Point) {
	t.Helper()
	got, ok := d.RenderPosition(id)
	if !ok {
		t.Fatalf("RenderPosition(%s) missing", id)
	}
	if got != want {
		t.Errorf("RenderPosition(%s) = %v, want %v", id, got, want)
	}
}

// gatedOrderer blocks until the deadline while slow is set.
type gatedOrderer struct{ slow atomic.Bool }

func (g *gatedOrderer) OrderRanks(ctx context.Context, t layout.Tree) (map[int][]string, error) {
	if g.slow.Load() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return layout.Barycentric{}.OrderRanks(ctx, t)
}

func TestOpenLaysOutTree(t *testing.T) {
	d := open(t)
	wantRender(t, d, "R", pt(0, 60))
	wantRender(t, d, "C1", pt(350, 0))
	wantRender(t, d, "C2", pt(350, 120))
}

func TestDragSurvivesCollapse(t *testing.T) {
	d := open(t)
	ctx := context.Background()

	for _, cmd := range []Command{BeginDrag{ID: "C2"}, Drag{ID: "C2", DX: 50}, EndDrag{ID: "C2"}} {
		if res := d.Dispatch(ctx, cmd); res.Skipped || res.Err != nil {
			t.Fatalf("Dispatch(%T) = %+v", cmd, res)
		}
	}
	wantRender(t, d, "C2", pt(400, 120))

	res := d.Dispatch(ctx, ToggleCollapse{ID: "R"})
	if res.Err != nil || !res.Collapsed {
		t.Fatalf("ToggleCollapse(R) = %+v, want collapsed", res)
	}
	st := d.RenderState()
	if n, _ := st.Node("C2"); !n.Hidden {
		t.Error("C2 visible under collapsed R")
	}
	if len(st.Visible()) != 1 {
		t.Errorf("Visible() = %d nodes, want 1", len(st.Visible()))
	}

	d.Dispatch(ctx, ToggleCollapse{ID: "R"})
	wantRender(t, d, "C2", pt(400, 120))
	wantRender(t, d, "C1", pt(350, 0))
}

func TestInsertFollowUpPinned(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	d.Interaction().SetOffset("C1", pt(50, 0))
	before := d.BasePositions()
	offsets := d.Interaction().Offsets()

	res := d.Dispatch(ctx, InsertFollowUp{ParentID: "C1", Question: "Why?"})
	if res.Err != nil {
		t.Fatalf("InsertFollowUp() error: %v", res.Err)
	}
	q := res.ID

	n, _ := d.Outline().Node(q)
	if n.Kind != outline.KindQnA || n.State != outline.StatePending || n.Description != outline.PendingDescription {
		t.Errorf("follow-up = %+v, want pending qna", n)
	}
	if n.Level != 2 {
		t.Errorf("follow-up level = %d, want 2", n.Level)
	}
	// Next to the dragged parent, on its centre line.
	wantRender(t, d, q, pt(750, 0))

	after := d.BasePositions()
	delete(after, q)
	if !maps.Equal(after, before) {
		t.Errorf("base positions changed: %v -> %v", before, after)
	}
	if got := d.Interaction().Offsets(); !maps.Equal(got, offsets) {
		t.Errorf("offsets changed: %v -> %v", offsets, got)
	}

	// A second follow-up stacks after the first.
	q2, err := d.InsertFollowUp(ctx, "C1", "How?")
	if err != nil {
		t.Fatal(err)
	}
	wantRender(t, d, q2, pt(750, 120))
}

func TestInsertFollowUpFullLayout(t *testing.T) {
	d := open(t, WithStrategy(StrategyFullLayout))
	before := d.BasePositions()

	q, err := d.InsertFollowUp(context.Background(), "C1", "Why?")
	if err != nil {
		t.Fatal(err)
	}
	wantRender(t, d, q, pt(700, 0))
	for id, p := range before {
		if got, _ := d.BasePosition(id); got != p {
			t.Errorf("BasePosition(%s) = %v, want %v", id, got, p)
		}
	}
}

func TestInsertFollowUpUnknownParent(t *testing.T) {
	d := open(t)
	version := d.Outline().Version()

	res := d.Dispatch(context.Background(), InsertFollowUp{ParentID: "nope", Question: "?"})
	if !mmerrors.Is(res.Err, mmerrors.ErrCodeUnknownParent) {
		t.Errorf("InsertFollowUp() = %v, want UNKNOWN_PARENT", res.Err)
	}
	if d.Outline().Len() != 3 || d.Outline().Version() != version {
		t.Error("outline changed by failed insert")
	}
}

func TestFollowUpLifecycle(t *testing.T) {
	d := open(t)
	q, err := d.InsertFollowUp(context.Background(), "C1", "Why?")
	if err != nil {
		t.Fatal(err)
	}

	if err := d.BeginEdit(q); !mmerrors.Is(err, mmerrors.ErrCodeInvalidState) {
		t.Errorf("BeginEdit(pending) = %v, want INVALID_STATE", err)
	}
	if n, _ := d.Outline().Node(q); n.Description != outline.PendingDescription {
		t.Errorf("Description = %q, want %q", n.Description, outline.PendingDescription)
	}

	if err := d.Answer(q, "Because."); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	n, _ := d.Outline().Node(q)
	if n.State != outline.StateAnswered || n.Description != "Because." {
		t.Errorf("after Answer: %+v", n)
	}
	if err := d.Answer(q, "again"); !mmerrors.Is(err, mmerrors.ErrCodeInvalidState) {
		t.Errorf("Answer(answered) = %v, want INVALID_STATE", err)
	}

	if err := d.BeginEdit(q); err != nil {
		t.Fatalf("BeginEdit() error: %v", err)
	}
	if n, _ := d.Outline().Node(q); n.State != outline.StateEditable {
		t.Errorf("State = %v, want editable", n.State)
	}
	if res := d.Dispatch(context.Background(), BeginDrag{ID: q}); !res.Skipped {
		t.Error("drag of edited node was not skipped")
	}
	title := "Why though?"
	if err := d.EditNode(q, &title, nil); err != nil {
		t.Fatal(err)
	}
	d.EndEdit()
	if n, _ := d.Outline().Node(q); n.Title != title {
		t.Errorf("Title = %q, want %q", n.Title, title)
	}
}

func TestLayoutTimeoutKeepsPositions(t *testing.T) {
	ord := &gatedOrderer{}
	cfg := layout.Config{Timeout: 20 * time.Millisecond}
	d := open(t, WithLayout(cfg, layout.WithOrderer(ord)), WithStrategy(StrategyFullLayout))
	before := d.BasePositions()

	ord.slow.Store(true)
	err := d.Relayout(context.Background(), false)
	if !mmerrors.Is(err, mmerrors.ErrCodeLayoutTimeout) {
		t.Fatalf("Relayout() = %v, want LAYOUT_TIMEOUT", err)
	}
	if !mmerrors.Recoverable(err) {
		t.Error("timeout not recoverable")
	}
	if got := d.BasePositions(); !maps.Equal(got, before) {
		t.Errorf("positions changed after timeout: %v", got)
	}

	// Insertion falls back to pinned placement.
	q, err := d.InsertFollowUp(context.Background(), "C1", "Why?")
	if err != nil {
		t.Fatalf("InsertFollowUp() error: %v", err)
	}
	wantRender(t, d, q, pt(700, 0))
}

func TestSetDirection(t *testing.T) {
	d := open(t)
	d.Interaction().SetOffset("C1", pt(5, 5))

	res := d.Dispatch(context.Background(), SetDirection{Direction: layout.TopToBottom})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if d.Direction() != layout.TopToBottom {
		t.Errorf("Direction() = %v", d.Direction())
	}
	wantRender(t, d, "R", pt(145, 0))
	wantRender(t, d, "C1", pt(0, 180))
	wantRender(t, d, "C2", pt(290, 180))

	res = d.Dispatch(context.Background(), SetDirection{Direction: "XY"})
	if !mmerrors.Is(res.Err, mmerrors.ErrCodeInvalidInput) {
		t.Errorf("SetDirection(XY) = %v, want INVALID_INPUT", res.Err)
	}
	if d.Direction() != layout.TopToBottom {
		t.Errorf("Direction() = %v after failed change", d.Direction())
	}
}

func TestDeleteReparents(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	q, _ := d.InsertFollowUp(ctx, "C1", "Why?")
	qPos, _ := d.BasePosition(q)
	d.Interaction().Select("C1", false)
	d.Visibility().SetCollapsed("C1", true)

	res := d.Dispatch(ctx, DeleteNode{ID: "C1"})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if len(res.Removed) != 1 || res.Removed[0] != "C1" {
		t.Errorf("Removed = %v, want [C1]", res.Removed)
	}
	n, _ := d.Outline().Node(q)
	if n.ParentID != "R" || n.Level != 1 {
		t.Errorf("follow-up after delete = parent %q level %d, want R 1", n.ParentID, n.Level)
	}
	if got, _ := d.BasePosition(q); got != qPos {
		t.Errorf("follow-up moved to %v", got)
	}
	if _, ok := d.BasePosition("C1"); ok {
		t.Error("deleted node still has a base position")
	}
	if d.Interaction().IsSelected("C1") || d.Visibility().IsCollapsed("C1") {
		t.Error("state for deleted node retained")
	}
	if res := d.Dispatch(ctx, DeleteNode{ID: "C1"}); !mmerrors.Is(res.Err, mmerrors.ErrCodeNodeNotFound) {
		t.Errorf("second delete = %v, want NODE_NOT_FOUND", res.Err)
	}
}

func TestDeleteCascade(t *testing.T) {
	d := open(t, WithDeletePolicy(outline.CascadeDelete))
	q, _ := d.InsertFollowUp(context.Background(), "C1", "Why?")

	removed, err := d.DeleteNode("C1")
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Errorf("removed = %v, want C1 and %s", removed, q)
	}
	if d.Outline().Has(q) {
		t.Error("descendant survived cascade delete")
	}
}

func TestPointerClickSelectsAndToggles(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	t0 := time.Unix(0, 0)

	d.Dispatch(ctx, PointerDown{Target: "R", Pos: pt(10, 10), At: t0})
	res := d.Dispatch(ctx, PointerUp{Pos: pt(11, 10), At: t0.Add(50 * time.Millisecond)})
	if res.Gesture != interaction.Click {
		t.Fatalf("Gesture = %v, want click", res.Gesture)
	}
	if !res.Collapsed || !d.Visibility().IsCollapsed("R") {
		t.Error("click on R did not collapse it")
	}
	if !d.Interaction().IsSelected("R") {
		t.Error("click on R did not select it")
	}

	// A leaf only gets selected.
	d.Dispatch(ctx, PointerDown{Target: "C1", Pos: pt(0, 0), At: t0})
	d.Dispatch(ctx, PointerUp{Pos: pt(0, 0), At: t0, Additive: true})
	if got := d.Interaction().Selected(); len(got) != 2 {
		t.Errorf("Selected() = %v, want R and C1", got)
	}
	if d.Visibility().IsCollapsed("C1") {
		t.Error("leaf collapsed by click")
	}

	// Canvas click clears the selection.
	d.Dispatch(ctx, PointerDown{Pos: pt(0, 0), At: t0})
	d.Dispatch(ctx, PointerUp{Pos: pt(0, 0), At: t0})
	if got := d.Interaction().Selected(); len(got) != 0 {
		t.Errorf("Selected() = %v after canvas click", got)
	}
}

func TestPointerDragMovesNode(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	t0 := time.Unix(0, 0)
	d.Dispatch(ctx, Zoom{Delta: 1})

	d.Dispatch(ctx, PointerDown{Target: "C2", Kind: interaction.Touch, Pos: pt(0, 0), At: t0})
	d.Dispatch(ctx, PointerMove{Pos: pt(20, 0)})
	res := d.Dispatch(ctx, PointerUp{Pos: pt(40, 10), At: t0.Add(time.Second)})
	if res.Gesture != interaction.Drag {
		t.Fatalf("Gesture = %v, want drag", res.Gesture)
	}
	// Screen delta (40, 10) at zoom 2.
	wantRender(t, d, "C2", pt(370, 125))
	if d.Interaction().IsDragging("C2") {
		t.Error("drag still active after pointer up")
	}
	if d.Interaction().IsSelected("C2") {
		t.Error("drag selected the node")
	}
}

func TestPointerDragPansCanvas(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	t0 := time.Unix(0, 0)
	d.Dispatch(ctx, Pan{DX: 10, DY: 10})

	d.Dispatch(ctx, PointerDown{Pos: pt(100, 100), At: t0})
	d.Dispatch(ctx, PointerMove{Pos: pt(130, 140)})
	d.Dispatch(ctx, PointerUp{Pos: pt(130, 140), At: t0.Add(time.Second)})

	if got, want := d.Interaction().Viewport().Pan, pt(40, 50); got != want {
		t.Errorf("Pan = %v, want %v", got, want)
	}
	if got := d.Interaction().Offsets(); len(got) != 0 {
		t.Errorf("canvas drag moved nodes: %v", got)
	}
}

func TestInteractionErrorsAreSkipped(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	for _, cmd := range []Command{
		Drag{ID: "C1", DX: 1},
		BeginDrag{ID: "missing"},
		Zoom{Delta: -1},
		Select{ID: "missing"},
		Resize{ID: "C1", Width: -5},
	} {
		if res := d.Dispatch(ctx, cmd); !res.Skipped {
			t.Errorf("Dispatch(%#v) = %+v, want skipped", cmd, res)
		}
	}
}

func TestNonFiniteViewportInputSkipped(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	nan, inf := math.NaN(), math.Inf(1)
	anchor := pt(nan, 0)
	for _, cmd := range []Command{
		Zoom{Delta: nan},
		Zoom{Delta: inf},
		Zoom{Delta: -inf},
		Zoom{Delta: 0.5, Anchor: &anchor},
		Pan{DX: nan},
		SetPan{X: 0, Y: inf},
	} {
		if res := d.Dispatch(ctx, cmd); !res.Skipped {
			t.Errorf("Dispatch(%#v) = %+v, want skipped", cmd, res)
		}
	}

	vp := d.RenderState().Viewport
	if vp.Zoom != 1 || vp.Pan != (geom.Point{}) {
		t.Errorf("Viewport = %+v, want zoom 1 and no pan", vp)
	}
	c1, _ := d.RenderPosition("C1")
	if id, ok := d.RenderState().HitTestScreen(vp.ToScreen(c1.Add(pt(1, 1)))); !ok || id != "C1" {
		t.Errorf("HitTestScreen() = %q, %v, want C1", id, ok)
	}
}

func TestRenderStateCombinesBaseAndOffset(t *testing.T) {
	d := open(t)
	d.Interaction().SetOffset("C1", pt(30, -10))
	st := d.RenderState()

	for _, n := range st.Nodes {
		if n.Position != n.Base.Add(n.Offset) {
			t.Errorf("%s: Position %v != Base %v + Offset %v", n.ID, n.Position, n.Base, n.Offset)
		}
	}
	if len(st.Edges) != 2 {
		t.Fatalf("Edges = %d, want 2", len(st.Edges))
	}
	e := st.Edges[0]
	if e.From != "R" || e.To != "C1" {
		t.Fatalf("first edge = %s->%s", e.From, e.To)
	}
	if want := pt(250, 100); e.Start != want {
		t.Errorf("edge start = %v, want %v", e.Start, want)
	}
	if want := pt(380, 30); e.End != want {
		t.Errorf("edge end = %v, want %v", e.End, want)
	}

	if id, ok := st.HitTest(pt(400, 150)); !ok || id != "C2" {
		t.Errorf("HitTest() = %q, %v, want C2", id, ok)
	}
	if _, ok := st.HitTest(pt(-100, -100)); ok {
		t.Error("HitTest() hit empty canvas")
	}

	d.Visibility().SetCollapsed("R", true)
	st = d.RenderState()
	for _, e := range st.Edges {
		if !e.Hidden {
			t.Errorf("edge %s->%s visible under collapsed root", e.From, e.To)
		}
	}
	if want := geom.RectAt(pt(0, 60), geom.Size{W: 250, H: 80}); st.Bounds != want {
		t.Errorf("Bounds = %+v, want %+v", st.Bounds, want)
	}
}

func TestResizeDefersLayout(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	before := d.BasePositions()

	if res := d.Dispatch(ctx, Resize{ID: "C1", Width: 400}); res.Skipped {
		t.Fatal("Resize skipped")
	}
	if got := d.BasePositions(); !maps.Equal(got, before) {
		t.Errorf("resize moved nodes: %v", got)
	}
	n, _ := d.RenderState().Node("C1")
	if n.Size.W != 400 {
		t.Errorf("C1 width = %v, want 400", n.Size.W)
	}

	if res := d.Dispatch(ctx, EndResize{}); res.Err != nil {
		t.Fatal(res.Err)
	}
	if d.Interaction().Dirty() {
		t.Error("resize still pending after EndResize")
	}
}

func TestCommitLayoutPassRejectsStale(t *testing.T) {
	d := open(t)
	ctx := context.Background()

	unrun := d.BeginLayoutPass()
	if err := d.CommitLayoutPass(unrun); !mmerrors.Is(err, mmerrors.ErrCodeInvalidState) {
		t.Errorf("commit of unrun pass = %v, want INVALID_STATE", err)
	}

	p := d.BeginLayoutPass()
	if err := p.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddNode("R", "late", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.CommitLayoutPass(p); !mmerrors.Is(err, mmerrors.ErrCodeInvalidState) {
		t.Errorf("commit after mutation = %v, want INVALID_STATE", err)
	}

	older, newer := d.BeginLayoutPass(), d.BeginLayoutPass()
	_ = older.Run(ctx)
	_ = newer.Run(ctx)
	if err := d.CommitLayoutPass(newer); err != nil {
		t.Fatal(err)
	}
	if err := d.CommitLayoutPass(older); !mmerrors.Is(err, mmerrors.ErrCodeInvalidState) {
		t.Errorf("commit of superseded pass = %v, want INVALID_STATE", err)
	}
}

func TestCommitOffsetsKeepsRenderPositions(t *testing.T) {
	d := open(t)
	d.Interaction().SetOffset("C2", pt(50, 0))
	d.Dispatch(context.Background(), CommitOffsets{})

	wantRender(t, d, "C2", pt(400, 120))
	if got, _ := d.BasePosition("C2"); got != pt(400, 120) {
		t.Errorf("BasePosition(C2) = %v", got)
	}
	if len(d.Interaction().Offsets()) != 0 {
		t.Error("offsets not cleared")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	d := open(t)
	ctx := context.Background()
	q, _ := d.InsertFollowUp(ctx, "C1", "Why?")
	d.Visibility().SetCollapsed("C1", true)
	if err := d.SetDirection(ctx, layout.LeftToRight); err != nil {
		t.Fatal(err)
	}
	d.Interaction().SetOffset("C2", pt(50, 0))
	want := d.RenderState()

	var buf bytes.Buffer
	if err := outline.WriteJSON(&buf, d.Document()); err != nil {
		t.Fatal(err)
	}
	doc, err := outline.ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Load(ctx, doc, WithLogger(quiet))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	st := got.RenderState()
	if len(st.Nodes) != len(want.Nodes) {
		t.Fatalf("loaded %d nodes, want %d", len(st.Nodes), len(want.Nodes))
	}
	for _, w := range want.Nodes {
		n, ok := st.Node(w.ID)
		if !ok {
			t.Errorf("node %s lost", w.ID)
			continue
		}
		if n.Position != w.Position || n.Offset != w.Offset {
			t.Errorf("%s at %v (offset %v), want %v (offset %v)", w.ID, n.Position, n.Offset, w.Position, w.Offset)
		}
		if n.Collapsed != w.Collapsed || n.State != w.State {
			t.Errorf("%s state mismatch: %+v vs %+v", w.ID, n, w)
		}
	}
	if n, _ := st.Node(q); !n.Hidden {
		t.Error("follow-up under collapsed C1 not hidden after load")
	}
}

func TestLoadWithoutPositionsLaysOut(t *testing.T) {
	doc := threeNode(t).Snapshot()
	d, err := Load(context.Background(), doc, WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	wantRender(t, d, "R", pt(0, 60))
	wantRender(t, d, "C2", pt(350, 120))
}

func TestLoopAsk(t *testing.T) {
	d := open(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLoop(d)
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	answers := source.StaticAsker{Answers: map[string]string{"Why?": "Because."}}
	id, err := l.Ask(ctx, "C1", "Why?", answers)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	failing, err := l.Ask(ctx, "C2", "Unknown?", answers)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := l.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		n, _ := st.Node(id)
		if n.State == outline.StateAnswered {
			if n.Description != "Because." {
				t.Errorf("Description = %q", n.Description)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("follow-up still %v", n.State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	st, _ := l.Snapshot(ctx)
	if n, _ := st.Node(failing); n.State != outline.StatePending {
		t.Errorf("failed follow-up state = %v, want pending", n.State)
	}

	if err := l.Resolve(ctx, "C1", answers); !mmerrors.Is(err, mmerrors.ErrCodeInvalidState) {
		t.Errorf("Resolve(regular) = %v, want INVALID_STATE", err)
	}

	cancel()
	if err := <-errc; err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if _, err := l.Send(context.Background(), ExpandAll{}); err == nil {
		t.Error("Send() after stop succeeded")
	}
}

// Inserting follow-ups never moves nodes that were already placed.
func TestLoopCancelledSendNeverRuns(t *testing.T) {
	d := open(t)
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	l := NewLoop(d)
	go l.Run(runCtx)

	// Hold the loop so the next command stays queued.
	release := make(chan struct{})
	held := make(chan struct{})
	go l.Do(runCtx, func(*Diagram) error {
		close(held)
		<-release
		return nil
	})
	<-held

	ctx, cancel := context.WithCancel(context.Background())
	sent := make(chan error, 1)
	var res Result
	go func() {
		var err error
		res, err = l.Send(ctx, Select{ID: "C1"})
		sent <- err
	}()
	cancel()
	if err := <-sent; err != context.Canceled {
		t.Fatalf("Send() error = %v, want context.Canceled", err)
	}
	if res.ID != "" || res.Err != nil || res.Skipped {
		t.Errorf("Send() result = %+v, want zero", res)
	}
	close(release)

	selected := true
	if err := l.Do(runCtx, func(d *Diagram) error {
		selected = d.Interaction().IsSelected("C1")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if selected {
		t.Error("cancelled Select ran after Send returned")
	}
}

func TestInsertFollowUpStabilityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		o := outline.New("p", seqIDs())
		ids := []string{}
		for i := range rapid.IntRange(1, 15).Draw(rt, "n") {
			parent := ""
			if len(ids) > 0 && rapid.Bool().Draw(rt, fmt.Sprintf("child%d", i)) {
				parent = rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("parent%d", i))
			}
			id, err := o.AddNode(parent, "t", "", outline.KindRegular)
			if err != nil {
				rt.Fatal(err)
			}
			ids = append(ids, id)
		}
		strategy := rapid.SampledFrom([]Strategy{StrategyPinned, StrategyFullLayout}).Draw(rt, "strategy")
		d, err := Open(context.Background(), o, WithLogger(quiet), WithStrategy(strategy))
		if err != nil {
			rt.Fatal(err)
		}
		for _, id := range ids {
			if rapid.Bool().Draw(rt, "drag"+id) {
				d.Interaction().SetOffset(id, pt(rapid.Float64Range(-100, 100).Draw(rt, "dx"+id), 0))
			}
		}

		before := d.RenderState()
		parent := rapid.SampledFrom(ids).Draw(rt, "target")
		q, err := d.InsertFollowUp(context.Background(), parent, "?")
		if err != nil {
			rt.Fatal(err)
		}
		after := d.RenderState()
		for _, w := range before.Nodes {
			n, _ := after.Node(w.ID)
			if n.Position != w.Position || n.Base != w.Base {
				rt.Fatalf("%s moved from %v to %v", w.ID, w.Position, n.Position)
			}
		}
		if _, ok := after.Node(q); !ok {
			rt.Fatalf("follow-up %s not rendered", q)
		}
	})
}
