package diagram

import (
	"context"
	"math"
	"time"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/interaction"
	"github.com/matzehuels/mindmap/pkg/layout"
)

// Command is a UI event for [Diagram.Dispatch]. The set is closed; every
// command type is defined in this package.
type Command interface {
	command()
}

// Pointer and viewport commands. Failures are logged and skipped.
type (
	// BeginDrag starts dragging a node.
	BeginDrag struct{ ID string }
	// Drag sets the offset of a dragged node to its offset at drag start
	// plus (DX, DY) in diagram units.
	Drag struct {
		ID     string
		DX, DY float64
	}
	// EndDrag finishes a drag, keeping the offset.
	EndDrag struct{ ID string }

	// PointerDown presses a pointer at a screen position over Target
	// ("" for empty canvas).
	PointerDown struct {
		Target string
		Kind   interaction.PointerKind
		Pos    geom.Point
		At     time.Time
	}
	// PointerMove moves the pressed pointer to a screen position.
	PointerMove struct{ Pos geom.Point }
	// PointerUp releases the pointer. Additive extends the selection on a
	// click.
	PointerUp struct {
		Pos      geom.Point
		At       time.Time
		Additive bool
	}

	// Zoom applies a relative zoom step, anchored at a screen point when
	// Anchor is set.
	Zoom struct {
		Delta  float64
		Anchor *geom.Point
	}
	// Pan moves the viewport by screen units.
	Pan struct{ DX, DY float64 }
	// SetPan sets the viewport pan.
	SetPan struct{ X, Y float64 }
	// ResetView recentres pan and zoom. Node positions are untouched.
	ResetView struct{}
	// FitView fits the visible nodes into a screen of the given size.
	FitView struct {
		Screen  geom.Size
		Padding float64
	}

	// Select selects a node, extending the selection when Additive.
	Select struct {
		ID       string
		Additive bool
	}
	// ClearSelection empties the selection.
	ClearSelection struct{}
	// Resize records a manual node width.
	Resize struct {
		ID    string
		Width float64
	}
)

// Structural and layout commands. Failures are returned in the Result.
type (
	// ToggleCollapse collapses or expands a node's subtree.
	ToggleCollapse struct{ ID string }
	// CollapseToLevel collapses every node at Level.
	CollapseToLevel struct{ Level int }
	// ExpandAll expands every node.
	ExpandAll struct{}

	// InsertFollowUp appends a pending question beneath ParentID.
	InsertFollowUp struct {
		ParentID string
		Question string
	}
	// Answer resolves a pending follow-up.
	Answer struct {
		ID   string
		Text string
	}
	// AnswerFailed reports that answering a follow-up failed. The node
	// stays pending.
	AnswerFailed struct {
		ID  string
		Err error
	}
	// BeginEdit enters edit mode on a node.
	BeginEdit struct{ ID string }
	// EditNode changes a node's title and/or description.
	EditNode struct {
		ID          string
		Title       *string
		Description *string
	}
	// EndEdit leaves edit mode.
	EndEdit struct{}
	// DeleteNode removes a node using the diagram's delete policy.
	DeleteNode struct{ ID string }

	// SetDirection changes the layout direction and relays out.
	SetDirection struct{ Direction layout.Direction }
	// Relayout runs a full layout pass.
	Relayout struct{ ResetOffsets bool }
	// EndResize runs the layout deferred by a resize session.
	EndResize struct{}
	// CommitOffsets folds drag offsets into base positions.
	CommitOffsets struct{}
)

func (BeginDrag) command()       {}
func (Drag) command()            {}
func (EndDrag) command()         {}
func (PointerDown) command()     {}
func (PointerMove) command()     {}
func (PointerUp) command()       {}
func (Zoom) command()            {}
func (Pan) command()             {}
func (SetPan) command()          {}
func (ResetView) command()       {}
func (FitView) command()         {}
func (Select) command()          {}
func (ClearSelection) command()  {}
func (Resize) command()          {}
func (ToggleCollapse) command()  {}
func (CollapseToLevel) command() {}
func (ExpandAll) command()       {}
func (InsertFollowUp) command()  {}
func (Answer) command()          {}
func (AnswerFailed) command()    {}
func (BeginEdit) command()       {}
func (EditNode) command()        {}
func (EndEdit) command()         {}
func (DeleteNode) command()      {}
func (SetDirection) command()    {}
func (Relayout) command()        {}
func (EndResize) command()       {}
func (CommitOffsets) command()   {}

// Result is the outcome of a dispatched command.
type Result struct {
	// ID is the node created by InsertFollowUp, or the node a gesture
	// acted on.
	ID string
	// Removed lists nodes removed by DeleteNode.
	Removed []string
	// Gesture is the classification of a finished pointer gesture.
	Gesture interaction.GestureKind
	// Collapsed reports the new state after ToggleCollapse.
	Collapsed bool
	// Err is the failure of a structural or layout command. Mutations are
	// all-or-nothing, so the diagram is unchanged when Err is set unless
	// the error is a recoverable layout timeout.
	Err error
	// Skipped is set when an interaction command failed and was dropped.
	Skipped bool
}

// Dispatch applies one command. It never panics on bad input: structural
// failures are returned in Result.Err, and interaction failures are logged
// and reported as Skipped.
func (d *Diagram) Dispatch(ctx context.Context, cmd Command) Result {
	switch c := cmd.(type) {
	case BeginDrag:
		return d.skip(cmd, d.beginDrag(c.ID))
	case Drag:
		return d.skip(cmd, d.ui.UpdateDrag(c.ID, c.DX, c.DY))
	case EndDrag:
		d.ui.EndDrag(c.ID)
	case PointerDown:
		d.gesture.Down(c.Target, c.Kind, c.Pos, c.At)
		d.panAtPress = d.ui.Viewport().Pan
	case PointerMove:
		return d.skip(cmd, d.pointerMove(c.Pos))
	case PointerUp:
		return d.pointerUp(c)
	case Zoom:
		if c.Delta <= -1 || !finite(c.Delta) || (c.Anchor != nil && !finite(c.Anchor.X, c.Anchor.Y)) {
			return d.skip(cmd, mmerrors.New(mmerrors.ErrCodeInvalidInput, "zoom delta %v", c.Delta))
		}
		if c.Anchor != nil {
			d.ui.ZoomAt(c.Delta, *c.Anchor)
		} else {
			d.ui.Zoom(c.Delta)
		}
	case Pan:
		if !finite(c.DX, c.DY) {
			return d.skip(cmd, mmerrors.New(mmerrors.ErrCodeInvalidInput, "pan by (%v, %v)", c.DX, c.DY))
		}
		d.ui.PanBy(c.DX, c.DY)
	case SetPan:
		if !finite(c.X, c.Y) {
			return d.skip(cmd, mmerrors.New(mmerrors.ErrCodeInvalidInput, "pan to (%v, %v)", c.X, c.Y))
		}
		d.ui.SetPan(c.X, c.Y)
	case ResetView:
		d.ui.ResetView()
	case FitView:
		d.ui.FitView(d.RenderState().Bounds, c.Screen, c.Padding)
	case Select:
		if !d.outline.Has(c.ID) {
			return d.skip(cmd, mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", c.ID))
		}
		d.ui.Select(c.ID, c.Additive)
	case ClearSelection:
		d.ui.ClearSelection()
	case Resize:
		return d.skip(cmd, d.Resize(c.ID, c.Width))

	case ToggleCollapse:
		collapsed, err := d.ToggleCollapse(c.ID)
		return Result{ID: c.ID, Collapsed: collapsed, Err: err}
	case CollapseToLevel:
		d.resolver.CollapseToLevel(c.Level)
	case ExpandAll:
		d.resolver.ExpandAll()
	case InsertFollowUp:
		id, err := d.InsertFollowUp(ctx, c.ParentID, c.Question)
		return Result{ID: id, Err: err}
	case Answer:
		return Result{ID: c.ID, Err: d.Answer(c.ID, c.Text)}
	case AnswerFailed:
		d.logger.Warn("follow-up answer failed, node stays pending", "id", c.ID, "err", c.Err)
		return Result{ID: c.ID, Err: c.Err}
	case BeginEdit:
		return Result{ID: c.ID, Err: d.BeginEdit(c.ID)}
	case EditNode:
		return Result{ID: c.ID, Err: d.EditNode(c.ID, c.Title, c.Description)}
	case EndEdit:
		d.EndEdit()
	case DeleteNode:
		removed, err := d.DeleteNode(c.ID)
		return Result{ID: c.ID, Removed: removed, Err: err}
	case SetDirection:
		return Result{Err: d.SetDirection(ctx, c.Direction)}
	case Relayout:
		return Result{Err: d.Relayout(ctx, c.ResetOffsets)}
	case EndResize:
		return Result{Err: d.EndResize(ctx)}
	case CommitOffsets:
		d.CommitOffsets()
	default:
		return d.skip(cmd, mmerrors.New(mmerrors.ErrCodeUnsupported, "unknown command %T", cmd))
	}
	return Result{}
}

// skip logs an interaction failure and drops the event.
func (d *Diagram) skip(cmd Command, err error) Result {
	if err == nil {
		return Result{}
	}
	d.logger.Warn("skipped interaction", "cmd", commandName(cmd), "err", err)
	return Result{Skipped: true}
}

func (d *Diagram) beginDrag(id string) error {
	if !d.outline.Has(id) {
		return mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}
	return d.ui.BeginDrag(id)
}

// pointerMove turns a drag gesture into node dragging or canvas panning.
func (d *Diagram) pointerMove(pos geom.Point) error {
	delta, dragging := d.gesture.Move(pos)
	if !dragging {
		return nil
	}
	target := d.gesture.Target()
	if target == "" {
		p := d.panAtPress.Add(delta)
		d.ui.SetPan(p.X, p.Y)
		return nil
	}
	if !d.ui.IsDragging(target) {
		if err := d.beginDrag(target); err != nil {
			d.gesture.Cancel()
			return err
		}
	}
	// Screen displacement to diagram units.
	dd := delta.Scale(1 / d.ui.Viewport().Zoom)
	return d.ui.UpdateDrag(target, dd.X, dd.Y)
}

func (d *Diagram) pointerUp(c PointerUp) Result {
	if !d.gesture.Active() {
		return Result{}
	}
	target := d.gesture.Target()
	if err := d.pointerMove(c.Pos); err != nil {
		return d.skip(c, err)
	}
	out := d.gesture.Up(c.Pos, c.At)
	res := Result{ID: target, Gesture: out.Kind}

	switch out.Kind {
	case interaction.Drag:
		if target != "" {
			d.ui.EndDrag(target)
		}
	case interaction.Click:
		if target == "" {
			d.ui.ClearSelection()
			break
		}
		if !d.outline.Has(target) {
			return d.skip(c, mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", target))
		}
		d.ui.Select(target, c.Additive)
		if d.clickToggles && len(d.outline.Index().Children(target)) > 0 {
			res.Collapsed = d.resolver.Toggle(target)
		}
	}
	return res
}

func commandName(cmd Command) string {
	switch cmd.(type) {
	case BeginDrag:
		return "begin-drag"
	case Drag:
		return "drag"
	case PointerMove:
		return "pointer-move"
	case PointerUp:
		return "pointer-up"
	case Zoom:
		return "zoom"
	case Select:
		return "select"
	case Resize:
		return "resize"
	default:
		return "command"
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
