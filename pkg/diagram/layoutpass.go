package diagram

import (
	"context"
	"time"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/observability"
)

// LayoutPass is a full layout computation between its two named phases.
// It is created by [Diagram.BeginLayoutPass], computed by Run (which may
// happen on any goroutine) and installed by [Diagram.CommitLayoutPass].
type LayoutPass struct {
	seq          uint64
	version      uint64
	engine       *layout.Engine
	input        layout.Input
	ResetOffsets bool

	result   layout.Result
	err      error
	ran      bool
	duration time.Duration
}

// Run computes the layout. It touches no diagram state.
func (p *LayoutPass) Run(ctx context.Context) error {
	observability.Diagram().OnLayoutStart(ctx, "full", len(p.input.Nodes))
	start := time.Now()
	p.result, p.err = p.engine.Compute(ctx, p.input)
	p.duration = time.Since(start)
	p.ran = true
	observability.Diagram().OnLayoutComplete(ctx, "full", p.duration, p.err)
	return p.err
}

// Result returns the computed layout. It is valid after a successful Run.
func (p *LayoutPass) Result() layout.Result { return p.result }

// BeginLayoutPass snapshots the current outline and manual widths as the
// input of a full layout pass.
func (d *Diagram) BeginLayoutPass() *LayoutPass {
	d.passSeq++
	return &LayoutPass{
		seq:     d.passSeq,
		version: d.outline.Version(),
		engine:  d.engine,
		input:   d.layoutInput(),
	}
}

// CommitLayoutPass installs the positions computed by p in one step.
//
// If the pass failed, the previous positions stay in place and the pass
// error is returned; a timeout is logged as a warning and is recoverable.
// A pass whose outline changed since it began is rejected with
// INVALID_STATE, as is a pass older than the last committed one.
func (d *Diagram) CommitLayoutPass(p *LayoutPass) error {
	if !p.ran {
		return mmerrors.New(mmerrors.ErrCodeInvalidState, "layout pass %d was not run", p.seq)
	}
	if p.err != nil {
		if mmerrors.Is(p.err, mmerrors.ErrCodeLayoutTimeout) {
			d.logger.Warn("layout timed out, keeping previous positions", "nodes", len(p.input.Nodes), "after", p.duration)
		} else {
			d.logger.Error("layout failed, keeping previous positions", "err", p.err)
		}
		return p.err
	}
	if p.version != d.outline.Version() {
		return mmerrors.New(mmerrors.ErrCodeInvalidState, "outline changed during layout pass %d", p.seq)
	}
	if p.seq < d.committed {
		return mmerrors.New(mmerrors.ErrCodeInvalidState, "layout pass %d superseded by %d", p.seq, d.committed)
	}

	base := make(map[string]geom.Point, len(p.result.Positions))
	for id, pos := range p.result.Positions {
		base[id] = pos
	}
	d.base = base
	d.committed = p.seq
	if p.ResetOffsets {
		d.ui.ResetOffsets()
	}
	d.ui.TakeDirty()
	d.logger.Debug("committed layout", "nodes", len(base), "crossings", p.result.Crossings, "duration", p.duration)
	return nil
}

// Relayout runs a full layout pass and commits it. Drag offsets are kept
// unless resetOffsets is set.
func (d *Diagram) Relayout(ctx context.Context, resetOffsets bool) error {
	p := d.BeginLayoutPass()
	p.ResetOffsets = resetOffsets
	_ = p.Run(ctx)
	return d.CommitLayoutPass(p)
}

// CommitOffsets folds every drag offset into its node's base position and
// zeroes the offsets. Render positions do not change.
func (d *Diagram) CommitOffsets() {
	for id, off := range d.ui.CommitOffsets() {
		if p, ok := d.base[id]; ok {
			d.base[id] = p.Add(off)
		}
	}
}

// SetDirection switches the layout direction and runs a full layout.
// Drag offsets are reset since they were made relative to the old
// arrangement. On failure the previous direction is restored.
func (d *Diagram) SetDirection(ctx context.Context, dir layout.Direction) error {
	dir, err := layout.ParseDirection(string(dir))
	if err != nil {
		return err
	}
	prev := d.engine
	d.engine = d.engine.WithDirection(dir)
	if err := d.Relayout(ctx, true); err != nil {
		d.engine = prev
		return err
	}
	return nil
}

// EndResize runs the deferred full layout after an interactive resize
// session, if any node was resized. Drag offsets are kept.
func (d *Diagram) EndResize(ctx context.Context) error {
	if !d.ui.Dirty() {
		return nil
	}
	return d.Relayout(ctx, false)
}
