package diagram

import (
	"context"
	"time"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/observability"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// InsertFollowUp appends a pending question node beneath parentID and
// gives it a provisional position. No other node's base position or drag
// offset changes.
//
// With [StrategyFullLayout] the position is taken from a full layout of
// the new outline; if that layout fails the pinned placement is used
// instead. With [StrategyPinned] the node is placed next to the current
// render positions of its parent and siblings.
//
// Returns UNKNOWN_PARENT without changing anything if parentID does not
// exist.
func (d *Diagram) InsertFollowUp(ctx context.Context, parentID, question string) (id string, err error) {
	start := time.Now()
	defer func() {
		observability.Diagram().OnInsert(ctx, d.strategy.String(), err)
	}()

	if parentID == "" || !d.outline.Has(parentID) {
		return "", mmerrors.New(mmerrors.ErrCodeUnknownParent, "parent %q does not exist", parentID)
	}
	d.ensurePlaced()

	id, err = d.outline.AddNode(parentID, question, outline.PendingDescription, outline.KindQnA)
	if err != nil {
		return "", err
	}

	pos, err := d.provisional(ctx, id)
	if err != nil {
		// Roll back so the insert is all-or-nothing.
		if _, derr := d.outline.DeleteNode(id, outline.CascadeDelete); derr != nil {
			d.logger.Error("rollback of follow-up failed", "id", id, "err", derr)
		}
		return "", err
	}
	d.base[id] = pos
	d.logger.Debug("inserted follow-up", "id", id, "parent", parentID, "strategy", d.strategy, "duration", time.Since(start))
	return id, nil
}

func (d *Diagram) provisional(ctx context.Context, id string) (geom.Point, error) {
	in := d.layoutInput()
	if d.strategy == StrategyFullLayout {
		res, err := d.engine.Compute(ctx, in)
		if err == nil {
			return res.Positions[id], nil
		}
		d.logger.Warn("full layout for follow-up failed, placing next to parent", "err", err)
	}
	return d.engine.Place(in, d.renderPositions(), id)
}

// AddNode appends a regular node beneath parentID (or a new root) and
// places it like a follow-up.
func (d *Diagram) AddNode(parentID, title, description string) (string, error) {
	d.ensurePlaced()
	id, err := d.outline.AddNode(parentID, title, description, outline.KindRegular)
	if err != nil {
		return "", err
	}
	pos, err := d.engine.Place(d.layoutInput(), d.renderPositions(), id)
	if err != nil {
		if _, derr := d.outline.DeleteNode(id, outline.CascadeDelete); derr != nil {
			d.logger.Error("rollback of node failed", "id", id, "err", derr)
		}
		return "", err
	}
	d.base[id] = pos
	return id, nil
}

// Answer records the answer of a pending follow-up and moves it to the
// answered state. Returns NODE_NOT_FOUND for unknown nodes and
// INVALID_STATE unless id is a pending follow-up.
func (d *Diagram) Answer(id, text string) error {
	n, ok := d.outline.Node(id)
	if !ok {
		return mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}
	if n.Kind != outline.KindQnA || n.State != outline.StatePending {
		return mmerrors.New(mmerrors.ErrCodeInvalidState, "node %q is not a pending follow-up", id)
	}
	st := outline.StateAnswered
	return d.outline.UpdateNode(id, outline.Patch{Description: &text, State: &st})
}

// BeginEdit puts id into edit mode, which suppresses dragging it. A
// follow-up becomes editable only once answered.
func (d *Diagram) BeginEdit(id string) error {
	n, ok := d.outline.Node(id)
	if !ok {
		return mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}
	if n.Kind == outline.KindQnA {
		if n.State == outline.StatePending {
			return mmerrors.New(mmerrors.ErrCodeInvalidState, "follow-up %q is still pending", id)
		}
		st := outline.StateEditable
		if err := d.outline.UpdateNode(id, outline.Patch{State: &st}); err != nil {
			return err
		}
	}
	d.ui.BeginEdit(id)
	return nil
}

// EditNode updates the title and/or description of a node. Nil values are
// left unchanged.
func (d *Diagram) EditNode(id string, title, description *string) error {
	return d.outline.UpdateNode(id, outline.Patch{Title: title, Description: description})
}

// EndEdit leaves edit mode.
func (d *Diagram) EndEdit() { d.ui.EndEdit() }

// DeleteNode removes id using the diagram's delete policy and drops every
// piece of interaction state held for removed nodes. Reparented children
// keep their positions until the next full layout.
func (d *Diagram) DeleteNode(id string) ([]string, error) {
	removed, err := d.outline.DeleteNode(id, d.deletePolicy)
	if err != nil {
		return nil, err
	}
	for _, r := range removed {
		delete(d.base, r)
		d.ui.Forget(r)
	}
	d.resolver.Prune()
	d.logger.Debug("deleted node", "id", id, "policy", d.deletePolicy, "removed", len(removed))
	return removed, nil
}

// Resize records a manual width for id. Nothing moves until the resize
// session ends with [Diagram.EndResize].
func (d *Diagram) Resize(id string, width float64) error {
	if !d.outline.Has(id) {
		return mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}
	return d.ui.Resize(id, width)
}

// ToggleCollapse flips the collapse state of id and reports whether it is
// now collapsed. No node moves.
func (d *Diagram) ToggleCollapse(id string) (bool, error) {
	if !d.outline.Has(id) {
		return false, mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}
	return d.resolver.Toggle(id), nil
}
