package diagram

import (
	"context"

	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// Document snapshots the diagram for persistence: the outline in
// pre-order plus each node's base position, drag offset, effective width
// and collapse state, and the layout direction.
func (d *Diagram) Document() outline.Document {
	d.ensurePlaced()
	doc := d.outline.Snapshot()
	doc.Direction = string(d.Direction())
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if p, ok := d.base[n.ID]; ok {
			n.Position = &p
		}
		if off := d.ui.Offset(n.ID); !off.IsZero() {
			n.Offset = &off
		}
		if w, ok := d.ui.Width(n.ID); ok {
			n.Width = w
		}
		n.Collapsed = d.resolver.IsCollapsed(n.ID)
	}
	return doc
}

// Load rebuilds a diagram from a saved document. Saved positions and
// offsets are restored as they were, so every render position survives the
// round trip. A document without positions gets a full layout; nodes
// missing a position in an otherwise positioned document are placed next
// to their parent.
func Load(ctx context.Context, doc outline.Document, opts ...Option) (*Diagram, error) {
	o, err := outline.FromDocument(doc)
	if err != nil {
		return nil, err
	}
	d := New(o, opts...)
	if doc.Direction != "" {
		dir, err := layout.ParseDirection(doc.Direction)
		if err != nil {
			return nil, err
		}
		d.engine = d.engine.WithDirection(dir)
	}

	positioned := 0
	for _, n := range doc.Nodes {
		if n.Position != nil {
			d.base[n.ID] = *n.Position
			positioned++
		}
		if n.Offset != nil {
			d.ui.SetOffset(n.ID, *n.Offset)
		}
		if n.Collapsed {
			d.resolver.SetCollapsed(n.ID, true)
		}
	}

	if positioned == 0 && o.Len() > 0 {
		if err := d.Relayout(ctx, false); err != nil {
			return nil, err
		}
	} else {
		d.ensurePlaced()
	}
	d.logger.Debug("loaded diagram", "title", doc.Title, "nodes", o.Len(), "positioned", positioned)
	return d, nil
}
