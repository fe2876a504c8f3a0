package visibility

import (
	"github.com/matzehuels/mindmap/pkg/outline"
)

// Resolver tracks the collapsed nodes of one outline.
//
// It reads structure from the outline it was constructed with and holds no
// derived state, so results always reflect the outline's current index.
// Resolver is not safe for concurrent use.
type Resolver struct {
	o         *outline.Outline
	collapsed Set
}

// NewResolver creates a resolver with nothing collapsed.
func NewResolver(o *outline.Outline) *Resolver {
	return &Resolver{o: o, collapsed: make(Set)}
}

// Toggle flips the collapsed state of id and reports whether it is now
// collapsed. Unknown IDs are ignored and report false.
func (r *Resolver) Toggle(id string) bool {
	if !r.o.Has(id) {
		return false
	}
	if r.collapsed.Has(id) {
		delete(r.collapsed, id)
		return false
	}
	r.collapsed[id] = struct{}{}
	return true
}

// SetCollapsed collapses or expands id. Unknown IDs are ignored.
func (r *Resolver) SetCollapsed(id string, collapsed bool) {
	if collapsed && r.o.Has(id) {
		r.collapsed[id] = struct{}{}
		return
	}
	delete(r.collapsed, id)
}

// IsCollapsed reports whether id itself is collapsed.
func (r *Resolver) IsCollapsed(id string) bool { return r.collapsed.Has(id) }

// Collapsed returns the collapsed IDs in ascending order.
func (r *Resolver) Collapsed() []string { return r.collapsed.Sorted() }

// IsHidden reports whether id is a proper descendant of a collapsed node.
func (r *Resolver) IsHidden(id string) bool {
	return IsHidden(id, r.collapsed, r.o.Index())
}

// Hidden returns the current hidden set.
func (r *Resolver) Hidden() Set {
	r.Prune()
	return HiddenSet(r.collapsed, r.o.Index())
}

// EdgeHidden reports whether the edge into child is hidden.
func (r *Resolver) EdgeHidden(child string) bool {
	ix := r.o.Index()
	return EdgeHidden(child, HiddenSet(r.collapsed, ix), ix)
}

// ExpandAll clears every collapsed node.
func (r *Resolver) ExpandAll() {
	clear(r.collapsed)
}

// CollapseToLevel collapses every node at the given level that has
// children, so levels deeper than level are hidden. Previously collapsed
// nodes are expanded first. A negative level expands everything.
func (r *Resolver) CollapseToLevel(level int) {
	r.ExpandAll()
	if level < 0 {
		return
	}
	ix := r.o.Index()
	for _, id := range ix.PreOrder() {
		if ix.Level(id) == level && len(ix.Children(id)) > 0 {
			r.collapsed[id] = struct{}{}
		}
	}
}

// Prune forgets collapsed IDs that no longer exist in the outline.
func (r *Resolver) Prune() {
	for id := range r.collapsed {
		if !r.o.Has(id) {
			delete(r.collapsed, id)
		}
	}
}
