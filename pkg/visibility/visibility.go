// Package visibility decides which nodes and edges of an outline are hidden
// by collapsed subtrees.
//
// A node is hidden iff it is a proper descendant of a collapsed node; a
// collapsed node itself stays visible. Hidden sets are derived on demand
// from the collapsed IDs and an explicit [outline.ChildrenIndex] and never
// cached across a collapse or structural change. Collapsing never moves or
// deletes nodes, so expanding again needs no layout pass.
package visibility

import (
	"maps"
	"slices"

	"github.com/matzehuels/mindmap/pkg/outline"
)

// Set is a set of node IDs.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// IsHidden reports whether id is hidden, walking up its ancestors and
// checking each against collapsed.
func IsHidden(id string, collapsed Set, ix *outline.ChildrenIndex) bool {
	for _, a := range ix.Ancestors(id) {
		if collapsed.Has(a) {
			return true
		}
	}
	return false
}

// HiddenSet returns every node hidden by collapsed, via breadth-first
// traversal from each collapsed node.
func HiddenSet(collapsed Set, ix *outline.ChildrenIndex) Set {
	hidden := make(Set)
	for id := range collapsed {
		if hidden.Has(id) {
			// Already covered by a collapsed ancestor.
			continue
		}
		for _, d := range ix.Descendants(id) {
			hidden[d] = struct{}{}
		}
	}
	return hidden
}

// EdgeHidden reports whether the edge from child to its parent is hidden.
// An edge is hidden when either endpoint is. Roots have no edge and
// report true.
func EdgeHidden(child string, hidden Set, ix *outline.ChildrenIndex) bool {
	p := ix.Parent(child)
	return p == "" || hidden.Has(child) || hidden.Has(p)
}
