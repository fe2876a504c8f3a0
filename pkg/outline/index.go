package outline

import (
	"cmp"
	"slices"
)

// ChildrenIndex is an immutable parent→children adjacency snapshot of an
// outline. It is built by [Outline.Index] and tagged with the outline
// version it was built from, so holders can tell when it went stale.
type ChildrenIndex struct {
	version  uint64
	children map[string][]string // parent ID ("" for roots) -> ordered child IDs
	parent   map[string]string
	level    map[string]int
}

func buildIndex(version uint64, nodes map[string]*Node) *ChildrenIndex {
	ix := &ChildrenIndex{
		version:  version,
		children: make(map[string][]string, len(nodes)+1),
		parent:   make(map[string]string, len(nodes)),
		level:    make(map[string]int, len(nodes)),
	}

	ordered := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		ordered = append(ordered, n)
	}
	slices.SortFunc(ordered, compareNodes)

	for _, n := range ordered {
		ix.children[n.ParentID] = append(ix.children[n.ParentID], n.ID)
		ix.parent[n.ID] = n.ParentID
		ix.level[n.ID] = n.Level
	}
	return ix
}

// compareNodes orders siblings by insertion sequence, ties broken by id.
func compareNodes(a, b *Node) int {
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Version returns the outline version this index was built from.
func (ix *ChildrenIndex) Version() uint64 { return ix.version }

// Len returns the number of nodes covered by the index.
func (ix *ChildrenIndex) Len() int { return len(ix.parent) }

// Has reports whether id is a node in the index.
func (ix *ChildrenIndex) Has(id string) bool {
	_, ok := ix.parent[id]
	return ok
}

// Children returns the ordered child IDs of id. The returned slice is
// shared and must not be modified.
func (ix *ChildrenIndex) Children(id string) []string {
	if id == "" {
		return nil
	}
	return ix.children[id]
}

// Roots returns the ordered root IDs of the forest.
func (ix *ChildrenIndex) Roots() []string { return ix.children[""] }

// Parent returns the parent ID of id, or "" for roots and unknown ids.
func (ix *ChildrenIndex) Parent(id string) string { return ix.parent[id] }

// Level returns the depth of id (0 for roots).
func (ix *ChildrenIndex) Level(id string) int { return ix.level[id] }

// PreOrder returns every node ID in depth-first pre-order: each root,
// followed recursively by its children in index order.
func (ix *ChildrenIndex) PreOrder() []string {
	out := make([]string, 0, len(ix.parent))
	var visit func(id string)
	visit = func(id string) {
		out = append(out, id)
		for _, c := range ix.children[id] {
			visit(c)
		}
	}
	for _, r := range ix.Roots() {
		visit(r)
	}
	return out
}

// Descendants returns every proper descendant of id in breadth-first order.
func (ix *ChildrenIndex) Descendants(id string) []string {
	var out []string
	queue := slices.Clone(ix.Children(id))
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		out = append(out, curr)
		queue = append(queue, ix.children[curr]...)
	}
	return out
}

// Ancestors returns the chain of parents of id, nearest first.
// A corrupt parent chain is cut off after Len steps rather than looping.
func (ix *ChildrenIndex) Ancestors(id string) []string {
	var out []string
	for p := ix.parent[id]; p != "" && len(out) <= len(ix.parent); p = ix.parent[p] {
		out = append(out, p)
	}
	return out
}
