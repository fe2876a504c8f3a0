package outline

import (
	"slices"

	"github.com/lithammer/fuzzysearch/fuzzy"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// DeletePolicy decides what happens to the children of a deleted node.
type DeletePolicy int

const (
	// ReparentToGrandparent moves the children of the deleted node to its
	// parent. Children of a deleted root become roots. Levels of every moved
	// subtree are recomputed.
	ReparentToGrandparent DeletePolicy = iota
	// CascadeDelete removes the node together with its whole subtree.
	CascadeDelete
)

func (p DeletePolicy) String() string {
	switch p {
	case ReparentToGrandparent:
		return "reparent"
	case CascadeDelete:
		return "cascade"
	default:
		return "unknown"
	}
}

// ParseDeletePolicy maps "reparent" and "cascade" to a policy.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch s {
	case "", "reparent":
		return ReparentToGrandparent, nil
	case "cascade":
		return CascadeDelete, nil
	}
	return 0, mmerrors.New(mmerrors.ErrCodeInvalidInput, "unknown delete policy %q", s)
}

// DeleteNode removes id according to policy and returns the IDs that left
// the outline (the node itself first, then any cascaded descendants in
// breadth-first order). Deleted IDs are never reissued.
//
// Returns NODE_NOT_FOUND when id does not exist; the outline is unchanged.
func (o *Outline) DeleteNode(id string, policy DeletePolicy) ([]string, error) {
	n, ok := o.nodes[id]
	if !ok {
		return nil, mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}
	ix := o.Index()

	removed := []string{id}
	switch policy {
	case CascadeDelete:
		removed = append(removed, ix.Descendants(id)...)
	case ReparentToGrandparent:
		// Children keep their own sequence numbers so they interleave with
		// their new siblings by original insertion order.
		for _, c := range ix.Children(id) {
			o.nodes[c].ParentID = n.ParentID
		}
	default:
		return nil, mmerrors.New(mmerrors.ErrCodeInvalidInput, "unknown delete policy %d", policy)
	}

	for _, r := range removed {
		delete(o.nodes, r)
	}
	if n.ParentID != "" {
		if p, ok := o.nodes[n.ParentID]; ok {
			p.HasChildren = o.hasAnyChild(p.ID)
		}
	}
	o.relevel()
	o.invalidate()
	return removed, nil
}

func (o *Outline) hasAnyChild(id string) bool {
	for _, n := range o.nodes {
		if n.ParentID == id {
			return true
		}
	}
	return false
}

// relevel recomputes every level from the parent chain, parents first.
func (o *Outline) relevel() {
	ix := buildIndex(o.version, o.nodes)
	for _, id := range ix.PreOrder() {
		n := o.nodes[id]
		if n.ParentID == "" {
			n.Level = 0
			continue
		}
		n.Level = o.nodes[n.ParentID].Level + 1
	}
}

// Walk visits every node in pre-order (each root followed by its subtree,
// children in index order). Returning false from fn stops the walk.
func (o *Outline) Walk(fn func(n Node) bool) {
	for _, id := range o.Index().PreOrder() {
		if !fn(*o.nodes[id]) {
			return
		}
	}
}

// Find returns the IDs of nodes whose title fuzzily matches query, best
// match first. Matching is case-insensitive; ties keep insertion order.
func (o *Outline) Find(query string) []string {
	nodes := o.Nodes()
	titles := make([]string, len(nodes))
	for i, n := range nodes {
		titles[i] = n.Title
	}
	ranks := fuzzy.RankFindFold(query, titles)
	slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		return a.OriginalIndex - b.OriginalIndex
	})
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = nodes[r.OriginalIndex].ID
	}
	return out
}
