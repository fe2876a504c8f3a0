package layout

import (
	"context"
	"slices"
)

// Tree is the read-only view of a checked, ranked input handed to an
// [Orderer].
type Tree struct {
	children map[string][]string
	rank     map[string]int
	maxRank  int
	compare  func(a, b string) int
}

// Roots returns the root IDs in insertion order.
func (t Tree) Roots() []string { return t.children[""] }

// Children returns the child IDs of id in insertion order.
func (t Tree) Children(id string) []string {
	if id == "" {
		return nil
	}
	return t.children[id]
}

// Rank returns the rank of id.
func (t Tree) Rank(id string) int { return t.rank[id] }

// MaxRank returns the deepest rank.
func (t Tree) MaxRank() int { return t.maxRank }

// Compare orders two IDs by insertion sequence, ties broken by id.
func (t Tree) Compare(a, b string) int { return t.compare(a, b) }

// Orderer determines the cross-axis sequence of nodes in each rank.
// Implementations must be deterministic and should return early with the
// context error when ctx is done.
type Orderer interface {
	OrderRanks(ctx context.Context, t Tree) (map[int][]string, error)
}

// Barycentric orders each rank by the mean position of each node's
// neighbours in the previous rank, ties broken by insertion sequence then
// id. With a single parent per node the mean is the parent's position, so
// siblings stay contiguous and the result has no crossings.
type Barycentric struct{}

// OrderRanks implements [Orderer].
func (Barycentric) OrderRanks(ctx context.Context, t Tree) (map[int][]string, error) {
	ranks := make(map[int][]string, t.maxRank+1)
	if len(t.Roots()) == 0 {
		return ranks, nil
	}
	ranks[0] = slices.Clone(t.Roots())
	slices.SortStableFunc(ranks[0], t.compare)

	for r := 0; r < t.maxRank; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		upper := ranks[r]
		pos := PosMap(upper)

		type entry struct {
			id   string
			bary float64
		}
		var lower []entry
		for _, u := range upper {
			for _, c := range t.Children(u) {
				lower = append(lower, entry{id: c, bary: float64(pos[u])})
			}
		}
		slices.SortStableFunc(lower, func(a, b entry) int {
			switch {
			case a.bary < b.bary:
				return -1
			case a.bary > b.bary:
				return 1
			}
			return t.compare(a.id, b.id)
		})
		ids := make([]string, len(lower))
		for i, e := range lower {
			ids[i] = e.id
		}
		ranks[r+1] = ids
	}
	return ranks, nil
}

// PosMap maps each ID in order to its index.
func PosMap(order []string) map[string]int {
	m := make(map[string]int, len(order))
	for i, id := range order {
		m[id] = i
	}
	return m
}
