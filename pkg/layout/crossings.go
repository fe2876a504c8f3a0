package layout

import (
	"maps"
	"slices"
)

// CountCrossings returns the total number of edge crossings between every
// pair of adjacent ranks. children maps a node to its child IDs.
func CountCrossings(children map[string][]string, ranks map[int][]string) int {
	keys := slices.Sorted(maps.Keys(ranks))
	total := 0
	for i := 0; i+1 < len(keys); i++ {
		r := keys[i]
		total += CountRankCrossings(children, ranks[r], ranks[r+1])
	}
	return total
}

// CountRankCrossings counts edge crossings between two adjacent ranks with
// a Fenwick tree in O(E log V).
//
// Edges (u1,v1) and (u2,v2) cross iff pos(u1) < pos(u2) and pos(v1) >
// pos(v2), so the count equals the number of inversions in the sequence of
// lower positions once edges are sorted by upper position.
func CountRankCrossings(children map[string][]string, upper, lower []string) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}
	lowerPos := PosMap(lower)

	type edge struct{ upper, lower int }
	edges := make([]edge, 0, len(lower))
	for i, id := range upper {
		for _, c := range children[id] {
			if p, ok := lowerPos[c]; ok {
				edges = append(edges, edge{i, p})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}
	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, seen := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += seen - lessOrEqual

		seen++
		for q := e.lower + 1; q < len(fenwick); q += q & (-q) {
			fenwick[q]++
		}
	}
	return crossings
}
