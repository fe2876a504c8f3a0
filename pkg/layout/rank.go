package layout

import (
	"context"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// checkInterval is how many nodes a stage processes between context checks.
const checkInterval = 1024

// checkAcyclic fails fast with INVALID_TOPOLOGY if the parent pointers
// contain a cycle. Outlines are acyclic by construction, so hitting this
// means corrupted input.
func checkAcyclic(t *tree) error {
	idx := make(map[string]int64, len(t.ids))
	g := simple.NewDirectedGraph()
	for i, id := range t.ids {
		idx[id] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for _, id := range t.ids {
		p := t.nodes[id].Parent
		if p == "" {
			continue
		}
		if p == id {
			return mmerrors.New(mmerrors.ErrCodeInvalidTopology, "node %q is its own parent", id)
		}
		g.SetEdge(g.NewEdge(simple.Node(idx[p]), simple.Node(idx[id])))
	}
	if _, err := topo.Sort(g); err != nil {
		return mmerrors.Wrap(mmerrors.ErrCodeInvalidTopology, err, "parent pointers contain a cycle")
	}
	return nil
}

// assignRanks places every node on the rank of its depth using Kahn's
// algorithm from the roots. With one parent per node the longest path to
// a node is its depth, so ranks equal outline levels.
func assignRanks(ctx context.Context, t *tree) error {
	queue := make([]string, 0, len(t.ids))
	queue = append(queue, t.children[""]...)
	for _, r := range queue {
		t.rank[r] = 0
	}

	seen := 0
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		seen++
		if seen%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for _, child := range t.children[curr] {
			r := t.rank[curr] + 1
			t.rank[child] = r
			if r > t.maxRank {
				t.maxRank = r
			}
			queue = append(queue, child)
		}
	}
	if seen != len(t.ids) {
		return mmerrors.New(mmerrors.ErrCodeInvalidTopology, "%d nodes unreachable from any root", len(t.ids)-seen)
	}
	return nil
}
