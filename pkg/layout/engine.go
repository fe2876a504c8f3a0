package layout

import (
	"cmp"
	"context"
	"errors"
	"slices"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// Node is one layout input: identity, parent pointer, insertion sequence
// and size. A zero Width or Height uses the configured default.
type Node struct {
	ID     string
	Parent string
	Seq    uint64
	Width  float64
	Height float64
}

// Input is the full node set to lay out. Order is irrelevant.
type Input struct {
	Nodes []Node
}

// FromOutline builds an Input from an outline. Widths from widthOverride
// (manual resizes) win over the widths stored on the nodes.
func FromOutline(o *outline.Outline, widthOverride map[string]float64) Input {
	nodes := o.Nodes()
	in := Input{Nodes: make([]Node, len(nodes))}
	for i, n := range nodes {
		w := n.Width
		if ov, ok := widthOverride[n.ID]; ok && ov > 0 {
			w = ov
		}
		in.Nodes[i] = Node{ID: n.ID, Parent: n.ParentID, Seq: n.Seq, Width: w, Height: n.Height}
	}
	return in
}

// Result is the output of a layout pass.
type Result struct {
	// Positions holds the top-left corner of every node.
	Positions map[string]geom.Point
	// Sizes holds the resolved size of every node.
	Sizes map[string]geom.Size
	// Ranks holds node IDs per rank in cross-axis order.
	Ranks map[int][]string
	// Crossings is the number of edge crossings between adjacent ranks.
	Crossings int
	// Bounds encloses every node box.
	Bounds geom.Rect
}

// Engine computes layouts. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	cfg     Config
	orderer Orderer
}

// EngineOption configures an [Engine].
type EngineOption func(*Engine)

// WithOrderer replaces the default barycentric rank orderer.
func WithOrderer(o Orderer) EngineOption {
	return func(e *Engine) { e.orderer = o }
}

// New creates an engine. Zero config fields use the defaults.
func New(cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{cfg: cfg.withDefaults(), orderer: Barycentric{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// WithDirection returns a copy of the engine laying out in direction d.
func (e *Engine) WithDirection(d Direction) *Engine {
	c := *e
	c.cfg.Direction = d
	return &c
}

// tree is the validated, indexed form of an Input.
type tree struct {
	ids      []string // sorted by (seq, id)
	nodes    map[string]Node
	children map[string][]string // "" holds the roots
	rank     map[string]int
	maxRank  int
}

// Compute lays out every node of in.
//
// Errors: UNKNOWN_PARENT for a dangling parent pointer, INVALID_TOPOLOGY
// for a cycle or duplicate id, LAYOUT_TIMEOUT when the configured timeout
// or the context deadline expires first. A cancelled context returns the
// context error.
func (e *Engine) Compute(ctx context.Context, in Input) (Result, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	t, err := e.check(ctx, in)
	if err != nil {
		return Result{}, err
	}
	if err := assignRanks(ctx, t); err != nil {
		return Result{}, stageErr(err)
	}
	ranks, err := e.orderer.OrderRanks(ctx, t.view())
	if err != nil {
		return Result{}, stageErr(err)
	}
	res := Result{Ranks: ranks}
	res.Crossings = CountCrossings(t.children, ranks)

	if err := ctx.Err(); err != nil {
		return Result{}, stageErr(err)
	}
	res.Positions, res.Sizes = e.coordinates(t, ranks)
	for id, p := range res.Positions {
		res.Bounds = res.Bounds.Union(geom.RectAt(p, res.Sizes[id]))
	}
	return res, nil
}

// check indexes the input and rejects dangling parents and cycles.
func (e *Engine) check(ctx context.Context, in Input) (*tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, stageErr(err)
	}
	t := &tree{
		nodes:    make(map[string]Node, len(in.Nodes)),
		children: make(map[string][]string),
		rank:     make(map[string]int, len(in.Nodes)),
	}
	for _, n := range in.Nodes {
		if n.ID == "" {
			return nil, mmerrors.New(mmerrors.ErrCodeInvalidInput, "node with empty id")
		}
		if _, dup := t.nodes[n.ID]; dup {
			return nil, mmerrors.New(mmerrors.ErrCodeInvalidTopology, "duplicate node %q", n.ID)
		}
		t.nodes[n.ID] = n
		t.ids = append(t.ids, n.ID)
	}
	slices.SortFunc(t.ids, t.compare)
	for _, id := range t.ids {
		p := t.nodes[id].Parent
		if p != "" {
			if _, ok := t.nodes[p]; !ok {
				return nil, mmerrors.New(mmerrors.ErrCodeUnknownParent, "node %q references missing parent %q", id, p)
			}
		}
		t.children[p] = append(t.children[p], id)
	}
	if err := checkAcyclic(t); err != nil {
		return nil, err
	}
	return t, nil
}

// compare orders node IDs by insertion sequence, ties broken by id.
func (t *tree) compare(a, b string) int {
	if c := cmp.Compare(t.nodes[a].Seq, t.nodes[b].Seq); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func (t *tree) view() Tree {
	return Tree{children: t.children, rank: t.rank, maxRank: t.maxRank, compare: t.compare}
}

// stageErr maps a context deadline to LAYOUT_TIMEOUT.
func stageErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return mmerrors.Wrap(mmerrors.ErrCodeLayoutTimeout, err, "layout did not finish in time")
	}
	return err
}
