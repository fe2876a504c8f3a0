package outline

import (
	"slices"

	"github.com/google/uuid"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// Kind distinguishes outline nodes from runtime follow-up nodes.
type Kind string

const (
	// KindRegular is a node from the ingested outline.
	KindRegular Kind = "regular"
	// KindQnA is a follow-up question/answer node inserted at runtime.
	KindQnA Kind = "qna"
)

// State is the follow-up lifecycle of a [KindQnA] node. Regular nodes have
// the empty state.
type State string

const (
	// StatePending means the question is known but the answer is not.
	// The node's description holds [PendingDescription].
	StatePending State = "pending"
	// StateAnswered means the description holds the final answer.
	StateAnswered State = "answered"
	// StateEditable means the user is editing the node in place.
	StateEditable State = "editable"
)

// PendingDescription is the sentinel description of an unanswered follow-up.
const PendingDescription = "pending"

// Node is a vertex of the outline forest.
//
// The zero value is not usable; nodes are created through [Outline.AddNode]
// and read back as copies, so mutating a returned Node has no effect on
// the outline.
type Node struct {
	ID          string
	Title       string
	Description string
	ParentID    string // empty for roots
	Level       int    // derived from the parent chain, never set by callers
	Kind        Kind
	State       State

	// Width and Height override the layout defaults when non-zero.
	Width, Height float64

	// HasChildren is true while at least one child is attached beneath
	// the node.
	HasChildren bool

	// Seq is the insertion sequence used to order siblings.
	Seq uint64
}

// IsRoot reports whether the node has no parent.
func (n Node) IsRoot() bool { return n.ParentID == "" }

// IsFollowUp reports whether the node was inserted as a follow-up.
func (n Node) IsFollowUp() bool { return n.Kind == KindQnA }

// Patch is a partial update for [Outline.UpdateNode]. Nil fields are left
// unchanged. Parent and level are deliberately absent.
type Patch struct {
	Title       *string
	Description *string
	Width       *float64
	Height      *float64
	State       *State
}

// Option configures an [Outline].
type Option func(*Outline)

// WithIDGenerator replaces the default UUID generator used by AddNode.
// Generated IDs must be unique for the lifetime of the outline.
func WithIDGenerator(gen func() string) Option {
	return func(o *Outline) { o.newID = gen }
}

// Outline is a forest of titled nodes with derived levels.
//
// The zero value is not usable - use [New] or [FromDocument].
// Outline is not safe for concurrent use without external synchronization.
type Outline struct {
	title   string
	nodes   map[string]*Node
	used    map[string]struct{} // every ID ever issued, including deleted ones
	seq     uint64
	version uint64
	index   *ChildrenIndex
	newID   func() string
}

// New creates an empty outline with the given title.
func New(title string, opts ...Option) *Outline {
	o := &Outline{
		title: title,
		nodes: make(map[string]*Node),
		used:  make(map[string]struct{}),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Title returns the outline title.
func (o *Outline) Title() string { return o.title }

// SetTitle replaces the outline title.
func (o *Outline) SetTitle(title string) { o.title = title }

// Len returns the number of nodes.
func (o *Outline) Len() int { return len(o.nodes) }

// Version increments on every structural change (node added, removed or
// moved). Title and description edits do not change it.
func (o *Outline) Version() uint64 { return o.version }

// AddNode appends a node beneath parentID (or as a new root when parentID is
// empty) and returns its freshly generated ID.
//
// Returns an UNKNOWN_PARENT error if parentID is non-empty and not present;
// the outline is left unchanged in that case.
func (o *Outline) AddNode(parentID, title, description string, kind Kind) (string, error) {
	id := o.newID()
	for o.isUsed(id) {
		id = o.newID()
	}
	if err := o.insert(id, parentID, title, description, kind, o.nextSeq()); err != nil {
		return "", err
	}
	return id, nil
}

// AddNodeWithID is AddNode with a caller-chosen stable ID, used when
// ingesting an outline whose IDs must survive save/load.
//
// Returns INVALID_INPUT if id is invalid or was ever used in this outline,
// and UNKNOWN_PARENT if parentID is non-empty and not present.
func (o *Outline) AddNodeWithID(id, parentID, title, description string, kind Kind) error {
	return o.insert(id, parentID, title, description, kind, o.nextSeq())
}

func (o *Outline) nextSeq() uint64 {
	o.seq++
	return o.seq
}

func (o *Outline) isUsed(id string) bool {
	_, ok := o.used[id]
	return ok
}

func (o *Outline) insert(id, parentID, title, description string, kind Kind, seq uint64) error {
	if err := mmerrors.ValidateID(id); err != nil {
		return err
	}
	if o.isUsed(id) {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "duplicate node id %q", id)
	}
	if err := mmerrors.ValidateTitle(title); err != nil {
		return err
	}
	if kind == "" {
		kind = KindRegular
	}

	level := 0
	var parent *Node
	if parentID != "" {
		p, ok := o.nodes[parentID]
		if !ok {
			return mmerrors.New(mmerrors.ErrCodeUnknownParent, "parent %q does not exist", parentID)
		}
		parent = p
		level = p.Level + 1
	}

	n := &Node{
		ID:          id,
		Title:       title,
		Description: description,
		ParentID:    parentID,
		Level:       level,
		Kind:        kind,
		Seq:         seq,
	}
	if kind == KindQnA {
		n.State = StatePending
		if description == "" {
			n.Description = PendingDescription
		}
	}

	o.nodes[id] = n
	o.used[id] = struct{}{}
	if parent != nil {
		parent.HasChildren = true
	}
	if seq > o.seq {
		o.seq = seq
	}
	o.invalidate()
	return nil
}

// invalidate drops the cached children index after a structural change.
func (o *Outline) invalidate() {
	o.version++
	o.index = nil
}

// UpdateNode applies a partial update to an existing node.
// Returns UNKNOWN_PARENT if id does not exist (an update referencing a
// nonexistent node); nothing is changed on error.
func (o *Outline) UpdateNode(id string, p Patch) error {
	n, ok := o.nodes[id]
	if !ok {
		return mmerrors.New(mmerrors.ErrCodeUnknownParent, "node %q does not exist", id)
	}
	if p.Title != nil {
		if err := mmerrors.ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Width != nil && *p.Width < 0 {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "negative width %v", *p.Width)
	}
	if p.Height != nil && *p.Height < 0 {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "negative height %v", *p.Height)
	}
	if p.State != nil && n.Kind != KindQnA && *p.State != "" {
		return mmerrors.New(mmerrors.ErrCodeInvalidState, "node %q is not a follow-up", id)
	}

	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.Width != nil {
		n.Width = *p.Width
	}
	if p.Height != nil {
		n.Height = *p.Height
	}
	if p.State != nil {
		n.State = *p.State
	}
	return nil
}

// Node returns a copy of the node with the given ID.
func (o *Outline) Node(id string) (Node, bool) {
	n, ok := o.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Has reports whether a node with the given ID exists.
func (o *Outline) Has(id string) bool {
	_, ok := o.nodes[id]
	return ok
}

// Nodes returns copies of all nodes in insertion order.
func (o *Outline) Nodes() []Node {
	ptrs := make([]*Node, 0, len(o.nodes))
	for _, n := range o.nodes {
		ptrs = append(ptrs, n)
	}
	slices.SortFunc(ptrs, compareNodes)
	out := make([]Node, len(ptrs))
	for i, n := range ptrs {
		out[i] = *n
	}
	return out
}

// Index returns the children index for the current node set, rebuilding it
// if the outline changed since the last call.
func (o *Outline) Index() *ChildrenIndex {
	if o.index == nil || o.index.version != o.version {
		o.index = buildIndex(o.version, o.nodes)
	}
	return o.index
}

// Children returns the ordered child IDs of id.
func (o *Outline) Children(id string) []string {
	return slices.Clone(o.Index().Children(id))
}

// Roots returns the ordered root IDs.
func (o *Outline) Roots() []string {
	return slices.Clone(o.Index().Roots())
}

// Validate checks the structural invariants: every parent exists, levels
// match the parent chain, and the parent graph is acyclic.
//
// Returns UNKNOWN_PARENT for a dangling parent pointer and INVALID_TOPOLOGY
// for a cycle or level mismatch. Cycle detection uses white/gray/black
// depth-first search over the parent pointers in O(N).
func (o *Outline) Validate() error {
	for _, n := range o.nodes {
		if n.ParentID == "" {
			continue
		}
		if _, ok := o.nodes[n.ParentID]; !ok {
			return mmerrors.New(mmerrors.ErrCodeUnknownParent, "node %q references missing parent %q", n.ID, n.ParentID)
		}
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(o.nodes))
	var walk func(id string) error
	walk = func(id string) error {
		color[id] = gray
		if p := o.nodes[id].ParentID; p != "" {
			switch color[p] {
			case white:
				if err := walk(p); err != nil {
					return err
				}
			case gray:
				return mmerrors.New(mmerrors.ErrCodeInvalidTopology, "cycle through node %q", id)
			}
		}
		color[id] = black
		return nil
	}
	for id := range o.nodes {
		if color[id] == white {
			if err := walk(id); err != nil {
				return err
			}
		}
	}

	for _, n := range o.nodes {
		want := 0
		if n.ParentID != "" {
			want = o.nodes[n.ParentID].Level + 1
		}
		if n.Level != want {
			return mmerrors.New(mmerrors.ErrCodeInvalidTopology, "node %q has level %d, want %d", n.ID, n.Level, want)
		}
	}
	return nil
}
