package outline

import (
	"encoding/json"
	"fmt"
	"io"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
)

// Document is the persisted shape of an outline:
//
//	{
//	  "title": "Biology",
//	  "nodes": [
//	    {"id": "r", "title": "Cells", "description": "", "parentId": null, "level": 0},
//	    {"id": "c", "title": "Organelles", "description": "", "parentId": "r", "level": 1}
//	  ]
//	}
//
// Nodes appear in pre-order when produced by [Outline.Snapshot]; any order
// is accepted by [FromDocument]. Position and Offset are filled in by the
// diagram so that a save/load round trip reproduces every render position.
type Document struct {
	Title     string    `json:"title" bson:"title"`
	Direction string    `json:"direction,omitempty" bson:"direction,omitempty"`
	Nodes     []DocNode `json:"nodes" bson:"nodes"`
}

// DocNode is one node of a [Document].
type DocNode struct {
	ID          string      `json:"id" bson:"id"`
	Title       string      `json:"title" bson:"title"`
	Description string      `json:"description" bson:"description"`
	ParentID    *string     `json:"parentId" bson:"parentId"`
	Level       int         `json:"level" bson:"level"`
	Kind        Kind        `json:"kind,omitempty" bson:"kind,omitempty"`
	State       State       `json:"state,omitempty" bson:"state,omitempty"`
	Width       float64     `json:"width,omitempty" bson:"width,omitempty"`
	Height      float64     `json:"height,omitempty" bson:"height,omitempty"`
	Position    *geom.Point `json:"position,omitempty" bson:"position,omitempty"`
	Offset      *geom.Point `json:"offset,omitempty" bson:"offset,omitempty"`
	Collapsed   bool        `json:"collapsed,omitempty" bson:"collapsed,omitempty"`
}

// Parent returns the parent ID, or "" for roots.
func (n DocNode) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// Snapshot returns the outline as a Document in pre-order, without
// positions.
func (o *Outline) Snapshot() Document {
	doc := Document{Title: o.title, Nodes: make([]DocNode, 0, len(o.nodes))}
	o.Walk(func(n Node) bool {
		dn := DocNode{
			ID:          n.ID,
			Title:       n.Title,
			Description: n.Description,
			Level:       n.Level,
			Kind:        n.Kind,
			State:       n.State,
			Width:       n.Width,
			Height:      n.Height,
		}
		if n.ParentID != "" {
			p := n.ParentID
			dn.ParentID = &p
		}
		doc.Nodes = append(doc.Nodes, dn)
		return true
	})
	return doc
}

// FromDocument builds an outline from a persisted document.
//
// Children may be listed before their parents. Levels stored in the
// document are ignored and recomputed. Sibling order follows document
// order. Returns INVALID_INPUT for duplicate or malformed IDs,
// UNKNOWN_PARENT for a dangling parent reference and INVALID_TOPOLOGY when
// the parent pointers form a cycle. Positions are not read here.
func FromDocument(doc Document, opts ...Option) (*Outline, error) {
	byID := make(map[string]int, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if err := mmerrors.ValidateID(n.ID); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if _, dup := byID[n.ID]; dup {
			return nil, mmerrors.New(mmerrors.ErrCodeInvalidInput, "duplicate node id %q", n.ID)
		}
		byID[n.ID] = i
	}
	for _, n := range doc.Nodes {
		if p := n.Parent(); p != "" {
			if _, ok := byID[p]; !ok {
				return nil, mmerrors.New(mmerrors.ErrCodeUnknownParent, "node %q references missing parent %q", n.ID, p)
			}
		}
	}

	o := New(doc.Title, opts...)
	visiting := make(map[string]bool, len(doc.Nodes))
	var ensure func(i int) error
	ensure = func(i int) error {
		n := doc.Nodes[i]
		if o.Has(n.ID) {
			return nil
		}
		if visiting[n.ID] {
			return mmerrors.New(mmerrors.ErrCodeInvalidTopology, "cycle through node %q", n.ID)
		}
		visiting[n.ID] = true
		if p := n.Parent(); p != "" {
			if err := ensure(byID[p]); err != nil {
				return err
			}
		}
		if err := o.insert(n.ID, n.Parent(), n.Title, n.Description, n.Kind, uint64(i)+1); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		ins := o.nodes[n.ID]
		ins.Description = n.Description
		ins.Width, ins.Height = n.Width, n.Height
		if ins.Kind == KindQnA && n.State != "" {
			ins.State = n.State
		}
		return nil
	}
	for i := range doc.Nodes {
		if err := ensure(i); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ReadJSON decodes a Document from r. ReadJSON does not close r.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "decode outline")
	}
	return doc, nil
}

// WriteJSON encodes doc to w as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
