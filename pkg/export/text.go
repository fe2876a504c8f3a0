package export

import (
	"bytes"
	"strings"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// RenderJSON writes the outline document with base positions, drag offsets,
// sizes and collapse state, so that loading it reproduces every render
// position.
func RenderJSON(st *diagram.RenderState) ([]byte, error) {
	if err := check(st); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := outline.WriteJSON(&buf, document(st)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// document rebuilds the persisted outline from a render snapshot.
func document(st *diagram.RenderState) outline.Document {
	doc := outline.Document{
		Title:     st.Title,
		Direction: string(st.Direction),
		Nodes:     make([]outline.DocNode, 0, len(st.Nodes)),
	}
	for _, n := range st.Nodes {
		base := n.Base
		dn := outline.DocNode{
			ID:          n.ID,
			Title:       n.Title,
			Description: n.Description,
			Level:       n.Level,
			Kind:        n.Kind,
			State:       n.State,
			Width:       n.Size.W,
			Height:      n.Size.H,
			Position:    &base,
			Collapsed:   n.Collapsed,
		}
		if n.ParentID != "" {
			p := n.ParentID
			dn.ParentID = &p
		}
		if !n.Offset.IsZero() {
			off := n.Offset
			dn.Offset = &off
		}
		doc.Nodes = append(doc.Nodes, dn)
	}
	return doc
}

// RenderText writes the whole outline as an indented bullet list in
// pre-order, two spaces per level. Consecutive entries are separated by one
// blank line. A description, other than a pending placeholder, follows the
// title after ": ".
//
//	- R
//
//	  - C1
//
//	  - C2
func RenderText(st *diagram.RenderState) ([]byte, error) {
	if err := check(st); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, n := range st.Nodes {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat("  ", n.Level))
		buf.WriteString("- ")
		buf.WriteString(oneLine(n.Title))
		if n.Description != "" && n.State != outline.StatePending {
			buf.WriteString(": ")
			buf.WriteString(oneLine(n.Description))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
