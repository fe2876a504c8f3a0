// Package outline provides the canonical tree data behind a mind map: nodes
// with parent pointers organised into a forest of rooted trees.
//
// # Overview
//
// An [Outline] is the single owner of node data. Every other component (the
// layout engine, the visibility resolver, the exporters) reads it, and only
// the mutation methods on Outline change it. Node levels are always derived
// from the parent chain and are never accepted from callers, so the
// invariant
//
//	level(n) == 0                     if n is a root
//	level(n) == level(parent(n)) + 1  otherwise
//
// holds after any sequence of [Outline.AddNode] and [Outline.UpdateNode]
// calls. The parent graph is acyclic by construction: nodes are appended
// only beneath a parent that already exists.
//
// # Basic Usage
//
//	o := outline.New("Biology")
//	root, _ := o.AddNode("", "Cells", "", outline.KindRegular)
//	child, _ := o.AddNode(root, "Organelles", "", outline.KindRegular)
//	fmt.Println(o.Children(root)) // [child]
//
// # Children Index
//
// Parent→children adjacency is held in an explicit [ChildrenIndex] owned by
// the outline. It is rebuilt deterministically whenever the node set
// changes and handed to consumers by value through [Outline.Index]; nothing
// reads a shared global cache. Children are ordered by insertion sequence,
// ties broken by id.
//
// # Persistence
//
// [Document] is the persisted shape of an outline. [FromDocument] accepts
// nodes in any order (children may precede their parents), recomputes
// levels, and rejects unknown parents and cycles.
//
// # Concurrency
//
// Outline instances are not safe for concurrent use. The diagram event loop
// serialises all access; a [ChildrenIndex] is immutable once built and may
// be shared freely.
package outline
