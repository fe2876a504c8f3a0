// Package diagram ties an outline, the layout engine, the visibility
// resolver and the interaction store into one interactive mind map.
//
// # Overview
//
// A [Diagram] owns exactly one outline and everything layered on it: base
// positions from the last layout pass, collapsed nodes, drag offsets,
// manual widths, the selection and the viewport. Nothing is shared between
// diagrams. Components are injected at construction; none of them reaches
// for ambient state.
//
// # Render positions
//
// Every node is drawn at
//
//	render = base + offset
//
// where base comes from the layout engine and offset from dragging.
// [Diagram.RenderState] is the only place the two are combined; edges, hit
// testing and exports read the snapshot it returns, never the parts.
//
// # Commands
//
// UI events become typed commands ([Drag], [ToggleCollapse],
// [InsertFollowUp], ...) handled by [Diagram.Dispatch]. Node data stays
// plain data. Errors from structural mutations come back in the [Result];
// glitches in pointer handling are logged and the event is skipped.
//
// # Layout passes
//
// Full layout runs only when asked: on load, on direction change, after a
// resize session and on explicit relayout. A pass has two named phases,
// [Diagram.BeginLayoutPass] to snapshot the inputs and
// [Diagram.CommitLayoutPass] to install the result; the computation in
// between may run on any goroutine. A pass that fails or times out leaves
// the previous positions in place.
//
// # Follow-ups
//
// [Diagram.InsertFollowUp] appends a question node beneath an existing node
// and places only that node, leaving every other base position and offset
// as it was. The node starts pending, becomes answered once its answer
// arrives and editable when the user edits it in place.
//
// # Concurrency
//
// A Diagram is not safe for concurrent use. [Loop] serialises all access
// through a single goroutine and lets slow work (answers, exports) post
// results back as commands.
package diagram
