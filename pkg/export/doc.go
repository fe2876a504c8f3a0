// Package export renders a diagram's render state into files.
//
// # Overview
//
// Every renderer takes a [diagram.RenderState] snapshot, so an export sees
// one consistent set of render positions even while the diagram keeps
// changing. Formats:
//
//   - PNG: raster of the visible scene cropped to [Bounds]
//   - PDF: single page embedding the PNG raster
//   - SVG: vector drawing of the visible scene
//   - JSON: the outline document with positions, offsets and collapse state
//   - TXT: indented bullet outline
//   - DOT: Graphviz source for the tree
//
// Basic usage:
//
//	st := d.RenderState()
//	png, err := export.RenderPNG(st, export.WithScale(2))
//
// [All] renders several formats concurrently and [WriteFiles] saves them
// next to each other.
//
// # Missing targets
//
// A nil state or one with no visible node returns EXPORT_TARGET_MISSING.
// The error is recoverable: callers abort the export and carry on.
package export
