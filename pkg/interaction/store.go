// Package interaction holds the per-diagram UI state that sits on top of
// the computed layout: drag offsets, manual widths, the selection, the
// node being edited and the viewport.
//
// Nothing in this package moves a node's base position. A node is drawn at
// its base position plus its drag offset, and offsets survive layout passes
// until explicitly committed or reset. All per-event operations are O(1)
// so they can run on every pointer move.
package interaction

import (
	"maps"
	"slices"
	"time"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
)

// Default interaction limits.
const (
	DefaultMinZoom       = 0.1
	DefaultMaxZoom       = 4.0
	DefaultClickDistance = 5.0
	DefaultClickWindow   = 250 * time.Millisecond
)

// Config bounds zoom and tunes click/drag disambiguation. Zero fields use
// the defaults.
type Config struct {
	MinZoom       float64
	MaxZoom       float64
	ClickDistance float64       // movement below this may still be a click
	ClickWindow   time.Duration // pointer held shorter than this may be a click
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		MinZoom:       DefaultMinZoom,
		MaxZoom:       DefaultMaxZoom,
		ClickDistance: DefaultClickDistance,
		ClickWindow:   DefaultClickWindow,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinZoom <= 0 {
		c.MinZoom = d.MinZoom
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = d.MaxZoom
	}
	if c.MaxZoom < c.MinZoom {
		c.MaxZoom = c.MinZoom
	}
	if c.ClickDistance <= 0 {
		c.ClickDistance = d.ClickDistance
	}
	if c.ClickWindow <= 0 {
		c.ClickWindow = d.ClickWindow
	}
	return c
}

// Validate reports limits that cannot be used.
func (c Config) Validate() error {
	if c.MinZoom < 0 || c.MaxZoom < 0 {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "zoom limits must be positive")
	}
	if c.MinZoom > 0 && c.MaxZoom > 0 && c.MaxZoom < c.MinZoom {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "max zoom %v below min zoom %v", c.MaxZoom, c.MinZoom)
	}
	return nil
}

// Store is the interaction state of one diagram. It is not safe for
// concurrent use; the diagram event loop serialises access.
type Store struct {
	cfg      Config
	offsets  map[string]geom.Point
	dragging map[string]geom.Point // offset at drag start
	widths   map[string]float64
	dirty    map[string]struct{}
	selected map[string]struct{}
	editing  string
	viewport Viewport
}

// New creates an empty store at zoom 1 with no pan.
func New(cfg Config) *Store {
	return &Store{
		cfg:      cfg.withDefaults(),
		offsets:  make(map[string]geom.Point),
		dragging: make(map[string]geom.Point),
		widths:   make(map[string]float64),
		dirty:    make(map[string]struct{}),
		selected: make(map[string]struct{}),
		viewport: Viewport{Zoom: 1},
	}
}

// Config returns the effective configuration.
func (s *Store) Config() Config { return s.cfg }

// =============================================================================
// Dragging
// =============================================================================

// BeginDrag marks id as being dragged. The node's base position is not
// touched. Returns INVALID_STATE if id is in edit mode.
func (s *Store) BeginDrag(id string) error {
	if s.editing == id {
		return mmerrors.New(mmerrors.ErrCodeInvalidState, "node %q is being edited", id)
	}
	s.dragging[id] = s.offsets[id]
	return nil
}

// UpdateDrag sets the offset of id to its offset at drag start plus
// (dx, dy), the total pointer displacement since BeginDrag.
// Returns INVALID_STATE if id is not being dragged.
func (s *Store) UpdateDrag(id string, dx, dy float64) error {
	start, ok := s.dragging[id]
	if !ok {
		return mmerrors.New(mmerrors.ErrCodeInvalidState, "node %q is not being dragged", id)
	}
	s.offsets[id] = start.Add(geom.Point{X: dx, Y: dy})
	return nil
}

// EndDrag completes the drag of id. The offset is retained.
func (s *Store) EndDrag(id string) {
	delete(s.dragging, id)
}

// IsDragging reports whether id is being dragged.
func (s *Store) IsDragging(id string) bool {
	_, ok := s.dragging[id]
	return ok
}

// Offset returns the drag offset of id, zero if it was never dragged.
func (s *Store) Offset(id string) geom.Point { return s.offsets[id] }

// SetOffset replaces the drag offset of id, as when restoring a saved
// diagram. A zero offset removes the entry.
func (s *Store) SetOffset(id string, off geom.Point) {
	if off.IsZero() {
		delete(s.offsets, id)
		return
	}
	s.offsets[id] = off
}

// Offsets returns a copy of every non-zero drag offset.
func (s *Store) Offsets() map[string]geom.Point {
	out := make(map[string]geom.Point, len(s.offsets))
	for id, off := range s.offsets {
		if !off.IsZero() {
			out[id] = off
		}
	}
	return out
}

// CommitOffsets returns every offset and resets them all to zero. The
// caller folds the returned offsets into base positions so that render
// positions do not change. Drags in progress restart from zero.
func (s *Store) CommitOffsets() map[string]geom.Point {
	out := s.Offsets()
	clear(s.offsets)
	for id := range s.dragging {
		s.dragging[id] = geom.Point{}
	}
	return out
}

// ResetOffsets discards every offset, returning nodes to their base
// positions.
func (s *Store) ResetOffsets() {
	clear(s.offsets)
	for id := range s.dragging {
		s.dragging[id] = geom.Point{}
	}
}

// =============================================================================
// Resizing
// =============================================================================

// Resize records a manual width for id. Other nodes do not move; the id is
// marked dirty so the next layout pass can resolve overlaps.
func (s *Store) Resize(id string, width float64) error {
	if width <= 0 {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "width must be positive, got %v", width)
	}
	s.widths[id] = width
	s.dirty[id] = struct{}{}
	return nil
}

// Width returns the manual width of id, if any.
func (s *Store) Width(id string) (float64, bool) {
	w, ok := s.widths[id]
	return w, ok
}

// Widths returns a copy of every manual width.
func (s *Store) Widths() map[string]float64 { return maps.Clone(s.widths) }

// Dirty reports whether any node was resized since the last TakeDirty.
func (s *Store) Dirty() bool { return len(s.dirty) > 0 }

// TakeDirty returns the resized IDs in ascending order and clears them.
func (s *Store) TakeDirty() []string {
	out := slices.Sorted(maps.Keys(s.dirty))
	clear(s.dirty)
	return out
}

// =============================================================================
// Selection and editing
// =============================================================================

// Select adds id to the selection when additive, otherwise replaces the
// selection with id.
func (s *Store) Select(id string, additive bool) {
	if !additive {
		clear(s.selected)
	}
	s.selected[id] = struct{}{}
}

// Deselect removes id from the selection.
func (s *Store) Deselect(id string) { delete(s.selected, id) }

// ClearSelection empties the selection.
func (s *Store) ClearSelection() { clear(s.selected) }

// IsSelected reports whether id is selected.
func (s *Store) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// Selected returns the selection in ascending order.
func (s *Store) Selected() []string { return slices.Sorted(maps.Keys(s.selected)) }

// BeginEdit puts id in edit mode, ending any drag on it. Only one node is
// edited at a time.
func (s *Store) BeginEdit(id string) {
	delete(s.dragging, id)
	s.editing = id
}

// EndEdit leaves edit mode.
func (s *Store) EndEdit() { s.editing = "" }

// Editing returns the node in edit mode, or "".
func (s *Store) Editing() string { return s.editing }

// Forget drops all state held for id, after the node was deleted.
func (s *Store) Forget(id string) {
	delete(s.offsets, id)
	delete(s.dragging, id)
	delete(s.widths, id)
	delete(s.dirty, id)
	delete(s.selected, id)
	if s.editing == id {
		s.editing = ""
	}
}
