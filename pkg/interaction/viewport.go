package interaction

import (
	"math"

	"github.com/matzehuels/mindmap/pkg/geom"
)

// Viewport maps diagram coordinates to screen coordinates:
//
//	screen = diagram*Zoom + Pan
type Viewport struct {
	Zoom float64    `json:"zoom"`
	Pan  geom.Point `json:"pan"`
}

// ToScreen converts a diagram point to screen space.
func (v Viewport) ToScreen(p geom.Point) geom.Point { return p.Scale(v.Zoom).Add(v.Pan) }

// ToDiagram converts a screen point to diagram space.
func (v Viewport) ToDiagram(p geom.Point) geom.Point { return p.Sub(v.Pan).Scale(1 / v.Zoom) }

// Viewport returns the current viewport.
func (s *Store) Viewport() Viewport { return s.viewport }

// clampZoom bounds z to the configured range. A NaN or infinite z keeps
// the current zoom.
func (s *Store) clampZoom(z float64) float64 {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return s.viewport.Zoom
	}
	return math.Min(math.Max(z, s.cfg.MinZoom), s.cfg.MaxZoom)
}

// Zoom applies a relative zoom step, zoom *= 1+delta, clamped to the
// configured range, and returns the new zoom. A wheel notch or pinch step
// maps to a small delta, so repeated steps compose multiplicatively.
func (s *Store) Zoom(delta float64) float64 {
	s.viewport.Zoom = s.clampZoom(s.viewport.Zoom * (1 + delta))
	return s.viewport.Zoom
}

// ZoomAt is Zoom keeping the diagram point under the screen point anchor
// fixed on screen.
func (s *Store) ZoomAt(delta float64, anchor geom.Point) float64 {
	under := s.viewport.ToDiagram(anchor)
	z := s.Zoom(delta)
	s.viewport.Pan = anchor.Sub(under.Scale(z))
	return z
}

// SetZoom sets an absolute zoom, clamped to the configured range.
func (s *Store) SetZoom(z float64) float64 {
	s.viewport.Zoom = s.clampZoom(z)
	return s.viewport.Zoom
}

// SetPan sets the pan offset.
func (s *Store) SetPan(x, y float64) { s.viewport.Pan = geom.Point{X: x, Y: y} }

// PanBy moves the pan offset by (dx, dy) screen units.
func (s *Store) PanBy(dx, dy float64) { s.viewport.Pan = s.viewport.Pan.Add(geom.Point{X: dx, Y: dy}) }

// ResetView restores zoom 1 with no pan. Node positions and offsets are
// untouched.
func (s *Store) ResetView() { s.viewport = Viewport{Zoom: 1} }

// FitView zooms and pans so bounds fills a screen of the given size with
// padding screen units on every side, centred. Empty bounds or screen
// reset the view.
func (s *Store) FitView(bounds geom.Rect, screen geom.Size, padding float64) {
	availW, availH := screen.W-2*padding, screen.H-2*padding
	if bounds.Empty() || availW <= 0 || availH <= 0 {
		s.ResetView()
		return
	}
	z := s.clampZoom(math.Min(availW/bounds.Width(), availH/bounds.Height()))
	c := bounds.Center()
	s.viewport = Viewport{
		Zoom: z,
		Pan:  geom.Point{X: screen.W/2 - c.X*z, Y: screen.H/2 - c.Y*z},
	}
}
