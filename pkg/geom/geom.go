// Package geom holds the small set of 2D value types shared by the layout
// engine, the interaction store and the exporters.
//
// All coordinates are in diagram units (pixels at zoom 1). Y grows downward,
// matching SVG and raster conventions.
package geom

import "math"

// Point is a 2D coordinate or displacement.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns the displacement from q to p.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p multiplied by f on both axes.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Len returns the euclidean length of p treated as a vector.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// IsZero reports whether p is the origin.
func (p Point) IsZero() bool { return p.X == 0 && p.Y == 0 }

// Size is a width/height pair.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Rect is an axis-aligned rectangle described by its edges.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// RectAt builds the rectangle whose top-left corner is p with size s.
func RectAt(p Point, s Size) Rect {
	return Rect{Left: p.X, Top: p.Y, Right: p.X + s.W, Bottom: p.Y + s.H}
}

// Width returns the horizontal span of the rectangle.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical span of the rectangle.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point { return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2} }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Right <= r.Left || r.Bottom <= r.Top }

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Union returns the smallest rectangle containing both r and s.
// An empty r is treated as absent so unions can start from the zero value.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	return Rect{
		Left:   math.Min(r.Left, s.Left),
		Top:    math.Min(r.Top, s.Top),
		Right:  math.Max(r.Right, s.Right),
		Bottom: math.Max(r.Bottom, s.Bottom),
	}
}

// Inset grows the rectangle by pad on every side (shrinks for negative pad).
func (r Rect) Inset(pad float64) Rect {
	return Rect{Left: r.Left - pad, Top: r.Top - pad, Right: r.Right + pad, Bottom: r.Bottom + pad}
}
