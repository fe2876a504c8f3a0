package interaction

import (
	"time"

	"github.com/matzehuels/mindmap/pkg/geom"
)

// PointerKind identifies the input device. Classification is identical
// for every kind; the value is carried for logging only.
type PointerKind int

const (
	Mouse PointerKind = iota
	Touch
)

func (k PointerKind) String() string {
	if k == Touch {
		return "touch"
	}
	return "mouse"
}

// GestureKind is the outcome of a pointer interaction.
type GestureKind int

const (
	// NoGesture means no pointer was down.
	NoGesture GestureKind = iota
	// Click is a short press that barely moved.
	Click
	// Drag is anything else.
	Drag
)

func (k GestureKind) String() string {
	switch k {
	case Click:
		return "click"
	case Drag:
		return "drag"
	default:
		return "none"
	}
}

// Outcome describes a finished or ongoing gesture.
type Outcome struct {
	Kind   GestureKind
	Target string     // node under the pointer at press time, "" for canvas
	Delta  geom.Point // total displacement since press, in screen units
}

// Gesture classifies one pointer interaction at a time as a click or a
// drag. A press that moves less than ClickDistance (measured as the
// furthest excursion from the press point) and is released within
// ClickWindow is a click; anything else is a drag. Timestamps are passed
// in so the same path serves mouse and touch input and tests.
type Gesture struct {
	cfg     Config
	active  bool
	kind    PointerKind
	target  string
	start   geom.Point
	startAt time.Time
	last    geom.Point
	maxDist float64
	drag    bool
}

// NewGesture creates a classifier using the click limits of cfg.
func NewGesture(cfg Config) *Gesture {
	return &Gesture{cfg: cfg.withDefaults()}
}

// Active reports whether a pointer is down.
func (g *Gesture) Active() bool { return g.active }

// Kind returns the device of the current gesture.
func (g *Gesture) Kind() PointerKind { return g.kind }

// Target returns the node pressed, or "" for the canvas.
func (g *Gesture) Target() string { return g.target }

// Down starts a gesture. A gesture already in progress is abandoned.
func (g *Gesture) Down(target string, kind PointerKind, p geom.Point, at time.Time) {
	*g = Gesture{cfg: g.cfg, active: true, kind: kind, target: target, start: p, startAt: at, last: p}
}

// Move records pointer motion. It reports whether the gesture is now a
// drag, which happens as soon as the pointer strays ClickDistance from the
// press point, and returns the total displacement since Down.
func (g *Gesture) Move(p geom.Point) (geom.Point, bool) {
	if !g.active {
		return geom.Point{}, false
	}
	g.last = p
	delta := p.Sub(g.start)
	if d := delta.Len(); d > g.maxDist {
		g.maxDist = d
	}
	if g.maxDist >= g.cfg.ClickDistance {
		g.drag = true
	}
	return delta, g.drag
}

// Dragging reports whether the current gesture has become a drag.
func (g *Gesture) Dragging() bool { return g.active && g.drag }

// Up ends the gesture and classifies it.
func (g *Gesture) Up(p geom.Point, at time.Time) Outcome {
	if !g.active {
		return Outcome{}
	}
	delta, _ := g.Move(p)
	out := Outcome{Kind: Drag, Target: g.target, Delta: delta}
	if !g.drag && at.Sub(g.startAt) < g.cfg.ClickWindow {
		out.Kind = Click
	}
	g.active = false
	return out
}

// Cancel abandons the current gesture without an outcome.
func (g *Gesture) Cancel() { g.active = false }
