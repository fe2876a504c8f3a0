package diagram

import (
	"context"
	"maps"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/interaction"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/visibility"
)

// Strategy selects how a follow-up node gets its provisional position.
type Strategy int

const (
	// StrategyPinned places the new node next to the current on-screen
	// positions of its parent and siblings.
	StrategyPinned Strategy = iota
	// StrategyFullLayout runs a full layout and keeps only the new node's
	// coordinate.
	StrategyFullLayout
)

func (s Strategy) String() string {
	if s == StrategyFullLayout {
		return "full"
	}
	return "pinned"
}

// Diagram is one interactive mind map.
type Diagram struct {
	outline  *outline.Outline
	engine   *layout.Engine
	resolver *visibility.Resolver
	ui       *interaction.Store
	gesture  *interaction.Gesture
	logger   *log.Logger

	base       map[string]geom.Point
	passSeq    uint64
	committed  uint64 // sequence of the last committed pass
	panAtPress geom.Point

	strategy     Strategy
	deletePolicy outline.DeletePolicy
	clickToggles bool
}

// Option configures a [Diagram].
type Option func(*Diagram)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(d *Diagram) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithLayout sets the layout configuration and engine options.
func WithLayout(cfg layout.Config, opts ...layout.EngineOption) Option {
	return func(d *Diagram) { d.engine = layout.New(cfg, opts...) }
}

// WithInteraction sets zoom limits and click/drag thresholds.
func WithInteraction(cfg interaction.Config) Option {
	return func(d *Diagram) {
		d.ui = interaction.New(cfg)
		d.gesture = interaction.NewGesture(cfg)
	}
}

// WithStrategy sets the follow-up placement strategy. The default is
// [StrategyPinned].
func WithStrategy(s Strategy) Option {
	return func(d *Diagram) { d.strategy = s }
}

// WithDeletePolicy sets what happens to the children of deleted nodes.
// The default is [outline.ReparentToGrandparent].
func WithDeletePolicy(p outline.DeletePolicy) Option {
	return func(d *Diagram) { d.deletePolicy = p }
}

// WithClickToggles makes a click on a node with children toggle its
// collapse state in addition to selecting it. Enabled by default.
func WithClickToggles(on bool) Option {
	return func(d *Diagram) { d.clickToggles = on }
}

// New wraps o in a diagram. No layout is computed; call [Diagram.Relayout]
// or use [Open].
func New(o *outline.Outline, opts ...Option) *Diagram {
	d := &Diagram{
		outline:      o,
		engine:       layout.New(layout.DefaultConfig()),
		resolver:     visibility.NewResolver(o),
		ui:           interaction.New(interaction.DefaultConfig()),
		gesture:      interaction.NewGesture(interaction.DefaultConfig()),
		logger:       log.Default(),
		base:         make(map[string]geom.Point),
		clickToggles: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open wraps o in a diagram and runs the initial full layout.
func Open(ctx context.Context, o *outline.Outline, opts ...Option) (*Diagram, error) {
	d := New(o, opts...)
	if err := d.Relayout(ctx, false); err != nil {
		return nil, err
	}
	return d, nil
}

// Outline returns the underlying outline. Structural changes made directly
// on it bypass placement; nodes without a position are placed the next
// time a render state is taken.
func (d *Diagram) Outline() *outline.Outline { return d.outline }

// Interaction returns the interaction store.
func (d *Diagram) Interaction() *interaction.Store { return d.ui }

// Visibility returns the visibility resolver.
func (d *Diagram) Visibility() *visibility.Resolver { return d.resolver }

// Logger returns the diagram's logger.
func (d *Diagram) Logger() *log.Logger { return d.logger }

// Direction returns the current layout direction.
func (d *Diagram) Direction() layout.Direction { return d.engine.Config().Direction }

// Strategy returns the follow-up placement strategy.
func (d *Diagram) Strategy() Strategy { return d.strategy }

// BasePosition returns the layout position of id.
func (d *Diagram) BasePosition(id string) (geom.Point, bool) {
	p, ok := d.base[id]
	return p, ok
}

// BasePositions returns a copy of every layout position.
func (d *Diagram) BasePositions() map[string]geom.Point { return maps.Clone(d.base) }

// RenderPosition returns base + offset for id.
func (d *Diagram) RenderPosition(id string) (geom.Point, bool) {
	p, ok := d.base[id]
	if !ok {
		return geom.Point{}, false
	}
	return p.Add(d.ui.Offset(id)), true
}

// renderPositions returns base + offset for every placed node.
func (d *Diagram) renderPositions() map[string]geom.Point {
	out := make(map[string]geom.Point, len(d.base))
	for id, p := range d.base {
		out[id] = p.Add(d.ui.Offset(id))
	}
	return out
}

// layoutInput builds the engine input from the outline and manual widths.
func (d *Diagram) layoutInput() layout.Input {
	return layout.FromOutline(d.outline, d.ui.Widths())
}

// sizeOf resolves the drawn size of a node.
func (d *Diagram) sizeOf(n outline.Node) geom.Size {
	cfg := d.engine.Config()
	s := geom.Size{W: n.Width, H: n.Height}
	if w, ok := d.ui.Width(n.ID); ok {
		s.W = w
	}
	if s.W <= 0 {
		s.W = cfg.NodeWidth
	}
	if s.H <= 0 {
		s.H = cfg.NodeHeight
	}
	return s
}

// ensurePlaced gives every unplaced node a position without moving placed
// ones. It is a safety net for outlines mutated behind the diagram's back.
func (d *Diagram) ensurePlaced() {
	for id := range d.base {
		if !d.outline.Has(id) {
			delete(d.base, id)
		}
	}
	if len(d.base) == d.outline.Len() {
		return
	}
	in := d.layoutInput()
	pinned := d.renderPositions()
	for _, id := range d.outline.Index().PreOrder() {
		if _, ok := d.base[id]; ok {
			continue
		}
		p, err := d.engine.Place(in, pinned, id)
		if err != nil {
			d.logger.Warn("could not place node", "id", id, "err", err)
			continue
		}
		d.base[id] = p
		pinned[id] = p
	}
}
