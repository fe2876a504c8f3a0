package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mindmap/pkg/diagram"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/observability"
)

// Format names an export format. The value doubles as the file extension.
type Format string

const (
	PNG  Format = "png"
	PDF  Format = "pdf"
	SVG  Format = "svg"
	JSON Format = "json"
	TXT  Format = "txt"
	DOT  Format = "dot"
)

// Formats lists every supported format.
var Formats = []Format{PNG, PDF, SVG, JSON, TXT, DOT}

// ParseFormat accepts a format name in any case, with or without a leading
// dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", mmerrors.New(mmerrors.ErrCodeInvalidFormat, "unknown export format %q", s)
}

// ParseFormats parses a comma-separated format list.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Default option values.
const (
	DefaultPadding = 40.0
	DefaultScale   = 2.0
)

// Option limits. Larger values are clamped.
const (
	MaxPadding = 1000.0
	MaxScale   = 8.0

	// MaxPixels bounds the size of a raster export.
	MaxPixels = 64 << 20
)

// Option configures rendering.
type Option func(*options)

type options struct {
	padding  float64
	scale    float64
	palette  Palette
	graphviz bool
}

func newOptions(opts []Option) options {
	o := options{padding: DefaultPadding, scale: DefaultScale, palette: DefaultPalette()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPadding sets the margin around the visible nodes, up to
// [MaxPadding]. Negative values are ignored.
func WithPadding(p float64) Option {
	return func(o *options) {
		if p >= 0 {
			o.padding = math.Min(p, MaxPadding)
		}
	}
}

// WithScale sets the raster scale factor (default 2.0 for 2x resolution),
// up to [MaxScale]. Non-positive values are ignored.
func WithScale(s float64) Option {
	return func(o *options) {
		if s > 0 {
			o.scale = math.Min(s, MaxScale)
		}
	}
}

// WithPalette sets the node colours.
func WithPalette(p Palette) Option { return func(o *options) { o.palette = p } }

// WithGraphviz makes the DOT format render through Graphviz into SVG
// instead of returning DOT source.
func WithGraphviz() Option { return func(o *options) { o.graphviz = true } }

// Bounds returns the smallest rectangle enclosing the render rectangle of
// every visible node, grown by padding on each side.
func Bounds(st *diagram.RenderState, padding float64) (geom.Rect, error) {
	if err := check(st); err != nil {
		return geom.Rect{}, err
	}
	var r geom.Rect
	for _, n := range st.Visible() {
		r = r.Union(n.Rect())
	}
	return r.Inset(padding), nil
}

func check(st *diagram.RenderState) error {
	if st == nil {
		return mmerrors.New(mmerrors.ErrCodeExportTargetMissing, "no render state to export")
	}
	if len(st.Visible()) == 0 {
		return mmerrors.New(mmerrors.ErrCodeExportTargetMissing, "nothing visible to export")
	}
	return nil
}

// Render produces one format.
func Render(ctx context.Context, st *diagram.RenderState, f Format, opts ...Option) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch f {
	case PNG:
		return RenderPNG(st, opts...)
	case PDF:
		return RenderPDF(st, opts...)
	case SVG:
		return RenderSVG(st, opts...)
	case JSON:
		return RenderJSON(st)
	case TXT:
		return RenderText(st)
	case DOT:
		o := newOptions(opts)
		if o.graphviz {
			return RenderGraphviz(ctx, st)
		}
		return RenderDOT(st)
	default:
		return nil, mmerrors.New(mmerrors.ErrCodeInvalidFormat, "unknown export format %q", f)
	}
}

// All renders every format in formats concurrently. The first failure
// cancels the rest.
func All(ctx context.Context, st *diagram.RenderState, formats []Format, opts ...Option) (out map[Format][]byte, err error) {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	start := time.Now()
	observability.Diagram().OnExportStart(ctx, names)
	defer func() {
		observability.Diagram().OnExportComplete(ctx, names, time.Since(start), err)
	}()

	if err := check(st); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out = make(map[Format][]byte, len(formats))
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range formats {
		g.Go(func() error {
			data, err := Render(gctx, st, f, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			mu.Lock()
			out[f] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteFiles renders formats and writes them as dir/base.<format>. It
// returns the written paths in format order.
func WriteFiles(ctx context.Context, st *diagram.RenderState, dir, base string, formats []Format, opts ...Option) ([]string, error) {
	files, err := All(ctx, st, formats, opts...)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := filepath.Join(dir, base+"."+string(f))
		if err := os.WriteFile(path, files[f], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
