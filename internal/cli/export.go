package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/export"
)

// exportOptions holds the flags of the export command.
type exportOptions struct {
	formats   string
	dir       string
	name      string
	direction string
	collapse  int
	padding   float64
	scale     float64
	graphviz  bool
	watch     bool
}

// exportCommand creates the export command for rendering diagrams to files.
func (c *CLI) exportCommand() *cobra.Command {
	opts := exportOptions{collapse: -1}

	cmd := &cobra.Command{
		Use:   "export [file|store:<id>]",
		Short: "Render a diagram as PNG, PDF, SVG, JSON, text or DOT",
		Long: `Render a diagram as PNG, PDF, SVG, JSON, text or DOT.

The input may be an outline, a laid out document or a stored diagram.
Outlines without positions are laid out first. Every requested format is
rendered concurrently from the same snapshot and written as
<dir>/<name>.<format>.

Collapsed nodes stay hidden in image exports. The text export lists every
node with its description regardless of collapse state.

With --watch, the input file is re-exported each time it changes until
interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("padding") {
				opts.padding = c.cfg.Export.Padding
			}
			if !cmd.Flags().Changed("scale") {
				opts.scale = c.cfg.Export.Scale
			}
			return c.runExport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "comma-separated formats: png, pdf, svg, json, txt, dot (default from config)")
	cmd.Flags().StringVarP(&opts.dir, "output", "o", "", "output directory (default: config export.dir or the input's directory)")
	cmd.Flags().StringVar(&opts.name, "name", "", "output file name without extension (default: input name)")
	cmd.Flags().StringVarP(&opts.direction, "direction", "d", "", "relayout in direction LR, RL, TB or BT before export")
	cmd.Flags().IntVar(&opts.collapse, "collapse-level", -1, "collapse every node at this depth before export")
	cmd.Flags().Float64Var(&opts.padding, "padding", export.DefaultPadding, "padding around the diagram")
	cmd.Flags().Float64Var(&opts.scale, "scale", export.DefaultScale, "PNG pixel scale")
	cmd.Flags().BoolVar(&opts.graphviz, "graphviz", false, "render DOT through graphviz to normalize it")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-export when the input file changes")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, input string, opts exportOptions) error {
	formats := c.cfg.ExportFormats()
	if opts.formats != "" {
		f, err := export.ParseFormats(opts.formats)
		if err != nil {
			return err
		}
		formats = f
	}
	if len(formats) == 0 {
		return fmt.Errorf("no export formats selected")
	}

	if err := c.exportOnce(ctx, input, formats, opts); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	if strings.HasPrefix(input, storePrefix) {
		return fmt.Errorf("--watch needs a file input")
	}

	printNewline()
	printInfo("Watching %s for changes (Ctrl+C to stop)", input)
	err := watchFile(ctx, input, watchDebounce, func() {
		if err := c.exportOnce(ctx, input, formats, opts); err != nil {
			printWarning("Export failed: %v", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *CLI) exportOnce(ctx context.Context, input string, formats []export.Format, opts exportOptions) error {
	prog := newProgress(c.Logger)

	d, err := c.openDiagram(ctx, input)
	if err != nil {
		return err
	}
	if opts.direction != "" {
		if err := relayout(ctx, d, opts.direction, false); err != nil {
			return fmt.Errorf("compute layout: %w", err)
		}
	}
	if opts.collapse >= 0 {
		d.Dispatch(ctx, diagram.CollapseToLevel{Level: opts.collapse})
	}
	st := d.RenderState()

	dir := opts.dir
	if dir == "" {
		dir = c.cfg.Export.Dir
	}
	if dir == "" && !strings.HasPrefix(input, storePrefix) {
		dir = filepath.Dir(input)
	}
	if dir == "" {
		dir = "."
	}
	name := opts.name
	if name == "" {
		name = filepath.Base(defaultOutput(input, ""))
	}

	eopts := []export.Option{export.WithPadding(opts.padding), export.WithScale(opts.scale)}
	if opts.graphviz {
		eopts = append(eopts, export.WithGraphviz())
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", formatList(formats)))
	spinner.Start()
	paths, err := export.WriteFiles(ctx, st, dir, name, formats, eopts...)
	if err != nil {
		spinner.StopWithError("Export failed")
		return fmt.Errorf("export: %w", err)
	}
	spinner.Stop()

	prog.done("Exported files", "count", len(paths))
	printSuccess("Export complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(len(st.Nodes), len(st.Visible()), pendingCount(st), false)
	return nil
}

func formatList(formats []export.Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
