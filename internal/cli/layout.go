package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// layoutCommand creates the layout command for computing node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output    string
		direction string
		reset     bool
	)

	cmd := &cobra.Command{
		Use:   "layout [outline.json|store:<id>]",
		Short: "Compute node positions for an outline",
		Long: `Compute node positions for an outline.

The layout command reads an outline (or a previously laid out diagram) and
runs a full layered layout. Ranks follow tree depth; nodes within a rank
are ordered to reduce edge crossings. The output is the same document with
every node's position filled in, ready for 'view', 'export' or 'store save'.

Dragged offsets stored in the input are kept unless --reset is given, so a
node keeps its manual nudge relative to its new base position.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, direction, reset)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or store:<id> (default: <input>.layout.json)")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "layout direction: LR, RL, TB, BT (default from config)")
	cmd.Flags().BoolVar(&reset, "reset", false, "discard dragged offsets")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output, direction string, reset bool) error {
	d, err := c.openDiagram(ctx, input)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()
	err = relayout(ctx, d, direction, reset)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if output == "" {
		output = defaultOutput(input, ".layout.json")
	}
	if err := c.writeDocument(ctx, output, d); err != nil {
		return err
	}

	st := d.RenderState()
	printSuccess("Layout complete")
	printFile(output)
	printStats(len(st.Nodes), len(st.Visible()), pendingCount(st), false)
	printNewline()
	printNextStep("Export", "mindmap export "+output)
	return nil
}

// relayout runs a full layout, switching direction first when one is given.
func relayout(ctx context.Context, d *diagram.Diagram, direction string, reset bool) error {
	if direction != "" {
		dir, err := layout.ParseDirection(direction)
		if err != nil {
			return err
		}
		if dir != d.Direction() {
			return d.SetDirection(ctx, dir)
		}
	}
	return d.Relayout(ctx, reset)
}

func pendingCount(st *diagram.RenderState) int {
	n := 0
	for _, node := range st.Nodes {
		if node.State == outline.StatePending {
			n++
		}
	}
	return n
}
