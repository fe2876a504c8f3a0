package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// findCommand creates the find command for locating nodes by title.
func (c *CLI) findCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "find [file|store:<id>] [query...]",
		Short: "Find nodes whose titles match a fuzzy query",
		Long: `Find nodes whose titles match a fuzzy query.

Matching is case-insensitive and tolerates missing characters, so "dcomp"
finds "Decomposition". The best matches are listed first with their IDs,
which other commands such as 'ask' accept.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFind(cmd.Context(), args[0], strings.Join(args[1:], " "), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of matches (0 for all)")

	return cmd
}

func (c *CLI) runFind(ctx context.Context, input, query string, limit int) error {
	d, err := c.openDiagram(ctx, input)
	if err != nil {
		return err
	}
	o := d.Outline()

	matches := o.Find(query)
	if len(matches) == 0 {
		printInfo("No nodes match %q", query)
		return nil
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	printSuccess("%d matches in %s", len(matches), o.Title())
	for _, id := range matches {
		n, _ := o.Node(id)
		fmt.Printf("  %s %s %s\n",
			StyleNumber.Render(fmt.Sprintf("L%d", n.Level)),
			StyleValue.Render(n.Title),
			StyleDim.Render(id))
	}
	return nil
}
