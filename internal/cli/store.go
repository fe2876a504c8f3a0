package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/outline"
)

// storeCommand creates the store management command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage stored diagrams",
		Long: `Manage stored diagrams.

The backend is chosen by [store] backend in the config file: file (the
default, one JSON file per diagram), sqlite, redis, mongo or memory.
Stored diagrams can be used anywhere a file is accepted as store:<id>.`,
	}

	cmd.AddCommand(c.storeSaveCommand())
	cmd.AddCommand(c.storeLoadCommand())
	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeDeleteCommand())

	return cmd
}

func (c *CLI) storeSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save [file] [id]",
		Short: "Lay out a file and store it under an ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := c.openDiagram(ctx, args[0])
			if err != nil {
				return err
			}
			if err := c.writeDocument(ctx, storePrefix+args[1], d); err != nil {
				return err
			}
			printSuccess("Stored %s", StyleHighlight.Render(args[1]))
			printDetail("%d nodes", d.Outline().Len())
			printNewline()
			printNextStep("View", "mindmap view store:"+args[1])
			return nil
		},
	}
}

func (c *CLI) storeLoadCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "load [id]",
		Short: "Write a stored diagram to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := c.openDiagram(ctx, storePrefix+args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".json"
			}
			if err := c.writeDocument(ctx, output, d); err != nil {
				return err
			}
			printSuccess("Loaded %s", StyleHighlight.Render(args[0]))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <id>.json)")
	return cmd
}

func (c *CLI) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored diagrams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStoreList(cmd.Context())
		},
	}
}

func (c *CLI) runStoreList(ctx context.Context) error {
	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printInfo("No stored diagrams")
		return nil
	}
	now := time.Now()
	for _, e := range entries {
		fmt.Printf("  %-24s %s %s %s\n",
			StyleHighlight.Render(e.ID),
			StyleValue.Render(e.Title),
			StyleNumber.Render(fmt.Sprintf("%d nodes", e.Nodes)),
			StyleDim.Render(formatRelativeTime(e.UpdatedAt, now)))
	}
	return nil
}

func (c *CLI) storeDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a stored diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			s, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.Load(ctx, id)
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirmDelete(doc)
				if err != nil || !ok {
					return err
				}
			}
			if err := s.Delete(ctx, id); err != nil {
				return err
			}
			printSuccess("Deleted %s", StyleHighlight.Render(id))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirmDelete(doc outline.Document) (bool, error) {
	ok := false
	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", doc.Title)).
				Description(fmt.Sprintf("%d nodes will be removed from the store", len(doc.Nodes))).
				Value(&ok).
				Affirmative("Delete").
				Negative("Keep"),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}
