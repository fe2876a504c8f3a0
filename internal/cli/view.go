package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/source"
)

// viewCommand creates the interactive terminal viewer command.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		output   string
		service  string
		answer   string
		noCache  bool
		collapse int
	)

	cmd := &cobra.Command{
		Use:   "view [file|store:<id>]",
		Short: "Explore a diagram interactively in the terminal",
		Long: `Explore a diagram interactively in the terminal.

Without an argument, pick one of the diagrams in the configured store.

Keys:
  arrows, hjkl       pan            + / -     zoom
  tab, shift+tab     select         f / 0     fit / reset view
  enter, space       fold node      c / E     fold to level 1 / unfold all
  shift+arrows       nudge node     d         next layout direction
  a                  ask follow-up  L         relayout, dropping nudges
  r                  rename node    x         delete node
  i                  toggle info    s         save
  q                  quit

Mouse: click selects and folds, drag moves a node or pans the canvas,
the wheel zooms.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			input := ""
			if len(args) == 1 {
				input = args[0]
			} else {
				id, err := c.pickStored(ctx)
				if err != nil || id == "" {
					return err
				}
				input = storePrefix + id
			}
			var asker source.Asker
			if service != "" || answer != "" || c.cfg.Service.AskURL != "" {
				a, err := c.newAsker(service, answer, noCache)
				if err != nil {
					return err
				}
				asker = a
			}
			return c.runView(ctx, input, output, collapse, asker)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "save target (default: the input for JSON and store inputs)")
	cmd.Flags().StringVar(&service, "service", "", "answer service URL (default from config)")
	cmd.Flags().StringVar(&answer, "answer", "", "answer every follow-up with this text when no service is configured")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable answer caching")
	cmd.Flags().IntVar(&collapse, "collapse-level", -1, "start with every node at this depth folded")

	return cmd
}

func (c *CLI) runView(ctx context.Context, input, output string, collapse int, asker source.Asker) error {
	d, err := c.openDiagram(ctx, input)
	if err != nil {
		return err
	}
	if collapse >= 0 {
		d.Dispatch(ctx, diagram.CollapseToLevel{Level: collapse})
	}

	output = saveTarget(input, output)
	save := func(d *diagram.Diagram) error {
		return c.writeDocument(ctx, output, d)
	}

	// Warnings would tear the alternate screen.
	level := c.Logger.GetLevel()
	c.Logger.SetLevel(log.ErrorLevel)
	defer c.Logger.SetLevel(level)

	m := NewViewerModel(ctx, d, asker, save)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// pickStored lets the user choose a stored diagram. It returns "" when the
// picker is dismissed.
func (c *CLI) pickStored(ctx context.Context) (string, error) {
	s, err := c.openStore(ctx)
	if err != nil {
		return "", err
	}
	defer s.Close()
	entries, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		printInfo("No stored diagrams")
		printNextStep("Store one", "mindmap store save <file> <id>")
		return "", nil
	}
	result, err := tea.NewProgram(NewStoreListModel(entries), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", err
	}
	if m, ok := result.(StoreListModel); ok && m.Selected != nil {
		return m.Selected.ID, nil
	}
	return "", nil
}
