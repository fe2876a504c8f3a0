package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the answer and outline cache",
	}

	cmd.AddCommand(c.cachePruneCommand("clear", "Remove every cached response", true))
	cmd.AddCommand(c.cachePruneCommand("prune", "Remove expired cached responses", false))
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

func (c *CLI) cachePruneCommand(use, short string, all bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cachePath()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Prune(cmd.Context(), all)
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo("Nothing to remove")
			} else {
				printSuccess("Removed %d cached entries", count)
			}
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cachePath()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
