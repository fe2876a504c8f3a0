package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/config"
	"github.com/matzehuels/mindmap/pkg/export"
)

// completionTimeout bounds store lookups made while the shell waits.
const completionTimeout = 2 * time.Second

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mindmap.

Besides commands and flags, the scripts complete stored diagram IDs for
"store:<id>" inputs and the store load/delete commands, and export format
names for --format.

To load completions in the current shell:

  $ source <(mindmap completion bash)
  $ source <(mindmap completion zsh)
  $ mindmap completion fish | source
  PS> mindmap completion powershell | Out-String | Invoke-Expression

To load them for every session, write the script to your shell's
completion directory, e.g.:

  $ mindmap completion bash > /etc/bash_completion.d/mindmap
  $ mindmap completion zsh > "${fpath[1]}/_mindmap"
  $ mindmap completion fish > ~/.config/fish/completions/mindmap.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// registerCompletions attaches dynamic completions to the commands that
// take diagram inputs, stored IDs or formats.
func (c *CLI) registerCompletions(root *cobra.Command) {
	for _, sub := range root.Commands() {
		switch sub.Name() {
		case "layout", "export", "view", "ask", "find":
			sub.ValidArgsFunction = c.completeInput
		case "store":
			for _, s := range sub.Commands() {
				if s.Name() == "load" || s.Name() == "delete" {
					s.ValidArgsFunction = c.completeStoredID
				}
			}
		}
		if sub.Flags().Lookup("format") != nil {
			_ = sub.RegisterFlagCompletionFunc("format", completeFormats)
		}
	}
}

// completeInput completes the first argument: files by default, stored
// diagrams once the word starts with "store:".
func (c *CLI) completeInput(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	prefix, ok := strings.CutPrefix(toComplete, storePrefix)
	if !ok {
		if strings.HasPrefix(storePrefix, toComplete) && toComplete != "" {
			return []string{storePrefix}, cobra.ShellCompDirectiveNoSpace
		}
		return nil, cobra.ShellCompDirectiveDefault
	}
	ids := c.storedIDs(cmd.Context(), prefix)
	for i := range ids {
		ids[i] = storePrefix + ids[i]
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func (c *CLI) completeStoredID(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return c.storedIDs(cmd.Context(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// storedIDs lists stored diagram IDs starting with prefix, each with its
// title as the completion description. Errors yield no candidates.
func (c *CLI) storedIDs(ctx context.Context, prefix string) []string {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	// Completion can run without the root pre-run hook.
	if cfg, err := config.Load(c.configPath); err == nil {
		c.cfg = cfg
	}
	s, err := c.openStore(ctx)
	if err != nil {
		return nil
	}
	defer s.Close()
	entries, err := s.List(ctx)
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		if !strings.HasPrefix(e.ID, prefix) {
			continue
		}
		if e.Title != "" {
			out = append(out, e.ID+"\t"+e.Title)
		} else {
			out = append(out, e.ID)
		}
	}
	return out
}

// completeFormats completes the last element of a comma-separated format
// list.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done, last := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		done, last = toComplete[:i+1], toComplete[i+1:]
	}
	var out []string
	for _, f := range export.Formats {
		if strings.HasPrefix(string(f), strings.ToLower(last)) && !strings.Contains(","+done, ","+string(f)+",") {
			out = append(out, done+string(f))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
