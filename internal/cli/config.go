package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/matzehuels/mindmap/pkg/config"
	"github.com/matzehuels/mindmap/pkg/export"
	"github.com/matzehuels/mindmap/pkg/layout"
)

// configCommand creates the config command for inspecting and creating
// the config file.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.cfg.Write(cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

func (c *CLI) configInitCommand() *cobra.Command {
	var force, defaults bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		Long: `Write a config file.

On a terminal this asks for the layout direction, store backend, export
formats and answer service. Pass --defaults to write the built-in
configuration without asking.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if !defaults && isTerminal() {
				if err := configWizard(&cfg); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := writeConfigFile(path, cfg); err != nil {
				return err
			}
			printSuccess("Wrote config")
			printFile(path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the defaults without asking")
	return cmd
}

func (c *CLI) configFile() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.DefaultPath()
}

func writeConfigFile(path string, cfg config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := cfg.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// =============================================================================
// Interactive Forms
// =============================================================================

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// newForm builds a huh form in the CLI colours. Escape and ctrl+c abort.
func newForm(groups ...*huh.Group) *huh.Form {
	theme := huh.ThemeBase()
	theme.Focused.Title = theme.Focused.Title.Foreground(colorCyan).Bold(true)
	theme.Focused.SelectSelector = theme.Focused.SelectSelector.Foreground(colorCyan)
	theme.Focused.SelectedOption = theme.Focused.SelectedOption.Foreground(colorGreen)
	theme.Focused.Description = theme.Focused.Description.Foreground(colorGray)
	return huh.NewForm(groups...).WithTheme(theme).WithShowHelp(true)
}

func configWizard(cfg *config.Config) error {
	formats := cfg.Export.Formats
	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Layout direction").
				Options(
					huh.NewOption("Left to right", string(layout.LeftToRight)),
					huh.NewOption("Right to left", string(layout.RightToLeft)),
					huh.NewOption("Top to bottom", string(layout.TopToBottom)),
					huh.NewOption("Bottom to top", string(layout.BottomToTop)),
				).
				Value(&cfg.Layout.Direction),
			huh.NewMultiSelect[string]().
				Title("Default export formats").
				Options(formatOptions()...).
				Value(&formats),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Store backend").
				Options(
					huh.NewOption("Files", "file"),
					huh.NewOption("SQLite", "sqlite"),
					huh.NewOption("Redis", "redis"),
					huh.NewOption("MongoDB", "mongo"),
				).
				Value(&cfg.Store.Backend),
			huh.NewInput().
				Title("Store location").
				Description("Directory, database file, redis address or mongo URI. Empty for the default.").
				Value(&cfg.Store.Path),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Answer service URL").
				Description("Follow-up questions are POSTed here. Empty to answer offline.").
				Value(&cfg.Service.AskURL),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("config init aborted")
		}
		return err
	}

	cfg.Export.Formats = formats
	switch cfg.Store.Backend {
	case "redis":
		cfg.Store.Addr, cfg.Store.Path = cfg.Store.Path, ""
	case "mongo":
		cfg.Store.URI, cfg.Store.Path = cfg.Store.Path, ""
	}
	return nil
}

func formatOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(export.Formats))
	for i, f := range export.Formats {
		opts[i] = huh.NewOption(string(f), string(f))
	}
	return opts
}
