package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/source"
)

// parseCommand creates the parse command for building outline documents.
func (c *CLI) parseCommand() *cobra.Command {
	var (
		output  string
		title   string
		service string
		remote  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Build an outline document from markdown, YAML or plain text",
		Long: `Build an outline document from markdown, YAML or plain text.

Markdown headings and bullet lists (indented by spaces or tabs) become a
tree of nodes. Text under an entry becomes its description. Files ending in
.yaml or .yml are read as nested YAML outlines.

With --remote, the text is sent to the outline service configured as
[service] generate_url (or --service) instead of being parsed locally.
Service responses are cached locally.

The output is an outline.json without positions; run 'layout' or 'export'
on it next.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if service != "" {
				remote = true
			}
			return c.runParse(cmd.Context(), args[0], output, title, service, remote, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.outline.json, stdout for -)")
	cmd.Flags().StringVar(&title, "title", "", "diagram title (default: first node)")
	cmd.Flags().BoolVar(&remote, "remote", false, "generate the outline with the outline service")
	cmd.Flags().StringVar(&service, "service", "", "outline service URL (implies --remote)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching of service responses")

	return cmd
}

func (c *CLI) runParse(ctx context.Context, input, output, title, service string, remote, noCache bool) error {
	prog := newProgress(c.Logger)

	doc, err := c.parseInput(ctx, input, title, service, remote, noCache)
	if err != nil {
		return err
	}
	if title != "" {
		doc.Title = title
	}

	if output == "" && input != "-" {
		output = defaultOutput(input, ".outline.json")
	}
	if output == "" || output == "-" {
		return outline.WriteJSON(os.Stdout, doc)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := outline.WriteJSON(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	prog.done("Parsed outline", "nodes", len(doc.Nodes))
	printSuccess("Outline parsed")
	printFile(output)
	printNewline()
	printNextStep("Export", "mindmap export "+output)
	return nil
}

func (c *CLI) parseInput(ctx context.Context, input, title, service string, remote, noCache bool) (outline.Document, error) {
	if !remote && input != "-" {
		return source.ReadFile(ctx, input)
	}

	text, err := readInput(input)
	if err != nil {
		return outline.Document{}, err
	}
	if !remote {
		return source.Indented{Title: title}.GenerateOutline(ctx, text)
	}

	gen, err := c.newGenerator(service, noCache)
	if err != nil {
		return outline.Document{}, err
	}
	spinner := newSpinnerWithContext(ctx, "Generating outline...")
	spinner.Start()
	doc, err := gen.GenerateOutline(ctx, text)
	if err != nil {
		spinner.StopWithError("Outline service failed")
		return outline.Document{}, fmt.Errorf("generate outline: %w", err)
	}
	spinner.Stop()
	return doc, nil
}

// readInput reads a file, or stdin for "-".
func readInput(input string) (string, error) {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", input, err)
	}
	return string(data), nil
}
