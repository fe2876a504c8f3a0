package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/buildinfo"
	"github.com/matzehuels/mindmap/pkg/cache"
	"github.com/matzehuels/mindmap/pkg/config"
	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/source"
	"github.com/matzehuels/mindmap/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mindmap"

	// storePrefix marks an input argument as a stored diagram ID.
	storePrefix = "store:"
)

// LogInfo is the starting log level, used until --verbose is parsed.
const LogInfo = log.InfoLevel

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	logFormat  string
	cfg        config.Config
	out        io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
		out:    os.Stdout,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Mindmap lays out and explores outlines as mind maps",
		Long:         `Mindmap turns hierarchical outlines into laid-out mind map diagrams, lets you explore them interactively, ask follow-up questions about nodes, and export them as PNG, PDF, SVG, JSON, text or DOT.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// The log level is only known once flags are parsed.
			if err := c.configureLogger(c.verbose, c.logFormat); err != nil {
				return err
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/mindmap/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "text", "log line format: text, json or logfmt")

	root.AddCommand(c.parseCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.askCommand())
	root.AddCommand(c.findCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())
	c.registerCompletions(root)

	return root
}

// =============================================================================
// Diagram Loading
// =============================================================================

// readDocument loads an outline document from a file, or from the
// configured store when input is "store:<id>".
func (c *CLI) readDocument(ctx context.Context, input string) (outline.Document, error) {
	if id, ok := strings.CutPrefix(input, storePrefix); ok {
		s, err := c.openStore(ctx)
		if err != nil {
			return outline.Document{}, err
		}
		defer s.Close()
		return s.Load(ctx, id)
	}
	return source.ReadFile(ctx, input)
}

// openDiagram loads input and builds a diagram configured from the config
// file. Documents without positions are laid out.
func (c *CLI) openDiagram(ctx context.Context, input string, extra ...diagram.Option) (*diagram.Diagram, error) {
	doc, err := c.readDocument(ctx, input)
	if err != nil {
		return nil, err
	}
	opts := append(c.diagramOptions(), extra...)
	d, err := diagram.Load(ctx, doc, opts...)
	if err != nil {
		return nil, fmt.Errorf("load diagram %s: %w", input, err)
	}
	return d, nil
}

func (c *CLI) diagramOptions() []diagram.Option {
	return append(c.cfg.DiagramOptions(), diagram.WithLogger(c.Logger))
}

// writeDocument saves a diagram back to where it came from.
func (c *CLI) writeDocument(ctx context.Context, target string, d *diagram.Diagram) error {
	doc := d.Document()
	if id, ok := strings.CutPrefix(target, storePrefix); ok {
		s, err := c.openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.Save(ctx, id, doc)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if err := outline.WriteJSON(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return f.Close()
}

// =============================================================================
// Collaborators
// =============================================================================

func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, c.cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || c.cfg.Service.NoCache {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cachePath()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cachePath is the configured cache directory, or the XDG default.
func (c *CLI) cachePath() (string, error) {
	if c.cfg.Service.CacheDir != "" {
		return c.cfg.Service.CacheDir, nil
	}
	return cacheDir()
}

func (c *CLI) clientOptions() []source.ClientOption {
	headers := map[string]string{"User-Agent": buildinfo.UserAgent()}
	if tok := c.cfg.Token(); tok != "" {
		headers["Authorization"] = "Bearer " + tok
	}
	return []source.ClientOption{
		source.WithHeaders(headers),
		source.WithHTTPClient(&http.Client{Timeout: c.cfg.Service.Timeout.Duration}),
	}
}

// newAsker returns the answer service. Without an endpoint, every question
// gets fallback as its answer, or fails when fallback is empty.
func (c *CLI) newAsker(endpoint, fallback string, noCache bool) (source.Asker, error) {
	if endpoint == "" {
		endpoint = c.cfg.Service.AskURL
	}
	if endpoint == "" {
		return source.StaticAsker{Fallback: fallback}, nil
	}
	ch, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	opts := append(c.clientOptions(), source.WithCache(ch, cache.AnswerTTL))
	return source.NewHTTPAsker(endpoint, opts...), nil
}

// newGenerator returns the remote outline service.
func (c *CLI) newGenerator(endpoint string, noCache bool) (source.Generator, error) {
	if endpoint == "" {
		endpoint = c.cfg.Service.GenerateURL
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no outline service configured: pass --service or set [service] generate_url")
	}
	ch, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	opts := append(c.clientOptions(), source.WithCache(ch, cache.OutlineTTL))
	return source.NewHTTPGenerator(endpoint, opts...), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/mindmap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	return cache.DefaultDir()
}

// defaultOutput derives an output path next to input, or from a store ID.
func defaultOutput(input, suffix string) string {
	if id, ok := strings.CutPrefix(input, storePrefix); ok {
		return id + suffix
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

// saveTarget is where an edited diagram goes: output when given, else
// back to JSON and store inputs, else <input>.layout.json.
func saveTarget(input, output string) string {
	switch {
	case output != "":
		return output
	case strings.HasPrefix(input, storePrefix), strings.EqualFold(filepath.Ext(input), ".json"):
		return input
	}
	return defaultOutput(input, ".layout.json")
}
