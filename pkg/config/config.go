// Package config loads the mindmap configuration file.
//
// The file is TOML, read from ~/.config/mindmap/config.toml unless a path
// is given. Every key is optional; missing keys keep the values from
// [Default]. Command-line flags override the file.
//
//	[layout]
//	direction = "LR"
//	node_width = 250
//	rank_spacing = 100
//	timeout = "2s"
//
//	[diagram]
//	strategy = "pinned"
//	delete_policy = "reparent"
//
//	[store]
//	backend = "sqlite"
//	path = "~/mindmaps.db"
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/mindmap/pkg/diagram"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/export"
	"github.com/matzehuels/mindmap/pkg/interaction"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/store"
)

// Duration is a time.Duration written as a string such as "2s".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the whole configuration file.
type Config struct {
	Layout      Layout      `toml:"layout"`
	Interaction Interaction `toml:"interaction"`
	Diagram     Diagram     `toml:"diagram"`
	Export      Export      `toml:"export"`
	Store       Store       `toml:"store"`
	Service     Service     `toml:"service"`
}

// Layout configures the layout engine.
type Layout struct {
	Direction   string   `toml:"direction"`
	NodeWidth   float64  `toml:"node_width"`
	NodeHeight  float64  `toml:"node_height"`
	RankSpacing float64  `toml:"rank_spacing"`
	NodeSpacing float64  `toml:"node_spacing"`
	Timeout     Duration `toml:"timeout"`
}

// Interaction configures viewport limits and click detection.
type Interaction struct {
	MinZoom       float64  `toml:"min_zoom"`
	MaxZoom       float64  `toml:"max_zoom"`
	ClickDistance float64  `toml:"click_distance"`
	ClickWindow   Duration `toml:"click_window"`
}

// Diagram configures editing behaviour.
type Diagram struct {
	// Strategy places follow-ups: "pinned" or "full".
	Strategy string `toml:"strategy"`
	// DeletePolicy is "reparent" or "cascade".
	DeletePolicy string `toml:"delete_policy"`
	// ClickToggles collapses a node when it is clicked.
	ClickToggles bool `toml:"click_toggles"`
}

// Export configures rendering.
type Export struct {
	Padding float64  `toml:"padding"`
	Scale   float64  `toml:"scale"`
	Formats []string `toml:"formats"`
	Dir     string   `toml:"dir"`
}

// Store selects the persistence backend.
type Store struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	Addr     string `toml:"addr"`
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Prefix   string `toml:"prefix"`
}

// Service configures the external answer and outline services.
type Service struct {
	AskURL      string   `toml:"ask_url"`
	GenerateURL string   `toml:"generate_url"`
	// TokenEnv names the environment variable holding a bearer token.
	TokenEnv string   `toml:"token_env"`
	Timeout  Duration `toml:"timeout"`
	CacheDir string   `toml:"cache_dir"`
	NoCache  bool     `toml:"no_cache"`
}

// Default returns the built-in configuration.
func Default() Config {
	l := layout.DefaultConfig()
	i := interaction.DefaultConfig()
	return Config{
		Layout: Layout{
			Direction:   string(l.Direction),
			NodeWidth:   l.NodeWidth,
			NodeHeight:  l.NodeHeight,
			RankSpacing: l.RankSpacing,
			NodeSpacing: l.NodeSpacing,
			Timeout:     Duration{l.Timeout},
		},
		Interaction: Interaction{
			MinZoom:       i.MinZoom,
			MaxZoom:       i.MaxZoom,
			ClickDistance: i.ClickDistance,
			ClickWindow:   Duration{i.ClickWindow},
		},
		Diagram: Diagram{
			Strategy:     diagram.StrategyPinned.String(),
			DeletePolicy: outline.ReparentToGrandparent.String(),
			ClickToggles: true,
		},
		Export: Export{
			Padding: export.DefaultPadding,
			Scale:   export.DefaultScale,
			Formats: []string{string(export.SVG)},
		},
		Store: Store{Backend: "file"},
		Service: Service{
			TokenEnv: "MINDMAP_TOKEN",
			Timeout:  Duration{60 * time.Second},
		},
	}
}

// DefaultPath returns ~/.config/mindmap/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mindmap", "config.toml"), nil
}

// Load reads the file at path over [Default] and validates the result.
// An empty path reads [DefaultPath] and tolerates its absence; an explicit
// path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		missing := errors.Is(err, fs.ErrNotExist)
		if missing && !explicit {
			return Default(), nil
		}
		if missing {
			return Config{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidPath, err, "config file %s", path)
		}
		return Config{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, mmerrors.New(mmerrors.ErrCodeInvalidInput, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Service.CacheDir = expandHome(cfg.Service.CacheDir)
	cfg.Export.Dir = expandHome(cfg.Export.Dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Write encodes cfg as TOML.
func (c Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate reports values the engine cannot use.
func (c Config) Validate() error {
	if c.Layout.Direction != "" {
		if _, err := layout.ParseDirection(c.Layout.Direction); err != nil {
			return fmt.Errorf("[layout] %w", err)
		}
	}
	if err := c.LayoutConfig().Validate(); err != nil {
		return fmt.Errorf("[layout] %w", err)
	}
	if err := c.InteractionConfig().Validate(); err != nil {
		return fmt.Errorf("[interaction] %w", err)
	}
	if _, err := parseStrategy(c.Diagram.Strategy); err != nil {
		return fmt.Errorf("[diagram] %w", err)
	}
	if _, err := outline.ParseDeletePolicy(c.Diagram.DeletePolicy); err != nil {
		return fmt.Errorf("[diagram] %w", err)
	}
	if _, err := export.ParseFormats(strings.Join(c.Export.Formats, ",")); err != nil {
		return fmt.Errorf("[export] %w", err)
	}
	if c.Export.Padding < 0 || c.Export.Scale < 0 {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "[export] padding and scale must not be negative")
	}
	if c.Export.Padding > export.MaxPadding || c.Export.Scale > export.MaxScale {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "[export] padding is limited to %g and scale to %g",
			export.MaxPadding, export.MaxScale)
	}
	switch c.Store.Backend {
	case "", "memory", "file", "sqlite", "redis", "mongo":
	default:
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "[store] unknown backend %q", c.Store.Backend)
	}
	return nil
}

// LayoutConfig converts the [layout] section.
func (c Config) LayoutConfig() layout.Config {
	dir, _ := layout.ParseDirection(c.Layout.Direction)
	return layout.Config{
		Direction:   dir,
		NodeWidth:   c.Layout.NodeWidth,
		NodeHeight:  c.Layout.NodeHeight,
		RankSpacing: c.Layout.RankSpacing,
		NodeSpacing: c.Layout.NodeSpacing,
		Timeout:     c.Layout.Timeout.Duration,
	}
}

// InteractionConfig converts the [interaction] section.
func (c Config) InteractionConfig() interaction.Config {
	return interaction.Config{
		MinZoom:       c.Interaction.MinZoom,
		MaxZoom:       c.Interaction.MaxZoom,
		ClickDistance: c.Interaction.ClickDistance,
		ClickWindow:   c.Interaction.ClickWindow.Duration,
	}
}

// DiagramOptions converts the [layout], [interaction] and [diagram]
// sections into diagram options.
func (c Config) DiagramOptions() []diagram.Option {
	strategy, _ := parseStrategy(c.Diagram.Strategy)
	policy, _ := outline.ParseDeletePolicy(c.Diagram.DeletePolicy)
	return []diagram.Option{
		diagram.WithLayout(c.LayoutConfig()),
		diagram.WithInteraction(c.InteractionConfig()),
		diagram.WithStrategy(strategy),
		diagram.WithDeletePolicy(policy),
		diagram.WithClickToggles(c.Diagram.ClickToggles),
	}
}

// ExportOptions converts the [export] section.
func (c Config) ExportOptions() []export.Option {
	return []export.Option{
		export.WithPadding(c.Export.Padding),
		export.WithScale(c.Export.Scale),
	}
}

// ExportFormats returns the configured default formats.
func (c Config) ExportFormats() []export.Format {
	formats, _ := export.ParseFormats(strings.Join(c.Export.Formats, ","))
	return formats
}

// StoreConfig converts the [store] section.
func (c Config) StoreConfig() store.Config {
	return store.Config{
		Backend:  c.Store.Backend,
		Path:     c.Store.Path,
		Addr:     c.Store.Addr,
		URI:      c.Store.URI,
		Database: c.Store.Database,
		Prefix:   c.Store.Prefix,
	}
}

// Token returns the bearer token from the configured environment variable.
func (c Config) Token() string {
	if c.Service.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Service.TokenEnv)
}

func parseStrategy(s string) (diagram.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pinned":
		return diagram.StrategyPinned, nil
	case "full":
		return diagram.StrategyFullLayout, nil
	}
	return 0, mmerrors.New(mmerrors.ErrCodeInvalidInput, "unknown insertion strategy %q", s)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
