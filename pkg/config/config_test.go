package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/mindmap/pkg/diagram"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/export"
	"github.com/matzehuels/mindmap/pkg/layout"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error: %v", err)
	}
	if got := Default().LayoutConfig(); got != layout.DefaultConfig() {
		t.Errorf("Default().LayoutConfig() = %+v, want %+v", got, layout.DefaultConfig())
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[layout]
direction = "tb"
rank_spacing = 60
timeout = "500ms"

[diagram]
strategy = "full"
delete_policy = "cascade"

[export]
formats = ["png", "svg"]

[store]
backend = "sqlite"
path = "~/maps.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	lc := cfg.LayoutConfig()
	if lc.Direction != layout.TopToBottom {
		t.Errorf("Direction = %q, want TB", lc.Direction)
	}
	if lc.RankSpacing != 60 {
		t.Errorf("RankSpacing = %v, want 60", lc.RankSpacing)
	}
	if lc.NodeWidth != layout.DefaultNodeWidth {
		t.Errorf("NodeWidth = %v, want default %v", lc.NodeWidth, layout.DefaultNodeWidth)
	}
	if lc.Timeout != 500*time.Millisecond {
		t.Errorf("Timeout = %v, want 500ms", lc.Timeout)
	}
	if got := cfg.ExportFormats(); len(got) != 2 || got[0] != export.PNG {
		t.Errorf("ExportFormats() = %v, want [png svg]", got)
	}
	if s, _ := parseStrategy(cfg.Diagram.Strategy); s != diagram.StrategyFullLayout {
		t.Errorf("strategy = %v, want full", s)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "maps.db"); cfg.StoreConfig().Path != want {
		t.Errorf("Store.Path = %q, want %q", cfg.StoreConfig().Path, want)
	}
	if len(cfg.DiagramOptions()) == 0 {
		t.Error("DiagramOptions() returned nothing")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code mmerrors.Code
	}{
		{"bad direction", "[layout]\ndirection = \"up\"\n", mmerrors.ErrCodeInvalidInput},
		{"bad strategy", "[diagram]\nstrategy = \"random\"\n", mmerrors.ErrCodeInvalidInput},
		{"bad format", "[export]\nformats = [\"gif\"]\n", mmerrors.ErrCodeInvalidFormat},
		{"scale too large", "[export]\nscale = 20.0\n", mmerrors.ErrCodeInvalidInput},
		{"bad backend", "[store]\nbackend = \"etcd\"\n", mmerrors.ErrCodeInvalidInput},
		{"unknown key", "[layout]\nwidth = 3\n", mmerrors.ErrCodeInvalidInput},
		{"syntax", "[layout\n", mmerrors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !mmerrors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !mmerrors.Is(err, mmerrors.ErrCodeInvalidPath) {
		t.Errorf("Load() explicit missing error = %v, want INVALID_PATH", err)
	}

	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") without a file error: %v", err)
	}
	if cfg.Layout.Direction != "LR" {
		t.Errorf("Direction = %q, want LR", cfg.Layout.Direction)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Write(&buf); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	cfg, err := Load(writeConfig(t, buf.String()))
	if err != nil {
		t.Fatalf("Load() of written default error: %v\n%s", err, buf.String())
	}
	if cfg.LayoutConfig() != Default().LayoutConfig() {
		t.Errorf("round trip LayoutConfig() = %+v, want %+v", cfg.LayoutConfig(), Default().LayoutConfig())
	}
}
