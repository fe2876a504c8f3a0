package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "mindmap")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(xdg, "mindmap"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCachePathPrefersConfig(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	c.cfg.Service.CacheDir = "/tmp/mm-cache"
	dir, err := c.cachePath()
	if err != nil {
		t.Fatalf("cachePath() error: %v", err)
	}
	if dir != "/tmp/mm-cache" {
		t.Errorf("cachePath() = %q, want /tmp/mm-cache", dir)
	}
}
