package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/mindmap/pkg/outline"
)

// ReadFile loads an outline from path, choosing the parser by extension:
// .json is a saved document, .yaml/.yml the nested YAML form, anything
// else indented text or markdown.
func ReadFile(ctx context.Context, path string) (outline.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return outline.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	gen := ForPath(path)
	if gen == nil {
		return outline.ReadJSON(bytes.NewReader(data))
	}
	doc, err := gen.GenerateOutline(ctx, string(data))
	if err != nil {
		return outline.Document{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// ForPath returns the generator for a file extension, or nil for JSON
// documents which need no generation.
func ForPath(path string) Generator {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return nil
	case ".yaml", ".yml":
		return YAML{}
	default:
		return Indented{}
	}
}
