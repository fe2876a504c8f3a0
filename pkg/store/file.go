package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// FileStore stores each diagram as a JSON file in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based store.
// If baseDir is empty, defaults to ~/.config/mindmap/diagrams/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "mindmap", "diagrams")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create diagram dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) diagramPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, id string, doc outline.Document) error {
	if err := mmerrors.ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(newRecord(id, doc), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal diagram: %w", err)
	}

	// Write then rename so readers never see a partial file.
	path := s.diagramPath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write diagram file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace diagram file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) (outline.Document, error) {
	if err := mmerrors.ValidateID(id); err != nil {
		return outline.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.read(s.diagramPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return outline.Document{}, notFound(id)
		}
		return outline.Document{}, err
	}
	return rec.Document, nil
}

func (s *FileStore) read(path string) (record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "parse %s", filepath.Base(path))
	}
	return rec, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := mmerrors.ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.diagramPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove diagram file: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read diagram dir: %w", err)
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		rec, err := s.read(filepath.Join(s.baseDir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, rec.entry())
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
