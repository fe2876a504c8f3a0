package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// MemoryStore keeps diagrams in process memory. Documents are stored
// encoded, so callers never share node slices with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, id string, doc outline.Document) error {
	if err := mmerrors.ValidateID(id); err != nil {
		return err
	}
	data, err := json.Marshal(newRecord(id, doc))
	if err != nil {
		return fmt.Errorf("marshal diagram: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = data
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (outline.Document, error) {
	if err := mmerrors.ValidateID(id); err != nil {
		return outline.Document{}, err
	}
	s.mu.RLock()
	data, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return outline.Document{}, notFound(id)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return outline.Document{}, fmt.Errorf("parse diagram: %w", err)
	}
	return rec.Document, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.data))
	for _, data := range s.data {
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		out = append(out, rec.entry())
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
