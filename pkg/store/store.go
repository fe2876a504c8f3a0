// Package store persists diagrams as outline documents.
//
// A saved [outline.Document] carries every node's base position, drag
// offset, width and collapse state, so loading it with [diagram.Load]
// reproduces the render positions exactly.
//
// Backends:
//   - memory: in-process map, for tests and the HTTP server's scratch space
//   - file: one JSON file per diagram under a config directory (CLI default)
//   - sqlite: a single local database file
//   - redis: shared storage for multi-instance deployments
//   - mongo: document storage
//
// All backends validate IDs with [mmerrors.ValidateID] and report a missing
// diagram as NOT_FOUND wrapping [ErrNotFound].
//
// # Usage
//
//	s, err := store.Open(ctx, store.Config{Backend: "file"})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.Save(ctx, "biology", d.Document()); err != nil {
//	    return err
//	}
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/observability"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// ErrNotFound is returned (wrapped) when a diagram does not exist.
var ErrNotFound = errors.New("not found")

// Store is the interface for diagram storage backends.
type Store interface {
	// Save creates or replaces the diagram stored under id.
	Save(ctx context.Context, id string, doc outline.Document) error

	// Load returns the diagram stored under id.
	Load(ctx context.Context, id string) (outline.Document, error)

	// Delete removes a diagram. Deleting a missing diagram is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every stored diagram ordered by ID.
	List(ctx context.Context) ([]Entry, error)

	// Close releases the backend's resources.
	Close() error
}

// Entry describes a stored diagram without its nodes.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Nodes     int       `json:"nodes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// record is the stored envelope shared by the backends.
type record struct {
	ID        string           `json:"id" bson:"_id"`
	Title     string           `json:"title" bson:"title"`
	Nodes     int              `json:"nodes" bson:"nodes"`
	UpdatedAt time.Time        `json:"updated_at" bson:"updated_at"`
	Document  outline.Document `json:"document" bson:"document"`
}

func newRecord(id string, doc outline.Document) record {
	return record{
		ID:        id,
		Title:     doc.Title,
		Nodes:     len(doc.Nodes),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Document:  doc,
	}
}

func (r record) entry() Entry {
	return Entry{ID: r.ID, Title: r.Title, Nodes: r.Nodes, UpdatedAt: r.UpdatedAt}
}

func notFound(id string) error {
	return mmerrors.Wrap(mmerrors.ErrCodeNotFound, ErrNotFound, "diagram %q", id)
}

// Config selects and configures a backend for [Open].
type Config struct {
	// Backend is one of "memory", "file", "sqlite", "redis" or "mongo".
	// Empty means "file".
	Backend string
	// Path is the directory (file) or database file (sqlite).
	Path string
	// Addr is the Redis address.
	Addr string
	// URI is the MongoDB connection string.
	URI string
	// Database is the MongoDB database name.
	Database string
	// Prefix namespaces Redis keys and names the Mongo collection.
	Prefix string
}

// Open creates the configured backend, instrumented with the
// observability store hooks.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	backend := cfg.Backend
	switch backend {
	case "memory":
		s = NewMemoryStore()
	case "", "file":
		backend = "file"
		s, err = NewFileStore(cfg.Path)
	case "sqlite":
		s, err = NewSQLiteStore(ctx, cfg.Path)
	case "redis":
		s, err = NewRedisStore(ctx, RedisConfig{Addr: cfg.Addr, Prefix: cfg.Prefix})
	case "mongo":
		s, err = NewMongoStore(ctx, MongoConfig{URI: cfg.URI, Database: cfg.Database, Collection: cfg.Prefix})
	default:
		return nil, mmerrors.New(mmerrors.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return Observed(s, backend), nil
}

// Observed wraps s so that saves and loads are reported to
// [observability.Store] under the given backend name.
func Observed(s Store, backend string) Store {
	return &observed{Store: s, backend: backend}
}

type observed struct {
	Store
	backend string
}

func (o *observed) Save(ctx context.Context, id string, doc outline.Document) error {
	start := time.Now()
	err := o.Store.Save(ctx, id, doc)
	observability.Store().OnSave(ctx, o.backend, len(doc.Nodes), time.Since(start), err)
	return err
}

func (o *observed) Load(ctx context.Context, id string) (outline.Document, error) {
	start := time.Now()
	doc, err := o.Store.Load(ctx, id)
	observability.Store().OnLoad(ctx, o.backend, time.Since(start), err)
	return doc, err
}
