// Package cache stores the results of slow external calls.
//
// The follow-up answer service and the outline generator are remote and
// may take seconds to respond; their results are cached by content-derived
// keys so the same question asked twice is answered instantly. Rendered
// exports served over HTTP are cached the same way.
//
// # Backends
//
//   - [FileCache]: JSON entries under ~/.cache/mindmap (CLI default)
//   - [MemoryCache]: process-local map, used by the HTTP server
//   - [NullCache]: caches nothing (--no-cache)
//
// # Keys
//
// A [Keyer] derives keys. [DefaultKeyer] hashes every input that affects
// the cached value; [ScopedKeyer] prefixes keys for namespace isolation.
//
// # Retries
//
// [Retry] and [RetryWithBackoff] retry transient failures marked with
// [Retryable].
package cache

import (
	"context"
	"time"
)

// Default time-to-live values per cached value type.
const (
	AnswerTTL  = 7 * 24 * time.Hour
	OutlineTTL = 24 * time.Hour
	ExportTTL  = time.Hour
)

// Cache is a byte-oriented key/value cache with expiry.
type Cache interface {
	// Get returns the cached data. hit is false on a miss or an expired entry.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes an entry. Missing entries are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// AnswerKey identifies the answer to a follow-up question asked about
	// node. The same question asked about another node is a different key.
	AnswerKey(endpoint, node, question string) string

	// OutlineKey identifies an outline generated from source text.
	OutlineKey(endpoint, text string) string

	// ExportKey identifies a rendered export of a document.
	ExportKey(docHash string, opts ExportKeyOpts) string
}

// ExportKeyOpts are the export settings that change the rendered bytes.
type ExportKeyOpts struct {
	Format  string  `json:"format"`
	Padding float64 `json:"padding"`
	Scale   float64 `json:"scale"`
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) AnswerKey(endpoint, node, question string) string {
	return hashKey("answer", endpoint, node, question)
}

func (DefaultKeyer) OutlineKey(endpoint, text string) string {
	return hashKey("outline", endpoint, text)
}

func (DefaultKeyer) ExportKey(docHash string, opts ExportKeyOpts) string {
	return hashKey("export", docHash, opts)
}
