package cache

// ScopedKeyer wraps a Keyer with a prefix, so several diagrams or users
// can share one cache without colliding.
//
// Example usage:
//
//	// Keys for one served diagram
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "diagram:biology:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// AnswerKey generates a prefixed key for follow-up answers.
func (k *ScopedKeyer) AnswerKey(endpoint, node, question string) string {
	return k.prefix + k.inner.AnswerKey(endpoint, node, question)
}

// OutlineKey generates a prefixed key for generated outlines.
func (k *ScopedKeyer) OutlineKey(endpoint, text string) string {
	return k.prefix + k.inner.OutlineKey(endpoint, text)
}

// ExportKey generates a prefixed key for rendered exports.
func (k *ScopedKeyer) ExportKey(docHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(docHash, opts)
}
