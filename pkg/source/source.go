// Package source provides the collaborators a diagram consumes at its
// edges: outline generators that turn source text into an outline
// document, and askers that answer follow-up questions.
//
// # Generators
//
// A [Generator] produces an [outline.Document] from free text.
// [Indented] parses indented bullet lists and markdown headings locally,
// [ReadYAML] decodes a nested YAML outline, and [HTTPGenerator] delegates to
// an external service.
//
// # Askers
//
// An [Asker] supplies the answer to a pending follow-up. Answers may take
// arbitrarily long; the diagram keeps the follow-up pending meanwhile.
// [HTTPAsker] calls an external service with retry and caches answers;
// [StaticAsker] answers from a fixed table and is useful offline and in
// tests.
package source

import (
	"context"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// Generator turns source text into an outline document.
type Generator interface {
	GenerateOutline(ctx context.Context, text string) (outline.Document, error)
}

// Asker answers a follow-up question asked about a node.
type Asker interface {
	Ask(ctx context.Context, nodeID, question string) (string, error)
}

// AskerFunc adapts a function to [Asker].
type AskerFunc func(ctx context.Context, nodeID, question string) (string, error)

// Ask calls f.
func (f AskerFunc) Ask(ctx context.Context, nodeID, question string) (string, error) {
	return f(ctx, nodeID, question)
}

// StaticAsker answers questions from a fixed table keyed by question text.
// Unknown questions get Fallback, or NOT_FOUND when Fallback is empty.
type StaticAsker struct {
	Answers  map[string]string
	Fallback string
}

// Ask implements [Asker].
func (s StaticAsker) Ask(ctx context.Context, _, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a, ok := s.Answers[question]; ok {
		return a, nil
	}
	if s.Fallback != "" {
		return s.Fallback, nil
	}
	return "", mmerrors.New(mmerrors.ErrCodeNotFound, "no answer for %q", question)
}
