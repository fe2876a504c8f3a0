package source

import (
	"context"
	"strings"

	"github.com/matzehuels/mindmap/pkg/cache"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// HTTPAsker answers follow-ups by POSTing to an external service:
//
//	request:  {"node_id": "...", "question": "..."}
//	response: {"answer": "..."}
//
// Transient failures (network errors, 429 and 5xx) are retried with
// exponential backoff. Answers are cached per node and question.
type HTTPAsker struct {
	c *client
}

type askRequest struct {
	NodeID   string `json:"node_id"`
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// NewHTTPAsker creates an asker for endpoint.
func NewHTTPAsker(endpoint string, opts ...ClientOption) *HTTPAsker {
	return &HTTPAsker{c: newClient(endpoint, cache.AnswerTTL, opts)}
}

// Ask implements [Asker].
func (a *HTTPAsker) Ask(ctx context.Context, nodeID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", mmerrors.New(mmerrors.ErrCodeInvalidInput, "question cannot be empty")
	}
	var resp askResponse
	key := a.c.keyer.AnswerKey(a.c.endpoint, nodeID, question)
	err := a.c.cached(ctx, "answer", key, &resp, func() error {
		resp = askResponse{}
		return a.c.post(ctx, askRequest{NodeID: nodeID, Question: question}, &resp)
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return "", mmerrors.New(mmerrors.ErrCodeInvalidFormat, "empty answer for %q", question)
	}
	return resp.Answer, nil
}

// HTTPGenerator generates outlines by POSTing source text to an external
// service:
//
//	request:  {"text": "..."}
//	response: an outline document ({"title": ..., "nodes": [...]})
type HTTPGenerator struct {
	c *client
}

type generateRequest struct {
	Text string `json:"text"`
}

// NewHTTPGenerator creates a generator for endpoint.
func NewHTTPGenerator(endpoint string, opts ...ClientOption) *HTTPGenerator {
	return &HTTPGenerator{c: newClient(endpoint, cache.OutlineTTL, opts)}
}

// GenerateOutline implements [Generator].
func (g *HTTPGenerator) GenerateOutline(ctx context.Context, text string) (outline.Document, error) {
	if strings.TrimSpace(text) == "" {
		return outline.Document{}, mmerrors.New(mmerrors.ErrCodeInvalidInput, "source text cannot be empty")
	}
	var doc outline.Document
	key := g.c.keyer.OutlineKey(g.c.endpoint, text)
	err := g.c.cached(ctx, "outline", key, &doc, func() error {
		doc = outline.Document{}
		return g.c.post(ctx, generateRequest{Text: text}, &doc)
	})
	if err != nil {
		return outline.Document{}, err
	}
	if len(doc.Nodes) == 0 {
		return outline.Document{}, mmerrors.New(mmerrors.ErrCodeInvalidFormat, "generated outline has no nodes")
	}
	return doc, nil
}

var (
	_ Asker     = (*HTTPAsker)(nil)
	_ Generator = (*HTTPGenerator)(nil)
)
