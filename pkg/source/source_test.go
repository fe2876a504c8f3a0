package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/mindmap/pkg/cache"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
}

// shape renders a document as "title@level<parentTitle" lines.
func shape(doc outline.Document) []string {
	titles := map[string]string{}
	for _, n := range doc.Nodes {
		titles[n.ID] = n.Title
	}
	out := make([]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		out[i] = fmt.Sprintf("%s@%d<%s", n.Title, n.Level, titles[n.Parent()])
	}
	return out
}

func TestIndented(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "bullets",
			text: "- Cell\n  - Nucleus\n  - Membrane\n    - Lipids\n",
			want: []string{"Cell@0<", "Nucleus@1<Cell", "Membrane@1<Cell", "Lipids@2<Membrane"},
		},
		{
			name: "headings with bullets",
			text: "# Cell\n## Parts\n- Nucleus\n- Membrane\n## Functions\n* Energy\n",
			want: []string{"Cell@0<", "Parts@1<Cell", "Nucleus@2<Parts", "Membrane@2<Parts", "Functions@1<Cell", "Energy@2<Functions"},
		},
		{
			name: "plain first line and numbered items",
			text: "Cell\n  1. Nucleus\n  2) Membrane\n",
			want: []string{"Cell@0<", "Nucleus@1<Cell", "Membrane@1<Cell"},
		},
		{
			name: "tabs and outdent",
			text: "- A\n\t- B\n\t\t- C\n\t- D\n- E\n",
			want: []string{"A@0<", "B@1<A", "C@2<B", "D@1<A", "E@0<"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Indented{NewID: seqIDs()}.GenerateOutline(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("GenerateOutline() error: %v", err)
			}
			got := shape(doc)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("GenerateOutline() = %v, want %v", got, tt.want)
			}
			if _, err := outline.FromDocument(doc); err != nil {
				t.Errorf("FromDocument() error: %v", err)
			}
		})
	}
}

func TestIndentedDescriptionAndTitle(t *testing.T) {
	text := "# Cell\nThe unit\nof life.\n## Nucleus\n"
	doc, err := Indented{NewID: seqIDs()}.GenerateOutline(context.Background(), text)
	if err != nil {
		t.Fatalf("GenerateOutline() error: %v", err)
	}
	if doc.Title != "Cell" {
		t.Errorf("Title = %q, want %q", doc.Title, "Cell")
	}
	if got := doc.Nodes[0].Description; got != "The unit of life." {
		t.Errorf("Description = %q, want %q", got, "The unit of life.")
	}

	doc, _ = Indented{Title: "Biology", NewID: seqIDs()}.GenerateOutline(context.Background(), text)
	if doc.Title != "Biology" {
		t.Errorf("Title = %q, want %q", doc.Title, "Biology")
	}
}

func TestIndentedEmpty(t *testing.T) {
	_, err := Indented{}.GenerateOutline(context.Background(), "\n   \n")
	if !mmerrors.Is(err, mmerrors.ErrCodeInvalidInput) {
		t.Errorf("GenerateOutline() error = %v, want INVALID_INPUT", err)
	}
}

func TestReadYAML(t *testing.T) {
	text := `
title: Biology
nodes:
  - title: Cell
    id: cell
    description: The unit of life
    children:
      - Nucleus
      - title: Membrane
        children: [Lipids]
`
	doc, err := ReadYAML(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ReadYAML() error: %v", err)
	}
	if doc.Title != "Biology" {
		t.Errorf("Title = %q, want Biology", doc.Title)
	}
	want := []string{"Cell@0<", "Nucleus@1<Cell", "Membrane@1<Cell", "Lipids@2<Membrane"}
	if got := shape(doc); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ReadYAML() = %v, want %v", got, want)
	}
	if doc.Nodes[0].ID != "cell" || doc.Nodes[0].Description != "The unit of life" {
		t.Errorf("root = %+v, want id cell with description", doc.Nodes[0])
	}
}

func TestReadYAMLBareSequence(t *testing.T) {
	doc, err := ReadYAML(strings.NewReader("- Cell\n- title: Virus\n"))
	if err != nil {
		t.Fatalf("ReadYAML() error: %v", err)
	}
	if len(doc.Nodes) != 2 || doc.Title != "Cell" {
		t.Errorf("ReadYAML() = %d nodes titled %q, want 2 titled Cell", len(doc.Nodes), doc.Title)
	}
}

func TestReadYAMLErrors(t *testing.T) {
	for _, text := range []string{"", "title: x\nnodes: []\n", "nodes: {a: [1,"} {
		if _, err := ReadYAML(strings.NewReader(text)); err == nil {
			t.Errorf("ReadYAML(%q) error = nil, want error", text)
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"map.md":   "# Cell\n## Nucleus\n",
		"map.yaml": "- Cell\n",
		"map.json": `{"title":"Cell","nodes":[{"id":"r","title":"Cell","parentId":null,"level":0}]}`,
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		doc, err := ReadFile(context.Background(), path)
		if err != nil {
			t.Errorf("ReadFile(%s) error: %v", name, err)
			continue
		}
		if doc.Nodes[0].Title != "Cell" {
			t.Errorf("ReadFile(%s) root = %q, want Cell", name, doc.Nodes[0].Title)
		}
	}
}

func TestStaticAsker(t *testing.T) {
	a := StaticAsker{Answers: map[string]string{"Why?": "Because."}}
	got, err := a.Ask(context.Background(), "n1", "Why?")
	if err != nil || got != "Because." {
		t.Errorf("Ask() = %q, %v, want Because., nil", got, err)
	}
	if _, err := a.Ask(context.Background(), "n1", "How?"); !mmerrors.Is(err, mmerrors.ErrCodeNotFound) {
		t.Errorf("Ask() unknown error = %v, want NOT_FOUND", err)
	}
	a.Fallback = "No idea."
	if got, _ := a.Ask(context.Background(), "n1", "How?"); got != "No idea." {
		t.Errorf("Ask() fallback = %q, want No idea.", got)
	}
}

func TestHTTPAsker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req askRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(askResponse{Answer: "About " + req.NodeID + ": " + req.Question})
	}))
	defer server.Close()

	a := NewHTTPAsker(server.URL,
		WithHTTPClient(server.Client()),
		WithCache(cache.NewMemoryCache(), time.Hour),
		WithHeaders(map[string]string{"Authorization": "Bearer k"}),
	)
	for range 2 {
		got, err := a.Ask(context.Background(), "n1", " Why? ")
		if err != nil {
			t.Fatalf("Ask() error: %v", err)
		}
		if got != "About n1: Why?" {
			t.Errorf("Ask() = %q, want %q", got, "About n1: Why?")
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1 (second answer cached)", calls.Load())
	}

	if _, err := a.Ask(context.Background(), "n2", "Why?"); err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2 (different node is a different key)", calls.Load())
	}
}

func TestHTTPAskerRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(askResponse{Answer: "ok"})
	}))
	defer server.Close()

	a := NewHTTPAsker(server.URL, WithHTTPClient(server.Client()), WithRetry(3, time.Millisecond))
	got, err := a.Ask(context.Background(), "n1", "Why?")
	if err != nil || got != "ok" {
		t.Errorf("Ask() = %q, %v, want ok, nil", got, err)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3", calls.Load())
	}
}

func TestHTTPAskerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantNet bool
	}{
		{"bad request not retried", http.StatusBadRequest, "nope", false},
		{"server error exhausts retries", http.StatusInternalServerError, "", true},
		{"empty answer", http.StatusOK, `{"answer":"  "}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			a := NewHTTPAsker(server.URL, WithHTTPClient(server.Client()), WithRetry(2, time.Millisecond))
			_, err := a.Ask(context.Background(), "n1", "Why?")
			if err == nil {
				t.Fatal("Ask() error = nil, want error")
			}
			if got := errors.Is(err, cache.ErrNetwork); got != tt.wantNet {
				t.Errorf("errors.Is(err, ErrNetwork) = %v, want %v (err %v)", got, tt.wantNet, err)
			}
		})
	}

	if _, err := NewHTTPAsker("http://unused").Ask(context.Background(), "n1", "  "); !mmerrors.Is(err, mmerrors.ErrCodeInvalidInput) {
		t.Errorf("Ask() blank question error = %v, want INVALID_INPUT", err)
	}
}

func TestHTTPGenerator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		doc, _ := Indented{NewID: seqIDs()}.GenerateOutline(r.Context(), req.Text)
		outline.WriteJSON(w, doc)
	}))
	defer server.Close()

	g := NewHTTPGenerator(server.URL, WithHTTPClient(server.Client()))
	doc, err := g.GenerateOutline(context.Background(), "- Cell\n  - Nucleus\n")
	if err != nil {
		t.Fatalf("GenerateOutline() error: %v", err)
	}
	want := []string{"Cell@0<", "Nucleus@1<Cell"}
	if got := shape(doc); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("GenerateOutline() = %v, want %v", got, want)
	}

	if _, err := g.GenerateOutline(context.Background(), " "); !mmerrors.Is(err, mmerrors.ErrCodeInvalidInput) {
		t.Errorf("GenerateOutline() blank error = %v, want INVALID_INPUT", err)
	}
}
