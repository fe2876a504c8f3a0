package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matzehuels/mindmap/pkg/diagram"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/source"
)

func TestResolveNode(t *testing.T) {
	o := sampleDiagram(t).Outline()
	tests := []struct {
		query string
		want  string
	}{
		{"C1", "C1"},
		{"alp", "C1"},
		{"beta", "C2"},
		{"Root", "R"},
	}
	for _, tt := range tests {
		got, err := resolveNode(o, tt.query)
		if err != nil {
			t.Errorf("resolveNode(%q) error: %v", tt.query, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveNode(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}

	if _, err := resolveNode(o, "zzz"); !mmerrors.Is(err, mmerrors.ErrCodeNodeNotFound) {
		t.Errorf("resolveNode(zzz) error = %v, want NODE_NOT_FOUND", err)
	}
}

func runLoop(t *testing.T, d *diagram.Diagram) *diagram.Loop {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := diagram.NewLoop(d)
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

func TestWaitAnswered(t *testing.T) {
	loop := runLoop(t, sampleDiagram(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := loop.Ask(ctx, "C1", "Why?", source.StaticAsker{Fallback: "Because."})
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	n, err := waitAnswered(ctx, loop, id, nil)
	if err != nil {
		t.Fatalf("waitAnswered() error: %v", err)
	}
	if n.Description != "Because." {
		t.Errorf("answer = %q, want %q", n.Description, "Because.")
	}
}

func TestWaitAnsweredFailure(t *testing.T) {
	loop := runLoop(t, sampleDiagram(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	offline := errors.New("offline")
	failed := make(chan error, 1)
	asker := source.AskerFunc(func(ctx context.Context, id, q string) (string, error) {
		failed <- offline
		return "", offline
	})
	id, err := loop.Ask(ctx, "C1", "Why?", asker)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	if _, err := waitAnswered(ctx, loop, id, failed); !errors.Is(err, offline) {
		t.Errorf("waitAnswered() error = %v, want offline", err)
	}
}

func TestRelayoutDirection(t *testing.T) {
	d := sampleDiagram(t)
	ctx := context.Background()
	if err := relayout(ctx, d, "tb", false); err != nil {
		t.Fatalf("relayout() error: %v", err)
	}
	if got := d.Direction(); got != "TB" {
		t.Errorf("Direction() = %s, want TB", got)
	}
	if err := relayout(ctx, d, "sideways", false); err == nil {
		t.Error("relayout() accepted an unknown direction")
	}
	if p := pendingCount(d.RenderState()); p != 0 {
		t.Errorf("pendingCount() = %d, want 0", p)
	}
}
