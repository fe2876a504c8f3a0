package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/store"
)

func TestCompleteFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"p", []string{"png", "pdf"}},
		{"png,s", []string{"png,svg"}},
		{"png,", []string{"png,pdf", "png,svg", "png,json", "png,txt", "png,dot"}},
		{"gif", nil},
	}
	for _, tt := range tests {
		got, dir := completeFormats(nil, nil, tt.in)
		if !slices.Equal(got, tt.want) {
			t.Errorf("completeFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if dir&cobra.ShellCompDirectiveNoFileComp == 0 {
			t.Errorf("completeFormats(%q) directive = %v, want no file completion", tt.in, dir)
		}
	}
}

func TestCompleteStoredInputs(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	doc := sampleDiagram(t).Document()
	for _, id := range []string{"biology", "bikes", "chemistry"} {
		if err := s.Save(context.Background(), id, doc); err != nil {
			t.Fatal(err)
		}
	}

	c := New(io.Discard, LogInfo)
	c.configPath = writeTemp(t, "config.toml", fmt.Sprintf("[store]\nbackend = \"file\"\npath = %q\n", dir))
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	got, _ := c.completeInput(cmd, nil, "store:bi")
	want := []string{"store:biology\t" + doc.Title, "store:bikes\t" + doc.Title}
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("completeInput(store:bi) = %q, want %q", got, want)
	}

	if got, _ := c.completeInput(cmd, nil, "sto"); !slices.Equal(got, []string{storePrefix}) {
		t.Errorf("completeInput(sto) = %q, want [store:]", got)
	}
	if got, dir := c.completeInput(cmd, nil, "notes.md"); got != nil || dir != cobra.ShellCompDirectiveDefault {
		t.Errorf("completeInput(notes.md) = %q, %v, want file completion", got, dir)
	}
	if got, _ := c.completeStoredID(cmd, nil, "chem"); len(got) != 1 {
		t.Errorf("completeStoredID(chem) = %q, want one match", got)
	}
}

func TestRegisterCompletions(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	for _, path := range [][]string{{"export"}, {"view"}, {"store", "delete"}} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Fatalf("Find(%v) error: %v", path, err)
		}
		if cmd.ValidArgsFunction == nil {
			t.Errorf("%v has no argument completion", path)
		}
	}
	exportCmd, _, _ := root.Find([]string{"export"})
	if _, ok := exportCmd.GetFlagCompletionFunc("format"); !ok {
		t.Error("export --format has no completion")
	}
}
