package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// yamlOutline is the nested YAML form:
//
//	title: Cells
//	nodes:
//	  - title: Cell
//	    description: The unit of life
//	    children:
//	      - Nucleus
//	      - title: Membrane
//
// A bare top-level sequence is accepted too. Scalars are shorthand for a
// node with only a title.
type yamlOutline struct {
	Title string     `yaml:"title"`
	Nodes []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Children    []yamlNode `yaml:"children"`
}

func (n *yamlNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		n.Title = value.Value
		return nil
	}
	type plain yamlNode
	return value.Decode((*plain)(n))
}

func (o *yamlOutline) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		return value.Decode(&o.Nodes)
	}
	type plain yamlOutline
	return value.Decode((*plain)(o))
}

// ReadYAML decodes a nested YAML outline. Nodes without an id get a random
// UUID.
func ReadYAML(r io.Reader) (outline.Document, error) {
	var y yamlOutline
	if err := yaml.NewDecoder(r).Decode(&y); err != nil {
		if err == io.EOF {
			return outline.Document{}, mmerrors.New(mmerrors.ErrCodeInvalidInput, "outline has no entries")
		}
		return outline.Document{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "decode yaml outline")
	}
	if len(y.Nodes) == 0 {
		return outline.Document{}, mmerrors.New(mmerrors.ErrCodeInvalidInput, "outline has no entries")
	}

	doc := outline.Document{Title: y.Title}
	var walk func(nodes []yamlNode, parent *string, level int) error
	walk = func(nodes []yamlNode, parent *string, level int) error {
		for _, n := range nodes {
			if err := mmerrors.ValidateTitle(n.Title); err != nil {
				return fmt.Errorf("node %q: %w", n.Title, err)
			}
			id := n.ID
			if id == "" {
				id = uuid.NewString()
			}
			doc.Nodes = append(doc.Nodes, outline.DocNode{
				ID:          id,
				Title:       n.Title,
				Description: strings.TrimSpace(n.Description),
				ParentID:    parent,
				Level:       level,
			})
			if err := walk(n.Children, &id, level+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(y.Nodes, nil, 0); err != nil {
		return outline.Document{}, err
	}
	if doc.Title == "" {
		doc.Title = doc.Nodes[0].Title
	}
	return doc, nil
}

// YAML is a [Generator] reading the nested YAML form.
type YAML struct{}

// GenerateOutline implements [Generator].
func (YAML) GenerateOutline(ctx context.Context, text string) (outline.Document, error) {
	return ReadYAML(strings.NewReader(text))
}

var _ Generator = YAML{}
