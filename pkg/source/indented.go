package source

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// Indented parses indented bullet lists and markdown headings into an
// outline without any network access.
//
// Headings nest by depth ("#" above "##"); bullets ("-", "*", "+" or
// "1.") nest by indentation and sit below the nearest heading. A plain
// line following an entry is appended to that entry's description; a
// plain line before any entry becomes an entry itself. The document title
// is Title, or the first root's title when Title is empty.
type Indented struct {
	Title string
	// NewID generates node IDs. Defaults to random UUIDs.
	NewID func() string
}

// tabWidth is the number of columns a leading tab counts for.
const tabWidth = 4

// bulletRank places every list item below all heading depths.
const bulletRank = 100

type frame struct {
	rank int
	node int
}

// GenerateOutline implements [Generator].
func (p Indented) GenerateOutline(ctx context.Context, text string) (outline.Document, error) {
	newID := p.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	doc := outline.Document{Title: p.Title}
	var stack []frame
	last := -1

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if lineNo%256 == 0 {
			if err := ctx.Err(); err != nil {
				return outline.Document{}, err
			}
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		indent, rest := splitIndent(line)
		rank, title, ok := parseEntry(indent, rest)
		if !ok {
			if last >= 0 {
				n := &doc.Nodes[last]
				n.Description = strings.TrimSpace(n.Description + " " + strings.TrimSpace(rest))
				continue
			}
			rank, title = bulletRank+indent, strings.TrimSpace(rest)
		}
		if err := mmerrors.ValidateTitle(title); err != nil {
			return outline.Document{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidInput, err, "line %d", lineNo)
		}

		for len(stack) > 0 && stack[len(stack)-1].rank >= rank {
			stack = stack[:len(stack)-1]
		}
		n := outline.DocNode{ID: newID(), Title: title, Level: len(stack)}
		if len(stack) > 0 {
			parent := doc.Nodes[stack[len(stack)-1].node].ID
			n.ParentID = &parent
		}
		doc.Nodes = append(doc.Nodes, n)
		last = len(doc.Nodes) - 1
		stack = append(stack, frame{rank: rank, node: last})
	}
	if err := scanner.Err(); err != nil {
		return outline.Document{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidInput, err, "read outline")
	}
	if len(doc.Nodes) == 0 {
		return outline.Document{}, mmerrors.New(mmerrors.ErrCodeInvalidInput, "outline has no entries")
	}
	if doc.Title == "" {
		doc.Title = doc.Nodes[0].Title
	}
	return doc, nil
}

// splitIndent returns the indentation width in columns and the remainder.
func splitIndent(line string) (int, string) {
	cols := 0
	for i, r := range line {
		switch r {
		case ' ':
			cols++
		case '\t':
			cols += tabWidth
		default:
			return cols, line[i:]
		}
	}
	return cols, ""
}

// parseEntry recognises headings and list items.
func parseEntry(indent int, s string) (rank int, title string, ok bool) {
	if depth := headingDepth(s); depth > 0 {
		return depth, strings.TrimSpace(s[depth:]), true
	}
	for _, marker := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(s, marker) {
			return bulletRank + indent, strings.TrimSpace(s[len(marker):]), true
		}
	}
	if dot := strings.IndexAny(s, ".)"); dot > 0 && dot+1 < len(s) && s[dot+1] == ' ' {
		if _, err := strconv.Atoi(s[:dot]); err == nil {
			return bulletRank + indent, strings.TrimSpace(s[dot+2:]), true
		}
	}
	return 0, "", false
}

func headingDepth(s string) int {
	depth := 0
	for depth < len(s) && s[depth] == '#' {
		depth++
	}
	if depth == 0 || depth > 6 || depth >= len(s) || s[depth] != ' ' {
		return 0
	}
	return depth
}

var _ Generator = Indented{}
