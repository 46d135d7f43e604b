// Package markdown extracts the heading outline of knowledge-base documents so
// chunks can be labeled with the section they start in.
package markdown

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// MaxDepth is the deepest heading level that opens a new section.
const MaxDepth = 3

// Section is a heading of a document and the byte offset where its heading line starts.
type Section struct {
	HeaderPath string // Hierarchy: "# Resume Basics > ## Formatting"
	Level      int
	Offset     int
}

// Outliner parses markdown with goldmark and walks its table of contents.
type Outliner struct {
	parser goldmark.Markdown
}

// NewOutliner creates an Outliner. Auto heading IDs are required by toc.Inspect.
func NewOutliner() *Outliner {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Outliner{parser: md}
}

// Outline returns the H1..H3 sections of source in document order.
// A document without headings has an empty outline.
func (o *Outliner) Outline(source []byte) ([]Section, error) {
	doc := o.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(MaxDepth),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var sections []Section
	collectSections(doc, source, tree.Items, nil, &sections)

	// Duplicate or setext headings can be visited out of order; offsets are authoritative.
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Offset < sections[j].Offset
	})
	return sections, nil
}

// SectionAt returns the header path of the section containing byte offset.
// Offsets before the first heading belong to no section.
func SectionAt(sections []Section, offset int) string {
	i := sort.Search(len(sections), func(i int) bool {
		return sections[i].Offset > offset
	})
	if i == 0 {
		return ""
	}
	return sections[i-1].HeaderPath
}

func collectSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, sections *[]Section) {
	for _, item := range items {
		node := findHeaderByID(doc, string(item.ID))
		if node == nil {
			// Compacted placeholder: descend without adding a path segment.
			collectSections(doc, source, item.Items, ancestors, sections)
			continue
		}
		heading := node.(*ast.Heading)

		path := append(append([]string(nil), ancestors...),
			fmt.Sprintf("%s %s", strings.Repeat("#", heading.Level), item.Title))

		*sections = append(*sections, Section{
			HeaderPath: strings.Join(path, " > "),
			Level:      heading.Level,
			Offset:     headingOffset(source, heading),
		})

		if len(item.Items) > 0 {
			collectSections(doc, source, item.Items, path, sections)
		}
	}
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	if id == "" {
		return nil
	}
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok {
				if b, isBytes := headingID.([]byte); isBytes && string(b) == id {
					found = n
					return ast.WalkStop, nil
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// headingOffset returns the start of the line holding the heading text,
// so that the "## " marker belongs to the section it opens.
func headingOffset(source []byte, heading *ast.Heading) int {
	if heading.Lines().Len() == 0 {
		return 0
	}
	start := heading.Lines().At(0).Start
	if nl := bytes.LastIndexByte(source[:start], '\n'); nl >= 0 {
		return nl + 1
	}
	return 0
}
