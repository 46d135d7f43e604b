// Package corpus enumerates the knowledge-base documents fed to ingestion.
// Document order is stable (sorted by filename) because chunk ids are assigned
// in enumeration order.
package corpus

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns selects plain-text and markdown files.
var DefaultPatterns = []string{"*.md", "*.txt"}

// Document is one knowledge-base file. Category is the filename without extension.
type Document struct {
	Filename  string
	Category  string
	Content   string
	SizeBytes int64
}

// Source loads the documents of one corpus location.
type Source interface {
	Load(ctx context.Context) ([]Document, error)
	Location() string
}

// Revisioner is implemented by sources that can name the revision they load.
type Revisioner interface {
	Revision(ctx context.Context) (string, error)
}

// CategoryOf derives the category label from a filename.
func CategoryOf(filename string) string {
	base := path.Base(filename)
	return strings.TrimSuffix(base, path.Ext(base))
}

// matcher reports whether a file name matches any of the doublestar patterns.
type matcher []string

func newMatcher(patterns []string) (matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid corpus pattern %q", p)
		}
	}
	return matcher(patterns), nil
}

func (m matcher) match(name string) bool {
	for _, p := range m {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
