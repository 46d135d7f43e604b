package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirSource reads the matching files of a single local directory.
type DirSource struct {
	dir     string
	matcher matcher
}

// NewDirSource creates a source over dir. Empty patterns select DefaultPatterns.
func NewDirSource(dir string, patterns []string) (*DirSource, error) {
	m, err := newMatcher(patterns)
	if err != nil {
		return nil, err
	}
	return &DirSource{dir: dir, matcher: m}, nil
}

// Location returns the directory path.
func (s *DirSource) Location() string { return s.dir }

// Load reads every matching regular file in filename order. Subdirectories are ignored.
func (s *DirSource) Load(ctx context.Context) ([]Document, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		return nil, fmt.Errorf("knowledge base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge base path is not a directory: %s", s.dir)
	}

	// os.ReadDir returns entries sorted by filename.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || !s.matcher.match(entry.Name()) {
			continue
		}

		content, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		docs = append(docs, Document{
			Filename:  entry.Name(),
			Category:  CategoryOf(entry.Name()),
			Content:   string(content),
			SizeBytes: int64(len(content)),
		})
	}
	return docs, nil
}
