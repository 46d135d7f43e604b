package corpus

import (
	"context"
	"fmt"

	"github.com/bull/careerconnect-rag/internal/github"
)

// GitHubSource reads the matching files of a repository directory.
type GitHubSource struct {
	fetcher *github.Fetcher
	matcher matcher
}

// NewGitHubSource creates a source over the fetcher's directory.
func NewGitHubSource(fetcher *github.Fetcher, patterns []string) (*GitHubSource, error) {
	m, err := newMatcher(patterns)
	if err != nil {
		return nil, err
	}
	return &GitHubSource{fetcher: fetcher, matcher: m}, nil
}

// Location returns the repository directory.
func (s *GitHubSource) Location() string { return s.fetcher.Location() }

// Revision returns the latest commit touching the directory.
func (s *GitHubSource) Revision(ctx context.Context) (string, error) {
	return s.fetcher.GetLatestCommitSHA(ctx)
}

// Load fetches every matching file in filename order.
func (s *GitHubSource) Load(ctx context.Context) ([]Document, error) {
	names, err := s.fetcher.ListDocs(ctx, s.matcher.match)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		fetched, err := s.fetcher.FetchDoc(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		docs = append(docs, Document{
			Filename:  fetched.Name,
			Category:  CategoryOf(fetched.Name),
			Content:   fetched.Content,
			SizeBytes: int64(fetched.Size),
		})
	}
	return docs, nil
}
