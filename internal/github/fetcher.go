package github

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/go-github/v81/github"
)

// FetchedDoc is a knowledge-base file fetched from GitHub.
type FetchedDoc struct {
	Name    string // file name, e.g. "resume_best_practices.md"
	Content string
	Size    int
	SHA     string // file's Git blob SHA
}

// Fetcher reads knowledge-base files from one directory of a repository.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
	ref      string
}

// NewFetcher creates a new document fetcher. An empty ref means the default branch.
func NewFetcher(client *Client, owner, repo, basePath, ref string) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: strings.Trim(basePath, "/"),
		ref:      ref,
	}
}

// ParseLocation splits "owner/repo/path/to/dir" into its parts.
func ParseLocation(location string) (owner, repo, basePath string, err error) {
	parts := strings.SplitN(strings.Trim(location, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid GitHub location %q, expected owner/repo[/path]", location)
	}
	if len(parts) == 3 {
		basePath = parts[2]
	}
	return parts[0], parts[1], basePath, nil
}

// Location describes the fetched directory.
func (f *Fetcher) Location() string {
	return fmt.Sprintf("github.com/%s/%s/%s", f.owner, f.repo, f.basePath)
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// ListDocs lists the file names in the directory accepted by match, sorted by name.
// Subdirectories are not traversed: the knowledge base is a flat directory.
func (f *Fetcher) ListDocs(ctx context.Context, match func(name string) bool) ([]string, error) {
	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, f.basePath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", f.basePath, err)
	}

	var names []string
	for _, item := range dirContents {
		if item.GetType() != "file" || item.GetName() == "" {
			continue
		}
		if match(item.GetName()) {
			names = append(names, item.GetName())
		}
	}
	sort.Strings(names)
	return names, nil
}

// FetchDoc fetches the content of one file in the directory.
func (f *Fetcher) FetchDoc(ctx context.Context, name string) (*FetchedDoc, error) {
	fullPath := path.Join(f.basePath, name)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	return &FetchedDoc{
		Name:    name,
		Content: content,
		Size:    len(content),
		SHA:     fileContent.GetSHA(),
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the directory.
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, &github.CommitsListOptions{
		SHA:         f.ref,
		Path:        f.basePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}
	return commits[0].GetSHA(), nil
}
