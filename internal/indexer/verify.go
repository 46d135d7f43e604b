package indexer

import (
	"context"
	"fmt"

	"github.com/bull/careerconnect-rag/internal/storage"
)

// Verification is the post-ingestion health report.
type Verification struct {
	Stats        *storage.IndexStats
	SmokeQuery   string
	SmokeMatches []storage.Match
}

// Verify fetches index statistics and runs the smoke query when one is
// configured. An empty index fails verification.
func (p *Pipeline) Verify(ctx context.Context, categories []string) (*Verification, error) {
	stats, err := p.index.Stats(ctx, categories)
	if err != nil {
		return nil, fmt.Errorf("fetch index stats: %w", err)
	}
	if stats.TotalVectors == 0 {
		return nil, ErrEmptyIndex
	}

	v := &Verification{Stats: stats}
	if p.opts.SmokeQuery == "" {
		return v, nil
	}

	vector, err := p.embedder.Embed(ctx, p.opts.SmokeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed smoke query: %w", err)
	}
	matches, err := p.index.Query(ctx, storage.QueryRequest{
		Vector:          vector,
		TopK:            p.opts.SmokeTopK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("smoke query: %w", err)
	}

	v.SmokeQuery = p.opts.SmokeQuery
	v.SmokeMatches = matches
	p.logger.Info("Smoke query complete", "query", p.opts.SmokeQuery, "matches", len(matches))
	return v, nil
}
