package retrieval

import "context"

type embedResult struct {
	vector []float32
	err    error
}

// vectorCache embeds each distinct text once. Failures are cached too so a
// failing embedding service is not called again for the same text.
type vectorCache struct {
	embedder Embedder
	results  map[string]embedResult
}

func newVectorCache(embedder Embedder) *vectorCache {
	return &vectorCache{embedder: embedder, results: make(map[string]embedResult)}
}

func (c *vectorCache) get(ctx context.Context, text string) ([]float32, error) {
	if r, ok := c.results[text]; ok {
		return r.vector, r.err
	}
	vector, err := c.embedder.Embed(ctx, text)
	c.results[text] = embedResult{vector: vector, err: err}
	return vector, err
}
