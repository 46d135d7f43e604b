// Package embedding turns text into fixed-dimension vectors with an OpenAI embedding model.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the vector dimension for text-embedding-3-small.
	DefaultDimension = 1536

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second
)

// ErrEmbeddingFailure wraps every transport or model error. No partial result is returned with it.
var ErrEmbeddingFailure = errors.New("embedding failure")

// embeddingsAPI is the slice of the OpenAI SDK the Embedder calls.
type embeddingsAPI interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// Embedder generates one embedding per call. It performs no caching.
// Rate-limit responses (HTTP 429) are retried with exponential backoff;
// every other error fails immediately.
type Embedder struct {
	api       embeddingsAPI
	model     string
	dimension int
	timeout   time.Duration
	backoff   func() backoff.BackOff
}

// NewEmbedder creates an Embedder. Zero values select the defaults.
func NewEmbedder(client *Client, model string, dimension int, timeout time.Duration) *Embedder {
	return newEmbedder(&client.client.Embeddings, model, dimension, timeout)
}

func newEmbedder(api embeddingsAPI, model string, dimension int, timeout time.Duration) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Embedder{
		api:       api,
		model:     model,
		dimension: dimension,
		timeout:   timeout,
		backoff:   rateLimitBackoff,
	}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Dimension returns the configured vector dimension.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		resp, err := e.api.New(callCtx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfString: openai.String(text),
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(errors.New("empty embedding response"))
		}
		if got := len(resp.Data[0].Embedding); got != e.dimension {
			return backoff.Permanent(fmt.Errorf("model returned %d dimensions, expected %d", got, e.dimension))
		}

		vector = toFloat32(resp.Data[0].Embedding)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(e.backoff(), ctx)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	return vector, nil
}

// rateLimitBackoff mirrors the qdrant retry policy: 500ms initial, 10s max interval, 30s total.
func rateLimitBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but the index stores float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
