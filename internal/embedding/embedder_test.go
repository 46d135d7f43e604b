package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingsAPI struct {
	calls     int
	errs      []error // returned in order before succeeding
	dimension int
	lastInput string
	lastModel string
}

func (f *fakeEmbeddingsAPI) New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	f.calls++
	f.lastInput = body.Input.OfString.Value
	f.lastModel = string(body.Model)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	vec := make([]float64, f.dimension)
	for i := range vec {
		vec[i] = float64(i) / 10
	}
	return &openai.CreateEmbeddingResponse{
		Data: []openai.Embedding{{Embedding: vec}},
	}, nil
}

func apiError(status int) error {
	return &openai.Error{
		StatusCode: status,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/embeddings", nil),
		Response:   &http.Response{StatusCode: status},
	}
}

func fastBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func TestEmbed_Success(t *testing.T) {
	api := &fakeEmbeddingsAPI{dimension: 4}
	e := newEmbedder(api, "", 4, 0)

	vec, err := e.Embed(context.Background(), "resume best practices")
	require.NoError(t, err)

	assert.Equal(t, []float32{0, 0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 1, api.calls, "exactly one outbound call per Embed")
	assert.Equal(t, "resume best practices", api.lastInput)
	assert.Equal(t, DefaultModel, api.lastModel)
	assert.Equal(t, DefaultModel, e.Model())
	assert.Equal(t, 4, e.Dimension())
}

func TestEmbed_PermanentErrorIsNotRetried(t *testing.T) {
	api := &fakeEmbeddingsAPI{dimension: 4, errs: []error{apiError(http.StatusUnauthorized)}}
	e := newEmbedder(api, "", 4, 0)
	e.backoff = fastBackoff

	vec, err := e.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.Nil(t, vec)
	assert.Equal(t, 1, api.calls)
}

func TestEmbed_RateLimitIsRetried(t *testing.T) {
	api := &fakeEmbeddingsAPI{dimension: 4, errs: []error{apiError(429), apiError(429)}}
	e := newEmbedder(api, "", 4, 0)
	e.backoff = fastBackoff

	vec, err := e.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 3, api.calls)
}

func TestEmbed_RateLimitExhausted(t *testing.T) {
	api := &fakeEmbeddingsAPI{dimension: 4, errs: []error{apiError(429), apiError(429), apiError(429), apiError(429), apiError(429)}}
	e := newEmbedder(api, "", 4, 0)
	e.backoff = fastBackoff

	_, err := e.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.Equal(t, 4, api.calls)
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	api := &fakeEmbeddingsAPI{dimension: 3}
	e := newEmbedder(api, "", 4, 0)

	_, err := e.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.Contains(t, err.Error(), "3 dimensions")
}

func TestEmbed_TransportError(t *testing.T) {
	api := &fakeEmbeddingsAPI{dimension: 4, errs: []error{errors.New("connection reset")}}
	e := newEmbedder(api, "", 4, 0)

	_, err := e.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{1.5, -2, 0}, toFloat32([]float64{1.5, -2, 0}))
	assert.Empty(t, toFloat32(nil))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", "")
	assert.Error(t, err)

	c, err := NewClient("sk-test", "http://localhost:8000/v1")
	require.NoError(t, err)
	assert.NotNil(t, c.Client())
}
