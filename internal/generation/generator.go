// Package generation calls OpenAI chat completion models.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 90 * time.Second

// ErrEmptyResponse is returned when the model returns no content.
var ErrEmptyResponse = errors.New("model returned no content")

// Request is a single completion request.
type Request struct {
	Model       string
	System      string // optional system message
	Prompt      string
	Temperature float64
	MaxTokens   int  // 0 leaves the model default
	JSON        bool // ask for a JSON object response
}

type completionsAPI interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Generator produces completions. It does not retry; callers own the retry policy.
type Generator struct {
	api     completionsAPI
	timeout time.Duration
}

// NewGenerator creates a generator over the OpenAI client.
func NewGenerator(client *openai.Client, timeout time.Duration) *Generator {
	return newGenerator(&client.Chat.Completions, timeout)
}

func newGenerator(api completionsAPI, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{api: api, timeout: timeout}
}

// Generate returns the text of the first choice.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.api.New(ctx, buildParams(req))
	if err != nil {
		return "", fmt.Errorf("chat completion with %s failed: %w", req.Model, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion with %s: %w", req.Model, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func buildParams(req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(req.Model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		}
	}
	return params
}
