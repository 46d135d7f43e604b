package embedding

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by embedding and generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client. baseURL is optional and allows
// OpenAI-compatible endpoints. SDK-level retries are disabled: retry policy
// belongs to the callers.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
