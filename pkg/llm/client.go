package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
)

const (
	// ClaudeModel is the default Anthropic model.
	ClaudeModel = "claude-sonnet-4-20250514"
	// DefaultMaxTokens bounds the length of a completion; refined prompts are short.
	DefaultMaxTokens = 1024
	// DefaultRequestTimeout applies to each request when the caller sets no deadline.
	DefaultRequestTimeout = 60 * time.Second
)

// TextGenerator is the text-generation collaborator used for prompt refinement.
type TextGenerator interface {
	Complete(ctx context.Context, system, user string) (text string, err error)
}

// AnthropicClient generates text with the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicOption configures an AnthropicClient.
type AnthropicOption func(*anthropicSettings)

type anthropicSettings struct {
	baseURL   string
	timeout   time.Duration
	maxTokens int64
}

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(baseURL string) (opt AnthropicOption) {
	opt = func(s *anthropicSettings) {
		s.baseURL = baseURL
	}
	return opt
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(timeout time.Duration) (opt AnthropicOption) {
	opt = func(s *anthropicSettings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
	return opt
}

// WithMaxTokens sets the completion token budget.
func WithMaxTokens(maxTokens int64) (opt AnthropicOption) {
	opt = func(s *anthropicSettings) {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
	}
	return opt
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, model string, opts ...AnthropicOption) (client *AnthropicClient, err error) {
	if apiKey == "" {
		err = errors.New("anthropic API key is required")
		return client, err
	}

	if model == "" {
		model = ClaudeModel
	}

	settings := anthropicSettings{
		timeout:   DefaultRequestTimeout,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	// Retries are left to the caller: refinement falls back instead of waiting.
	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(settings.timeout),
	}
	if settings.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(settings.baseURL))
	}

	client = &AnthropicClient{
		client:    anthropic.NewClient(requestOpts...),
		model:     model,
		maxTokens: settings.maxTokens,
	}

	return client, err
}

// Model returns the model name in use.
func (c *AnthropicClient) Model() (model string) {
	model = c.model
	return model
}

// Complete sends one system + user exchange and returns the concatenated text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, system, user string) (text string, err error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var message *anthropic.Message
	message, err = c.client.Messages.New(ctx, params)
	if err != nil {
		err = errors.Wrap(err, "anthropic request failed")
		return text, err
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text = sb.String()
	if strings.TrimSpace(text) == "" {
		err = errors.New("no text content in anthropic response")
		return text, err
	}

	return text, err
}
