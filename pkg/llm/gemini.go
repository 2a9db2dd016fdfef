package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// GeminiModel is the default Gemini model.
const GeminiModel = "gemini-2.5-flash"

// GeminiClient generates text with Google's Gemini API.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGeminiClient creates a new Gemini client. baseURL may be empty.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string) (client *GeminiClient, err error) {
	if apiKey == "" {
		err = errors.New("gemini API key is required")
		return client, err
	}

	if model == "" {
		model = GeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	var gc *genai.Client
	gc, err = genai.NewClient(ctx, cfg)
	if err != nil {
		err = errors.Wrap(err, "failed to create gemini client")
		return client, err
	}

	client = &GeminiClient{
		client:    gc,
		model:     model,
		maxTokens: DefaultMaxTokens,
	}

	return client, err
}

// Model returns the model name in use.
func (c *GeminiClient) Model() (model string) {
	model = c.model
	return model
}

// Complete sends one system + user exchange and returns the response text.
func (c *GeminiClient) Complete(ctx context.Context, system, user string) (text string, err error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: c.maxTokens,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	var resp *genai.GenerateContentResponse
	resp, err = c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), config)
	if err != nil {
		err = errors.Wrap(err, "gemini request failed")
		return text, err
	}

	text = resp.Text()
	if strings.TrimSpace(text) == "" {
		err = errors.New("no text content in gemini response")
		return text, err
	}

	return text, err
}
