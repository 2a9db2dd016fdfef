package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Provider names a text-generation backend.
type Provider string

// Supported providers.
const (
	ProviderNone      Provider = "none"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// GeneratorConfig selects and configures a TextGenerator.
type GeneratorConfig struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string
}

// ParseProvider normalises a provider name. Empty means none.
func ParseProvider(name string) (provider Provider, err error) {
	switch Provider(strings.ToLower(strings.TrimSpace(name))) {
	case "", ProviderNone:
		provider = ProviderNone
	case ProviderAnthropic, "claude":
		provider = ProviderAnthropic
	case ProviderGemini, "google":
		provider = ProviderGemini
	default:
		err = errors.Errorf("unsupported provider: %s (use anthropic, gemini or none)", name)
	}
	return provider, err
}

// NewTextGenerator builds the configured generator. ProviderNone yields a nil
// generator, which makes refinement use its offline strategy.
func NewTextGenerator(ctx context.Context, cfg GeneratorConfig) (generator TextGenerator, err error) {
	switch cfg.Provider {
	case ProviderNone, "":
		return generator, err
	case ProviderAnthropic:
		var opts []AnthropicOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		var client *AnthropicClient
		client, err = NewAnthropicClient(cfg.APIKey, cfg.Model, opts...)
		if err != nil {
			return generator, err
		}
		generator = client
	case ProviderGemini:
		var client *GeminiClient
		client, err = NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return generator, err
		}
		generator = client
	default:
		err = errors.Errorf("unsupported provider: %s", cfg.Provider)
	}
	return generator, err
}
