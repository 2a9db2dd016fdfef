// Package config loads dfx-scorer settings from a YAML file and the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nikogura/dfx-scorer/pkg/llm"
	"github.com/nikogura/dfx-scorer/pkg/recommend"
	"github.com/nikogura/dfx-scorer/pkg/refine"
)

// EnvPrefix prefixes environment overrides, e.g. DFX_PROVIDER.
const EnvPrefix = "DFX"

// Config represents the application configuration.
type Config struct {
	Provider           string        `mapstructure:"provider" yaml:"provider"`
	AnthropicAPIKey    string        `mapstructure:"anthropic_api_key" yaml:"anthropic_api_key,omitempty"`
	GeminiAPIKey       string        `mapstructure:"gemini_api_key" yaml:"gemini_api_key,omitempty"`
	Model              string        `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RefineTimeout      time.Duration `mapstructure:"refine_timeout" yaml:"refine_timeout"`
	ConcernThreshold   float64       `mapstructure:"concern_threshold" yaml:"concern_threshold"`
	MaxRecommendations int           `mapstructure:"max_recommendations" yaml:"max_recommendations"`
	RulesFile          string        `mapstructure:"rules_file" yaml:"rules_file,omitempty"`
	StorePath          string        `mapstructure:"store_path" yaml:"store_path"`
	OutputDir          string        `mapstructure:"output_dir" yaml:"output_dir"`
	Pandoc             PandocConfig  `mapstructure:"pandoc" yaml:"pandoc"`
}

// PandocConfig holds pandoc-related configuration.
type PandocConfig struct {
	Binary    string `mapstructure:"binary" yaml:"binary,omitempty"`
	Template  string `mapstructure:"template" yaml:"template,omitempty"`
	PDFEngine string `mapstructure:"pdf_engine" yaml:"pdf_engine,omitempty"`
}

// DefaultPath returns ~/.dfx-scorer/config.yaml.
func DefaultPath() (path string, err error) {
	var homeDir string
	homeDir, err = os.UserHomeDir()
	if err != nil {
		err = errors.Wrap(err, "failed to get user home directory")
		return path, err
	}
	path = filepath.Join(homeDir, ".dfx-scorer", "config.yaml")
	return path, err
}

func defaultDir() (dir string) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	dir = filepath.Join(homeDir, ".dfx-scorer")
	return dir
}

func setDefaults(v *viper.Viper) {
	dir := defaultDir()
	v.SetDefault("provider", string(llm.ProviderNone))
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("model", "")
	v.SetDefault("base_url", "")
	v.SetDefault("refine_timeout", refine.DefaultTimeout.String())
	v.SetDefault("concern_threshold", recommend.DefaultConcernThreshold)
	v.SetDefault("max_recommendations", recommend.DefaultLimit)
	v.SetDefault("rules_file", "")
	v.SetDefault("store_path", filepath.Join(dir, "history.db"))
	v.SetDefault("output_dir", filepath.Join(dir, "reports"))
	v.SetDefault("pandoc.binary", "pandoc")
	v.SetDefault("pandoc.template", "")
	v.SetDefault("pandoc.pdf_engine", "")
}

// Load reads configuration from file with environment variable overrides. A
// missing file at the default location is not an error: defaults apply.
func Load(configPath string) (cfg Config, err error) {
	explicit := configPath != ""
	path := configPath
	if !explicit {
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		err = v.ReadInConfig()
		if err != nil {
			err = errors.Wrapf(err, "failed to parse config file: %s", path)
			return cfg, err
		}
	case explicit:
		err = errors.Errorf("config file not found: %s (run 'dfx-scorer init' to create)", path)
		return cfg, err
	}

	err = v.Unmarshal(&cfg)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode config: %s", path)
		return cfg, err
	}

	// Conventional provider variables win over the file
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		cfg.AnthropicAPIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.GeminiAPIKey = apiKey
	}

	err = cfg.Validate()
	if err != nil {
		err = errors.Wrap(err, "config validation failed")
		return cfg, err
	}

	return cfg, err
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() (err error) {
	var provider llm.Provider
	provider, err = llm.ParseProvider(c.Provider)
	if err != nil {
		return err
	}
	c.Provider = string(provider)

	switch provider {
	case llm.ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			err = errors.New("anthropic_api_key is required for provider anthropic (set in config or ANTHROPIC_API_KEY env var)")
			return err
		}
	case llm.ProviderGemini:
		if c.GeminiAPIKey == "" {
			err = errors.New("gemini_api_key is required for provider gemini (set in config or GEMINI_API_KEY env var)")
			return err
		}
	}

	if c.ConcernThreshold <= 0 || c.ConcernThreshold > 1 {
		err = errors.Errorf("concern_threshold must be in (0, 1], got %v", c.ConcernThreshold)
		return err
	}

	if c.MaxRecommendations < 1 {
		err = errors.Errorf("max_recommendations must be at least 1, got %d", c.MaxRecommendations)
		return err
	}

	if c.RefineTimeout <= 0 {
		c.RefineTimeout = refine.DefaultTimeout
	}

	if c.RulesFile != "" {
		_, err = os.Stat(c.RulesFile)
		if os.IsNotExist(err) {
			err = errors.Errorf("rules file not found: %s", c.RulesFile)
			return err
		}
		err = nil
	}

	return err
}

// Generator returns the text-generation settings. The offline flag forces provider none.
func (c *Config) Generator(offline bool) (gen llm.GeneratorConfig) {
	gen = llm.GeneratorConfig{
		Provider: llm.Provider(c.Provider),
		Model:    c.Model,
		BaseURL:  c.BaseURL,
	}

	switch gen.Provider {
	case llm.ProviderAnthropic:
		gen.APIKey = c.AnthropicAPIKey
	case llm.ProviderGemini:
		gen.APIKey = c.GeminiAPIKey
	}

	if offline {
		gen.Provider = llm.ProviderNone
	}

	return gen
}

// InitConfig creates a default configuration file.
func InitConfig(configPath string) (err error) {
	path := configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create config directory: %s", dir)
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		err = errors.Errorf("config file already exists: %s", path)
		return err
	}

	base := defaultDir()
	defaultConfig := map[string]interface{}{
		"provider":            string(llm.ProviderAnthropic),
		"anthropic_api_key":   "sk-ant-api03-...",
		"gemini_api_key":      "",
		"model":               llm.ClaudeModel,
		"refine_timeout":      refine.DefaultTimeout.String(),
		"concern_threshold":   recommend.DefaultConcernThreshold,
		"max_recommendations": recommend.DefaultLimit,
		"rules_file":          "",
		"store_path":          filepath.Join(base, "history.db"),
		"output_dir":          filepath.Join(base, "reports"),
		"pandoc": map[string]string{
			"binary":     "pandoc",
			"template":   "",
			"pdf_engine": "",
		},
	}

	var data []byte
	data, err = yaml.Marshal(defaultConfig)
	if err != nil {
		err = errors.Wrap(err, "failed to marshal default config")
		return err
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write config file: %s", path)
		return err
	}

	return err
}
