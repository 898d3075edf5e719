// Package config loads switchboard's configuration: per-backend credentials,
// endpoints, model lists and timeouts. Values come from built-in defaults,
// an optional YAML file, and environment variable overrides, merged in that
// order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/switchboard-ai/switchboard/llm"
)

// ProviderSettings holds one backend's configuration.
type ProviderSettings struct {
	APIKey         string   `yaml:"api_key,omitempty"`
	BaseURL        string   `yaml:"base_url,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	Models         []string `yaml:"models,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	MaxAttempts    int      `yaml:"max_attempts,omitempty"`
}

// Timeout returns the attempt timeout as a duration.
func (s ProviderSettings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return llm.DefaultAttemptTimeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RetryPolicy derives the backend's retry policy from its settings.
func (s ProviderSettings) RetryPolicy() llm.RetryPolicy {
	policy := llm.DefaultRetryPolicy
	if s.MaxAttempts > 0 {
		policy.MaxAttempts = s.MaxAttempts
	}
	return policy
}

// Config is the root configuration.
type Config struct {
	LogLevel  string `yaml:"log_level,omitempty"`
	LogFile   string `yaml:"log_file,omitempty"`
	Providers struct {
		OpenAI ProviderSettings `yaml:"openai,omitempty"`
		Gemini ProviderSettings `yaml:"gemini,omitempty"`
	} `yaml:"providers,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.Providers.OpenAI = ProviderSettings{
		BaseURL:        "https://api.openai.com/v1",
		Model:          "gpt-4o-mini",
		TimeoutSeconds: 30,
	}
	cfg.Providers.Gemini = ProviderSettings{
		BaseURL:        "https://generativelanguage.googleapis.com",
		Model:          "gemini-2.0-flash",
		TimeoutSeconds: 30,
	}
	return cfg
}

// Load reads the configuration file at path (if it exists), merges it over
// the defaults, and applies environment overrides. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: user-specified config path
		switch {
		case os.IsNotExist(err):
			// Defaults plus env only.
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			if err := mergo.Merge(cfg, &fileCfg, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("failed to merge config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.LogLevel, "LOG_LEVEL")

	overrideString(&cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.Providers.OpenAI.BaseURL, "OPENAI_BASE_URL")
	overrideString(&cfg.Providers.OpenAI.Model, "OPENAI_MODEL")
	overrideInt(&cfg.Providers.OpenAI.TimeoutSeconds, "OPENAI_TIMEOUT_SECONDS")

	overrideString(&cfg.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	overrideString(&cfg.Providers.Gemini.BaseURL, "GEMINI_BASE_URL")
	overrideString(&cfg.Providers.Gemini.Model, "GEMINI_MODEL")
	overrideInt(&cfg.Providers.Gemini.TimeoutSeconds, "GEMINI_TIMEOUT_SECONDS")
}

func overrideString(target *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*target = v
	}
}

func overrideInt(target *int, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// RegistryConfig converts the loaded configuration into the provider
// registry's resolver input.
func (c *Config) RegistryConfig() *llm.ProviderConfig {
	return &llm.ProviderConfig{
		OpenAIAPIKey:  c.Providers.OpenAI.APIKey,
		OpenAIBaseURL: c.Providers.OpenAI.BaseURL,
		OpenAIModel:   c.Providers.OpenAI.Model,
		OpenAIModels:  c.Providers.OpenAI.Models,
		OpenAITimeout: c.Providers.OpenAI.Timeout(),
		GeminiAPIKey:  c.Providers.Gemini.APIKey,
		GeminiBaseURL: c.Providers.Gemini.BaseURL,
		GeminiModel:   c.Providers.Gemini.Model,
		GeminiModels:  c.Providers.Gemini.Models,
		GeminiTimeout: c.Providers.Gemini.Timeout(),
	}
}
