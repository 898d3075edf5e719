package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/switchboard-ai/switchboard/llm"
	"github.com/switchboard-ai/switchboard/llm/gemini"
	"github.com/switchboard-ai/switchboard/llm/openai"
)

// NewOpenAIClient builds the single-JSON-turn family client from config.
func NewOpenAIClient(cfg *Config, logger zerolog.Logger) *openai.Client {
	s := cfg.Providers.OpenAI
	policy := s.RetryPolicy()
	return openai.NewClient(openai.Config{
		APIKey:      s.APIKey,
		BaseURL:     s.BaseURL,
		Model:       s.Model,
		Models:      s.Models,
		Timeout:     s.Timeout(),
		RetryPolicy: &policy,
	}, logger)
}

// NewGeminiClient builds the structured multi-part family client from config.
func NewGeminiClient(cfg *Config, logger zerolog.Logger) *gemini.Client {
	s := cfg.Providers.Gemini
	policy := s.RetryPolicy()
	return gemini.NewClient(gemini.Config{
		APIKey:      s.APIKey,
		BaseURL:     s.BaseURL,
		Model:       s.Model,
		Models:      s.Models,
		Timeout:     s.Timeout(),
		RetryPolicy: &policy,
	}, logger)
}

// NewProvider builds the provider identified by name.
func NewProvider(name string, cfg *Config, logger zerolog.Logger) (llm.Provider, error) {
	switch name {
	case llm.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger), nil
	case llm.ProviderGemini:
		return NewGeminiClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
