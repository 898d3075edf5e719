package llm

import (
	"testing"
	"time"
)

func registryConfig() *ProviderConfig {
	return &ProviderConfig{
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: "https://api.openai.com/v1",
		OpenAIModel:   "gpt-4o-mini",
		OpenAITimeout: 30 * time.Second,
		GeminiBaseURL: "https://generativelanguage.googleapis.com",
		GeminiModel:   "gemini-2.0-flash",
		GeminiTimeout: 30 * time.Second,
	}
}

func TestRegistry_EnabledAndConfigured(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	r := NewProviderRegistry(registryConfig(), []string{ProviderOpenAI, ProviderGemini})

	if !r.IsProviderEnabled(ProviderOpenAI) {
		t.Error("openai should be enabled")
	}
	if r.IsProviderEnabled("anthropic") {
		t.Error("unknown backends are not enabled")
	}
	if !r.IsProviderConfigured(ProviderOpenAI) {
		t.Error("openai has a key and should be configured")
	}
	if r.IsProviderConfigured(ProviderGemini) {
		t.Error("gemini has no key and should not be configured")
	}
}

func TestRegistry_EnvFallbackForCredentials(t *testing.T) {
	cfg := registryConfig()
	cfg.OpenAIAPIKey = ""
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	r := NewProviderRegistry(cfg, []string{ProviderOpenAI})
	if !r.IsProviderConfigured(ProviderOpenAI) {
		t.Error("env credential should count as configured")
	}

	key, err := r.Resolve([]string{ProviderOpenAI})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want the env value", key.APIKey)
	}
}

func TestRegistry_ResolvePreferenceOrder(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := registryConfig()
	cfg.GeminiAPIKey = "g-test"
	r := NewProviderRegistry(cfg, []string{ProviderOpenAI, ProviderGemini})

	// Both configured: preference order decides.
	key, err := r.Resolve([]string{ProviderGemini, ProviderOpenAI})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.Provider != ProviderGemini {
		t.Errorf("provider = %q, want gemini (first preference)", key.Provider)
	}
	if key.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", key.Model)
	}

	// First preference unusable: fall through to the next.
	cfg.GeminiAPIKey = ""
	key, err = r.Resolve([]string{ProviderGemini, ProviderOpenAI})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.Provider != ProviderOpenAI {
		t.Errorf("provider = %q, want openai fallback", key.Provider)
	}
}

func TestRegistry_ResolvePerProviderTimeout(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := registryConfig()
	cfg.GeminiAPIKey = "g-test"
	cfg.OpenAITimeout = 30 * time.Second
	cfg.GeminiTimeout = 90 * time.Second
	r := NewProviderRegistry(cfg, []string{ProviderOpenAI, ProviderGemini})

	key, err := r.Resolve([]string{ProviderOpenAI})
	if err != nil {
		t.Fatalf("Resolve openai: %v", err)
	}
	if key.Timeout != 30*time.Second {
		t.Errorf("openai timeout = %v", key.Timeout)
	}

	key, err = r.Resolve([]string{ProviderGemini})
	if err != nil {
		t.Fatalf("Resolve gemini: %v", err)
	}
	if key.Timeout != 90*time.Second {
		t.Errorf("gemini timeout = %v, want its own setting", key.Timeout)
	}
}

func TestRegistry_ResolveNoneAvailable(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := registryConfig()
	cfg.OpenAIAPIKey = ""
	r := NewProviderRegistry(cfg, []string{ProviderOpenAI})

	if _, err := r.Resolve(nil); err == nil {
		t.Error("expected an error with no configured backend")
	}
}

func TestRegistry_DisabledProviderNotResolved(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := registryConfig()
	cfg.GeminiAPIKey = "g-test"
	r := NewProviderRegistry(cfg, []string{ProviderOpenAI}) // gemini not enabled

	if _, err := r.Resolve([]string{ProviderGemini}); err == nil {
		t.Error("a configured but disabled backend must not resolve")
	}
}
