package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/switchboard-ai/switchboard/llm"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LOG_LEVEL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "OPENAI_TIMEOUT_SECONDS",
		"GEMINI_API_KEY", "GEMINI_BASE_URL", "GEMINI_MODEL", "GEMINI_TIMEOUT_SECONDS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("a missing config file is not an error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Providers.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("openai model = %q", cfg.Providers.OpenAI.Model)
	}
	if cfg.Providers.Gemini.BaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("gemini base url = %q", cfg.Providers.Gemini.BaseURL)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	data := []byte(`
log_level: debug
providers:
  openai:
    api_key: sk-from-file
    model: gpt-4o
    max_attempts: 5
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-from-file" || cfg.Providers.OpenAI.Model != "gpt-4o" {
		t.Errorf("openai settings = %+v", cfg.Providers.OpenAI)
	}
	// Fields the file omits keep their defaults.
	if cfg.Providers.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("base url = %q, want default preserved", cfg.Providers.OpenAI.BaseURL)
	}
	if cfg.Providers.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("gemini model = %q, want default preserved", cfg.Providers.Gemini.Model)
	}
	if cfg.Providers.OpenAI.RetryPolicy().MaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Providers.OpenAI.RetryPolicy().MaxAttempts)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	data := []byte("providers:\n  openai:\n    api_key: sk-from-file\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_TIMEOUT_SECONDS", "90")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("api key = %q, env must win over the file", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Providers.OpenAI.Timeout() != 90*time.Second {
		t.Errorf("timeout = %v", cfg.Providers.OpenAI.Timeout())
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("providers: [not: a: map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("a malformed config file must fail loudly")
	}
}

func TestProviderSettings_Derivations(t *testing.T) {
	var s ProviderSettings
	if s.Timeout() != llm.DefaultAttemptTimeout {
		t.Errorf("zero timeout should fall back to the default, got %v", s.Timeout())
	}
	if s.RetryPolicy() != llm.DefaultRetryPolicy {
		t.Errorf("zero settings should yield the default policy, got %+v", s.RetryPolicy())
	}

	s = ProviderSettings{TimeoutSeconds: 10, MaxAttempts: 7}
	if s.Timeout() != 10*time.Second {
		t.Errorf("timeout = %v", s.Timeout())
	}
	policy := s.RetryPolicy()
	if policy.MaxAttempts != 7 || policy.InitialDelay != llm.DefaultRetryPolicy.InitialDelay {
		t.Errorf("policy = %+v", policy)
	}
}

func TestRegistryConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-env")
	t.Setenv("GEMINI_TIMEOUT_SECONDS", "90")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rc := cfg.RegistryConfig()
	if rc.GeminiAPIKey != "g-env" {
		t.Errorf("gemini key = %q", rc.GeminiAPIKey)
	}
	if rc.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("openai model = %q", rc.OpenAIModel)
	}
	// Each backend carries its own timeout into the resolver.
	if rc.OpenAITimeout != 30*time.Second || rc.GeminiTimeout != 90*time.Second {
		t.Errorf("timeouts = %v/%v", rc.OpenAITimeout, rc.GeminiTimeout)
	}

	registry := llm.NewProviderRegistry(rc, []string{llm.ProviderOpenAI, llm.ProviderGemini})
	key, err := registry.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.Provider != llm.ProviderGemini {
		t.Errorf("provider = %q, want the only configured backend", key.Provider)
	}
}

func TestNewProvider(t *testing.T) {
	cfg := Default()
	cfg.Providers.OpenAI.APIKey = "sk"
	cfg.Providers.Gemini.APIKey = "g"

	for _, name := range []string{llm.ProviderOpenAI, llm.ProviderGemini} {
		p, err := NewProvider(name, cfg, testLogger())
		if err != nil {
			t.Fatalf("NewProvider(%s): %v", name, err)
		}
		if !p.IsReady() {
			t.Errorf("%s provider should be ready", name)
		}
		if p.DefaultModel() == "" {
			t.Errorf("%s provider has no default model", name)
		}
	}

	if _, err := NewProvider("unknown", cfg, testLogger()); err == nil {
		t.Error("unknown backend names must be rejected")
	}
}
