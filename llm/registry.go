package llm

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ClientKey is the resolved configuration a backend client is built from.
type ClientKey struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Models   []string
	Timeout  time.Duration
}

// ProviderConfig holds per-backend settings for the registry. It mirrors the
// credential/config resolver contract: base URL, API key, model list and
// timeout per backend identifier.
type ProviderConfig struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAIModels  []string
	OpenAITimeout time.Duration
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	GeminiModels  []string
	GeminiTimeout time.Duration
}

// ProviderRegistry manages backend selection and configuration resolution.
// Client construction is left to the caller.
type ProviderRegistry struct {
	mu      sync.RWMutex
	enabled map[string]bool
	config  *ProviderConfig
}

// NewProviderRegistry creates a registry with the given config and enabled
// backend identifiers.
func NewProviderRegistry(config *ProviderConfig, enabledProviders []string) *ProviderRegistry {
	enabled := make(map[string]bool)
	for _, p := range enabledProviders {
		enabled[p] = true
	}
	return &ProviderRegistry{enabled: enabled, config: config}
}

// IsProviderEnabled checks whether a backend is in the enabled set.
func (r *ProviderRegistry) IsProviderEnabled(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[provider]
}

// IsProviderConfigured checks whether a backend has a usable credential.
func (r *ProviderRegistry) IsProviderConfigured(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isConfiguredLocked(provider)
}

// Resolve returns a ClientKey for the first enabled and configured backend
// in preference order. An empty preference list tries all enabled backends.
func (r *ProviderRegistry) Resolve(preferences []string) (*ClientKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := preferences
	if len(candidates) == 0 {
		for p := range r.enabled {
			candidates = append(candidates, p)
		}
	}

	var attempted []string
	for _, provider := range candidates {
		attempted = append(attempted, provider)
		if !r.enabled[provider] || !r.isConfiguredLocked(provider) {
			continue
		}
		key, err := r.resolveLocked(provider)
		if err != nil {
			continue
		}
		return key, nil
	}
	return nil, fmt.Errorf("no available provider from %v", attempted)
}

func (r *ProviderRegistry) isConfiguredLocked(provider string) bool {
	switch provider {
	case ProviderOpenAI:
		return r.openAIAPIKey() != ""
	case ProviderGemini:
		return r.geminiAPIKey() != ""
	default:
		return false
	}
}

func (r *ProviderRegistry) resolveLocked(provider string) (*ClientKey, error) {
	key := &ClientKey{Provider: provider}

	switch provider {
	case ProviderOpenAI:
		key.APIKey = r.openAIAPIKey()
		if key.APIKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		key.BaseURL = r.config.OpenAIBaseURL
		key.Model = r.config.OpenAIModel
		key.Models = r.config.OpenAIModels
		key.Timeout = r.config.OpenAITimeout

	case ProviderGemini:
		key.APIKey = r.geminiAPIKey()
		if key.APIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		key.BaseURL = r.config.GeminiBaseURL
		key.Model = r.config.GeminiModel
		key.Models = r.config.GeminiModels
		key.Timeout = r.config.GeminiTimeout

	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	return key, nil
}

func (r *ProviderRegistry) openAIAPIKey() string {
	if r.config.OpenAIAPIKey != "" {
		return r.config.OpenAIAPIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (r *ProviderRegistry) geminiAPIKey() string {
	if r.config.GeminiAPIKey != "" {
		return r.config.GeminiAPIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}
