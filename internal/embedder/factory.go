package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
}

// New creates an embedder from explicit configuration.
func New(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Dimension), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey)
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. DOCCHAT_EMBEDDING_PROVIDER (ollama, openai, local)
//  2. OPENAI_API_KEY present -> openai
//  3. local fallback
func NewFromEnv(dimension int) (Embedder, error) {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return New(Config{
			Provider:  provider,
			Model:     os.Getenv(EnvModel),
			APIKey:    os.Getenv(EnvOpenAIAPIKey),
			BaseURL:   os.Getenv(EnvOllamaBaseURL),
			Dimension: dimension,
		})
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return NewOpenAIProvider("")
	}

	return NewLocalProvider(dimension), nil
}

// DetectProvider returns the provider NewFromEnv would select.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
