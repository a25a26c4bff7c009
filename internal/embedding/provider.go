package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderHash   = "hash"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string
	Model      string
	Dimensions int
	APIKey     string
	URL        string
}

// ProviderName returns the normalized provider, defaulting to the local hash model.
func (c Config) ProviderName() string {
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == "" {
		return ProviderHash
	}
	return provider
}

// NewLoader returns a Loader for the configured provider. Unknown providers are
// rejected here rather than on first use.
func NewLoader(cfg Config, logger *zap.Logger) (Loader, error) {
	switch cfg.ProviderName() {
	case ProviderHash:
		return func(context.Context) (Embedder, error) {
			return NewHashModel(cfg.Dimensions), nil
		}, nil
	case ProviderGemini:
		return func(ctx context.Context) (Embedder, error) {
			return NewGemini(ctx, cfg.APIKey, cfg.Model)
		}, nil
	case ProviderOllama:
		return func(context.Context) (Embedder, error) {
			return NewOllama(cfg.URL, cfg.Model, logger), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
