package embedding

import (
	"fmt"
	"os"

	"ragqa/config"
	"ragqa/internal/port"
)

// New builds the embedder named by cfg.Provider. The API key is resolved
// from cfg.APIKeyEnv here and nowhere else.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "mock":
		if cfg.Dimension <= 0 {
			return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
		}
		return NewMockEmbedder(cfg.Dimension), nil
	case "", "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
		}
		return NewOpenAIEmbedder(Config{
			APIKey:            apiKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Dimension:         cfg.Dimension,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
