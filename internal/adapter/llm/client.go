package llm

import (
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultRetryDelay = 2 * time.Second
	requestTimeout    = 60 * time.Second
)

// Config describes an OpenAI-compatible chat completions endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	MaxRetries  int
	RetryDelay  time.Duration
}

func newClient(cfg Config) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("chat API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("chat model is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return openai.NewClientWithConfig(clientCfg), nil
}

func retryDelay(cfg Config) time.Duration {
	if cfg.RetryDelay > 0 {
		return cfg.RetryDelay
	}
	return defaultRetryDelay
}

func retryable(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return status == 0 || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
