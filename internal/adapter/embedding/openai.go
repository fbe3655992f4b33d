package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"ragqa/internal/retry"
)

const (
	defaultBatchSize  = 100
	defaultRetryDelay = 2 * time.Second
	requestTimeout    = 60 * time.Second
)

// Config describes an OpenAI-compatible embeddings endpoint. APIKey is the
// resolved secret, never an environment variable name.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Dimension         int
	BatchSize         int
	RequestsPerSecond float64 // <= 0 disables the limiter
	MaxRetries        int
	RetryDelay        time.Duration
}

// OpenAIEmbedder calls the /embeddings endpoint in batches, paced by a
// token bucket and retried with backoff on transient failures.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimension  int
	batchSize  int
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: requestTimeout}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		batchSize:  batchSize,
		limiter:    limiter,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
	}, nil
}

// Embed returns one vector per text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		batch, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", i, end-1, err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := retry.Do(ctx, e.maxRetries, e.retryDelay, func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if !retryable(err) {
				return retry.Permanent(err)
			}
			return err
		}

		vectors := make([][]float32, len(texts))
		for _, data := range resp.Data {
			if data.Index < 0 || data.Index >= len(vectors) {
				return retry.Permanent(fmt.Errorf("response index %d out of range", data.Index))
			}
			if len(data.Embedding) != e.dimension {
				return retry.Permanent(fmt.Errorf("model returned width %d, configured dimension is %d", len(data.Embedding), e.dimension))
			}
			vectors[data.Index] = data.Embedding
		}
		for i, v := range vectors {
			if v == nil {
				return fmt.Errorf("no embedding returned for input %d", i)
			}
		}
		out = vectors
		return nil
	})
	return out, err
}

// retryable reports whether an API failure is worth another attempt:
// rate limiting, server errors and transport failures are.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
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

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
