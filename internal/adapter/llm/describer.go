package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	describePrompt    = "Describe this image in 1-2 short sentences."
	describeMaxTokens = 100
)

// VisionDescriber captions an image with a vision-capable chat model.
type VisionDescriber struct {
	client     *openai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
}

func NewVisionDescriber(cfg Config) (*VisionDescriber, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &VisionDescriber{
		client:     client,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay(cfg),
	}, nil
}

// Describe accepts a data URL or a bare base64 payload, which is assumed to
// be JPEG.
func (d *VisionDescriber) Describe(ctx context.Context, image string) (string, error) {
	return complete(ctx, d.client, d.maxRetries, d.retryDelay, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: describePrompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: DataURL(image), Detail: openai.ImageURLDetailAuto},
				},
			},
		}},
		MaxTokens: describeMaxTokens,
	})
}
