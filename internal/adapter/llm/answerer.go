package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ragqa/internal/retry"
)

// ChatAnswerer answers a prompt with a single chat completion.
type ChatAnswerer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
}

func NewChatAnswerer(cfg Config) (*ChatAnswerer, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ChatAnswerer{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  retryDelay(cfg),
	}, nil
}

func (a *ChatAnswerer) Answer(ctx context.Context, systemPrompt, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	return complete(ctx, a.client, a.maxRetries, a.retryDelay, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
}

func (a *ChatAnswerer) ModelName() string {
	return a.model
}

// complete runs one chat completion with retries and returns the trimmed
// content of the first choice.
func complete(ctx context.Context, client *openai.Client, maxRetries int, delay time.Duration, req openai.ChatCompletionRequest) (string, error) {
	var content string
	err := retry.Do(ctx, maxRetries, delay, func(ctx context.Context) error {
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			if !retryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no completion choices returned")
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", req.Model, err)
	}
	return content, nil
}
