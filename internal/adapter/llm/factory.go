package llm

import (
	"fmt"
	"os"

	"ragqa/config"
)

func fromConfig(cfg config.AnswerConfig, model string) (Config, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return Config{}, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}
	return Config{
		APIKey:      apiKey,
		BaseURL:     cfg.BaseURL,
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
	}, nil
}

// NewAnswererFromConfig builds the answering client.
func NewAnswererFromConfig(cfg config.AnswerConfig) (*ChatAnswerer, error) {
	c, err := fromConfig(cfg, cfg.Model)
	if err != nil {
		return nil, err
	}
	return NewChatAnswerer(c)
}

// NewDescriberFromConfig builds the image captioning client on the vision
// model, falling back to the answering model.
func NewDescriberFromConfig(cfg config.AnswerConfig) (*VisionDescriber, error) {
	model := cfg.VisionModel
	if model == "" {
		model = cfg.Model
	}
	c, err := fromConfig(cfg, model)
	if err != nil {
		return nil, err
	}
	return NewVisionDescriber(c)
}
