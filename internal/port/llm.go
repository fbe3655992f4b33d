package port

import "context"

// Answerer is the language model that answers a templated prompt.
type Answerer interface {
	// Answer returns the model's reply to prompt under the given system prompt.
	Answer(ctx context.Context, systemPrompt, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// Describer captions an image so it can be folded into a text question.
type Describer interface {
	// Describe accepts a data URL or bare base64 image payload.
	Describe(ctx context.Context, image string) (string, error)
}

// ImageFetcher downloads a remote image as a data URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
