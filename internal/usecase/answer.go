package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ragqa/internal/adapter/llm"
	"ragqa/internal/domain"
	"ragqa/internal/logging"
	"ragqa/internal/port"
)

// AnswerUseCase turns a question into a grounded answer: embed, retrieve,
// prompt, answer.
type AnswerUseCase struct {
	embedder     port.Embedder
	retriever    port.Retriever
	answerer     port.Answerer
	describer    port.Describer
	fetcher      port.ImageFetcher
	topK         int
	systemPrompt string
}

// NewAnswerUseCase creates an answer use case. describer and fetcher may be
// nil, in which case questions with images are rejected.
func NewAnswerUseCase(
	embedder port.Embedder,
	retriever port.Retriever,
	answerer port.Answerer,
	describer port.Describer,
	fetcher port.ImageFetcher,
	topK int,
	systemPrompt string,
) *AnswerUseCase {
	return &AnswerUseCase{
		embedder:     embedder,
		retriever:    retriever,
		answerer:     answerer,
		describer:    describer,
		fetcher:      fetcher,
		topK:         topK,
		systemPrompt: systemPrompt,
	}
}

// Retrieve embeds text and returns the k best chunks. Failures to score the
// corpus, and empty results, wrap domain.ErrRetrievalUnavailable.
func (u *AnswerUseCase) Retrieve(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	vectors, err := u.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one question", len(vectors))
	}

	results, err := u.retriever.TopK(vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no chunks matched", domain.ErrRetrievalUnavailable)
	}

	logging.FromContext(ctx).Debug("retrieved chunks",
		"k", k,
		"returned", len(results),
		"best_score", results[0].Score,
	)
	return results, nil
}

// Answer answers q from the top chunks of the corpus. An image, if present,
// is captioned and the caption appended to the question on its own line.
func (u *AnswerUseCase) Answer(ctx context.Context, q domain.Question) (*domain.Answer, error) {
	question := strings.TrimSpace(q.Text)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	if strings.TrimSpace(q.Image) != "" {
		caption, err := u.describe(ctx, q.Image)
		if err != nil {
			return nil, err
		}
		question = question + "\n" + caption
	}

	results, err := u.Retrieve(ctx, question, u.topK)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(results))
	links := make([]domain.Link, len(results))
	for i, r := range results {
		contents[i] = r.Chunk.Content
		links[i] = domain.Link{Text: r.Chunk.Title, URL: r.Chunk.URL}
	}

	prompt, err := BuildPrompt(question, contents)
	if err != nil {
		return nil, err
	}

	text, err := u.answerer.Answer(ctx, u.systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &domain.Answer{
		Answer: text,
		Links:  links,
		Chunks: results,
	}, nil
}

func (u *AnswerUseCase) describe(ctx context.Context, image string) (string, error) {
	if u.describer == nil {
		return "", errors.New("image questions are not supported without an image describer")
	}

	image = strings.TrimSpace(image)
	if llm.IsRemote(image) {
		if u.fetcher == nil {
			return "", errors.New("image URLs are not supported without an image fetcher")
		}
		data, err := u.fetcher.Fetch(ctx, image)
		if err != nil {
			return "", fmt.Errorf("failed to fetch image: %w", err)
		}
		image = data
	}

	caption, err := u.describer.Describe(ctx, image)
	if err != nil {
		return "", fmt.Errorf("failed to describe image: %w", err)
	}
	logging.FromContext(ctx).Debug("image captioned", "caption", caption)
	return caption, nil
}
