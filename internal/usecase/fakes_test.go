package usecase

import (
	"context"

	"ragqa/internal/domain"
)

type fakeAnswerer struct {
	reply  string
	err    error
	calls  int
	system string
	prompt string
}

func (f *fakeAnswerer) Answer(_ context.Context, systemPrompt, prompt string) (string, error) {
	f.calls++
	f.system = systemPrompt
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeAnswerer) ModelName() string { return "fake-chat" }

type fakeDescriber struct {
	caption string
	err     error
	got     string
}

func (f *fakeDescriber) Describe(_ context.Context, image string) (string, error) {
	f.got = image
	return f.caption, f.err
}

type fakeFetcher struct {
	data string
	err  error
	url  string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.url = url
	return f.data, f.err
}

type fakeRetriever struct {
	results []domain.ScoredChunk
	err     error
	k       int
}

func (f *fakeRetriever) TopK(_ []float32, k int) ([]domain.ScoredChunk, error) {
	f.k = k
	return f.results, f.err
}
