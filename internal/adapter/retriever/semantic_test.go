package retriever

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"ragqa/internal/adapter/store"
	"ragqa/internal/domain"
)

func newCorpus(t testing.TB, vectors ...[]float32) *store.Corpus {
	t.Helper()
	chunks := make([]domain.Chunk, len(vectors))
	for i, v := range vectors {
		chunks[i] = domain.Chunk{
			Content:   fmt.Sprintf("chunk %d", i),
			Title:     fmt.Sprintf("title %d", i),
			URL:       fmt.Sprintf("https://example.com/%d", i),
			Embedding: v,
		}
	}
	c, err := store.NewCorpus(chunks)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func randomCorpus(t testing.TB, n, dim int, seed int64) *store.Corpus {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = make([]float32, dim)
		for j := range vectors[i] {
			vectors[i][j] = float32(rng.NormFloat64())
		}
	}
	return newCorpus(t, vectors...)
}

func TestTopKScenario(t *testing.T) {
	r := NewSemanticRetriever(newCorpus(t,
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{0.9, 0.1},
	), 0)

	results, err := r.TopK([]float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 0 || results[1].Index != 2 {
		t.Errorf("expected ranking [0 2], got %v", Indices(results))
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0 for chunk 0, got %f", results[0].Score)
	}
	if math.Abs(results[1].Score-0.9939) > 1e-3 {
		t.Errorf("expected score ~0.994 for chunk 2, got %f", results[1].Score)
	}
	if results[0].Chunk.Title != "title 0" || results[1].Chunk.URL != "https://example.com/2" {
		t.Errorf("results carry wrong chunk data: %+v", results)
	}
}

func TestTopKDimensionMismatch(t *testing.T) {
	r := NewSemanticRetriever(newCorpus(t, []float32{1, 0}, []float32{0, 1}), 0)

	results, err := r.TopK([]float32{1, 0, 0}, 1)
	if results != nil {
		t.Errorf("expected no results, got %v", results)
	}
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected *domain.DimensionMismatchError, got %T: %v", err, err)
	}
	if dimErr.Expected != 2 || dimErr.Got != 3 {
		t.Errorf("unexpected error fields: %+v", dimErr)
	}
}

func TestTopKBeyondCorpusSize(t *testing.T) {
	r := NewSemanticRetriever(newCorpus(t, []float32{1, 0}, []float32{0, 1}, []float32{1, 1}), 0)

	results, err := r.TopK([]float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("expected all 3 chunks when k exceeds corpus size, got %d", len(results))
	}
}

func TestTopKNonPositiveK(t *testing.T) {
	r := NewSemanticRetriever(newCorpus(t, []float32{1, 0}), 0)

	results, err := r.TopK([]float32{1, 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for k=0, got %d", len(results))
	}
}

func TestTopKTiesKeepCorpusOrder(t *testing.T) {
	r := NewSemanticRetriever(newCorpus(t,
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{2, 0},
		[]float32{1, 0},
	), 0)

	results, err := r.TopK([]float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 3, 4, 0, 2}
	got := Indices(results)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestTopKZeroVectors(t *testing.T) {
	r := NewSemanticRetriever(newCorpus(t, []float32{0, 0}, []float32{1, 0}), 0)

	results, err := r.TopK([]float32{0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if res.Score != 0 {
			t.Errorf("expected zero similarity for zero query, got %f", res.Score)
		}
	}
	if Indices(results)[0] != 0 {
		t.Errorf("expected ties to fall back to corpus order, got %v", Indices(results))
	}

	results, err = r.TopK([]float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Index != 1 || results[1].Score != 0 {
		t.Errorf("unexpected ranking for zero corpus vector: %+v", results)
	}
}

func TestTopKSelfSimilarity(t *testing.T) {
	corpus := randomCorpus(t, 200, 16, 7)
	r := NewSemanticRetriever(corpus, 0)

	for i := 0; i < corpus.Len(); i++ {
		results, err := r.TopK(corpus.Vector(i), 1)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].Index != i {
			t.Fatalf("vector %d: expected itself first, got %d", i, results[0].Index)
		}
		if math.Abs(results[0].Score-1) > 1e-9 {
			t.Errorf("vector %d: self similarity %f", i, results[0].Score)
		}
	}
}

func TestTopKDeterministic(t *testing.T) {
	corpus := randomCorpus(t, 500, 8, 42)
	r := NewSemanticRetriever(corpus, 0)
	query := []float32{0.3, -0.2, 0.9, 0, 0.1, -0.5, 0.7, 0.2}

	first, err := r.TopK(query, 25)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.TopK(query, 25)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i].Index != second[i].Index || first[i].Score != second[i].Score {
			t.Fatalf("rank %d differs between calls: %+v vs %+v", i, first[i], second[i])
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Score > first[i-1].Score {
			t.Errorf("results not sorted at rank %d", i)
		}
	}
}

func TestTopKMatchesFullSort(t *testing.T) {
	corpus := randomCorpus(t, 300, 12, 3)
	r := NewSemanticRetriever(corpus, 0)
	query := corpus.Vector(17)

	all, err := r.TopK(query, corpus.Len())
	if err != nil {
		t.Fatal(err)
	}
	top, err := r.TopK(query, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i := range top {
		if top[i].Index != all[i].Index {
			t.Fatalf("rank %d: heap selection %d, full sort %d", i, top[i].Index, all[i].Index)
		}
	}
}

func TestTopKMinScore(t *testing.T) {
	r := NewSemanticRetriever(newCorpus(t,
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{0.9, 0.1},
	), 0.5)

	results, err := r.TopK([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected chunk 1 to be filtered, got %v", Indices(results))
	}
}

func TestTopKConcurrent(t *testing.T) {
	corpus := randomCorpus(t, 400, 8, 11)
	r := NewSemanticRetriever(corpus, 0)

	want, err := r.TopK(corpus.Vector(5), 5)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.TopK(corpus.Vector(5), 5)
			if err != nil {
				errs <- err
				return
			}
			for i := range want {
				if got[i].Index != want[i].Index {
					errs <- fmt.Errorf("rank %d: got %d want %d", i, got[i].Index, want[i].Index)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected 1, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("expected -1, got %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("expected 0 for zero vector, got %f", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %f", got)
	}
}

func BenchmarkTopK(b *testing.B) {
	corpus := randomCorpus(b, 10000, 256, 1)
	r := NewSemanticRetriever(corpus, 0)
	query := corpus.Vector(123)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.TopK(query, 5); err != nil {
			b.Fatal(err)
		}
	}
}
