package retriever

import (
	"container/heap"
	"math"
	"sort"

	"ragqa/internal/adapter/store"
	"ragqa/internal/domain"
)

// SemanticRetriever ranks every chunk of a loaded corpus by cosine
// similarity to the query. It is a linear scan; beyond a few million chunks
// an approximate index would be the next step.
type SemanticRetriever struct {
	corpus   *store.Corpus
	norms    []float64
	minScore float64 // Filter results below this score (0 = disabled)
}

// NewSemanticRetriever precomputes the corpus vector norms.
func NewSemanticRetriever(corpus *store.Corpus, minScore float64) *SemanticRetriever {
	norms := make([]float64, corpus.Len())
	for i := range norms {
		norms[i] = norm(corpus.Vector(i))
	}
	return &SemanticRetriever{
		corpus:   corpus,
		norms:    norms,
		minScore: minScore,
	}
}

// TopK returns the k chunks most similar to query, highest score first.
// Equal scores keep corpus order. k larger than the corpus returns every
// chunk.
func (r *SemanticRetriever) TopK(query []float32, k int) ([]domain.ScoredChunk, error) {
	if len(query) != r.corpus.Dimension() {
		return nil, &domain.DimensionMismatchError{Expected: r.corpus.Dimension(), Got: len(query)}
	}

	n := r.corpus.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	qNorm := norm(query)
	h := make(candidateHeap, 0, k)
	for i := 0; i < n; i++ {
		c := candidate{index: i, score: cosine(query, qNorm, r.corpus.Vector(i), r.norms[i])}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if c.outranks(h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	sort.Slice(h, func(i, j int) bool { return h[i].outranks(h[j]) })

	results := make([]domain.ScoredChunk, 0, len(h))
	for _, c := range h {
		if r.minScore > 0 && c.score < r.minScore {
			break
		}
		results = append(results, domain.ScoredChunk{
			Index: c.index,
			Chunk: r.corpus.Chunk(c.index),
			Score: c.score,
		})
	}
	return results, nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// A zero vector is similar to nothing.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(a, norm(a), b, norm(b))
}

func cosine(a []float32, normA float64, b []float32, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}

	var dotProduct float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
	}

	sim := dotProduct / (normA * normB)
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

type candidate struct {
	index int
	score float64
}

// outranks orders by score descending, then corpus index ascending.
func (c candidate) outranks(o candidate) bool {
	if c.score != o.score {
		return c.score > o.score
	}
	return c.index < o.index
}

// candidateHeap keeps the weakest of the current top k at the root.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[j].outranks(h[i]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
