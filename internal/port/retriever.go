package port

import "ragqa/internal/domain"

// Retriever ranks corpus chunks against a query vector.
type Retriever interface {
	// TopK returns at most k chunks ordered by descending similarity.
	TopK(query []float32, k int) ([]domain.ScoredChunk, error)
}
