package retriever

import "ragqa/internal/domain"

// Indices returns the corpus indices of results in rank order.
func Indices(results []domain.ScoredChunk) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Index
	}
	return out
}

func PrecisionAtK(retrieved, relevant []int) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(retrieved))
}

func RecallAtK(retrieved, relevant []int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(relevant))
}

func ReciprocalRank(retrieved []int, relevant int) float64 {
	for i, r := range retrieved {
		if r == relevant {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

func hits(retrieved, relevant []int) int {
	relevantSet := make(map[int]bool, len(relevant))
	for _, r := range relevant {
		relevantSet[r] = true
	}
	n := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			n++
		}
	}
	return n
}
