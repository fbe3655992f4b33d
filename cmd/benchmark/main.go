package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ragqa/config"
	"ragqa/internal/adapter/embedding"
	"ragqa/internal/adapter/retriever"
	"ragqa/internal/adapter/store"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding rag.yaml and the corpus")
	query := flag.String("q", "", "Optional query to embed and rank")
	topK := flag.Int("k", 4, "Number of results")
	samples := flag.Int("n", 200, "Chunks to use as self-retrieval probes (0 = all)")
	flag.Parse()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	loadStart := time.Now()
	corpus, err := store.Load(cfg.CorpusPath(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading corpus: %v\n", err)
		os.Exit(1)
	}
	loadTime := time.Since(loadStart)
	ret := retriever.NewSemanticRetriever(corpus, 0)

	meta := corpus.Meta()
	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks:    %d\n", corpus.Len())
	fmt.Printf("Dimension: %d\n", corpus.Dimension())
	fmt.Printf("Model:     %s\n", meta.EmbeddingModel)
	fmt.Printf("Load time: %s\n\n", loadTime)

	selfRetrieval(ret, corpus, *topK, *samples)

	if *query != "" {
		if err := rankQuery(cfg, ret, *query, *topK); err != nil {
			fmt.Fprintf(os.Stderr, "Query error: %v\n", err)
			os.Exit(1)
		}
	}
}

// selfRetrieval queries with stored vectors; every chunk should rank itself
// first unless it has an exact duplicate earlier in the corpus.
func selfRetrieval(ret *retriever.SemanticRetriever, corpus *store.Corpus, k, samples int) {
	n := corpus.Len()
	if samples <= 0 || samples > n {
		samples = n
	}
	step := n / samples

	var mrr, recall float64
	var elapsed time.Duration
	for s := 0; s < samples; s++ {
		i := s * step
		start := time.Now()
		results, err := ret.TopK(corpus.Vector(i), k)
		elapsed += time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "TopK(%d): %v\n", i, err)
			os.Exit(1)
		}
		retrieved := retriever.Indices(results)
		mrr += retriever.ReciprocalRank(retrieved, i)
		recall += retriever.RecallAtK(retrieved, []int{i})
	}

	fmt.Printf("Self-retrieval over %d probes (k=%d):\n", samples, k)
	fmt.Printf("  MRR:          %.3f\n", mrr/float64(samples))
	fmt.Printf("  Recall@%d:     %.3f\n", k, recall/float64(samples))
	fmt.Printf("  Avg latency:  %s\n\n", elapsed/time.Duration(samples))
}

func rankQuery(cfg *config.Config, ret *retriever.SemanticRetriever, query string, k int) error {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return err
	}
	vectors, err := embedder.Embed(context.Background(), []string{query})
	if err != nil {
		return err
	}
	results, err := ret.TopK(vectors[0], k)
	if err != nil {
		return err
	}

	fmt.Printf("Query: %q\n", query)
	fmt.Println(strings.Repeat("-", 70))
	for i, r := range results {
		preview := []rune(strings.ReplaceAll(r.Chunk.Content, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}

		rating := "LOW"
		if r.Score > 0.7 {
			rating = "HIGH"
		} else if r.Score > 0.5 {
			rating = "GOOD"
		} else if r.Score > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, r.Score, r.Chunk.Title)
		fmt.Printf("   %s\n\n", string(preview))
	}
	return nil
}
