package cli

import (
	"context"
	"fmt"
	"time"

	"ragqa/internal/adapter/cache"
	"ragqa/internal/adapter/embedding"
	"ragqa/internal/adapter/retriever"
	"ragqa/internal/adapter/store"
	"ragqa/internal/logging"
	"ragqa/internal/port"
)

const (
	questionCacheSize = 256
	questionCacheTTL  = 30 * time.Minute
)

// openCorpus loads the snapshot and builds the retriever and a caching
// query embedder for it.
func openCorpus(ctx context.Context) (*store.Corpus, *retriever.SemanticRetriever, port.Embedder, error) {
	cfg := GetConfig()
	log := logging.FromContext(ctx)

	corpus, err := store.Load(cfg.CorpusPath(GetRootDir()))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w (run 'rag ingest' first)", err)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	meta := corpus.Meta()
	if meta.EmbeddingModel != "" && meta.EmbeddingModel != embedder.ModelName() {
		log.Warn("query embedder differs from corpus embedder",
			"corpus_model", meta.EmbeddingModel,
			"query_model", embedder.ModelName(),
		)
	}
	log.Debug("corpus loaded", "chunks", corpus.Len(), "dimension", corpus.Dimension(), "id", meta.ID)

	cached := cache.NewCachedEmbedder(embedder, cache.NewEmbeddingCache(questionCacheSize, questionCacheTTL))
	return corpus, retriever.NewSemanticRetriever(corpus, cfg.Retrieve.MinScore), cached, nil
}
