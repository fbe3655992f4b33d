package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"ragqa/config"
	"ragqa/internal/domain"
)

// CurrentSchemaVersion is the current snapshot format version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

const (
	// LayoutRows stores one fixed-width vector per chunk key.
	LayoutRows = "rows"
	// LayoutFlat stores all vectors as a single N×D run under key 0.
	LayoutFlat = "flat"
)

var (
	bucketMeta       = []byte("meta")
	bucketContents   = []byte("contents")
	bucketTitles     = []byte("titles")
	bucketURLs       = []byte("urls")
	bucketEmbeddings = []byte("embeddings")
	keyInfo          = []byte("info")
)

var columnBuckets = [][]byte{bucketContents, bucketTitles, bucketURLs, bucketEmbeddings}

func readMeta(tx *bbolt.Tx) (domain.CorpusMeta, error) {
	var meta domain.CorpusMeta
	b := tx.Bucket(bucketMeta)
	if b == nil {
		return meta, fmt.Errorf("meta bucket not found")
	}
	data := b.Get(keyInfo)
	if data == nil {
		return meta, fmt.Errorf("snapshot info not found")
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decode snapshot info: %w", err)
	}
	return meta, nil
}

func writeMeta(tx *bbolt.Tx, meta domain.CorpusMeta) error {
	b, err := tx.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return b.Put(keyInfo, data)
}

// checkSchema rejects snapshots this build cannot read.
func checkSchema(meta domain.CorpusMeta) error {
	switch {
	case meta.SchemaVersion == 0:
		return fmt.Errorf("snapshot has no schema version")
	case meta.SchemaVersion > CurrentSchemaVersion:
		return fmt.Errorf("snapshot created by newer version (v%d > v%d)", meta.SchemaVersion, CurrentSchemaVersion)
	case meta.SchemaVersion < CurrentSchemaVersion:
		return fmt.Errorf("snapshot schema v%d is no longer supported, re-run ingest", meta.SchemaVersion)
	}
	if meta.Dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", meta.Dimension)
	}
	if meta.Count < 0 {
		return fmt.Errorf("invalid chunk count %d", meta.Count)
	}
	switch meta.Layout {
	case "", LayoutRows, LayoutFlat:
	default:
		return fmt.Errorf("unknown embedding layout %q", meta.Layout)
	}
	return nil
}

// ComputeConfigHash computes a hash of the corpus-relevant configuration.
// A different hash means the snapshot was built with other chunking or
// embedding settings than the current config.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkSize    int      `json:"chunk_size"`
		ChunkOverlap int      `json:"chunk_overlap"`
		Separators   []string `json:"separators"`
		EmbProvider  string   `json:"emb_provider"`
		EmbModel     string   `json:"emb_model"`
		EmbDimension int      `json:"emb_dimension"`
	}{
		ChunkSize:    cfg.Chunk.Size,
		ChunkOverlap: cfg.Chunk.Overlap,
		Separators:   cfg.Chunk.Separators,
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
		EmbDimension: cfg.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// StaleResult describes how a snapshot relates to the current config.
type StaleResult struct {
	Stale  bool
	Reason string
}

// CheckStale compares a loaded snapshot against cfg.
func CheckStale(meta domain.CorpusMeta, cfg *config.Config) StaleResult {
	model := cfg.Embedding.Model
	if cfg.Embedding.Provider == "mock" {
		model = "mock"
	}
	if meta.EmbeddingModel != "" && meta.EmbeddingModel != model {
		return StaleResult{
			Stale:  true,
			Reason: fmt.Sprintf("corpus embedded with %q, config uses %q", meta.EmbeddingModel, model),
		}
	}
	if meta.ConfigHash != "" && meta.ConfigHash != ComputeConfigHash(cfg) {
		return StaleResult{Stale: true, Reason: "corpus configuration changed"}
	}
	return StaleResult{}
}
