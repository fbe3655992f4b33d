package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"ragqa/internal/domain"
)

// Write persists chunks as a new snapshot at path, replacing any existing
// snapshot. The file is built next to path and renamed into place so readers
// never observe a partial corpus. meta supplies EmbeddingModel, Layout and
// ConfigHash; the remaining fields are filled in and returned.
func Write(path string, chunks []domain.Chunk, meta domain.CorpusMeta) (domain.CorpusMeta, error) {
	if len(chunks) == 0 {
		return meta, fmt.Errorf("refusing to write an empty corpus")
	}
	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return meta, fmt.Errorf("chunk 0 has no embedding")
	}
	for i, ch := range chunks {
		if len(ch.Embedding) != dim {
			return meta, fmt.Errorf("chunk %d has embedding width %d, expected %d", i, len(ch.Embedding), dim)
		}
	}
	if meta.Layout == "" {
		meta.Layout = LayoutRows
	}

	meta.SchemaVersion = CurrentSchemaVersion
	meta.ID = uuid.New().String()
	meta.Count = len(chunks)
	meta.Dimension = dim
	meta.CreatedAt = time.Now().UTC()
	if err := checkSchema(meta); err != nil {
		return meta, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return meta, fmt.Errorf("failed to create corpus directory: %w", err)
	}

	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	db, err := bbolt.Open(tmp, 0o644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return meta, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		return writeColumns(tx, chunks, meta)
	})
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return meta, fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return meta, fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return meta, nil
}

func writeColumns(tx *bbolt.Tx, chunks []domain.Chunk, meta domain.CorpusMeta) error {
	buckets := make(map[string]*bbolt.Bucket, len(columnBuckets))
	for _, name := range columnBuckets {
		b, err := tx.CreateBucket(name)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
		// Keys are appended in order.
		b.FillPercent = 1.0
		buckets[string(name)] = b
	}

	contents := buckets[string(bucketContents)]
	titles := buckets[string(bucketTitles)]
	urls := buckets[string(bucketURLs)]
	embeddings := buckets[string(bucketEmbeddings)]

	var flat []float32
	if meta.Layout == LayoutFlat {
		flat = make([]float32, 0, len(chunks)*meta.Dimension)
	}

	for i, ch := range chunks {
		key := indexKey(i)
		if err := contents.Put(key, []byte(ch.Content)); err != nil {
			return err
		}
		if err := titles.Put(key, []byte(ch.Title)); err != nil {
			return err
		}
		if err := urls.Put(key, []byte(ch.URL)); err != nil {
			return err
		}
		if meta.Layout == LayoutFlat {
			flat = append(flat, ch.Embedding...)
			continue
		}
		if err := embeddings.Put(key, encodeVector(ch.Embedding)); err != nil {
			return err
		}
	}

	if meta.Layout == LayoutFlat {
		if err := embeddings.Put(indexKey(0), encodeVector(flat)); err != nil {
			return err
		}
	}

	return writeMeta(tx, meta)
}

// ReadMeta returns the metadata of the snapshot at path without loading
// its columns.
func ReadMeta(path string) (domain.CorpusMeta, error) {
	var meta domain.CorpusMeta
	if _, err := os.Stat(path); err != nil {
		return meta, &domain.CorpusLoadError{Path: path, Reason: "stat snapshot", Err: err}
	}
	db, err := bbolt.Open(path, 0o400, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return meta, &domain.CorpusLoadError{Path: path, Reason: "open snapshot", Err: err}
	}
	defer db.Close()

	err = db.View(func(tx *bbolt.Tx) error {
		var err error
		meta, err = readMeta(tx)
		return err
	})
	if err != nil {
		return meta, &domain.CorpusLoadError{Path: path, Reason: "invalid snapshot", Err: err}
	}
	return meta, nil
}
