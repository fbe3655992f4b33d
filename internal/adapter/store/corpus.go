package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
	"ragqa/internal/domain"
)

// Corpus is a loaded, immutable corpus snapshot: four aligned columns of
// length N with embeddings held as one dense row-major N×D block.
// Nothing writes to a Corpus after construction, so concurrent readers
// need no locking.
type Corpus struct {
	meta     domain.CorpusMeta
	contents []string
	titles   []string
	urls     []string
	vectors  []float32
	dim      int
}

// NewCorpus builds an in-memory corpus from chunks, validating that every
// embedding has the same non-zero width. The chunk embeddings are copied.
func NewCorpus(chunks []domain.Chunk) (*Corpus, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("corpus has no chunks")
	}
	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("chunk 0 has no embedding")
	}

	c := &Corpus{
		contents: make([]string, len(chunks)),
		titles:   make([]string, len(chunks)),
		urls:     make([]string, len(chunks)),
		vectors:  make([]float32, 0, len(chunks)*dim),
		dim:      dim,
	}
	for i, ch := range chunks {
		if len(ch.Embedding) != dim {
			return nil, fmt.Errorf("chunk %d has embedding width %d, expected %d", i, len(ch.Embedding), dim)
		}
		c.contents[i] = ch.Content
		c.titles[i] = ch.Title
		c.urls[i] = ch.URL
		c.vectors = append(c.vectors, ch.Embedding...)
	}
	c.meta = domain.CorpusMeta{
		SchemaVersion: CurrentSchemaVersion,
		Count:         len(chunks),
		Dimension:     dim,
		Layout:        LayoutRows,
		CreatedAt:     time.Now().UTC(),
	}
	return c, nil
}

// Len returns the number of chunks.
func (c *Corpus) Len() int { return len(c.contents) }

// Dimension returns the embedding width D.
func (c *Corpus) Dimension() int { return c.dim }

func (c *Corpus) Meta() domain.CorpusMeta { return c.meta }

// Vector returns the embedding of chunk i. The slice aliases corpus memory
// and must not be modified.
func (c *Corpus) Vector(i int) []float32 {
	start := i * c.dim
	end := start + c.dim
	return c.vectors[start:end:end]
}

// Chunk returns the text columns of chunk i.
func (c *Corpus) Chunk(i int) domain.Chunk {
	return domain.Chunk{
		Content: c.contents[i],
		Title:   c.titles[i],
		URL:     c.urls[i],
	}
}

// Load reads a snapshot fully into memory and validates its shape. bbolt
// memory-maps the file while the columns are copied out; the file is closed
// before Load returns. Every failure is a *domain.CorpusLoadError.
func Load(path string) (*Corpus, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.CorpusLoadError{Path: path, Reason: "snapshot not found", Err: err}
		}
		return nil, &domain.CorpusLoadError{Path: path, Reason: "snapshot unreadable", Err: err}
	}

	db, err := bbolt.Open(path, 0o400, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, &domain.CorpusLoadError{Path: path, Reason: "open snapshot", Err: err}
	}
	defer db.Close()

	var c *Corpus
	err = db.View(func(tx *bbolt.Tx) error {
		var err error
		c, err = readCorpus(tx)
		return err
	})
	if err != nil {
		return nil, &domain.CorpusLoadError{Path: path, Reason: "invalid snapshot", Err: err}
	}
	return c, nil
}

func readCorpus(tx *bbolt.Tx) (*Corpus, error) {
	meta, err := readMeta(tx)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(meta); err != nil {
		return nil, err
	}

	contents, err := readStrings(tx, bucketContents)
	if err != nil {
		return nil, err
	}
	titles, err := readStrings(tx, bucketTitles)
	if err != nil {
		return nil, err
	}
	urls, err := readStrings(tx, bucketURLs)
	if err != nil {
		return nil, err
	}

	n := len(contents)
	if len(titles) != n || len(urls) != n {
		return nil, fmt.Errorf("column lengths differ: contents=%d titles=%d urls=%d", n, len(titles), len(urls))
	}
	if meta.Count != n {
		return nil, fmt.Errorf("snapshot declares %d chunks, found %d", meta.Count, n)
	}
	if n == 0 {
		return nil, fmt.Errorf("snapshot is empty")
	}

	vectors, err := readVectors(tx, meta, n)
	if err != nil {
		return nil, err
	}

	return &Corpus{
		meta:     meta,
		contents: contents,
		titles:   titles,
		urls:     urls,
		vectors:  vectors,
		dim:      meta.Dimension,
	}, nil
}

// readStrings reads a string column and checks that its keys run 0..N-1.
func readStrings(tx *bbolt.Tx, name []byte) ([]string, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}

	out := make([]string, 0, b.Stats().KeyN)
	err := b.ForEach(func(k, v []byte) error {
		i, err := keyIndex(k)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if i != len(out) {
			return fmt.Errorf("%s: expected index %d, found %d", name, len(out), i)
		}
		out = append(out, string(v))
		return nil
	})
	return out, err
}

// readVectors coerces either embedding layout into one dense N×D block.
func readVectors(tx *bbolt.Tx, meta domain.CorpusMeta, n int) ([]float32, error) {
	b := tx.Bucket(bucketEmbeddings)
	if b == nil {
		return nil, fmt.Errorf("embeddings bucket not found")
	}

	// The header is checked against the stored bytes before anything is
	// sized from it.
	dim := meta.Dimension
	if meta.Layout == LayoutFlat {
		v := b.Get(indexKey(0))
		if len(v)%4 != 0 || dim > len(v)/4/n || len(v)/4 != n*dim {
			return nil, fmt.Errorf("flat embeddings hold %d bytes, expected %d×%d floats", len(v), n, dim)
		}
		return decodeVector(make([]float32, 0, n*dim), v), nil
	}

	first := b.Get(indexKey(0))
	if len(first)%4 != 0 || len(first)/4 != dim {
		return nil, fmt.Errorf("embedding 0 has width %d, expected %d", len(first)/4, dim)
	}
	rowBytes := len(first)
	vectors := make([]float32, 0, n*dim)

	rows := 0
	err := b.ForEach(func(k, v []byte) error {
		i, err := keyIndex(k)
		if err != nil {
			return fmt.Errorf("embeddings: %w", err)
		}
		if i != rows {
			return fmt.Errorf("embeddings: expected index %d, found %d", rows, i)
		}
		if len(v) != rowBytes {
			return fmt.Errorf("embedding %d has width %d, expected %d", i, len(v)/4, dim)
		}
		vectors = decodeVector(vectors, v)
		rows++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rows != n {
		return nil, fmt.Errorf("column lengths differ: contents=%d embeddings=%d", n, rows)
	}
	return vectors, nil
}
