package usecase

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragqa/internal/adapter/store"
	"ragqa/internal/domain"
	"ragqa/internal/logging"
	"ragqa/internal/port"
)

const defaultEmbedBatch = 100

// Source pairs an adapter with the files it reads. Files come from ListFile
// when it is set, otherwise from Walker.
type Source struct {
	Adapter  port.SourceAdapter
	Walker   port.FileWalker
	ListFile string // one path per line, relative to the list file
}

// IngestOptions locates inputs and outputs of one ingestion run.
type IngestOptions struct {
	SourceDir  string
	CorpusPath string
	Layout     string
	ConfigHash string
	DumpDir    string // when set, records.json and chunks.json are written here
}

// IngestResult contains the results of an ingestion run.
type IngestResult struct {
	FilesRead      int
	FilesSkipped   int
	RecordsParsed  int
	RecordsSkipped int
	ChunksWritten  int
	Errors         []string
	Meta           domain.CorpusMeta
}

// ProgressFunc is called as work completes within a stage.
type ProgressFunc func(stage string, done, total int)

// IngestUseCase builds a corpus snapshot from raw sources.
type IngestUseCase struct {
	sources   []Source
	chunker   port.Chunker
	embedder  port.Embedder
	batchSize int
	progress  ProgressFunc
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(
	sources []Source,
	chunker port.Chunker,
	embedder port.Embedder,
	batchSize int,
) *IngestUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatch
	}
	return &IngestUseCase{
		sources:   sources,
		chunker:   chunker,
		embedder:  embedder,
		batchSize: batchSize,
		progress:  func(string, int, int) {},
	}
}

// SetProgress installs a progress callback.
func (u *IngestUseCase) SetProgress(fn ProgressFunc) {
	if fn == nil {
		fn = func(string, int, int) {}
	}
	u.progress = fn
}

// Ingest normalises, chunks and embeds every source document and replaces
// the snapshot at opts.CorpusPath. Documents that fail to parse are skipped
// and reported in the result.
func (u *IngestUseCase) Ingest(ctx context.Context, opts IngestOptions) (*IngestResult, error) {
	log := logging.FromContext(ctx)
	result := &IngestResult{}

	records, err := u.collect(ctx, opts.SourceDir, result)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, rec := range records {
		chunks = append(chunks, u.chunker.Chunk(rec)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no content to ingest from %s", opts.SourceDir)
	}
	log.Info("chunked records", "records", len(records), "chunks", len(chunks))

	if err := u.embed(ctx, chunks); err != nil {
		return nil, err
	}

	if opts.DumpDir != "" {
		if err := dump(opts.DumpDir, records, chunks); err != nil {
			return nil, err
		}
	}

	meta, err := store.Write(opts.CorpusPath, chunks, domain.CorpusMeta{
		EmbeddingModel: u.embedder.ModelName(),
		Layout:         opts.Layout,
		ConfigHash:     opts.ConfigHash,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write corpus: %w", err)
	}

	result.ChunksWritten = len(chunks)
	result.Meta = meta
	log.Info("corpus written", "path", opts.CorpusPath, "id", meta.ID, "chunks", meta.Count, "dimension", meta.Dimension)
	return result, nil
}

// collect runs every source adapter over its files.
func (u *IngestUseCase) collect(ctx context.Context, sourceDir string, result *IngestResult) ([]domain.Record, error) {
	log := logging.FromContext(ctx)
	if sourceDir == "" {
		sourceDir = "."
	}

	var records []domain.Record
	for _, src := range u.sources {
		files, err := u.discover(src, sourceDir)
		if err != nil {
			return nil, fmt.Errorf("failed to discover %s sources: %w", src.Adapter.Name(), err)
		}
		log.Debug("discovered sources", "adapter", src.Adapter.Name(), "files", len(files))

		for i, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			u.progress("parse "+src.Adapter.Name(), i+1, len(files))

			name := displayName(sourceDir, path)
			data, err := os.ReadFile(path)
			if err != nil {
				result.FilesSkipped++
				result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", name, err))
				log.Warn("skipping unreadable source", "file", name, "error", err)
				continue
			}

			recs, err := src.Adapter.Parse(name, data)
			if err != nil {
				var parseErr *domain.AdapterParseError
				if !errors.As(err, &parseErr) {
					return nil, err
				}
				result.FilesSkipped++
				result.Errors = append(result.Errors, err.Error())
				log.Warn("skipping malformed source", "adapter", src.Adapter.Name(), "file", name, "error", parseErr.Err)
				continue
			}
			result.FilesRead++

			for _, rec := range recs {
				if strings.TrimSpace(rec.Content) == "" {
					result.RecordsSkipped++
					continue
				}
				records = append(records, rec)
				result.RecordsParsed++
			}
		}
	}
	return records, nil
}

func (u *IngestUseCase) discover(src Source, sourceDir string) ([]string, error) {
	if src.ListFile != "" {
		return readList(src.ListFile)
	}
	if src.Walker == nil {
		return nil, nil
	}
	infos, err := src.Walker.Walk(sourceDir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(infos))
	for i, info := range infos {
		paths[i] = info.Path
	}
	return paths, nil
}

// readList returns the non-blank lines of a list file resolved against the
// list file's directory.
func readList(listFile string) ([]string, error) {
	f, err := os.Open(listFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(listFile)
	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(dir, line)
		}
		paths = append(paths, line)
	}
	return paths, scanner.Err()
}

// embed fills in chunk embeddings batch by batch.
func (u *IngestUseCase) embed(ctx context.Context, chunks []domain.Chunk) error {
	dim := u.embedder.Dimension()
	for start := 0; start < len(chunks); start += u.batchSize {
		end := min(start+u.batchSize, len(chunks))

		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Content
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		for i, v := range vectors {
			if len(v) != dim {
				return fmt.Errorf("chunk %d embedded with width %d, expected %d", start+i, len(v), dim)
			}
			chunks[start+i].Embedding = v
		}
		u.progress("embed", end, len(chunks))
	}
	return nil
}

func displayName(root, path string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(abs, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func dump(dir string, records []domain.Record, chunks []domain.Chunk) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	for name, v := range map[string]any{"records.json": records, "chunks.json": chunks} {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
