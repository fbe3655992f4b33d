package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ragqa/config"
	"ragqa/internal/adapter/chunker"
	"ragqa/internal/adapter/embedding"
	"ragqa/internal/adapter/fs"
	"ragqa/internal/adapter/source"
	"ragqa/internal/adapter/store"
	"ragqa/internal/logging"
	"ragqa/internal/usecase"
)

const watchDebounce = 2 * time.Second

var (
	ingestListFile string
	ingestDumpDir  string
	ingestLayout   string
	ingestWatch    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-dir]",
	Short: "Build the corpus snapshot from source files",
	Long: `Normalise forum exports and markdown notes, split them into overlapping
chunks, embed every chunk and write the corpus snapshot. An existing snapshot
is replaced only after the new one is complete.

Examples:
  rag ingest                                  # Read ./data
  rag ingest ./scraped --dump ./out           # Also write records.json and chunks.json
  rag ingest --list data/name_of_json.txt     # Only the listed forum exports
  rag ingest --watch                          # Rebuild whenever sources change`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestListFile, "list", "", "file naming forum exports, one per line (overrides discovery)")
	ingestCmd.Flags().StringVar(&ingestDumpDir, "dump", "", "directory for normalised records and chunks as JSON")
	ingestCmd.Flags().StringVar(&ingestLayout, "layout", "", "embedding layout: rows or flat (default from config)")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "keep running and rebuild when source files change")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	sourceDir := cfg.SourceDir(root)
	if len(args) > 0 {
		var err error
		sourceDir, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}
	info, err := os.Stat(sourceDir)
	if err != nil {
		return fmt.Errorf("source directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path is not a directory: %s", sourceDir)
	}

	listFile := cfg.Ingest.ListFile
	if ingestListFile != "" {
		listFile = ingestListFile
	}
	if listFile != "" && !filepath.IsAbs(listFile) {
		listFile = filepath.Join(root, listFile)
	}
	layout := cfg.Corpus.Layout
	if ingestLayout != "" {
		layout = ingestLayout
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	sources := []usecase.Source{
		{
			Adapter:  source.NewDiscourse(cfg.Ingest.ForumBaseURL),
			Walker:   fs.NewWalker(cfg.Ingest.ForumIncludes, cfg.Ingest.Excludes),
			ListFile: listFile,
		},
		{
			Adapter: source.NewMarkdown(),
			Walker:  fs.NewWalker(cfg.Ingest.MarkdownIncludes, cfg.Ingest.Excludes),
		},
		{
			Adapter: source.NewPDF(),
			Walker:  fs.NewWalker(cfg.Ingest.PDFIncludes, cfg.Ingest.Excludes),
		},
	}
	chk := chunker.NewRecursiveChunker(cfg.Chunk.Size, cfg.Chunk.Overlap, cfg.Chunk.Separators)

	ingestUC := usecase.NewIngestUseCase(sources, chk, embedder, cfg.Embedding.BatchSize)

	if err := config.EnsureRAGDir(root); err != nil {
		return fmt.Errorf("failed to create .rag directory: %w", err)
	}

	opts := usecase.IngestOptions{
		SourceDir:  sourceDir,
		CorpusPath: cfg.CorpusPath(root),
		Layout:     layout,
		ConfigHash: store.ComputeConfigHash(cfg),
		DumpDir:    ingestDumpDir,
	}

	ctx := cmd.Context()
	if err := ingestOnce(ctx, ingestUC, opts); err != nil {
		return err
	}
	if !ingestWatch {
		return nil
	}
	return watchSources(ctx, ingestUC, opts)
}

func ingestOnce(ctx context.Context, ingestUC *usecase.IngestUseCase, opts usecase.IngestOptions) error {
	progress := newStageProgress(term.IsTerminal(int(os.Stdout.Fd())))
	ingestUC.SetProgress(progress.update)

	fmt.Printf("Ingesting %s...\n", opts.SourceDir)
	result, err := ingestUC.Ingest(ctx, opts)
	progress.finish()
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Files read:      %d\n", result.FilesRead)
	fmt.Printf("  Files skipped:   %d\n", result.FilesSkipped)
	fmt.Printf("  Records:         %d\n", result.RecordsParsed)
	fmt.Printf("  Empty records:   %d\n", result.RecordsSkipped)
	fmt.Printf("  Chunks written:  %d\n", result.ChunksWritten)
	fmt.Printf("  Dimension:       %d (%s)\n", result.Meta.Dimension, result.Meta.EmbeddingModel)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nCorpus stored at: %s\n", opts.CorpusPath)
	return nil
}

// watchSources rebuilds the corpus after every settled change below the
// source directory until interrupted. A failed rebuild keeps the previous
// snapshot and waits for the next change.
func watchSources(ctx context.Context, ingestUC *usecase.IngestUseCase, opts usecase.IngestOptions) error {
	log := logging.FromContext(ctx)

	// Outputs of a rebuild must not count as source changes.
	w, err := fs.NewWatcher(opts.SourceDir, watchDebounce,
		opts.DumpDir, opts.CorpusPath, opts.CorpusPath+".tmp")
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", opts.SourceDir, err)
	}
	defer w.Close()

	fmt.Printf("\nWatching %s for changes (Ctrl+C to stop)...\n", opts.SourceDir)
	err = w.Run(ctx, func() {
		if err := ingestOnce(ctx, ingestUC, opts); err != nil {
			log.Error("rebuild failed, keeping previous corpus", "error", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// stageProgress draws one progress bar per ingestion stage. It stays silent
// when stdout is not a terminal.
type stageProgress struct {
	enabled bool
	stage   string
	bar     *progressbar.ProgressBar
}

func newStageProgress(enabled bool) *stageProgress {
	return &stageProgress{enabled: enabled}
}

func (p *stageProgress) update(stage string, done, total int) {
	if !p.enabled {
		return
	}
	if stage != p.stage || p.bar == nil {
		p.finish()
		p.stage = stage
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%-16s[reset]", stage)),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}
	_ = p.bar.Set(done)
}

func (p *stageProgress) finish() {
	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
	p.bar = nil
}
