package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ragqa/internal/adapter/store"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show corpus snapshot metadata",
	Long: `Print the snapshot header and whether the current chunking and embedding
settings still match the ones the snapshot was built with.`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	path := cfg.CorpusPath(GetRootDir())

	meta, err := store.ReadMeta(path)
	if err != nil {
		return err
	}
	stale := store.CheckStale(meta, cfg)

	if inspectJSON {
		output, _ := json.MarshalIndent(struct {
			Path   string `json:"path"`
			Meta   any    `json:"meta"`
			Stale  bool   `json:"stale"`
			Reason string `json:"reason,omitempty"`
		}{path, meta, stale.Stale, stale.Reason}, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Corpus:          %s\n", path)
	fmt.Printf("  ID:            %s\n", meta.ID)
	fmt.Printf("  Schema:        v%d\n", meta.SchemaVersion)
	fmt.Printf("  Chunks:        %d\n", meta.Count)
	fmt.Printf("  Dimension:     %d\n", meta.Dimension)
	fmt.Printf("  Model:         %s\n", meta.EmbeddingModel)
	fmt.Printf("  Layout:        %s\n", meta.Layout)
	fmt.Printf("  Created:       %s\n", meta.CreatedAt.Local().Format(time.RFC3339))
	if stale.Stale {
		fmt.Printf("\nSnapshot is stale: %s\nRun 'rag ingest' to rebuild.\n", stale.Reason)
	}
	return nil
}
