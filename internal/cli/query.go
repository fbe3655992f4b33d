package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragqa/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the corpus chunks closest to a question",
	Long: `Embed the question and print the most similar chunks with their scores,
without calling the answering model.

Examples:
  rag query -q "docker compose on windows"
  rag query -q "GA2 deadline" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question text (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

type queryResult struct {
	Rank    int     `json:"rank"`
	Index   int     `json:"index"`
	Score   float64 `json:"score"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	_, ret, embedder, err := openCorpus(ctx)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	answerUC := usecase.NewAnswerUseCase(embedder, ret, nil, nil, nil, topK, "")
	chunks, err := answerUC.Retrieve(ctx, queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]queryResult, len(chunks))
	for i, c := range chunks {
		results[i] = queryResult{
			Rank:    i + 1,
			Index:   c.Index,
			Score:   c.Score,
			Title:   c.Chunk.Title,
			URL:     c.Chunk.URL,
			Content: c.Chunk.Content,
		}
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for _, r := range results {
		fmt.Printf("--- [%d] %s (score: %.3f) ---\n", r.Rank, r.Title, r.Score)
		if r.URL != "" {
			fmt.Println(r.URL)
		}
		text := []rune(r.Content)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	return nil
}
