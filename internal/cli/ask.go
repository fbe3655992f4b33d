package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ragqa/internal/adapter/llm"
	"ragqa/internal/domain"
	"ragqa/internal/port"
	"ragqa/internal/usecase"
)

var (
	askText        string
	askImage       string
	askTopK        int
	askJSON        bool
	askInteractive bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the corpus",
	Long: `Answer a question using the closest corpus chunks as context. An optional
image (URL, data URL or base64) is captioned and added to the question.

Examples:
  rag ask -q "Should I use gpt-4o-mini or gpt-3.5-turbo for GA5?"
  rag ask -q "What does this error mean?" --image https://example.com/err.png
  rag ask -q "Which docker command?" --json
  rag ask -i                          # One question per line on stdin`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question text")
	askCmd.Flags().StringVar(&askImage, "image", "", "image URL, data URL or base64 payload")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of context chunks (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "read questions from stdin until EOF")
	askCmd.MarkFlagsOneRequired("query", "interactive")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	_, ret, embedder, err := openCorpus(ctx)
	if err != nil {
		return err
	}

	answerer, err := llm.NewAnswererFromConfig(cfg.Answer)
	if err != nil {
		return fmt.Errorf("failed to create answerer: %w", err)
	}

	var (
		describer port.Describer
		fetcher   port.ImageFetcher
	)
	if askImage != "" {
		d, err := llm.NewDescriberFromConfig(cfg.Answer)
		if err != nil {
			return fmt.Errorf("failed to create image describer: %w", err)
		}
		describer = d
		fetcher = llm.NewImageFetcher(nil)
	}

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	answerUC := usecase.NewAnswerUseCase(embedder, ret, answerer, describer, fetcher, topK, cfg.Answer.SystemPrompt)

	if askInteractive {
		return askLoop(ctx, answerUC, cmd.InOrStdin())
	}

	answer, err := answerUC.Answer(ctx, domain.Question{Text: askText, Image: askImage})
	if err != nil {
		return err
	}
	printAnswer(answer)
	return nil
}

// askLoop answers one question per input line. Failed questions are
// reported and the loop continues.
func askLoop(ctx context.Context, answerUC *usecase.AnswerUseCase, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			answer, err := answerUC.Answer(ctx, domain.Question{Text: line})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Printf("error: %v\n", err)
			} else {
				printAnswer(answer)
			}
			fmt.Println()
		}
		fmt.Print("> ")
	}
	fmt.Println()
	return scanner.Err()
}

func printAnswer(answer *domain.Answer) {
	if askJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Println(answer.Answer)
	if len(answer.Links) > 0 {
		fmt.Printf("\nSources:\n")
		for _, l := range answer.Links {
			if l.URL == "" {
				fmt.Printf("  - %s\n", l.Text)
				continue
			}
			fmt.Printf("  - %s: %s\n", l.Text, l.URL)
		}
	}
}
