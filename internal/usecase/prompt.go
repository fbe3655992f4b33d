package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var answerTemplate = template.Must(
	template.New("answer_prompt.txt").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptTemplates, "templates/answer_prompt.txt"),
)

// PromptData is the input to the answer prompt template.
type PromptData struct {
	Question string
	Context  []string
}

// BuildPrompt renders the answering prompt for question over the retrieved
// chunk contents, in rank order.
func BuildPrompt(question string, context []string) (string, error) {
	var buf bytes.Buffer
	if err := answerTemplate.Execute(&buf, PromptData{Question: question, Context: context}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
