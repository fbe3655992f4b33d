package source

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"ragqa/internal/domain"
)

const (
	frontMatterMarker = "---"
	defaultTitle      = "Untitled"
)

// Markdown normalises text files that may open with a "---" delimited block
// of "key: value" lines.
type Markdown struct{}

func NewMarkdown() *Markdown { return &Markdown{} }

func (m *Markdown) Name() string { return "markdown" }

// Parse returns a single record. The front matter supplies title,
// original_url and downloaded_at and is removed from the content.
func (m *Markdown) Parse(name string, data []byte) ([]domain.Record, error) {
	if !utf8.Valid(data) {
		return nil, &domain.AdapterParseError{Source: name, Err: errors.New("file is not valid UTF-8")}
	}

	meta, body := SplitFrontMatter(string(data))

	// An explicit empty title is kept; only a missing key gets the default.
	title, ok := meta["title"]
	if !ok {
		title = defaultTitle
	}

	return []domain.Record{{
		Title:      title,
		URL:        meta["original_url"],
		Content:    strings.TrimSpace(body),
		CreatedAt:  meta["downloaded_at"],
		SourceFile: filepath.Base(name),
	}}, nil
}

// SplitFrontMatter separates a leading metadata block from the rest of the
// text. Without a complete block the metadata is empty and text is returned
// unchanged.
func SplitFrontMatter(text string) (map[string]string, string) {
	meta := map[string]string{}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(normalized, frontMatterMarker+"\n") {
		return meta, text
	}

	lines := strings.Split(normalized, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == frontMatterMarker {
			end = i
			break
		}
	}
	if end == -1 {
		return meta, text
	}

	for _, line := range lines[1:end] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		meta[key] = strings.Trim(strings.TrimSpace(value), `"`)
	}

	return meta, strings.Join(lines[end+1:], "\n")
}
