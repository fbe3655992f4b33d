package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ragqa/internal/domain"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// DefaultSeparators is tried in order: paragraph, line, sentence, word, and
// finally a plain character cut.
var DefaultSeparators = []string{"\n\n", "\n", ".", " ", ""}

// RecursiveChunker splits documents into overlapping fragments of at most
// maxSize characters.
type RecursiveChunker struct {
	maxSize    int
	overlap    int
	separators []string
}

func NewRecursiveChunker(maxSize, overlap int, separators []string) *RecursiveChunker {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 10
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &RecursiveChunker{
		maxSize:    maxSize,
		overlap:    overlap,
		separators: separators,
	}
}

// Chunk splits rec.Content and tags every fragment with its source title,
// url and a 1-based ordinal.
func (c *RecursiveChunker) Chunk(rec domain.Record) []domain.Chunk {
	parts := SplitWith(rec.Content, c.maxSize, c.overlap, c.separators)

	chunks := make([]domain.Chunk, 0, len(parts))
	for _, text := range parts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		ordinal := len(chunks) + 1
		chunks = append(chunks, domain.Chunk{
			ID:      ChunkID(rec.Title, ordinal),
			Ordinal: ordinal,
			Content: text,
			Title:   rec.Title,
			URL:     rec.URL,
		})
	}
	return chunks
}

func ChunkID(title string, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", title, ordinal)
}

// Split splits text with DefaultSeparators.
func Split(text string, maxSize, overlap int) []string {
	return SplitWith(text, maxSize, overlap, DefaultSeparators)
}

// SplitWith splits text into fragments of at most maxSize characters where
// each fragment after the first starts with the last overlap characters of
// its predecessor. Dropping those prefixes and concatenating the fragments
// yields text again.
//
// A run that no separator can break is emitted whole, so fragments can only
// exceed maxSize when the separator list has no "" entry.
func SplitWith(text string, maxSize, overlap int, separators []string) []string {
	if text == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}
	if utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}

	// Pieces are capped at maxSize-overlap so that the carried prefix plus
	// one piece always fits.
	pieces := splitRecursive(text, separators, maxSize-overlap)
	return merge(pieces, maxSize, overlap)
}

func splitRecursive(text string, separators []string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	idx := -1
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return []string{text}
	}

	sep := separators[idx]
	if sep == "" {
		return cutRunes(text, limit)
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= limit {
			out = append(out, part)
			continue
		}
		out = append(out, splitRecursive(part, separators[idx+1:], limit)...)
	}
	return out
}

func cutRunes(text string, limit int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// merge packs pieces greedily into fragments and seeds each new fragment
// with the tail of the previous one.
func merge(pieces []string, maxSize, overlap int) []string {
	var (
		fragments []string
		current   strings.Builder
		size      int
		fresh     bool
	)

	flush := func() {
		frag := current.String()
		fragments = append(fragments, frag)
		current.Reset()
		size = 0
		if overlap > 0 {
			tail := lastRunes(frag, overlap)
			current.WriteString(tail)
			size = utf8.RuneCountInString(tail)
		}
		fresh = true
	}

	fresh = true
	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if !fresh && size+n > maxSize {
			flush()
		}
		current.WriteString(piece)
		size += n
		fresh = false
	}
	if !fresh {
		fragments = append(fragments, current.String())
	}
	return fragments
}

func lastRunes(s string, n int) string {
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	i := len(s)
	for ; n > 0; n-- {
		_, width := utf8.DecodeLastRuneInString(s[:i])
		i -= width
	}
	return s[i:]
}
