package domain

import "time"

// Record is a normalised source document before chunking.
type Record struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Content    string   `json:"content"`
	Author     string   `json:"author,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
	Images     []string `json:"images,omitempty"`
	SourceFile string   `json:"source_file,omitempty"`
}

// Chunk is the unit of retrieval. Embedding is only populated on the
// ingestion path; the loaded corpus keeps vectors in one dense block.
type Chunk struct {
	ID        string    `json:"chunk_id,omitempty"`
	Ordinal   int       `json:"ordinal,omitempty"`
	Content   string    `json:"content"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Embedding []float32 `json:"-"`
}

type ScoredChunk struct {
	Index int
	Chunk Chunk
	Score float64
}

type Question struct {
	Text  string
	Image string
}

// Link is a citation surfaced to the end user.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type Answer struct {
	Answer string        `json:"answer"`
	Links  []Link        `json:"links"`
	Chunks []ScoredChunk `json:"-"`
}

// CorpusMeta describes a corpus snapshot.
type CorpusMeta struct {
	SchemaVersion  int       `json:"schema_version"`
	ID             string    `json:"id"`
	Count          int       `json:"count"`
	Dimension      int       `json:"dimension"`
	EmbeddingModel string    `json:"embedding_model"`
	Layout         string    `json:"layout"`
	ConfigHash     string    `json:"config_hash"`
	CreatedAt      time.Time `json:"created_at"`
}
