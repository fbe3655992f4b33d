package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the question answering tool.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus" toml:"corpus"`
	Chunk     ChunkConfig     `yaml:"chunk" toml:"chunk"`
	Retrieve  RetrieveConfig  `yaml:"retrieve" toml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	Answer    AnswerConfig    `yaml:"answer" toml:"answer"`
	Ingest    IngestConfig    `yaml:"ingest" toml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// CorpusConfig locates the corpus snapshot.
type CorpusConfig struct {
	Path   string `yaml:"path" toml:"path"`     // relative paths resolve against the root dir
	Layout string `yaml:"layout" toml:"layout"` // "rows" or "flat"
}

// ChunkConfig holds chunking configuration.
type ChunkConfig struct {
	Size       int      `yaml:"size" toml:"size"`
	Overlap    int      `yaml:"overlap" toml:"overlap"`
	Separators []string `yaml:"separators" toml:"separators"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK     int     `yaml:"top_k" toml:"top_k"`
	MinScore float64 `yaml:"min_score" toml:"min_score"` // Filter results below this score (0 = disabled)
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" toml:"provider"` // "openai", "mock"
	Model             string  `yaml:"model" toml:"model"`
	BaseURL           string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env" toml:"api_key_env"` // Environment variable for API key
	Dimension         int     `yaml:"dimension" toml:"dimension"`
	BatchSize         int     `yaml:"batch_size" toml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries" toml:"max_retries"`
}

// AnswerConfig holds the answering and image description model settings.
type AnswerConfig struct {
	Model        string  `yaml:"model" toml:"model"`
	VisionModel  string  `yaml:"vision_model" toml:"vision_model"`
	BaseURL      string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv    string  `yaml:"api_key_env" toml:"api_key_env"`
	MaxTokens    int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature  float32 `yaml:"temperature" toml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt" toml:"system_prompt"`
	MaxRetries   int     `yaml:"max_retries" toml:"max_retries"`
}

// IngestConfig holds source discovery settings.
type IngestConfig struct {
	SourceDir        string   `yaml:"source_dir" toml:"source_dir"`
	ForumBaseURL     string   `yaml:"forum_base_url" toml:"forum_base_url"`
	ForumIncludes    []string `yaml:"forum_includes" toml:"forum_includes"`
	MarkdownIncludes []string `yaml:"markdown_includes" toml:"markdown_includes"`
	PDFIncludes      []string `yaml:"pdf_includes" toml:"pdf_includes"`
	Excludes         []string `yaml:"excludes" toml:"excludes"`
	ListFile         string   `yaml:"list_file" toml:"list_file"` // optional file naming forum exports, one per line
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

const defaultBaseURL = "https://aiproxy.sanand.workers.dev/openai/v1"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Path:   filepath.Join(".rag", "corpus.db"),
			Layout: "rows",
		},
		Chunk: ChunkConfig{
			Size:       500,
			Overlap:    50,
			Separators: []string{"\n\n", "\n", ".", " ", ""},
		},
		Retrieve: RetrieveConfig{
			TopK: 4,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			BaseURL:           defaultBaseURL,
			APIKeyEnv:         "OPENAI_API_KEY",
			Dimension:         1536,
			BatchSize:         100,
			RequestsPerSecond: 5,
			MaxRetries:        3,
		},
		Answer: AnswerConfig{
			Model:        "gpt-4o-mini",
			VisionModel:  "gpt-4o-mini",
			BaseURL:      defaultBaseURL,
			APIKeyEnv:    "OPENAI_API_KEY",
			MaxTokens:    500,
			Temperature:  0.2,
			SystemPrompt: "You are helpful expert teaching assistant of IIT Madras DS.TDS course.",
			MaxRetries:   3,
		},
		Ingest: IngestConfig{
			SourceDir:        "data",
			ForumBaseURL:     "https://discourse.onlinedegree.iitm.ac.in",
			ForumIncludes:    []string{"discourse_json/*.json", "**/*.discourse.json"},
			MarkdownIncludes: []string{"**/*.md"},
			PDFIncludes:      []string{"**/*.pdf"},
			Excludes:         []string{"**/.git/**", "**/node_modules/**"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, or TOML when path ends in .toml.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for rag.yaml,
// then rag.toml).
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"rag.yaml", "rag.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	// Try .rag/config.yaml
	path := filepath.Join(dir, ".rag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, %d), got %d", c.Chunk.Size, c.Chunk.Overlap)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.Retrieve.MinScore < -1 || c.Retrieve.MinScore > 1 {
		return fmt.Errorf("retrieve.min_score must be in [-1, 1], got %f", c.Retrieve.MinScore)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.BatchSize < 0 {
		return fmt.Errorf("embedding.batch_size must not be negative, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.MaxRetries < 0 || c.Embedding.MaxRetries > 10 {
		return fmt.Errorf("embedding.max_retries must be 0-10, got %d", c.Embedding.MaxRetries)
	}
	switch c.Corpus.Layout {
	case "", "rows", "flat":
	default:
		return fmt.Errorf("corpus.layout must be rows or flat, got %q", c.Corpus.Layout)
	}
	return nil
}

// Save saves configuration to a YAML file, or TOML when path ends in .toml.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// CorpusPath resolves the snapshot path against dir.
func (c *Config) CorpusPath(dir string) string {
	if filepath.IsAbs(c.Corpus.Path) {
		return c.Corpus.Path
	}
	return filepath.Join(dir, c.Corpus.Path)
}

// SourceDir resolves the ingest source directory against dir.
func (c *Config) SourceDir(dir string) string {
	if filepath.IsAbs(c.Ingest.SourceDir) {
		return c.Ingest.SourceDir
	}
	return filepath.Join(dir, c.Ingest.SourceDir)
}

// EnsureRAGDir ensures the .rag directory exists.
func EnsureRAGDir(dir string) error {
	ragDir := filepath.Join(dir, ".rag")
	return os.MkdirAll(ragDir, 0755)
}
