package config

import "time"

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderGroq       ProviderType = "groq"
	ProviderOpenAI     ProviderType = "openai"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
)

// IndexBackend selects the vector index implementation.
type IndexBackend string

const (
	BackendChromem  IndexBackend = "chromem"
	BackendPgVector IndexBackend = "pgvector"
)

// Config is the top-level DocSense configuration, corresponding to .docsense.yml.
type Config struct {
	LLMProvider  ProviderType `yaml:"llm_provider" koanf:"llm_provider"`
	ChatModel    string       `yaml:"chat_model" koanf:"chat_model"`
	SuggestModel string       `yaml:"suggest_model" koanf:"suggest_model"`
	Temperature  float64      `yaml:"temperature" koanf:"temperature"`
	LLMRPM       int          `yaml:"llm_rpm" koanf:"llm_rpm"`

	EmbeddingProvider   ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string       `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions int          `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`

	Index     IndexConfig     `yaml:"index" koanf:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`

	DocsDir      string `yaml:"docs_dir" koanf:"docs_dir"`
	CatalogPath  string `yaml:"catalog_path" koanf:"catalog_path"`
	ChunkSize    int    `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	MaxPages     int    `yaml:"max_pages" koanf:"max_pages"`
	MaxChunks    int    `yaml:"max_chunks" koanf:"max_chunks"`

	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	LogLevel       string        `yaml:"log_level" koanf:"log_level"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Backend     IndexBackend `yaml:"backend" koanf:"backend"`
	Path        string       `yaml:"path" koanf:"path"`
	Collection  string       `yaml:"collection" koanf:"collection"`
	Metric      string       `yaml:"metric" koanf:"metric"`
	PostgresDSN string       `yaml:"postgres_dsn" koanf:"postgres_dsn"`
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	K         int     `yaml:"k" koanf:"k"`
	FetchK    int     `yaml:"fetch_k" koanf:"fetch_k"`
	MMRLambda float64 `yaml:"mmr_lambda" koanf:"mmr_lambda"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}
