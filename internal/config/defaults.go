package config

import "time"

// DefaultConfigFile is where the wizard writes and commands look by default.
const DefaultConfigFile = ".docsense.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProvider:         ProviderGroq,
		ChatModel:           "llama-3.3-70b-versatile",
		SuggestModel:        "llama-3.1-8b-instant",
		Temperature:         0.3,
		EmbeddingProvider:   ProviderOllama,
		EmbeddingModel:      "all-minilm",
		EmbeddingDimensions: 384,
		Index: IndexConfig{
			Backend:    BackendChromem,
			Path:       "data/index",
			Collection: "docsense_docs",
			Metric:     "cosine",
		},
		Retrieval: RetrievalConfig{
			K:         5,
			FetchK:    20,
			MMRLambda: 0.5,
		},
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: []string{"*"},
		},
		DocsDir:        "data/docs",
		CatalogPath:    "data/docsense.db",
		ChunkSize:      1000,
		ChunkOverlap:   200,
		MaxPages:       1000,
		MaxChunks:      10000,
		RequestTimeout: 120 * time.Second,
		LogLevel:       "info",
	}
}

// embeddingPresets maps an embedding provider to a model and dimension that
// fit the default 384-dimension index where the provider allows it.
var embeddingPresets = map[ProviderType]struct {
	Model      string
	Dimensions int
}{
	ProviderOllama: {Model: "all-minilm", Dimensions: 384},
	ProviderOpenAI: {Model: "text-embedding-3-small", Dimensions: 384},
	ProviderGoogle: {Model: "gemini-embedding-001", Dimensions: 384},
}
