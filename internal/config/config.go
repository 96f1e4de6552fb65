package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/docsense/internal/chunker"
)

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore, e.g. DOCSENSE_RETRIEVAL__K.
const EnvPrefix = "DOCSENSE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCSENSE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// DOCSENSE_LLM_PROVIDER -> llm_provider, DOCSENSE_INDEX__BACKEND -> index.backend.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLLMProviders = map[ProviderType]bool{
	ProviderGroq:       true,
	ProviderOpenAI:     true,
	ProviderAnthropic:  true,
	ProviderGoogle:     true,
	ProviderOllama:     true,
	ProviderOpenRouter: true,
}

var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOllama: true,
	ProviderOpenAI: true,
	ProviderGoogle: true,
}

var validMetrics = map[string]bool{
	"cosine": true,
	"dot":    true,
	"l2":     true,
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validLLMProviders[c.LLMProvider] {
		return fmt.Errorf("invalid llm_provider %q: must be one of groq, openai, anthropic, google, ollama, openrouter", c.LLMProvider)
	}
	if c.ChatModel == "" {
		return fmt.Errorf("chat_model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.LLMRPM < 0 {
		return fmt.Errorf("llm_rpm must be non-negative")
	}

	if !validEmbeddingProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be one of ollama, openai, google", c.EmbeddingProvider)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding_dimensions must be positive")
	}

	switch c.Index.Backend {
	case BackendChromem:
		if c.Index.Path == "" {
			return fmt.Errorf("index.path is required for the chromem backend")
		}
		// chromem only ranks by cosine similarity.
		if c.Index.Metric != "cosine" {
			return fmt.Errorf("index.metric %q is not supported by the chromem backend", c.Index.Metric)
		}
	case BackendPgVector:
		if c.Index.PostgresDSN == "" {
			return fmt.Errorf("index.postgres_dsn is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("invalid index.backend %q: must be chromem or pgvector", c.Index.Backend)
	}
	if c.Index.Collection == "" {
		return fmt.Errorf("index.collection is required")
	}
	if !validMetrics[c.Index.Metric] {
		return fmt.Errorf("invalid index.metric %q: must be one of cosine, dot, l2", c.Index.Metric)
	}

	if err := chunker.Validate(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.MaxPages < 0 || c.MaxChunks < 0 {
		return fmt.Errorf("max_pages and max_chunks must be non-negative")
	}

	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval.k must be positive")
	}
	if c.Retrieval.FetchK < c.Retrieval.K {
		return fmt.Errorf("retrieval.fetch_k (%d) must be >= retrieval.k (%d)", c.Retrieval.FetchK, c.Retrieval.K)
	}
	if c.Retrieval.MMRLambda < 0 || c.Retrieval.MMRLambda > 1 {
		return fmt.Errorf("retrieval.mmr_lambda must be between 0 and 1")
	}

	if c.DocsDir == "" {
		return fmt.Errorf("docs_dir is required")
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog_path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be non-negative")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	return nil
}
