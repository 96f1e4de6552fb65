package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/docsense/internal/catalog"
	"github.com/ziadkadry99/docsense/internal/chunker"
	"github.com/ziadkadry99/docsense/internal/config"
	"github.com/ziadkadry99/docsense/internal/corpus"
	"github.com/ziadkadry99/docsense/internal/db"
	"github.com/ziadkadry99/docsense/internal/embeddings"
	"github.com/ziadkadry99/docsense/internal/llm"
	"github.com/ziadkadry99/docsense/internal/loader"
	"github.com/ziadkadry99/docsense/internal/rag"
	"github.com/ziadkadry99/docsense/internal/vectordb"
)

// app bundles everything a command needs. Close releases it.
type app struct {
	cfg      *config.Config
	db       *db.DB
	catalog  *catalog.Store
	corpus   *corpus.Corpus
	index    vectordb.Index
	chromem  *vectordb.ChromemStore // nil for pgvector
	embedder embeddings.Embedder
	pipeline *rag.Pipeline
}

// loadConfig returns the config loaded by the root command, validated.
func loadConfig() (*config.Config, error) {
	cfg := appCfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// createEmbedder builds the embedding provider named in cfg.
func createEmbedder(ctx context.Context, cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDimensions, os.Getenv("OLLAMA_HOST")), nil
	case config.ProviderOpenAI:
		apiKey := os.Getenv(llm.APIKeyEnvVar(string(config.ProviderOpenAI)))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel), cfg.EmbeddingDimensions), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(llm.APIKeyEnvVar(string(config.ProviderGoogle)))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(ctx, apiKey, embeddings.GoogleModel(cfg.EmbeddingModel), cfg.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

// createLLMProvider builds the chat provider, rate limited when llm_rpm is set.
func createLLMProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(ctx, string(cfg.LLMProvider), cfg.ChatModel)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(p, cfg.LLMRPM), nil
}

// openIndex opens the configured vector index backend.
func openIndex(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder, registry vectordb.SchemaRegistry) (vectordb.Index, *vectordb.ChromemStore, error) {
	switch cfg.Index.Backend {
	case config.BackendPgVector:
		store, err := vectordb.NewPgVectorStore(ctx, cfg.Index.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		store, err := vectordb.NewChromemStore(cfg.Index.Path, embeddings.ToChromemFunc(embedder), registry)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
}

// openApp wires config, catalog, corpus, index and pipeline. withLLM
// controls whether a chat provider is created; commands that only ingest
// or delete run without an API key.
func openApp(ctx context.Context, withLLM bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	a.db, err = db.Open(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	a.catalog = catalog.NewStore(a.db)

	a.corpus, err = corpus.New(cfg.DocsDir)
	if err != nil {
		return nil, err
	}

	a.embedder, err = createEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	a.index, a.chromem, err = openIndex(ctx, cfg, a.embedder, a.catalog)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	var provider llm.Provider
	if withLLM {
		provider, err = createLLMProvider(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
	}

	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap, chunker.WithMaxChunks(cfg.MaxChunks))
	if err != nil {
		return nil, err
	}

	a.pipeline = rag.NewPipeline(
		loader.New(cfg.MaxPages),
		splitter,
		a.embedder,
		a.index,
		provider,
		a.catalog,
		rag.Config{
			Collection:   cfg.Index.Collection,
			Metric:       vectordb.Metric(cfg.Index.Metric),
			ProviderType: string(cfg.LLMProvider),
			ChatModel:    cfg.ChatModel,
			SuggestModel: cfg.SuggestModel,
			Temperature:  cfg.Temperature,
			Search: vectordb.SearchOptions{
				K:         cfg.Retrieval.K,
				FetchK:    cfg.Retrieval.FetchK,
				Diversify: true,
				Lambda:    float32(cfg.Retrieval.MMRLambda),
			},
		},
	)
	if err := a.pipeline.Init(ctx); err != nil {
		return nil, err
	}

	log.Debug().
		Str("index", string(cfg.Index.Backend)).
		Str("collection", cfg.Index.Collection).
		Str("embedder", a.embedder.Name()).
		Msg("pipeline ready")

	ok = true
	return a, nil
}

// Close releases the index and catalog.
func (a *app) Close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			log.Warn().Err(err).Msg("closing index")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("closing catalog")
		}
	}
}

// withTimeout bounds ctx by request_timeout when it is set.
func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
