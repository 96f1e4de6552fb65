// Package rag implements the document question-answering pipeline:
// ingest (load, chunk, embed, index), delete, ask and suggest.
package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/docsense/internal/catalog"
	"github.com/ziadkadry99/docsense/internal/chunker"
	"github.com/ziadkadry99/docsense/internal/document"
	"github.com/ziadkadry99/docsense/internal/embeddings"
	"github.com/ziadkadry99/docsense/internal/llm"
	"github.com/ziadkadry99/docsense/internal/loader"
	"github.com/ziadkadry99/docsense/internal/vectordb"
)

// Catalog records ingested documents. *catalog.Store implements it.
type Catalog interface {
	Upsert(ctx context.Context, e catalog.Entry) (*catalog.Entry, error)
	Delete(ctx context.Context, filename string) (bool, error)
}

// Config holds the pipeline's tunables.
type Config struct {
	Collection   string
	Metric       vectordb.Metric
	ProviderType string
	ChatModel    string
	SuggestModel string
	Temperature  float64
	Search       vectordb.SearchOptions
}

// Pipeline composes loader, chunker, embedder, index and language model
// into the ingest, delete, ask and suggest operations.
type Pipeline struct {
	loader   *loader.Loader
	splitter *chunker.Splitter
	embedder embeddings.Embedder
	index    vectordb.Index
	catalog  Catalog
	cfg      Config

	retriever   *Retriever
	synthesizer *Synthesizer
	suggester   *Suggester
}

// NewPipeline creates a Pipeline. catalog may be nil.
func NewPipeline(
	ld *loader.Loader,
	splitter *chunker.Splitter,
	embedder embeddings.Embedder,
	index vectordb.Index,
	provider llm.Provider,
	cat Catalog,
	cfg Config,
) *Pipeline {
	if cfg.Metric == "" {
		cfg.Metric = vectordb.MetricCosine
	}
	retriever := NewRetriever(embedder, index, cfg.Search)
	return &Pipeline{
		loader:      ld,
		splitter:    splitter,
		embedder:    embedder,
		index:       index,
		catalog:     cat,
		cfg:         cfg,
		retriever:   retriever,
		synthesizer: NewSynthesizer(retriever, provider, cfg.ProviderType, cfg.ChatModel, cfg.Temperature),
		suggester:   NewSuggester(ld, provider, cfg.SuggestModel, cfg.Temperature),
	}
}

// Init ensures the collection exists with the embedder's dimension.
func (p *Pipeline) Init(ctx context.Context) error {
	if err := p.index.EnsureCollection(ctx, p.cfg.Collection, p.embedder.Dimensions(), p.cfg.Metric); err != nil {
		return fmt.Errorf("ensure collection %s: %w", p.cfg.Collection, err)
	}
	return nil
}

// Ingest loads, chunks, embeds and indexes the document at path, replacing
// any chunks previously indexed under the same filename. Nothing is written
// until the whole document has been parsed and embedded, and a failed write
// removes what this call wrote. Errors are reported in the result.
func (p *Pipeline) Ingest(ctx context.Context, path string) IngestResult {
	source := filepath.Base(path)
	start := time.Now()

	chunks, size, err := p.ingest(ctx, path, source)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("ingest failed")
		return IngestResult{Filename: source, Status: StatusError, Message: err.Error(), Err: err}
	}

	log.Info().
		Str("source", source).
		Int("chunks", chunks).
		Int64("bytes", size).
		Dur("elapsed", time.Since(start)).
		Msg("ingested document")
	return IngestResult{Filename: source, Status: StatusSuccess, Chunks: chunks}
}

func (p *Pipeline) ingest(ctx context.Context, path, source string) (int, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, 0, fmt.Errorf("file not found: %s", source)
		}
		return 0, 0, err
	}
	format, err := loader.FormatOf(path)
	if err != nil {
		return 0, 0, err
	}

	segments, err := p.loader.Load(path)
	if err != nil {
		return 0, 0, err
	}
	chunks, err := p.splitter.Split(segments, source)
	if err != nil {
		return 0, 0, err
	}
	if len(chunks) == 0 {
		return 0, 0, fmt.Errorf("%w: %s", loader.ErrEmptyDocument, source)
	}

	records, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return 0, 0, err
	}

	if err := p.index.DeleteBySource(ctx, source); err != nil {
		return 0, 0, fmt.Errorf("replace previous chunks: %w", err)
	}
	if err := p.index.Upsert(ctx, records); err != nil {
		p.rollback(records, source)
		return 0, 0, err
	}

	if p.catalog != nil {
		_, err := p.catalog.Upsert(ctx, catalog.Entry{
			Filename:   source,
			Format:     format,
			SizeBytes:  info.Size(),
			Chunks:     len(records),
			Collection: p.cfg.Collection,
		})
		if err != nil {
			// The index is authoritative; a stale catalog only affects listings.
			log.Error().Err(err).Str("source", source).Msg("catalog update failed")
		}
	}
	return len(records), info.Size(), nil
}

// rollback removes the records of a failed upsert. It runs on a fresh
// context so a cancelled request still cleans up.
func (p *Pipeline) rollback(records []vectordb.Record, source string) {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.index.Delete(ctx, ids...); err != nil {
		log.Error().Err(err).Str("source", source).Int("records", len(ids)).Msg("rollback of partial ingest failed")
	}
	if p.catalog != nil {
		if _, err := p.catalog.Delete(ctx, source); err != nil {
			log.Error().Err(err).Str("source", source).Msg("catalog rollback failed")
		}
	}
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []document.Chunk) ([]vectordb.Record, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vecs), len(chunks))
	}

	records := make([]vectordb.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectordb.Record{
			ID:        uuid.NewString(),
			Text:      c.Text,
			Metadata:  c.Metadata,
			Embedding: vecs[i],
		}
	}
	return records, nil
}

// Delete removes every chunk of filename from the index and its catalog
// entry. Deleting an unknown filename is not an error.
func (p *Pipeline) Delete(ctx context.Context, filename string) error {
	if err := p.index.DeleteBySource(ctx, filename); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	if p.catalog != nil {
		if _, err := p.catalog.Delete(ctx, filename); err != nil {
			return fmt.Errorf("delete %s: %w", filename, err)
		}
	}
	log.Info().Str("source", filename).Msg("deleted document")
	return nil
}

// Ask answers a single question. An empty model selects the configured default.
func (p *Pipeline) Ask(ctx context.Context, question, model string) (*Answer, error) {
	return p.synthesizer.Ask(ctx, question, model, nil)
}

// AskWithHistory answers a question in the context of earlier turns.
func (p *Pipeline) AskWithHistory(ctx context.Context, question, model string, history []Turn) (*Answer, error) {
	return p.synthesizer.Ask(ctx, question, model, history)
}

// Suggest proposes up to five questions about the document at path. It
// never fails.
func (p *Pipeline) Suggest(ctx context.Context, path, model string) []string {
	return p.suggester.Suggest(ctx, path, model)
}

// Search retrieves the k chunks most relevant to query without calling the
// language model. source, when non-empty, restricts results to one document.
// k <= 0 uses the configured k.
func (p *Pipeline) Search(ctx context.Context, query string, k int, source string) ([]ContextDoc, error) {
	var where map[string]string
	if source != "" {
		where = map[string]string{document.KeySource: source}
	}
	results, err := p.retriever.retrieve(ctx, query, k, where)
	if err != nil {
		return nil, err
	}
	return toContextDocs(results), nil
}

// Sources lists the filenames present in the index.
func (p *Pipeline) Sources(ctx context.Context) ([]string, error) {
	return p.index.Sources(ctx)
}

// Collection returns the name of the collection the pipeline writes to.
func (p *Pipeline) Collection() string { return p.cfg.Collection }
