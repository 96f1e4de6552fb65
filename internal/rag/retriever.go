package rag

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/docsense/internal/embeddings"
	"github.com/ziadkadry99/docsense/internal/vectordb"
)

// Retriever embeds a query and searches the index with fixed options.
type Retriever struct {
	embedder embeddings.Embedder
	index    vectordb.Index
	opts     vectordb.SearchOptions
}

// NewRetriever creates a Retriever. opts.Where is ignored; pass filters to
// Retrieve instead.
func NewRetriever(embedder embeddings.Embedder, index vectordb.Index, opts vectordb.SearchOptions) *Retriever {
	opts.Where = nil
	return &Retriever{embedder: embedder, index: index, opts: opts}
}

// Retrieve returns the chunks most relevant to query, optionally restricted
// to records whose metadata matches where.
func (r *Retriever) Retrieve(ctx context.Context, query string, where map[string]string) ([]vectordb.SearchResult, error) {
	return r.retrieve(ctx, query, r.opts.K, where)
}

func (r *Retriever) retrieve(ctx context.Context, query string, k int, where map[string]string) ([]vectordb.SearchResult, error) {
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vecs))
	}

	opts := r.opts
	opts.Where = where
	if k > 0 {
		opts.K = k
		opts.FetchK = max(opts.FetchK, k)
	}
	return r.index.Search(ctx, vecs[0], opts)
}
