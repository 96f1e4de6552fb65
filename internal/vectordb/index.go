package vectordb

import "context"

// Index defines the vector store the pipeline depends on.
type Index interface {
	// EnsureCollection creates the collection if absent. It fails with a
	// *DimensionMismatchError when an existing collection has another dimension.
	EnsureCollection(ctx context.Context, name string, dim int, metric Metric) error

	// Upsert writes records. Records without an ID get a random one.
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to opts.K records ranked by similarity to query.
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)

	// DeleteBySource removes every record whose source metadata equals source.
	DeleteBySource(ctx context.Context, source string) error

	// Delete removes records by id.
	Delete(ctx context.Context, ids ...string) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Sources returns the distinct source values present, sorted.
	Sources(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

func validateSearch(opts SearchOptions) error {
	if opts.K <= 0 {
		return ErrInvalidSearch
	}
	if opts.FetchK < opts.K {
		return ErrInvalidSearch
	}
	return nil
}
