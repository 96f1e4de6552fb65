package vectordb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/docsense/internal/document"
)

// ChromemStore implements Index using an embedded chromem-go database.
// Records are stored with precomputed embeddings; chromem only supports
// cosine similarity.
type ChromemStore struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc
	registry  SchemaRegistry

	mu         sync.RWMutex
	collection *chromem.Collection
	spec       CollectionSpec
}

var _ Index = (*ChromemStore)(nil)

// NewChromemStore opens a chromem database persisted under dir, or an
// in-memory one when dir is empty. ef is only used for records that arrive
// without an embedding. A nil registry keeps schemas in memory.
func NewChromemStore(dir string, ef chromem.EmbeddingFunc, registry SchemaRegistry) (*ChromemStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", dir, err)
		}
	}
	if registry == nil {
		registry = NewMemoryRegistry()
	}

	return &ChromemStore{
		db:        db,
		embedFunc: ef,
		registry:  registry,
	}, nil
}

func (s *ChromemStore) EnsureCollection(ctx context.Context, name string, dim int, metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("%w: chromem supports cosine only, got %q", ErrUnsupportedMetric, metric)
	}
	if dim <= 0 {
		return fmt.Errorf("collection dimension must be positive, got %d", dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known, ok, err := s.registry.LookupCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("look up collection %q: %w", name, err)
	}
	if ok && known.Dimension != dim {
		return &DimensionMismatchError{Collection: name, Want: known.Dimension, Got: dim}
	}
	if ok && known.Metric != metric {
		return fmt.Errorf("%w: collection %q uses %q", ErrUnsupportedMetric, name, known.Metric)
	}

	col := s.db.GetCollection(name, s.embedFunc)
	if col == nil {
		col, err = s.db.CreateCollection(name, map[string]string{
			"dimension": strconv.Itoa(dim),
			"metric":    string(metric),
		}, s.embedFunc)
		if err != nil {
			return &IndexWriteError{Op: "create collection", Err: err}
		}
	} else if !ok && col.Count() > 0 {
		// The registry lost track of an existing collection. chromem fails a
		// query whose vector length differs from the stored vectors.
		if _, err := col.QueryEmbedding(ctx, probeVector(dim), 1, nil, nil); err != nil {
			return fmt.Errorf("%w: existing collection %q does not hold %d-dimension vectors", ErrDimensionMismatch, name, dim)
		}
	}

	spec := CollectionSpec{Name: name, Dimension: dim, Metric: metric}
	if !ok {
		if err := s.registry.RegisterCollection(ctx, spec); err != nil {
			return fmt.Errorf("register collection %q: %w", name, err)
		}
	}

	s.collection = col
	s.spec = spec
	return nil
}

func (s *ChromemStore) current() (*chromem.Collection, CollectionSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return nil, CollectionSpec{}, ErrNoCollection
	}
	return s.collection, s.spec, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	col, spec, err := s.current()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if len(r.Embedding) != spec.Dimension {
			return &DimensionMismatchError{Collection: spec.Name, Want: spec.Dimension, Got: len(r.Embedding)}
		}
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		docs[i] = chromem.Document{
			ID:        id,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
			Content:   r.Text,
		}
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return &IndexWriteError{Op: "upsert", Err: err}
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if err := validateSearch(opts); err != nil {
		return nil, fmt.Errorf("%w: k=%d fetch_k=%d", err, opts.K, opts.FetchK)
	}
	col, spec, err := s.current()
	if err != nil {
		return nil, err
	}
	if len(query) != spec.Dimension {
		return nil, &DimensionMismatchError{Collection: spec.Name, Want: spec.Dimension, Got: len(query)}
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	n := opts.K
	if opts.Diversify {
		n = opts.FetchK
	}
	n = min(n, count)

	results, err := col.QueryEmbedding(ctx, query, n, opts.Where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	candidates := make([]SearchResult, len(results))
	for i, r := range results {
		candidates[i] = SearchResult{
			Record: Record{
				ID:        r.ID,
				Text:      r.Content,
				Metadata:  r.Metadata,
				Embedding: r.Embedding,
			},
			Similarity: r.Similarity,
		}
	}

	return rerank(query, candidates, opts), nil
}

// rerank applies MMR when requested and trims to K.
func rerank(query []float32, candidates []SearchResult, opts SearchOptions) []SearchResult {
	if !opts.Diversify {
		if len(candidates) > opts.K {
			candidates = candidates[:opts.K]
		}
		return candidates
	}

	vecs := make([][]float32, len(candidates))
	for i, c := range candidates {
		vecs[i] = c.Record.Embedding
	}
	order := MMR(query, vecs, opts.K, opts.lambda())
	out := make([]SearchResult, len(order))
	for i, idx := range order {
		out[i] = candidates[idx]
	}
	return out
}

func (s *ChromemStore) DeleteBySource(ctx context.Context, source string) error {
	col, spec, err := s.current()
	if err != nil {
		if errors.Is(err, ErrNoCollection) {
			return nil
		}
		return err
	}
	if col.Count() == 0 {
		return nil
	}

	where := map[string]string{document.KeySource: source}
	// A failed filtered delete is not fatal: the scan below removes whatever
	// it left behind.
	nativeErr := col.Delete(ctx, where, nil)

	ids, err := s.scanIDs(ctx, col, spec, where)
	if err != nil {
		return &IndexWriteError{Op: "delete by source", Err: errors.Join(nativeErr, err)}
	}
	if len(ids) == 0 {
		return nil
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return &IndexWriteError{Op: "delete by source", Err: errors.Join(nativeErr, err)}
	}

	remaining, err := s.scanIDs(ctx, col, spec, where)
	if err != nil {
		return &IndexWriteError{Op: "delete by source", Err: err}
	}
	if len(remaining) > 0 {
		return &IndexWriteError{Op: "delete by source", Err: fmt.Errorf("%d records for %q survived deletion", len(remaining), source)}
	}
	return nil
}

// scanIDs lists ids of records matching where by querying the whole
// collection with a fixed probe vector.
func (s *ChromemStore) scanIDs(ctx context.Context, col *chromem.Collection, spec CollectionSpec, where map[string]string) ([]string, error) {
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	results, err := col.QueryEmbedding(ctx, probeVector(spec.Dimension), count, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem scan: %w", err)
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *ChromemStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	col, _, err := s.current()
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return &IndexWriteError{Op: "delete", Err: err}
	}
	return nil
}

func (s *ChromemStore) Count(_ context.Context) (int, error) {
	col, _, err := s.current()
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

func (s *ChromemStore) Sources(ctx context.Context) ([]string, error) {
	col, spec, err := s.current()
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	results, err := col.QueryEmbedding(ctx, probeVector(spec.Dimension), count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem scan: %w", err)
	}

	seen := make(map[string]bool)
	for _, r := range results {
		if src := r.Metadata[document.KeySource]; src != "" {
			seen[src] = true
		}
	}
	sources := make([]string, 0, len(seen))
	for src := range seen {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources, nil
}

// Export writes the whole database to a gzip-compressed gob file.
func (s *ChromemStore) Export(path string) error {
	if err := s.db.ExportToFile(path, true, ""); err != nil {
		return fmt.Errorf("export to %s: %w", path, err)
	}
	return nil
}

// Import loads collections from a file written by Export and re-attaches
// the current collection.
func (s *ChromemStore) Import(ctx context.Context, path string) error {
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spec.Name == "" {
		return nil
	}
	col := s.db.GetCollection(s.spec.Name, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", s.spec.Name)
	}
	if col.Count() > 0 {
		if _, err := col.QueryEmbedding(ctx, probeVector(s.spec.Dimension), 1, nil, nil); err != nil {
			return fmt.Errorf("%w: imported collection %q does not hold %d-dimension vectors", ErrDimensionMismatch, s.spec.Name, s.spec.Dimension)
		}
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Close() error {
	return nil
}

// probeVector is a unit vector used for exhaustive scans.
func probeVector(dim int) []float32 {
	v := make([]float32, dim)
	v[0] = 1
	return v
}
