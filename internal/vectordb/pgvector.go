package vectordb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ziadkadry99/docsense/internal/document"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PgVectorStore implements Index on PostgreSQL with the pgvector extension.
// Each collection is a table; the source metadata key is mirrored into an
// indexed generated column so filtered deletes stay cheap.
type PgVectorStore struct {
	pool *pgxpool.Pool

	mu    sync.RWMutex
	spec  CollectionSpec
	table string
}

var _ Index = (*PgVectorStore)(nil)

// NewPgVectorStore connects to PostgreSQL and verifies the connection.
func NewPgVectorStore(ctx context.Context, dsn string) (*PgVectorStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PgVectorStore{pool: pool}, nil
}

func distanceOperator(metric Metric) (op, opclass string, err error) {
	switch metric {
	case MetricCosine:
		return "<=>", "vector_cosine_ops", nil
	case MetricL2:
		return "<->", "vector_l2_ops", nil
	case MetricDot:
		return "<#>", "vector_ip_ops", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedMetric, metric)
	}
}

func (s *PgVectorStore) EnsureCollection(ctx context.Context, name string, dim int, metric Metric) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	if dim <= 0 {
		return fmt.Errorf("collection dimension must be positive, got %d", dim)
	}
	_, opclass, err := distanceOperator(metric)
	if err != nil {
		return err
	}
	table := pgx.Identifier{name}.Sanitize()

	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return &IndexWriteError{Op: "create extension", Err: err}
	}

	var existing int
	err = s.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = to_regclass($1) AND attname = 'embedding'`,
		table,
	).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id TEXT PRIMARY KEY,
				content TEXT NOT NULL,
				metadata JSONB NOT NULL DEFAULT '{}',
				source TEXT GENERATED ALWAYS AS (metadata->>'source') STORED,
				embedding vector(%[2]d) NOT NULL
			);
			CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s (source);
			CREATE INDEX IF NOT EXISTS %[4]s ON %[1]s USING hnsw (embedding %[5]s);`,
			table, dim,
			pgx.Identifier{name + "_source_idx"}.Sanitize(),
			pgx.Identifier{name + "_embedding_idx"}.Sanitize(),
			opclass,
		)
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return &IndexWriteError{Op: "create collection", Err: err}
		}
	case err != nil:
		return fmt.Errorf("inspect collection %q: %w", name, err)
	case existing != dim:
		return &DimensionMismatchError{Collection: name, Want: existing, Got: dim}
	}

	s.mu.Lock()
	s.spec = CollectionSpec{Name: name, Dimension: dim, Metric: metric}
	s.table = table
	s.mu.Unlock()
	return nil
}

func (s *PgVectorStore) current() (CollectionSpec, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == "" {
		return CollectionSpec{}, "", ErrNoCollection
	}
	return s.spec, s.table, nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, records []Record) error {
	spec, table, err := s.current()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, table)

	batch := &pgx.Batch{}
	for _, r := range records {
		if len(r.Embedding) != spec.Dimension {
			return &DimensionMismatchError{Collection: spec.Name, Want: spec.Dimension, Got: len(r.Embedding)}
		}
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		md := r.Metadata
		if md == nil {
			md = map[string]string{}
		}
		batch.Queue(query, id, r.Text, md, pgvector.NewVector(r.Embedding))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &IndexWriteError{Op: "upsert", Err: err}
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return &IndexWriteError{Op: "upsert", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &IndexWriteError{Op: "upsert", Err: err}
	}
	return nil
}

func (s *PgVectorStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if err := validateSearch(opts); err != nil {
		return nil, fmt.Errorf("%w: k=%d fetch_k=%d", err, opts.K, opts.FetchK)
	}
	spec, table, err := s.current()
	if err != nil {
		return nil, err
	}
	if len(query) != spec.Dimension {
		return nil, &DimensionMismatchError{Collection: spec.Name, Want: spec.Dimension, Got: len(query)}
	}
	op, _, err := distanceOperator(spec.Metric)
	if err != nil {
		return nil, err
	}

	limit := opts.K
	if opts.Diversify {
		limit = opts.FetchK
	}
	where := opts.Where
	if where == nil {
		where = map[string]string{}
	}

	sql := fmt.Sprintf(`
		SELECT id, content, metadata, embedding, embedding %[2]s $1 AS distance
		FROM %[1]s
		WHERE metadata @> $2
		ORDER BY embedding %[2]s $1
		LIMIT $3`, table, op)
	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(query), where, limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}
	defer rows.Close()

	var candidates []SearchResult
	for rows.Next() {
		var (
			r        Record
			vec      pgvector.Vector
			distance float64
		)
		if err := rows.Scan(&r.ID, &r.Text, &r.Metadata, &vec, &distance); err != nil {
			return nil, fmt.Errorf("scan pgvector row: %w", err)
		}
		r.Embedding = vec.Slice()
		candidates = append(candidates, SearchResult{Record: r, Similarity: similarity(spec.Metric, distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector rows: %w", err)
	}

	return rerank(query, candidates, opts), nil
}

// similarity converts a pgvector distance into a higher-is-closer score.
func similarity(metric Metric, distance float64) float32 {
	switch metric {
	case MetricCosine:
		return float32(1 - distance)
	case MetricDot:
		return float32(-distance)
	default:
		return float32(-distance)
	}
}

func (s *PgVectorStore) DeleteBySource(ctx context.Context, source string) error {
	_, table, err := s.current()
	if err != nil {
		if errors.Is(err, ErrNoCollection) {
			return nil
		}
		return err
	}

	_, nativeErr := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, table), source)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE metadata->>$2 = $1`, table), source, document.KeySource)
	if err != nil {
		return &IndexWriteError{Op: "delete by source", Err: errors.Join(nativeErr, err)}
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return &IndexWriteError{Op: "delete by source", Err: errors.Join(nativeErr, err)}
	}
	if len(ids) == 0 {
		return nil
	}
	return s.Delete(ctx, ids...)
}

func (s *PgVectorStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, table, err := s.current()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, table), ids); err != nil {
		return &IndexWriteError{Op: "delete", Err: err}
	}
	return nil
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	_, table, err := s.current()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *PgVectorStore) Sources(ctx context.Context) ([]string, error) {
	_, table, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT DISTINCT source FROM %s WHERE source IS NOT NULL ORDER BY source`, table))
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PgVectorStore) Close() error {
	s.pool.Close()
	return nil
}
