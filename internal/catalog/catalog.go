// Package catalog records which documents are indexed and the schema of
// each vector collection, in the shared SQLite database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/docsense/internal/db"
	"github.com/ziadkadry99/docsense/internal/document"
	"github.com/ziadkadry99/docsense/internal/vectordb"
)

// Entry is one ingested document.
type Entry struct {
	Filename   string          `json:"filename"`
	Format     document.Format `json:"format"`
	SizeBytes  int64           `json:"size_bytes"`
	Chunks     int             `json:"chunks"`
	Collection string          `json:"collection"`
	IngestID   string          `json:"ingest_id"`
	IngestedAt time.Time       `json:"ingested_at"`
}

// Store provides CRUD operations for catalog entries and collection schemas.
type Store struct {
	db *db.DB
}

var _ vectordb.SchemaRegistry = (*Store)(nil)

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert records a document, replacing any previous entry for the filename.
// A missing IngestID is generated; a zero IngestedAt means now.
func (s *Store) Upsert(ctx context.Context, e Entry) (*Entry, error) {
	if e.Filename == "" {
		return nil, errors.New("catalog entry needs a filename")
	}
	if e.IngestID == "" {
		e.IngestID = uuid.NewString()
	}
	if e.IngestedAt.IsZero() {
		e.IngestedAt = time.Now()
	}
	e.IngestedAt = e.IngestedAt.UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (filename, format, size_bytes, chunk_count, collection, ingest_id, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			format = excluded.format,
			size_bytes = excluded.size_bytes,
			chunk_count = excluded.chunk_count,
			collection = excluded.collection,
			ingest_id = excluded.ingest_id,
			ingested_at = excluded.ingested_at`,
		e.Filename, string(e.Format), e.SizeBytes, e.Chunks, e.Collection, e.IngestID,
		e.IngestedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("upserting document %s: %w", e.Filename, err)
	}
	return &e, nil
}

// Get returns the entry for filename, or nil if it is not catalogued.
func (s *Store) Get(ctx context.Context, filename string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT filename, format, size_bytes, chunk_count, collection, ingest_id, ingested_at
		FROM documents WHERE filename = ?`, filename)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", filename, err)
	}
	return e, nil
}

// Delete removes the entry for filename and reports whether one existed.
func (s *Store) Delete(ctx context.Context, filename string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE filename = ?`, filename)
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", filename, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns entries in a collection ordered by filename. An empty
// collection name lists everything.
func (s *Store) List(ctx context.Context, collection string) ([]Entry, error) {
	query := `SELECT filename, format, size_bytes, chunk_count, collection, ingest_id, ingested_at FROM documents`
	var args []any
	if collection != "" {
		query += ` WHERE collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY filename`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Stats summarises a collection.
type Stats struct {
	Documents  int   `json:"documents"`
	Chunks     int   `json:"chunks"`
	TotalBytes int64 `json:"total_bytes"`
}

// Stats aggregates the entries of a collection.
func (s *Store) Stats(ctx context.Context, collection string) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(chunk_count), 0), COALESCE(SUM(size_bytes), 0)
		FROM documents WHERE collection = ?`, collection,
	).Scan(&st.Documents, &st.Chunks, &st.TotalBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("collection stats: %w", err)
	}
	return st, nil
}

// LookupCollection implements vectordb.SchemaRegistry.
func (s *Store) LookupCollection(ctx context.Context, name string) (vectordb.CollectionSpec, bool, error) {
	var (
		spec   vectordb.CollectionSpec
		metric string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, dimension, metric FROM collections WHERE name = ?`, name,
	).Scan(&spec.Name, &spec.Dimension, &metric)
	if errors.Is(err, sql.ErrNoRows) {
		return vectordb.CollectionSpec{}, false, nil
	}
	if err != nil {
		return vectordb.CollectionSpec{}, false, fmt.Errorf("looking up collection %s: %w", name, err)
	}
	spec.Metric = vectordb.Metric(metric)
	return spec, true, nil
}

// RegisterCollection implements vectordb.SchemaRegistry. An existing
// registration is left untouched.
func (s *Store) RegisterCollection(ctx context.Context, spec vectordb.CollectionSpec) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, metric) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		spec.Name, spec.Dimension, string(spec.Metric),
	)
	if err != nil {
		return fmt.Errorf("registering collection %s: %w", spec.Name, err)
	}
	return nil
}

// ForgetCollection drops the schema registration and all catalog entries of
// a collection, used when an index is rebuilt from scratch.
func (s *Store) ForgetCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, name); err != nil {
		return fmt.Errorf("forgetting documents of %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("forgetting collection %s: %w", name, err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e      Entry
		format string
		ts     string
	)
	if err := sc.Scan(&e.Filename, &format, &e.SizeBytes, &e.Chunks, &e.Collection, &e.IngestID, &ts); err != nil {
		return nil, err
	}
	e.Format = document.Format(format)
	e.IngestedAt = parseTime(ts)
	return &e, nil
}

// parseTime accepts the layouts SQLite drivers hand back for DATETIME columns.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
