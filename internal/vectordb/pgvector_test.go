package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
)

// newPgTestStore connects to the database named by DOCSENSE_TEST_POSTGRES_DSN
// and creates a throwaway collection, or skips the test.
func newPgTestStore(t *testing.T, dims int) (*PgVectorStore, string) {
	t.Helper()
	dsn := os.Getenv("DOCSENSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCSENSE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewPgVectorStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPgVectorStore: %v", err)
	}
	name := fmt.Sprintf("docsense_test_%d", os.Getpid())
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+pgx.Identifier{name}.Sanitize())
		store.Close()
	})
	if err := store.EnsureCollection(ctx, name, dims, MetricCosine); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	return store, name
}

func TestPgVectorStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, name := newPgTestStore(t, testDims)

	if err := store.Upsert(ctx, []Record{
		record("1", "a.txt", "user authentication and login"),
		record("2", "a.txt", "session cookies"),
		record("3", "b.txt", "database pooling"),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := store.Search(ctx, deterministicVector("user authentication and login", testDims), SearchOptions{K: 2, FetchK: 3, Diversify: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].Record.ID != "1" {
		t.Fatalf("unexpected results: %+v", results)
	}

	sources, err := store.Sources(ctx)
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("expected 2 sources, got %v", sources)
	}

	if err := store.DeleteBySource(ctx, "a.txt"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	if err := store.EnsureCollection(ctx, name, testDims*2, MetricCosine); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPgVectorStore_MixedCaseNameDetectsDimensionMismatch(t *testing.T) {
	dsn := os.Getenv("DOCSENSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCSENSE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewPgVectorStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPgVectorStore: %v", err)
	}
	name := fmt.Sprintf("DocSense_Mixed_%d", os.Getpid())
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+pgx.Identifier{name}.Sanitize())
		store.Close()
	})

	if err := store.EnsureCollection(ctx, name, testDims, MetricCosine); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := store.EnsureCollection(ctx, name, testDims, MetricCosine); err != nil {
		t.Fatalf("EnsureCollection is not idempotent: %v", err)
	}
	if err := store.EnsureCollection(ctx, name, testDims*2, MetricCosine); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPgVectorStore_RejectsBadName(t *testing.T) {
	store := &PgVectorStore{}
	if err := store.EnsureCollection(context.Background(), "bad-name; drop", 3, MetricCosine); err == nil {
		t.Error("expected invalid name error")
	}
}
