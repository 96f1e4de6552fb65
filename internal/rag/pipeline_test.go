package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docsense/internal/document"
	"github.com/ziadkadry99/docsense/internal/loader"
	"github.com/ziadkadry99/docsense/internal/vectordb"
)

func TestIngest_DeadlineScenario(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	res := env.pipeline.Ingest(ctx, env.write(t, "spec.txt", "The deadline is March 3."))
	assert.Equal(t, IngestResult{Filename: "spec.txt", Status: StatusSuccess, Chunks: 1}, res)

	env.provider.reply = "The deadline is March 3."
	ans, err := env.pipeline.Ask(ctx, "When is the deadline?", "")
	require.NoError(t, err)
	assert.Contains(t, ans.Answer, "March 3")
	require.NotEmpty(t, ans.ContextDocs)
	for _, d := range ans.ContextDocs {
		assert.Equal(t, "spec.txt", d.Metadata[document.KeySource])
	}
	assert.Equal(t, "The deadline is March 3.", ans.ContextDocs[0].PageContent)
}

func TestIngest_RecordsCatalogEntry(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	content := strings.Repeat("Paragraph about storage engines and caching.\n\n", 20)
	res := env.pipeline.Ingest(ctx, env.write(t, "notes.txt", content))
	require.True(t, res.OK(), res.Message)
	assert.Greater(t, res.Chunks, 1)

	entry, err := env.catalog.Get(ctx, "notes.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, document.FormatTXT, entry.Format)
	assert.Equal(t, res.Chunks, entry.Chunks)
	assert.EqualValues(t, len(content), entry.SizeBytes)
	assert.Equal(t, "docs", entry.Collection)
	assert.Equal(t, res.Chunks, env.count(t))
}

func TestIngest_ReplacesPreviousChunks(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	path := env.write(t, "a.txt", strings.Repeat("first version text. ", 40))

	first := env.pipeline.Ingest(ctx, path)
	require.True(t, first.OK())

	env.write(t, "a.txt", "second version")
	second := env.pipeline.Ingest(ctx, path)
	require.True(t, second.OK())
	assert.Equal(t, 1, second.Chunks)
	assert.Equal(t, 1, env.count(t), "old chunks must be replaced, not appended")
}

func TestIngest_Failures(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"unsupported format", env.write(t, "slides.pptx", "data"), loader.ErrUnsupportedFormat},
		{"empty document", env.write(t, "blank.txt", "  \n\n "), loader.ErrEmptyDocument},
		{"missing file", env.dir + "/nope.txt", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.pipeline.Ingest(ctx, tt.path)
			assert.Equal(t, StatusError, res.Status)
			assert.NotEmpty(t, res.Message)
			assert.Zero(t, res.Chunks)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
		})
	}
	assert.Zero(t, env.count(t))
}

func TestIngest_EmbedFailureKeepsPreviousVersion(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	path := env.write(t, "a.txt", "original content")
	require.True(t, env.pipeline.Ingest(ctx, path).OK())

	env.write(t, "a.txt", "updated content")
	env.embedder.fail(errors.New("rate limited"))
	res := env.pipeline.Ingest(ctx, path)

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "rate limited")
	assert.Equal(t, 1, env.count(t), "nothing is written before embedding completes")
}

func TestIngest_UpsertFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, func(ix vectordb.Index) vectordb.Index { return failingUpsertIndex{ix} })
	ctx := context.Background()

	res := env.pipeline.Ingest(ctx, env.write(t, "big.txt", strings.Repeat("some words to split. ", 100)))
	assert.Equal(t, StatusError, res.Status)

	var writeErr *vectordb.IndexWriteError
	assert.ErrorAs(t, res.Err, &writeErr)
	assert.ErrorIs(t, res.Err, errUpsert)
	assert.Zero(t, env.count(t), "partial writes must be removed")

	entry, err := env.catalog.Get(ctx, "big.txt")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.True(t, env.pipeline.Ingest(ctx, env.write(t, "a.txt", strings.Repeat("alpha text. ", 60))).OK())
	require.True(t, env.pipeline.Ingest(ctx, env.write(t, "b.txt", "beta text")).OK())

	require.NoError(t, env.pipeline.Delete(ctx, "a.txt"))

	sources, err := env.pipeline.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, sources)
	assert.Equal(t, 1, env.count(t))

	entry, err := env.catalog.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Idempotent, including for names never ingested.
	require.NoError(t, env.pipeline.Delete(ctx, "a.txt"))
	require.NoError(t, env.pipeline.Delete(ctx, "never.txt"))
	assert.Equal(t, 1, env.count(t))
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.True(t, env.pipeline.Ingest(ctx, env.write(t, "cats.txt", "cats purr and sleep")).OK())
	require.True(t, env.pipeline.Ingest(ctx, env.write(t, "dogs.txt", "dogs bark and sleep")).OK())

	all, err := env.pipeline.Search(ctx, "sleep", 0, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyDogs, err := env.pipeline.Search(ctx, "sleep", 1, "dogs.txt")
	require.NoError(t, err)
	require.Len(t, onlyDogs, 1)
	assert.Equal(t, "dogs.txt", onlyDogs[0].Metadata[document.KeySource])
	assert.Zero(t, env.provider.callCount(), "search does not call the model")
}

func TestIngestFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	paths := []string{
		env.write(t, "one.txt", "first document"),
		env.write(t, "two.docx.bak", "unsupported"),
		env.write(t, "three.txt", "third document"),
	}

	var (
		mu    sync.Mutex
		calls []int
	)
	results := env.pipeline.IngestFiles(ctx, paths, 2, func(processed, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		calls = append(calls, processed)
	})

	require.Len(t, results, 3)
	assert.Equal(t, "one.txt", results[0].Filename)
	assert.True(t, results[0].OK())
	assert.Equal(t, StatusError, results[1].Status)
	assert.True(t, results[2].OK())
	assert.ElementsMatch(t, []int{1, 2, 3}, calls)
	assert.Equal(t, 2, env.count(t))
}

func TestIngestFiles_Cancelled(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := env.pipeline.IngestFiles(ctx, []string{env.write(t, "a.txt", "text")}, 1, nil)
	require.Len(t, results, 1)
	assert.Equal(t, StatusError, results[0].Status)
}

func TestInit_DimensionMismatch(t *testing.T) {
	env := newTestEnv(t, nil)
	// Re-ensuring with a different dimension through the same index fails.
	err := env.index.EnsureCollection(context.Background(), "docs", testDims+1, vectordb.MetricCosine)
	assert.ErrorIs(t, err, vectordb.ErrDimensionMismatch)
}
