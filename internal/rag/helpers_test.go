package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docsense/internal/catalog"
	"github.com/ziadkadry99/docsense/internal/chunker"
	"github.com/ziadkadry99/docsense/internal/db"
	"github.com/ziadkadry99/docsense/internal/llm"
	"github.com/ziadkadry99/docsense/internal/loader"
	"github.com/ziadkadry99/docsense/internal/vectordb"
)

const testDims = 32

// mockEmbedder hashes lowercase words into a bag-of-words vector, so texts
// sharing words are similar.
type mockEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return testDims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func bagOfWords(text string) []float32 {
	vec := make([]float32, testDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!:;\"'")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%testDims] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// mockProvider records requests and answers with reply, or fails with err.
type mockProvider struct {
	mu    sync.Mutex
	calls []llm.CompletionRequest
	reply string
	err   error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.reply, InputTokens: 100, OutputTokens: 10, Model: req.Model}, nil
}

func (m *mockProvider) lastCall(t *testing.T) llm.CompletionRequest {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.calls, "provider was not called")
	return m.calls[len(m.calls)-1]
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// failingUpsertIndex writes records, then reports a failure, leaving a
// partial write behind for the pipeline to clean up.
type failingUpsertIndex struct {
	vectordb.Index
}

var errUpsert = errors.New("disk full")

func (f failingUpsertIndex) Upsert(ctx context.Context, records []vectordb.Record) error {
	if len(records) > 1 {
		_ = f.Index.Upsert(ctx, records[:len(records)/2])
	}
	return &vectordb.IndexWriteError{Op: "upsert", Err: errUpsert}
}

type testEnv struct {
	pipeline *Pipeline
	embedder *mockEmbedder
	provider *mockProvider
	index    vectordb.Index
	catalog  *catalog.Store
	dir      string
}

func defaultSearch() vectordb.SearchOptions {
	return vectordb.SearchOptions{K: 5, FetchK: 20, Diversify: true, Lambda: vectordb.DefaultMMRLambda}
}

func newTestEnv(t *testing.T, wrap func(vectordb.Index) vectordb.Index) *testEnv {
	t.Helper()

	store, err := vectordb.NewChromemStore("", nil, nil)
	require.NoError(t, err)
	var index vectordb.Index = store
	if wrap != nil {
		index = wrap(store)
	}

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	cat := catalog.NewStore(database)

	splitter, err := chunker.New(200, 40)
	require.NoError(t, err)

	env := &testEnv{
		embedder: &mockEmbedder{},
		provider: &mockProvider{reply: "mock answer"},
		index:    index,
		catalog:  cat,
		dir:      t.TempDir(),
	}
	env.pipeline = NewPipeline(loader.New(100), splitter, env.embedder, index, env.provider, cat, Config{
		Collection:   "docs",
		ProviderType: "groq",
		Temperature:  DefaultTemperature,
		Search:       defaultSearch(),
	})
	require.NoError(t, env.pipeline.Init(context.Background()))
	return env
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	n, err := e.index.Count(context.Background())
	require.NoError(t, err)
	return n
}
