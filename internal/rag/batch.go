package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// IngestFiles ingests paths with at most concurrency documents in flight.
// Results are returned in input order; onProgress may be nil.
func (p *Pipeline) IngestFiles(ctx context.Context, paths []string, concurrency int, onProgress ProgressFunc) []IngestResult {
	total := len(paths)
	results := make([]IngestResult, total)
	if total == 0 {
		return results
	}
	if concurrency < 1 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var (
		wg        sync.WaitGroup
		processed int64
	)
	report := func(path string) {
		n := atomic.AddInt64(&processed, 1)
		if onProgress != nil {
			onProgress(int(n), total, filepath.Base(path))
		}
	}

	for i, path := range paths {
		acquired := false
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case sem <- struct{}{}:
				acquired = true
			}
		}
		if !acquired {
			results[i] = IngestResult{
				Filename: filepath.Base(path),
				Status:   StatusError,
				Message:  fmt.Sprintf("skipped: %v", ctx.Err()),
				Err:      ctx.Err(),
			}
			report(path)
			continue
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.Ingest(ctx, path)
			report(path)
		}(i, path)
	}

	wg.Wait()
	return results
}
