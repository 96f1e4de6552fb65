package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsense/internal/corpus"
	"github.com/ziadkadry99/docsense/internal/progress"
	"github.com/ziadkadry99/docsense/internal/rag"
	"github.com/ziadkadry99/docsense/internal/walker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-dir>...",
	Short: "Add documents to the index",
	Long: `Copies PDF, TXT and DOCX files into the document directory and indexes them.
Directories are searched recursively. A document that is already indexed
is replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("concurrency", 4, "documents ingested in parallel")
	ingestCmd.Flags().StringSlice("include", nil, "glob patterns to include when walking directories")
	ingestCmd.Flags().StringSlice("exclude", nil, "glob patterns to exclude when walking directories")
	ingestCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := collectSources(args, include, exclude)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "No PDF, TXT or DOCX files found.")
		return nil
	}

	// Copy into the corpus so the server and `docsense files` see them.
	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		stored, err := copyIntoCorpus(a.corpus, src)
		if err != nil {
			return err
		}
		paths = append(paths, stored)
	}

	reporter := progress.NewReporter("Ingesting documents")
	reporter.Start(len(paths))
	results := a.pipeline.IngestFiles(ctx, paths, concurrency, func(processed, total int, current string) {
		reporter.Update(processed, current)
	})
	reporter.Finish()

	var failed int
	for _, res := range results {
		if res.OK() {
			continue
		}
		failed++
		if err := a.corpus.Remove(res.Filename); err != nil && !errors.Is(err, corpus.ErrNotFound) {
			log.Warn().Err(err).Str("filename", res.Filename).Msg("removing failed document")
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printIngestResults(results)
		fmt.Printf("\n%d ingested, %d failed in %s\n", len(results)-failed, failed, time.Since(start).Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed to ingest", failed)
	}
	return nil
}

// collectSources expands arguments into document paths. Files are taken
// as given; directories are walked. Later files with an already seen name
// are skipped, since documents are keyed by filename.
func collectSources(args, include, exclude []string) ([]string, error) {
	var (
		out  []string
		seen = make(map[string]string)
	)
	add := func(path string) {
		name := filepath.Base(path)
		if prev, dup := seen[name]; dup {
			log.Warn().Str("kept", prev).Str("skipped", path).Msg("duplicate filename")
			return
		}
		seen[name] = path
		out = append(out, path)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("file not found: %s", arg)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		files, err := walker.Walk(walker.Config{RootDir: arg, Include: include, Exclude: exclude})
		if err != nil {
			return nil, err
		}
		for _, p := range walker.Paths(files) {
			add(p)
		}
	}
	return out, nil
}

func copyIntoCorpus(c *corpus.Corpus, src string) (string, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", err
	}
	// Ingesting a file that already lives in the corpus needs no copy.
	if filepath.Dir(abs) == mustAbs(c.Dir()) {
		return abs, nil
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	stored, _, err := c.Save(filepath.Base(abs), f)
	if err != nil {
		return "", fmt.Errorf("copying %s into %s: %w", src, c.Dir(), err)
	}
	return stored, nil
}

func mustAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func printIngestResults(results []rag.IngestResult) {
	for _, r := range results {
		if r.OK() {
			fmt.Printf("  ok    %s (%d chunks)\n", r.Filename, r.Chunks)
		} else {
			fmt.Printf("  error %s: %s\n", r.Filename, r.Message)
		}
	}
}
