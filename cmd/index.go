package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect, back up and restore the vector index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		count, err := a.index.Count(ctx)
		if err != nil {
			return err
		}
		sources, err := a.index.Sources(ctx)
		if err != nil {
			return err
		}
		stats, err := a.catalog.Stats(ctx, a.cfg.Index.Collection)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"backend":    a.cfg.Index.Backend,
				"collection": a.cfg.Index.Collection,
				"dimension":  a.embedder.Dimensions(),
				"chunks":     count,
				"sources":    sources,
				"catalog":    stats,
			})
		}

		fmt.Printf("Backend:    %s\n", a.cfg.Index.Backend)
		fmt.Printf("Collection: %s (%d dimensions, %s)\n", a.cfg.Index.Collection, a.embedder.Dimensions(), a.cfg.Index.Metric)
		fmt.Printf("Chunks:     %d\n", count)
		fmt.Printf("Documents:  %d indexed, %d cataloged (%s)\n", len(sources), stats.Documents, humanize.Bytes(uint64(stats.TotalBytes)))
		for _, s := range sources {
			fmt.Printf("  - %s\n", s)
		}
		return nil
	},
}

var indexExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the embedded index to a compressed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.chromem == nil {
			return fmt.Errorf("export is only supported by the chromem backend; use pg_dump for pgvector")
		}
		if err := a.chromem.Export(args[0]); err != nil {
			return err
		}
		fmt.Printf("Exported index to %s\n", args[0])
		return nil
	},
}

var indexImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load an index written by export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.chromem == nil {
			return fmt.Errorf("import is only supported by the chromem backend")
		}
		if err := a.chromem.Import(cmd.Context(), args[0]); err != nil {
			return err
		}
		count, err := a.index.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d chunks from %s\n", count, args[0])
		return nil
	},
}

func init() {
	indexStatsCmd.Flags().Bool("json", false, "print as JSON")
	indexCmd.AddCommand(indexStatsCmd, indexExportCmd, indexImportCmd)
	rootCmd.AddCommand(indexCmd)
}
