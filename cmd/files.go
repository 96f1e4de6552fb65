package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type fileRow struct {
	Name       string `json:"name"`
	Size       string `json:"size"`
	Chunks     int    `json:"chunks"`
	IngestedAt string `json:"ingested_at,omitempty"`
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List stored documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.corpus.List()
		if err != nil {
			return err
		}

		rows := make([]fileRow, 0, len(files))
		for _, f := range files {
			row := fileRow{Name: f.Name, Size: f.Size}
			entry, err := a.catalog.Get(cmd.Context(), f.Name)
			if err != nil {
				return err
			}
			if entry != nil {
				row.Chunks = entry.Chunks
				row.IngestedAt = humanize.Time(entry.IngestedAt)
			}
			rows = append(rows, row)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		if len(rows) == 0 {
			fmt.Println("No documents. Run `docsense ingest <path>` to add some.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tCHUNKS\tINGESTED")
		for _, r := range rows {
			ingested := r.IngestedAt
			if ingested == "" {
				ingested = "not indexed"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Name, r.Size, r.Chunks, ingested)
		}
		return tw.Flush()
	},
}

func init() {
	filesCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(filesCmd)
}
