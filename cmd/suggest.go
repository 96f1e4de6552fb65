package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <filename>",
	Short: "Suggest questions a document can answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")

		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		// Accept both a corpus filename and a path on disk.
		path, err := a.corpus.Path(args[0])
		if err != nil {
			if _, statErr := os.Stat(args[0]); statErr != nil {
				return err
			}
			path = args[0]
		}

		ctx, cancel := withTimeout(cmd.Context(), a.cfg)
		defer cancel()

		questions := a.pipeline.Suggest(ctx, path, model)
		if len(questions) == 0 {
			fmt.Fprintln(os.Stderr, "No questions could be suggested.")
			return nil
		}
		for i, q := range questions {
			fmt.Printf("%d. %s\n", i+1, q)
		}
		return nil
	},
}

func init() {
	suggestCmd.Flags().String("model", "", "model (defaults to suggest_model from config)")
	rootCmd.AddCommand(suggestCmd)
}
