package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsense/internal/corpus"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Remove a document and its chunks",
	Long:  `Removes every indexed chunk of the document, its catalog entry and the stored file. Deleting an unknown document is not an error.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		filename := args[0]
		if err := a.pipeline.Delete(cmd.Context(), filename); err != nil {
			return err
		}
		if err := a.corpus.Remove(filename); err != nil && !errors.Is(err, corpus.ErrNotFound) {
			return err
		}
		fmt.Printf("Deleted %s\n", filename)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
