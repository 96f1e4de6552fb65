package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsense/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docsense configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the language model, embeddings and vector index, and writes a .docsense.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
