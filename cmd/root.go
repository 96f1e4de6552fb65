package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsense/internal/config"
	"github.com/ziadkadry99/docsense/internal/logging"
)

var (
	cfgFile string
	verbose bool
	appCfg  *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docsense",
	Short: "Ask questions about your documents",
	Long: `DocSense ingests PDF, TXT and DOCX files into a vector index and answers
natural-language questions from their content using a language model.
It runs as a CLI, an HTTP API with websocket chat, or an MCP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal.
		_ = godotenv.Load()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w\nRun `docsense init` to create a config file", err)
		}
		appCfg = cfg

		logging.Setup(logging.Options{Level: cfg.LogLevel, Verbose: verbose})
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
