package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsense/internal/logging"
	mcpserver "github.com/ziadkadry99/docsense/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing ask_docs, search_docs, list_documents and suggest_questions tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the protocol; keep stderr quiet unless asked.
		if !verbose {
			logging.Setup(logging.Options{Level: "warn", JSON: true})
		}

		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		count, err := a.index.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "docsense MCP server started on stdio (collection=%s, chunks=%d)\n", a.cfg.Index.Collection, count)

		return mcpserver.NewServer(a.pipeline, a.catalog, a.corpus).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
