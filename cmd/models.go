package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsense/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the chat models the configured provider supports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provider := string(cfg.LLMProvider)
		models := llm.SupportedModels(provider)
		if len(models) == 0 {
			fmt.Printf("Provider %s accepts any model name. Configured: %s\n", provider, cfg.ChatModel)
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCONTEXT\tPRICE/1M (in/out)\t")
		for _, m := range models {
			marker := ""
			switch m.ID {
			case cfg.ChatModel:
				marker = "(chat)"
			case cfg.SuggestModel:
				marker = "(suggest)"
			}
			in, out := llm.EstimateCost(m.ID, 1_000_000, 0), llm.EstimateCost(m.ID, 0, 1_000_000)
			fmt.Fprintf(tw, "%s\t%s\t%d\t$%.2f / $%.2f\t%s\n", m.ID, m.Label, m.ContextWindow, in, out, marker)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
