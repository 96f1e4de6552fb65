package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsense/internal/llm"
	"github.com/ziadkadry99/docsense/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the ingested documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().String("model", "", "chat model (defaults to chat_model from config)")
	askCmd.Flags().Bool("sources", false, "print the passages the answer was based on")
	askCmd.Flags().Bool("json", false, "print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	model, _ := cmd.Flags().GetString("model")
	showSources, _ := cmd.Flags().GetBool("sources")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := withTimeout(cmd.Context(), a.cfg)
	defer cancel()

	ans, err := a.pipeline.Ask(ctx, args[0], model)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	fmt.Println(ans.Answer)
	if showSources {
		fmt.Println()
		fmt.Print(rag.FormatContextDocs(ans.ContextDocs))
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "\nmodel=%s input_tokens=%d output_tokens=%d cost=$%.5f\n",
			ans.Model, ans.InputTokens, ans.OutputTokens, llm.EstimateCost(ans.Model, ans.InputTokens, ans.OutputTokens))
	}
	return nil
}
