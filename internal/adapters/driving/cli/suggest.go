package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [template] [document]",
	Short: "Ask the AI provider to fill a template for a document",
	Long: `Sends the document and the template's boolean and select fields to the
configured AI provider and prints the answers as JSON. Nothing is stored; use
"session" with the suggest command to overlay answers on a document.`,
	Args: cobra.ExactArgs(2),
	RunE: runSuggest,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models of the configured AI provider",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

var (
	suggestModel  string
	suggestShared string
)

func init() {
	suggestCmd.Flags().StringVarP(&suggestModel, "model", "m", "", "Model override for this request")
	suggestCmd.Flags().StringVar(&suggestShared, "shared", "", "Use the template of this shared context")
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if suggestionService == nil || !suggestionService.Available() {
		return domain.ErrSuggestionsUnavailable
	}
	ctx := context.Background()

	tmpl, err := resolveTemplate(ctx, args[0], suggestShared)
	if err != nil {
		return err
	}
	suggestions, err := suggestionService.Suggest(ctx, args[1], suggestModel, tmpl)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		cmd.PrintErrln("No suggestions returned.")
	}
	return writeJSON(cmd.OutOrStdout(), suggestions)
}

func runModels(cmd *cobra.Command, _ []string) error {
	if suggestionService == nil || !suggestionService.Available() {
		return domain.ErrSuggestionsUnavailable
	}
	models, err := suggestionService.Models(context.Background())
	if err != nil {
		return err
	}
	sort.Strings(models)
	for _, m := range models {
		fmt.Fprintln(cmd.OutOrStdout(), m)
	}
	return nil
}
