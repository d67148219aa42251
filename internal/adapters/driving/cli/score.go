package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [template] [annotation]",
	Short: "Compute checklist scores for a saved annotation",
	Long: `Reads an annotation (JSON, structured or flat; - for stdin) and prints the
score of every checklist field that defines scoring: the sum, the NA count,
the bucket label and whether the NA threshold downgraded it.`,
	Args: cobra.ExactArgs(2),
	RunE: runScore,
}

var (
	scoreShared string
	scoreJSON   bool
)

func init() {
	scoreCmd.Flags().StringVar(&scoreShared, "shared", "", "Use the template of this shared context")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	if scoringService == nil {
		return errNotConfigured("scoring")
	}
	tmpl, err := resolveTemplate(context.Background(), args[0], scoreShared)
	if err != nil {
		return err
	}
	a, err := readAnnotationFile(args[1], tmpl)
	if err != nil {
		return err
	}

	results := scoringService.ComputeAll(tmpl, *a)
	if scoreJSON {
		return writeJSON(cmd.OutOrStdout(), results)
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scored checklist fields.")
		return nil
	}
	printScores(cmd.OutOrStdout(), results)
	return nil
}
