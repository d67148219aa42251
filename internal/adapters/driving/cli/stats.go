package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [template]",
	Short: "Summarise submitted annotations",
	Long: `Aggregates every annotation submitted for a template: value counts per
field, score bucket counts, mean checklist scores and submissions per annotator.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

var statsJSON bool

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the summary as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsService == nil || annotationStore == nil {
		return errNotConfigured("stats")
	}
	ctx := context.Background()

	tmpl, err := resolveTemplate(ctx, args[0], "")
	if err != nil {
		return err
	}
	records, err := annotationStore.List(ctx, args[0])
	if err != nil {
		return fmt.Errorf("listing annotations: %w", err)
	}

	stats := statsService.Summarize(tmpl, records)
	if statsJSON {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Annotations: %d\n", stats.Total)
	if stats.Total == 0 {
		return nil
	}

	if len(stats.ValueCounts) > 0 {
		fmt.Fprintln(w, "\nValues:")
		printCounts(w, stats.ValueCounts)
	}
	if len(stats.BucketCounts) > 0 {
		fmt.Fprintln(w, "\nScore buckets:")
		printCounts(w, stats.BucketCounts)
	}
	if len(stats.MeanScores) > 0 {
		fmt.Fprintln(w, "\nMean scores:")
		for _, id := range sortedKeys(stats.MeanScores) {
			fmt.Fprintf(w, "  %-24s %.2f\n", id, stats.MeanScores[id])
		}
	}
	if len(stats.Leaderboard) > 0 {
		fmt.Fprintln(w, "\nAnnotators:")
		for i, a := range stats.Leaderboard {
			name := a.Annotator
			if name == "" {
				name = "(anonymous)"
			}
			fmt.Fprintf(w, "  %d. %-22s %d\n", i+1, name, a.Count)
		}
	}
	return nil
}

func printCounts(w io.Writer, counts map[string]map[string]int) {
	for _, id := range sortedKeys(counts) {
		fmt.Fprintf(w, "  %s\n", id)
		byValue := counts[id]
		for _, v := range sortedKeys(byValue) {
			label := v
			if label == "" {
				label = "(empty)"
			}
			fmt.Fprintf(w, "    %-22s %d\n", label, byValue[v])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
