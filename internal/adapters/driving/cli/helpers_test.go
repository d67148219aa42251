package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/services"
)

// testEnv is a fully wired command tree over in-memory stores.
type testEnv struct {
	templates   *services.TemplateService
	annotations *memory.AnnotationStore
	shared      *memory.SharedTemplateStore
	coordinator *services.SourceCoordinator
}

func setupTestEnv(t *testing.T, source driven.SuggestionSource) *testEnv {
	t.Helper()

	templates := services.NewTemplateService(memory.NewTemplateStore())
	require.NoError(t, templates.Save(context.Background(), "review", reviewTemplate()))

	shared := memory.NewSharedTemplateStore()
	coord, err := services.NewSourceCoordinator(templates, shared, services.CoordinatorOptions{PollInterval: -1})
	require.NoError(t, err)

	scoring := services.NewScoringService()
	annotations := memory.NewAnnotationStore()

	Configure(&Services{
		Templates:       templates,
		Coordinator:     coord,
		Annotations:     services.NewAnnotationService(services.RuntimeOptions{DebounceWindow: -1}),
		Scoring:         scoring,
		Suggestions:     services.NewSuggestionService(source),
		Stats:           services.NewStatsService(scoring),
		Settings:        services.NewSettingsService(memory.NewConfigStore()),
		AnnotationStore: annotations,
	})
	t.Cleanup(func() {
		_ = coord.Close()
		Configure(nil)
	})

	return &testEnv{templates: templates, annotations: annotations, shared: shared, coordinator: coord}
}

// executeCommand runs the root command with args and stdin, returning
// stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(errBuf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	}()

	err = rootCmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// resetFlags restores flag variables that persist between executions.
func resetFlags() {
	sessionScript, sessionDocument, sessionSeed, sessionShared = "-", "", "", ""
	sessionStrict, sessionMetrics = false, false
	suggestModel, suggestShared = "", ""
	scoreShared, scoreJSON = "", false
	statsJSON = false
	templateFormat, templateOutput, templateImportName = "json", "", ""
	sharedLocal = ""
	tuiDocument, tuiSeed, tuiShared, tuiAnnotator, tuiModel = "", "", "", "", ""
	resetChanged(rootCmd)
}

func resetChanged(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	for _, sub := range c.Commands() {
		resetChanged(sub)
	}
}

func ptr(f float64) *float64 { return &f }

// reviewTemplate has a trigger select with retraction rules and a scored checklist.
func reviewTemplate() *domain.Template {
	return &domain.Template{
		Name: "Review",
		Fields: []domain.Field{
			{
				ID:      "design",
				Label:   "Study design",
				Type:    domain.FieldTypeSelect,
				Options: []string{"rct", "cohort", "case"},
				AutoFillRules: []domain.Rule{
					{TriggerValue: "rct", TargetID: "randomized", TargetValue: "true"},
				},
			},
			{ID: "randomized", Label: "Randomized", Type: domain.FieldTypeBoolean},
			{
				ID:    "quality",
				Label: "Quality",
				Type:  domain.FieldTypeChecklist,
				ChecklistItems: []domain.ChecklistItem{
					{ID: "A", Label: "Item A"},
					{ID: "B", Label: "Item B"},
				},
				ChecklistChoices: []domain.ChecklistChoice{
					{Value: "1", Label: "yes"},
					{Value: "0", Label: "no"},
					{Value: "na", Label: "skip"},
				},
				ChecklistScoring: &domain.ChecklistScoring{
					Mode:     domain.ScoringModeSum,
					NAValues: []string{"na"},
					Buckets: []domain.ScoreBucket{
						{Label: "Weak", Min: ptr(0), Max: ptr(1)},
						{Label: "Strong", Min: ptr(2)},
					},
				},
			},
		},
	}
}

// fakeSource answers every request with a fixed set of suggestions.
type fakeSource struct {
	answer domain.Suggestions
}

func (f *fakeSource) Suggest(context.Context, driven.SuggestionRequest) (domain.Suggestions, error) {
	return f.answer, nil
}

func (f *fakeSource) Models(context.Context) ([]string, error) {
	return []string{"gemini-2.5-pro", "gemini-2.5-flash"}, nil
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Close() error { return nil }
