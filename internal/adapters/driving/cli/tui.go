package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [template]",
	Short: "Annotate a document interactively",
	Long: `Opens an interactive form for one document. Move with up/down, cycle
values with left/right or space, press s for AI suggestions and ctrl+s to
submit. Press ? for all keys.`,
	Args: cobra.ExactArgs(1),
	RunE: runTUI,
}

// TUI command flags.
var (
	tuiDocument  string
	tuiSeed      string
	tuiShared    string
	tuiAnnotator string
	tuiModel     string
)

func init() {
	tuiCmd.Flags().StringVarP(&tuiDocument, "document", "d", "", "Document path, used by suggestions and submit")
	tuiCmd.Flags().StringVar(&tuiSeed, "seed", "", "Prior annotation JSON to reopen")
	tuiCmd.Flags().StringVar(&tuiShared, "shared", "", "Use the template of this shared context")
	tuiCmd.Flags().StringVarP(&tuiAnnotator, "annotator", "a", "", "Name recorded with submissions (default $USER)")
	tuiCmd.Flags().StringVarP(&tuiModel, "model", "m", "", "Model override for suggestions")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	app, done, err := newTUIApp(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer done()
	return app.Run()
}

// newTUIApp opens the document and builds the form. The returned func
// closes the runtime and restores notice and log output.
func newTUIApp(ctx context.Context, name string) (*tui.App, func(), error) {
	if annotationService == nil {
		return nil, nil, errNotConfigured("annotation")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tmpl, err := resolveTemplate(ctx, name, tuiShared)
	if err != nil {
		return nil, nil, err
	}

	var seed *domain.Annotation
	if tuiSeed != "" {
		if seed, err = readAnnotationFile(tuiSeed, tmpl); err != nil {
			return nil, nil, err
		}
	}

	rt, err := annotationService.Open(tmpl, seed)
	if err != nil {
		return nil, nil, err
	}

	ports := &tui.Ports{
		Runtime:     rt,
		Suggestions: suggestionService,
		Scoring:     scoringService,
		Document:    tuiDocument,
		Model:       tuiModel,
	}
	if annotationStore != nil {
		ports.Submit = submitFunc(name, annotatorName(), documentRef(tuiDocument, rt.DocumentID()))
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		_ = rt.Close()
		return nil, nil, err
	}
	app.WithContext(ctx)

	// Notices and log lines would corrupt the alternate screen.
	restore := func() {}
	if noticeRouter != nil {
		restore = noticeRouter.Redirect(app.Notifier())
	}
	logger.SetOutput(io.Discard)

	return app, func() {
		restore()
		logger.SetOutput(os.Stderr)
		_ = rt.Close()
	}, nil
}

func submitFunc(templateName, annotator, ref string) tui.SubmitFunc {
	return func(ctx context.Context, a domain.Annotation) error {
		return annotationStore.Save(ctx, templateName, domain.AnnotationRecord{
			DocumentRef: ref,
			Annotator:   annotator,
			Annotation:  a,
		})
	}
}

func annotatorName() string {
	if tuiAnnotator != "" {
		return tuiAnnotator
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "anonymous"
}

func documentRef(document, fallback string) string {
	if document != "" {
		return document
	}
	return fallback
}

// NoticeRouter sends engine notices to a different notifier until the
// returned func is called.
type NoticeRouter interface {
	Redirect(target driven.Notifier) func()
}
