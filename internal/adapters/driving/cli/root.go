// Package cli provides the cobra command tree of the annotate binary.
package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
	dataDir   string
)

// Options carries the global flags to the bootstrap function.
type Options struct {
	ConfigDir string
	DataDir   string
}

// MetricsReporter prints engine counters.
type MetricsReporter interface {
	WriteSummary(w io.Writer) error
}

// Services holds everything the commands call into.
type Services struct {
	Templates   driving.TemplateService
	Coordinator driving.SourceCoordinator
	Annotations driving.AnnotationService
	Scoring     driving.ScoringService
	Suggestions driving.SuggestionService
	Stats       driving.StatsService
	Settings    driving.SettingsService

	AnnotationStore driven.AnnotationStore
	AIValidator     driven.AIConfigValidator
	Metrics         MetricsReporter
	Notices         NoticeRouter
}

// BootstrapFunc builds the services for one invocation. The returned
// cleanup runs after the command finishes.
type BootstrapFunc func(opts Options) (*Services, func(), error)

// Services used by commands, set by Configure or the bootstrap function.
var (
	templateService   driving.TemplateService
	coordinator       driving.SourceCoordinator
	annotationService driving.AnnotationService
	scoringService    driving.ScoringService
	suggestionService driving.SuggestionService
	statsService      driving.StatsService
	settingsService   driving.SettingsService
	annotationStore   driven.AnnotationStore
	aiValidator       driven.AIConfigValidator
	engineMetrics     MetricsReporter
	noticeRouter      NoticeRouter
)

var (
	bootstrap BootstrapFunc
	cleanup   func()
)

var rootCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotate documents against field templates",
	Long: `annotate fills structured templates for documents: boolean, select and
checklist fields with auto-fill rules, checklist scoring, AI suggestions
and templates shared through a common store.`,
	SilenceUsage:      true,
	PersistentPreRunE: runBootstrap,
	PersistentPostRun: func(*cobra.Command, []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.annotate)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.annotate/data)")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the function that builds services from the global flags.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// Configure installs services directly, bypassing the bootstrap function.
func Configure(s *Services) {
	if s == nil {
		s = &Services{}
	}
	templateService = s.Templates
	coordinator = s.Coordinator
	annotationService = s.Annotations
	scoringService = s.Scoring
	suggestionService = s.Suggestions
	statsService = s.Stats
	settingsService = s.Settings
	annotationStore = s.AnnotationStore
	aiValidator = s.AIValidator
	engineMetrics = s.Metrics
	noticeRouter = s.Notices
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if bootstrap == nil || cmd.Name() == versionCmd.Name() {
		return nil
	}
	s, done, err := bootstrap(Options{ConfigDir: configDir, DataDir: dataDir})
	if err != nil {
		return err
	}
	Configure(s)
	cleanup = done
	return nil
}

// errNotConfigured reports a missing service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
