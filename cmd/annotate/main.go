// Command annotate fills field templates for documents.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/metrics"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/notify"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/storage/redisstore"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/services"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// version is set by the linker.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the adapters and services for one invocation.
func bootstrap(opts cli.Options) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("database: %s", store.Path())

	var closers []func() error
	closers = append(closers, store.Close)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("cleanup: %v", err)
			}
		}
	}

	templates := services.NewTemplateService(store.TemplateStore())
	// The relay lets the interactive form take over notices while it runs.
	notifier := notify.NewRelay(notify.NewWriter(os.Stderr))

	var shared driven.SharedTemplateStore
	if addr := settings.Shared.RedisAddr; addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		closers = append(closers, client.Close)
		shared = redisstore.NewSharedTemplateStore(client, redisstore.DefaultPrefix)
	}

	coordinator, err := services.NewSourceCoordinator(templates, shared, services.CoordinatorOptions{
		PollInterval: settings.Shared.PollInterval,
		Notifier:     notifier,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, coordinator.Close)

	engine := metrics.NewEngine()
	runtimeOpts := services.RuntimeOptionsFromSettings(settings.Engine)
	runtimeOpts.Notifier = notifier
	runtimeOpts.Metrics = engine

	source, err := ai.CreateSuggestionSource(context.Background(), &settings.AI)
	if err != nil {
		logger.Warn("AI suggestions disabled: %v", err)
		source = nil
	}
	if source != nil {
		closers = append(closers, source.Close)
		if aware, ok := source.(driven.PromptStoreAware); ok {
			promptDir := ""
			if opts.ConfigDir != "" {
				promptDir = filepath.Join(opts.ConfigDir, "prompts")
			}
			prompts, err := file.NewPromptStore(promptDir)
			if err != nil {
				logger.Warn("using the built-in prompt: %v", err)
			} else {
				aware.SetPromptStore(prompts)
			}
		}
		logger.Debug("suggestion source: %s", source.Name())
	}

	scoring := services.NewScoringService()

	return &cli.Services{
		Templates:       templates,
		Coordinator:     coordinator,
		Annotations:     services.NewAnnotationService(runtimeOpts),
		Scoring:         scoring,
		Suggestions:     services.NewSuggestionService(source),
		Stats:           services.NewStatsService(scoring),
		Settings:        settingsService,
		AnnotationStore: store.AnnotationStore(),
		AIValidator:     ai.NewConfigValidator(),
		Metrics:         engine,
		Notices:         notifier,
	}, cleanup, nil
}
