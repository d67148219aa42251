// Package ai provides factory functions for creating AI suggestion sources.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/normalisers"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateSuggestionSource creates the suggestion source for the configured provider.
// Returns nil if the provider is not configured.
func CreateSuggestionSource(ctx context.Context, settings *domain.AISettings) (driven.SuggestionSource, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		src, err := gemini.New(ctx, gemini.Config{
			APIKey:            settings.APIKey,
			Model:             settings.Model,
			RequestsPerSecond: settings.RequestsPerSecond,
			Normalisers:       normalisers.Default(),
		})
		if err != nil {
			return nil, err
		}
		return src, nil

	case domain.AIProviderOllama:
		return ollama.New(ollama.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			RequestsPerSecond: settings.RequestsPerSecond,
			Normalisers:       normalisers.Default(),
		}), nil

	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", settings.Provider)
	}
}

// CreateAndValidateSuggestionSource creates a suggestion source and validates
// connectivity by listing its models.
// Returns the source if successful, or an error with guidance.
func CreateAndValidateSuggestionSource(settings *domain.AISettings) (driven.SuggestionSource, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	src, err := CreateSuggestionSource(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'annotate settings set ai.provider' to fix",
			domain.ErrSuggestionsUnavailable, err)
	}
	if src == nil {
		return nil, nil
	}

	if _, err := src.Models(ctx); err != nil {
		src.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'annotate settings show' to check",
			domain.ErrSuggestionsUnavailable, err)
	}
	return src, nil
}

// ValidateSuggestionConfig validates a configuration by creating a source and
// listing its models.
func ValidateSuggestionConfig(settings *domain.AISettings) error {
	src, err := CreateAndValidateSuggestionSource(settings)
	if err != nil {
		return err
	}
	if src != nil {
		src.Close()
	}
	return nil
}
