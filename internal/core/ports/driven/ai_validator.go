package driven

import "github.com/custodia-labs/annotate-cli/internal/core/domain"

// AIConfigValidator validates AI provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying AI services.
type AIConfigValidator interface {
	// ValidateSuggestions checks a suggestion provider configuration.
	// Returns nil if configuration is valid or not configured.
	ValidateSuggestions(config *domain.AISettings) error
}
