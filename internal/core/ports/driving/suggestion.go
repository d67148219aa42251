package driving

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// SuggestionService requests AI suggestions for a document.
type SuggestionService interface {
	// Available reports whether a suggestion source is configured.
	Available() bool

	// Models lists the models of the configured source.
	Models(ctx context.Context) ([]string, error)

	// Suggest asks the source to fill tmpl for documentRef.
	Suggest(ctx context.Context, documentRef, model string, tmpl *domain.Template) (domain.Suggestions, error)
}
