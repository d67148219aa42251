package driven

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// SuggestionRequest asks an AI provider to fill a template for a document.
type SuggestionRequest struct {
	// DocumentRef identifies the document (a file path for local PDFs).
	DocumentRef string

	// Model overrides the provider's default model when set.
	Model string

	// Template is the active template.
	Template *domain.Template
}

// SuggestionSource produces AI-suggested field values.
//
// Implementations may include:
//   - Gemini (google.golang.org/genai)
//   - Ollama (local models)
type SuggestionSource interface {
	// Suggest returns a value, context and reasoning per field.
	Suggest(ctx context.Context, req SuggestionRequest) (domain.Suggestions, error)

	// Models lists the models the provider can use.
	Models(ctx context.Context) ([]string, error)

	// Name returns the provider and model in use.
	Name() string

	// Close releases resources.
	Close() error
}
