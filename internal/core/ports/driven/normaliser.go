package driven

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// Normaliser extracts readable text from one document format. Providers
// that only accept text send the extracted content instead of raw bytes.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50, the plain text fallback 5.
	Priority() int

	// Normalise extracts the title and text of a document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult is the text of a document.
type NormaliseResult struct {
	Title   string
	Content string

	// Format names the normaliser that produced the result, e.g. "html".
	Format string
}
