package driven

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// SharedTemplateStore is the transport for templates owned by a shared
// annotation context (e.g. a team spreadsheet or workspace).
//
// The marker returned by Get, Save and Status is an opaque last-modified
// token; two markers are equal exactly when the template has not changed.
type SharedTemplateStore interface {
	// Get fetches the context's template and its marker.
	// Returns domain.ErrNotFound if the context has no template of its own.
	Get(ctx context.Context, contextID string) (*domain.Template, string, error)

	// Save writes the context's template and returns the new marker.
	Save(ctx context.Context, contextID string, tmpl *domain.Template) (string, error)

	// Status returns the current marker without fetching the template.
	// Returns domain.ErrNotFound if the context has no template.
	Status(ctx context.Context, contextID string) (string, error)
}
