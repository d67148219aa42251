package driven

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// TemplateStore persists locally owned templates by name.
type TemplateStore interface {
	// Load retrieves a template by name.
	// Returns domain.ErrNotFound if no template has that name.
	Load(ctx context.Context, name string) (*domain.Template, error)

	// Save stores or replaces a template under name.
	Save(ctx context.Context, name string, tmpl *domain.Template) error

	// List returns all template names, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes a template.
	// Returns domain.ErrNotFound if no template has that name.
	Delete(ctx context.Context, name string) error
}
