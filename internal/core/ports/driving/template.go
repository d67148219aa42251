package driving

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// TemplateFormat identifies the encoding of a template document.
type TemplateFormat string

// Supported template formats.
const (
	// FormatAuto detects the format from the document content.
	FormatAuto TemplateFormat = ""
	FormatJSON TemplateFormat = "json"
	FormatYAML TemplateFormat = "yaml"
)

// TemplateService parses, validates and persists local templates.
type TemplateService interface {
	// Parse decodes a template document. It does not validate.
	Parse(data []byte, format TemplateFormat) (*domain.Template, error)

	// Encode renders a template document.
	Encode(tmpl *domain.Template, format TemplateFormat) ([]byte, error)

	// Validate rejects templates with structural problems.
	// Errors wrap domain.ErrInvalidTemplate.
	Validate(tmpl *domain.Template) error

	// Normalize returns a cleaned copy and the list of non-fatal fixes applied.
	Normalize(tmpl *domain.Template) (*domain.Template, []string)

	// Prepare validates then normalizes.
	Prepare(tmpl *domain.Template) (*domain.Template, []string, error)

	// Load retrieves, validates and normalizes a stored template.
	Load(ctx context.Context, name string) (*domain.Template, error)

	// Save validates and stores a template.
	Save(ctx context.Context, name string, tmpl *domain.Template) error

	// List returns stored template names.
	List(ctx context.Context) ([]string, error)

	// Delete removes a stored template.
	Delete(ctx context.Context, name string) error
}
