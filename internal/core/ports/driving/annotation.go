package driving

import "github.com/custodia-labs/annotate-cli/internal/core/domain"

// FieldRuntime is the per-document field engine: values, provenance,
// rule propagation and the AI overlay.
type FieldRuntime interface {
	// DocumentID identifies the open document.
	DocumentID() string

	// Template returns the template the runtime was built from.
	Template() *domain.Template

	// SetValue writes a field value with the given provenance.
	SetValue(fieldID, value string, p domain.Provenance) (bool, error)

	// Value returns a field's current value.
	Value(fieldID string) string

	// State returns a copy of a field's runtime state.
	State(fieldID string) (domain.FieldState, bool)

	// SetItem records a checklist selection.
	SetItem(fieldID, itemID, value string) (bool, error)

	// SetContext writes the evidence text of a field.
	SetContext(fieldID, text string) error

	// ToggleReasoning shows or hides the AI reasoning of a field.
	ToggleReasoning(fieldID string) (bool, error)

	// Lock suppresses rule writes to a field.
	Lock(fieldID string) error

	// Unlock re-enables rule writes to a field.
	Unlock(fieldID string) error

	// ApplySuggestions overlays AI answers and returns the fields written.
	ApplySuggestions(s domain.Suggestions) ([]string, error)

	// Revert restores the pre-overlay state of a field.
	Revert(fieldID string) error

	// ClearSuggestion blanks the AI text of a field, keeping its value.
	ClearSuggestion(fieldID string) error

	// Subscribe registers a change listener and returns its cancel func.
	Subscribe(fn func(domain.Change)) func()

	// Export returns the submission payload.
	Export() domain.Annotation

	// Reset clears all field state (skip, submit, navigate away).
	Reset()

	// Close tears the runtime down.
	Close() error
}

// AnnotationService opens runtimes for documents.
type AnnotationService interface {
	// Open builds a runtime, optionally seeded with a prior annotation.
	// Seeded values are manual and never trigger auto-fill.
	Open(tmpl *domain.Template, seed *domain.Annotation) (FieldRuntime, error)

	// Export returns the submission payload of a runtime.
	Export(rt FieldRuntime) domain.Annotation
}
