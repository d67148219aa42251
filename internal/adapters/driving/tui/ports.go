// Package tui provides an interactive annotation form for one document.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
)

// SubmitFunc stores a finished annotation.
type SubmitFunc func(ctx context.Context, a domain.Annotation) error

// Ports aggregates the driving ports the form uses.
type Ports struct {
	// Runtime is the open document. Required.
	Runtime driving.FieldRuntime

	// Suggestions fills the form from the document. Optional.
	Suggestions driving.SuggestionService

	// Scoring shows checklist scores. Optional.
	Scoring driving.ScoringService

	// Submit stores the annotation. Optional; without it ctrl+s is disabled.
	Submit SubmitFunc

	// Document is passed to the suggestion service.
	Document string

	// Model overrides the suggestion model.
	Model string
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Runtime == nil {
		return ErrMissingRuntime
	}
	if t := p.Runtime.Template(); t == nil || len(t.Fields) == 0 {
		return ErrEmptyTemplate
	}
	return nil
}

// CanSuggest reports whether suggestions can be requested.
func (p *Ports) CanSuggest() bool {
	return p.Suggestions != nil && p.Suggestions.Available() && p.Document != ""
}
