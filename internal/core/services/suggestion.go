package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// Ensure SuggestionService implements the interface.
var _ driving.SuggestionService = (*SuggestionService)(nil)

// SuggestionService asks the configured AI source to fill a template.
type SuggestionService struct {
	source driven.SuggestionSource
}

// NewSuggestionService creates a suggestion service. source may be nil
// when no AI provider is configured.
func NewSuggestionService(source driven.SuggestionSource) *SuggestionService {
	return &SuggestionService{source: source}
}

// Available reports whether a suggestion source is configured.
func (s *SuggestionService) Available() bool {
	return s.source != nil
}

// Models lists the models of the configured source.
func (s *SuggestionService) Models(ctx context.Context) ([]string, error) {
	if s.source == nil {
		return nil, domain.ErrSuggestionsUnavailable
	}
	return s.source.Models(ctx)
}

// Suggest asks the source to fill tmpl for documentRef. Answers for fields
// the template does not define, or for checklists, are dropped.
func (s *SuggestionService) Suggest(
	ctx context.Context,
	documentRef, model string,
	tmpl *domain.Template,
) (domain.Suggestions, error) {
	if s.source == nil {
		return nil, domain.ErrSuggestionsUnavailable
	}
	if tmpl == nil {
		return nil, domain.ErrNoActiveTemplate
	}
	if documentRef == "" {
		return nil, fmt.Errorf("%w: empty document reference", domain.ErrInvalidInput)
	}

	logger.Section("AI Suggestions")
	logger.Debug("provider: %s, document: %s", s.source.Name(), documentRef)

	raw, err := s.source.Suggest(ctx, driven.SuggestionRequest{
		DocumentRef: documentRef,
		Model:       model,
		Template:    tmpl,
	})
	if err != nil {
		return nil, fmt.Errorf("request suggestions: %w", err)
	}

	out := make(domain.Suggestions, len(raw))
	for id, sug := range raw {
		f, ok := tmpl.FieldByID(id)
		if !ok || f.Type == domain.FieldTypeChecklist {
			logger.Debug("dropping suggestion for %q", id)
			continue
		}
		out[id] = sug
	}
	logger.Debug("received %d suggestion(s)", len(out))
	return out, nil
}
