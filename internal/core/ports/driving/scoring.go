package driving

import "github.com/custodia-labs/annotate-cli/internal/core/domain"

// ScoringService computes checklist scores on demand.
type ScoringService interface {
	// Compute scores one checklist field from its item selections.
	Compute(field domain.Field, selections map[string]string) (domain.ChecklistResult, error)

	// ComputeAll scores every scored checklist field of an annotation.
	ComputeAll(tmpl *domain.Template, a domain.Annotation) map[string]domain.ChecklistResult
}

// StatsService summarises many annotations for reporting.
type StatsService interface {
	// Summarize aggregates annotation records against a template.
	Summarize(tmpl *domain.Template, records []domain.AnnotationRecord) domain.Stats
}
