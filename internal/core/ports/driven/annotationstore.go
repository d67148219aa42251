package driven

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// AnnotationStore keeps submitted annotations for reporting.
type AnnotationStore interface {
	// Save records a submission made with the named template. A later
	// submission for the same document and annotator replaces the earlier one.
	Save(ctx context.Context, templateName string, rec domain.AnnotationRecord) error

	// List returns the submissions made with the named template, oldest first.
	List(ctx context.Context, templateName string) ([]domain.AnnotationRecord, error)
}
