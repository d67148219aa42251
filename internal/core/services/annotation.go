package services

import (
	"errors"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// Ensure AnnotationService implements the interface.
var _ driving.AnnotationService = (*AnnotationService)(nil)

// AnnotationService opens field runtimes for documents and exports their
// submission payloads.
type AnnotationService struct {
	opts RuntimeOptions
}

// NewAnnotationService creates an annotation service. Every runtime it opens
// shares opts except DocumentID, which is generated per document.
func NewAnnotationService(opts RuntimeOptions) *AnnotationService {
	opts.DocumentID = ""
	return &AnnotationService{opts: opts}
}

// Open builds a runtime for a freshly opened document. Seeded values enter
// as manual input and never trigger auto-fill; entries the template does
// not accept are skipped with a warning.
func (s *AnnotationService) Open(tmpl *domain.Template, seed *domain.Annotation) (driving.FieldRuntime, error) {
	return s.OpenDocument("", tmpl, seed)
}

// OpenDocument is Open with an explicit document id.
func (s *AnnotationService) OpenDocument(documentID string, tmpl *domain.Template, seed *domain.Annotation) (*Runtime, error) {
	opts := s.opts
	opts.DocumentID = documentID
	rt, err := NewRuntime(tmpl, opts)
	if err != nil {
		return nil, err
	}
	if seed != nil {
		if errs := rt.seed(seed); len(errs) > 0 {
			logger.Warn("document %s: %d seeded value(s) skipped: %v", rt.DocumentID(), len(errs), errors.Join(errs...))
		}
	}
	logger.Debug("opened document %s with template %q", rt.DocumentID(), tmpl.Name)
	return rt, nil
}

// Export returns the submission payload of a runtime.
func (s *AnnotationService) Export(rt driving.FieldRuntime) domain.Annotation {
	if rt == nil {
		return domain.NewAnnotation()
	}
	return rt.Export()
}
