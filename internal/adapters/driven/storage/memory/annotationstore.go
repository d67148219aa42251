package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// Ensure AnnotationStore implements the interface.
var _ driven.AnnotationStore = (*AnnotationStore)(nil)

// AnnotationStore is an in-memory implementation of driven.AnnotationStore.
type AnnotationStore struct {
	mu      sync.RWMutex
	records map[string][]domain.AnnotationRecord
}

// NewAnnotationStore creates a new in-memory annotation store.
func NewAnnotationStore() *AnnotationStore {
	return &AnnotationStore{
		records: make(map[string][]domain.AnnotationRecord),
	}
}

// Save records a submission, replacing one by the same annotator for the same document.
func (s *AnnotationStore) Save(_ context.Context, templateName string, rec domain.AnnotationRecord) error {
	if rec.DocumentRef == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.records[templateName]
	for i := range list {
		if list[i].DocumentRef == rec.DocumentRef && list[i].Annotator == rec.Annotator {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.records[templateName] = append(list, rec)
	return nil
}

// List returns the submissions for a template, oldest first.
func (s *AnnotationStore) List(_ context.Context, templateName string) ([]domain.AnnotationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AnnotationRecord(nil), s.records[templateName]...), nil
}
