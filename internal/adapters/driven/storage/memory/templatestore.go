package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// Ensure TemplateStore implements the interface.
var _ driven.TemplateStore = (*TemplateStore)(nil)

// TemplateStore is an in-memory implementation of driven.TemplateStore.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]*domain.Template
}

// NewTemplateStore creates a new in-memory template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		templates: make(map[string]*domain.Template),
	}
}

// Load retrieves a template by name.
func (s *TemplateStore) Load(_ context.Context, name string) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tmpl.Clone(), nil
}

// Save stores or replaces a template.
func (s *TemplateStore) Save(_ context.Context, name string, tmpl *domain.Template) error {
	if tmpl == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = tmpl.Clone()
	return nil
}

// List returns all template names, sorted.
func (s *TemplateStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a template.
func (s *TemplateStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[name]; !ok {
		return domain.ErrNotFound
	}
	delete(s.templates, name)
	return nil
}
