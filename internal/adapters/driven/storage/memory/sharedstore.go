package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// Ensure SharedTemplateStore implements the interface.
var _ driven.SharedTemplateStore = (*SharedTemplateStore)(nil)

type sharedEntry struct {
	tmpl    *domain.Template
	version int
}

// SharedTemplateStore is an in-memory implementation of
// driven.SharedTemplateStore. Markers are per-context version numbers.
type SharedTemplateStore struct {
	mu      sync.RWMutex
	entries map[string]sharedEntry
	failErr error
}

// NewSharedTemplateStore creates a new in-memory shared template store.
func NewSharedTemplateStore() *SharedTemplateStore {
	return &SharedTemplateStore{
		entries: make(map[string]sharedEntry),
	}
}

// Get fetches the context's template and its marker.
func (s *SharedTemplateStore) Get(_ context.Context, contextID string) (*domain.Template, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, "", s.failErr
	}
	e, ok := s.entries[contextID]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return e.tmpl.Clone(), marker(e.version), nil
}

// Save writes the context's template and returns the new marker.
func (s *SharedTemplateStore) Save(_ context.Context, contextID string, tmpl *domain.Template) (string, error) {
	if tmpl == nil {
		return "", domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return "", s.failErr
	}
	e := s.entries[contextID]
	e.tmpl = tmpl.Clone()
	e.version++
	s.entries[contextID] = e
	return marker(e.version), nil
}

// Status returns the current marker without fetching the template.
func (s *SharedTemplateStore) Status(_ context.Context, contextID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return "", s.failErr
	}
	e, ok := s.entries[contextID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return marker(e.version), nil
}

// SetFailure makes every call return err until cleared with nil.
func (s *SharedTemplateStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func marker(version int) string {
	return "v" + strconv.Itoa(version)
}
