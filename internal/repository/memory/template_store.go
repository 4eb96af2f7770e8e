package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/quokka-collab/quokka/internal/domain"
)

// TemplateStore is an in-memory implementation of domain.TemplateStore.
type TemplateStore struct {
	templates map[string]*domain.DocumentTemplate
	mu        sync.RWMutex
}

// NewTemplateStore creates a new in-memory template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		templates: make(map[string]*domain.DocumentTemplate),
	}
}

// Get retrieves a template by ID.
func (s *TemplateStore) Get(_ context.Context, id string) (*domain.DocumentTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, exists := s.templates[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	cp := *tpl
	return &cp, nil
}

// Insert stores a new template.
func (s *TemplateStore) Insert(_ context.Context, tpl *domain.DocumentTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[tpl.ID]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *tpl
	s.templates[tpl.ID] = &cp
	return nil
}

// Delete removes a template.
func (s *TemplateStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

// List returns all templates ordered by title.
func (s *TemplateStore) List(_ context.Context) ([]*domain.DocumentTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates := make([]*domain.DocumentTemplate, 0, len(s.templates))
	for _, tpl := range s.templates {
		cp := *tpl
		templates = append(templates, &cp)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Title < templates[j].Title })
	return templates, nil
}
