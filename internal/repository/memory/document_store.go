// Package memory provides in-memory implementations of the domain stores.
// They back tests and single-process deployments and mirror the semantics
// of the MongoDB implementations, including revision guards.
package memory

import (
	"context"
	"sync"

	"github.com/quokka-collab/quokka/internal/domain"
)

// DocumentStore is an in-memory implementation of domain.DocumentStore.
type DocumentStore struct {
	documents map[string]*domain.Document
	mu        sync.RWMutex
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*domain.Document),
	}
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return cloneDocument(doc), nil
}

// Insert stores a new document.
func (s *DocumentStore) Insert(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[doc.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.documents[doc.ID] = cloneDocument(doc)
	return nil
}

// Update replaces the document's CRUD-owned fields.
func (s *DocumentStore) Update(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.documents[doc.ID]
	if !exists {
		return domain.ErrNotFound
	}
	updated := cloneDocument(doc)
	updated.Content = current.Content
	updated.LastRevision = current.LastRevision
	s.documents[doc.ID] = updated
	return nil
}

// UpdateContent sets content and last_revision, guarded on the current
// last_revision.
func (s *DocumentStore) UpdateContent(_ context.Context, id string, content []string, fromRevision, toRevision int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.documents[id]
	if !exists {
		return domain.ErrNotFound
	}
	if doc.LastRevision != fromRevision {
		return domain.ErrRevisionConflict
	}
	doc.Content = append([]string(nil), content...)
	doc.LastRevision = toRevision
	return nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

// ListByUser returns the documents owned by a user.
func (s *DocumentStore) ListByUser(_ context.Context, userID string) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*domain.Document
	for _, doc := range s.documents {
		if doc.UserID == userID {
			docs = append(docs, cloneDocument(doc))
		}
	}
	return docs, nil
}

func cloneDocument(doc *domain.Document) *domain.Document {
	cp := *doc
	cp.Content = append([]string(nil), doc.Content...)
	return &cp
}
