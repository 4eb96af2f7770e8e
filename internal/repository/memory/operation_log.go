package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/quokka-collab/quokka/internal/domain"
)

// OperationLog is an in-memory implementation of domain.OperationLog.
type OperationLog struct {
	// entries maps document ID to revision to logged operation.
	entries map[string]map[int64]domain.LoggedOperation
	mu      sync.RWMutex
}

// NewOperationLog creates a new in-memory operation log.
func NewOperationLog() *OperationLog {
	return &OperationLog{
		entries: make(map[string]map[int64]domain.LoggedOperation),
	}
}

// Append stores an accepted operation. Re-appending the same revision with
// identical content is a no-op; a differing payload returns
// ErrRevisionConflict.
func (l *OperationLog) Append(_ context.Context, documentID string, op domain.LoggedOperation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, exists := l.entries[documentID]
	if !exists {
		doc = make(map[int64]domain.LoggedOperation)
		l.entries[documentID] = doc
	}
	if existing, exists := doc[op.Revision]; exists {
		if reflect.DeepEqual(existing.Operation, op.Operation) {
			return nil
		}
		return domain.ErrRevisionConflict
	}
	doc[op.Revision] = op
	return nil
}

// Since returns logged operations with revision strictly greater than
// revisionExclusive, ascending by revision.
func (l *OperationLog) Since(_ context.Context, documentID string, revisionExclusive int64) ([]domain.LoggedOperation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ops []domain.LoggedOperation
	for rev, op := range l.entries[documentID] {
		if rev > revisionExclusive {
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Revision < ops[j].Revision })
	return ops, nil
}

// MaxRevision returns the highest logged revision, or 0 for an empty log.
func (l *OperationLog) MaxRevision(_ context.Context, documentID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var maxRev int64
	for rev := range l.entries[documentID] {
		if rev > maxRev {
			maxRev = rev
		}
	}
	return maxRev, nil
}

// DeleteAll drops a document's history.
func (l *OperationLog) DeleteAll(_ context.Context, documentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, documentID)
	return nil
}
