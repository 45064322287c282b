package revision

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory revision store.
type MemoryStore struct {
	mu        sync.RWMutex
	revisions []Revision
}

// NewMemoryStore constructs a store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores a revision.
func (s *MemoryStore) Append(ctx context.Context, rev Revision) error {
	_ = ctx
	if rev.ID == "" {
		rev.ID = NewID()
	}
	s.mu.Lock()
	s.revisions = append(s.revisions, rev)
	s.mu.Unlock()
	return nil
}

// ListBySubject returns the revisions of a subject in append order.
func (s *MemoryStore) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]Revision, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Revision
	for _, rev := range s.revisions {
		if rev.SubjectType == subjectType && rev.SubjectID == subjectID {
			result = append(result, rev)
		}
	}
	return result, nil
}
