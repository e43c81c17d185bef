package audit

import (
	"context"
	"sync"

	id "tutela/pkg/domain"
)

// InMemoryStore keeps the trail as an insert-only slice guarded by a RWMutex.
// Used by unit tests and single-node deployments without Postgres.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Events are stored in creation order; walk backwards for newest-first.
	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if !matches(e, filter) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) PurgeSubject(_ context.Context, subjectID id.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for _, e := range s.events {
		if e.SubjectID == subjectID && !e.Action.RetainedOnPurge() {
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return nil
}

func matches(e Event, filter Filter) bool {
	if !filter.SubjectID.IsNil() && e.SubjectID != filter.SubjectID {
		return false
	}
	if filter.Action != "" && e.Action != filter.Action {
		return false
	}
	if !filter.Since.IsZero() && e.RecordedAt.Before(filter.Since) {
		return false
	}
	return true
}
