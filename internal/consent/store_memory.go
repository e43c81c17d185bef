package consent

import (
	"context"
	"sync"

	id "tutela/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.SubjectID][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.SubjectID][]Record)}
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SubjectID] = append(s.records[record.SubjectID], record)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[subjectID]
	out := make([]Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	return out, nil
}

func (s *InMemoryStore) CountConsentedSubjects(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, records := range s.records {
		if len(records) > 0 && records[len(records)-1].Given {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) PurgeSubject(_ context.Context, subjectID id.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, subjectID)
	return nil
}
