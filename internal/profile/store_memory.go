package profile

import (
	"context"
	"sync"
	"time"

	id "tutela/pkg/domain"
	"tutela/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.SubjectID]Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.SubjectID]Profile)}
}

func (s *InMemoryStore) Upsert(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.SubjectID] = p
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, subjectID id.SubjectID) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[subjectID]
	if !ok {
		return Profile{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) SetLastExport(_ context.Context, subjectID id.SubjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[subjectID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.LastDataExport = &at
	s.profiles[subjectID] = p
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

func (s *InMemoryStore) PurgeSubject(_ context.Context, subjectID id.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, subjectID)
	return nil
}
