package request

import (
	"context"
	"sort"
	"sync"
	"time"

	id "tutela/pkg/domain"
	"tutela/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]Request)}
}

func (s *InMemoryStore) Create(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[req.ID] = req
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, requestID id.RequestID) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return Request{}, sentinel.ErrNotFound
	}
	return req, nil
}

func (s *InMemoryStore) Update(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[req.ID] = req
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Request
	for _, req := range s.requests {
		if req.SubjectID == subjectID {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListOverdue(_ context.Context, now time.Time) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Request
	for _, req := range s.requests {
		if req.Overdue(now) {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context) (map[id.RequestStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[id.RequestStatus]int)
	for _, req := range s.requests {
		counts[req.Status]++
	}
	return counts, nil
}

func (s *InMemoryStore) CountByType(_ context.Context) (map[id.RequestType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[id.RequestType]int)
	for _, req := range s.requests {
		counts[req.Type]++
	}
	return counts, nil
}

func (s *InMemoryStore) PurgeSubject(_ context.Context, subjectID id.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for reqID, req := range s.requests {
		if req.SubjectID == subjectID {
			delete(s.requests, reqID)
		}
	}
	return nil
}

func sortNewestFirst(requests []Request) {
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID.String() > requests[j].ID.String()
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}
