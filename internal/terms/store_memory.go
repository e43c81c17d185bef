package terms

import (
	"context"
	"sync"

	id "tutela/pkg/domain"
	"tutela/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[id.DocumentType][]Version
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{versions: make(map[id.DocumentType][]Version)}
}

func (s *InMemoryStore) Supersede(_ context.Context, v Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.versions[v.DocumentType]
	for i := range versions {
		if versions[i].Active {
			versions[i].Active = false
			expiry := v.EffectiveAt
			versions[i].ExpiresAt = &expiry
		}
	}
	v.Active = true
	s.versions[v.DocumentType] = append(versions, v)
	return nil
}

func (s *InMemoryStore) Active(_ context.Context, docType id.DocumentType) (Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[docType] {
		if v.Active {
			return v, nil
		}
	}
	return Version{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) History(_ context.Context, docType id.DocumentType) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[docType]
	out := make([]Version, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		out = append(out, versions[i])
	}
	return out, nil
}
