package deletion

import (
	"context"
	"sort"
	"sync"
	"time"

	id "tutela/pkg/domain"
	"tutela/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	schedules map[id.ScheduleID]Schedule
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{schedules: make(map[id.ScheduleID]Schedule)}
}

func (s *InMemoryStore) Create(_ context.Context, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.schedules {
		if existing.SubjectID == schedule.SubjectID && existing.Active() {
			return sentinel.ErrConflict
		}
	}
	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *InMemoryStore) ActiveBySubject(_ context.Context, subjectID id.SubjectID) (Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, schedule := range s.schedules {
		if schedule.SubjectID == subjectID && schedule.Active() {
			return schedule, nil
		}
	}
	return Schedule{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) MarkCancelled(_ context.Context, scheduleID id.ScheduleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule, ok := s.schedules[scheduleID]
	if !ok {
		return sentinel.ErrNotFound
	}
	schedule.Cancelled = true
	s.schedules[scheduleID] = schedule
	return nil
}

func (s *InMemoryStore) MarkPurged(_ context.Context, scheduleID id.ScheduleID, purgedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule, ok := s.schedules[scheduleID]
	if !ok {
		return sentinel.ErrNotFound
	}
	schedule.PurgedAt = &purgedAt
	s.schedules[scheduleID] = schedule
	return nil
}

func (s *InMemoryStore) ListDue(_ context.Context, now time.Time) ([]Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []Schedule
	for _, schedule := range s.schedules {
		if schedule.Due(now) {
			due = append(due, schedule)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].PurgeAt.Before(due[j].PurgeAt)
	})
	return due, nil
}
