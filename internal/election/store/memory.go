package store

import (
	"context"
	"sort"
	"sync"

	"ballotbox/internal/election/models"
	id "ballotbox/pkg/domain"
	"ballotbox/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded election store for tests and dev mode.
type InMemory struct {
	mu        sync.RWMutex
	elections map[id.ElectionID]*models.Election
}

func NewInMemory() *InMemory {
	return &InMemory{elections: make(map[id.ElectionID]*models.Election)}
}

func (s *InMemory) Create(_ context.Context, election *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.elections[election.ID]; exists {
		return sentinel.ErrConflict
	}
	s.elections[election.ID] = election.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, electionID id.ElectionID) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[electionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return election.Clone(), nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Election, 0, len(s.elections))
	for _, election := range s.elections {
		out = append(out, election.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, electionID id.ElectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elections[electionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.elections, electionID)
	return nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elections), nil
}
