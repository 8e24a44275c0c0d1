package store

import (
	"context"
	"sort"
	"sync"

	"ballotbox/internal/ballot/models"
	id "ballotbox/pkg/domain"
	"ballotbox/pkg/platform/sentinel"
)

type ledgerKey struct {
	account  id.AccountID
	election id.ElectionID
}

// InMemory mirrors the postgres unique index with an insert-if-absent under
// one mutex, so concurrent Record calls for the same pair admit exactly one.
type InMemory struct {
	mu      sync.RWMutex
	byPair  map[ledgerKey]*models.Ballot
	ordered []*models.Ballot
}

func NewInMemory() *InMemory {
	return &InMemory{byPair: make(map[ledgerKey]*models.Ballot)}
}

func (s *InMemory) Record(_ context.Context, ballot *models.Ballot) error {
	key := ledgerKey{account: ballot.AccountID, election: ballot.ElectionID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byPair[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	stored := *ballot
	s.byPair[key] = &stored
	s.ordered = append(s.ordered, &stored)
	return nil
}

func (s *InMemory) HasVoted(_ context.Context, accountID id.AccountID, electionID id.ElectionID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.byPair[ledgerKey{account: accountID, election: electionID}]
	return exists, nil
}

func (s *InMemory) ListByAccount(_ context.Context, accountID id.AccountID) ([]*models.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ballot
	for _, ballot := range s.ordered {
		if ballot.AccountID == accountID {
			copied := *ballot
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VotedAt.Before(out[j].VotedAt) })
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered), nil
}
