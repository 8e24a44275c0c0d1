package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotbox/internal/identity/models"
	id "ballotbox/pkg/domain"
	"ballotbox/pkg/platform/sentinel"
)

// InMemory keeps accounts in maps guarded by a RWMutex. It backs unit tests
// and dev mode; the uniqueness semantics match the postgres indexes.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*models.Account
	byEmail  map[string]id.AccountID
	voterIDs map[string]id.AccountID
	order    []id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[id.AccountID]*models.Account),
		byEmail:  make(map[string]id.AccountID),
		voterIDs: make(map[string]id.AccountID),
	}
}

func (s *InMemory) CreateIfEmailAvailable(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, taken := s.byEmail[email]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if account.VoterID != "" {
		if _, taken := s.voterIDs[account.VoterID]; taken {
			return sentinel.ErrAlreadyUsed
		}
	}

	s.accounts[account.ID] = account.Clone()
	s.byEmail[email] = account.ID
	if account.VoterID != "" {
		s.voterIDs[account.VoterID] = account.ID
	}
	s.order = append(s.order, account.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return account.Clone(), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accountID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.accounts[accountID].Clone(), nil
}

// List returns accounts in creation order, matching the postgres store's
// ORDER BY created_at.
func (s *InMemory) List(_ context.Context, filter Filter) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]id.AccountID, len(s.order))
	copy(ordered, s.order)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.accounts[ordered[i]].CreatedAt.Before(s.accounts[ordered[j]].CreatedAt)
	})

	var out []*models.Account
	for _, accountID := range ordered {
		if account := s.accounts[accountID]; matches(account, filter) {
			out = append(out, account.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, accountID id.AccountID,
	validate func(*models.Account) error,
	mutate func(*models.Account)) (*models.Account, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := account.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)
	s.accounts[accountID] = working
	return working.Clone(), nil
}

func (s *InMemory) ApproveIfVoterIDAvailable(_ context.Context, accountID id.AccountID, voterID string, now time.Time) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if holder, taken := s.voterIDs[voterID]; taken && holder != accountID {
		return nil, sentinel.ErrAlreadyUsed
	}

	working := account.Clone()
	working.ApplyApproval(voterID, now)
	s.accounts[accountID] = working
	s.voterIDs[working.VoterID] = accountID
	return working.Clone(), nil
}

func (s *InMemory) CountVoters(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, account := range s.accounts {
		if account.Role == models.RoleVoter {
			count++
		}
	}
	return count, nil
}
