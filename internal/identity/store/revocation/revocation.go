// Package revocation tracks logged-out access tokens until they expire.
// Keys live only as long as the token would have remained valid.
package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ballotbox/pkg/platform/sentinel"
)

// TokenRevocationList records revoked token identifiers (jti claims).
type TokenRevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// InMemory keeps revoked jtis in a map with lazy expiry. Suitable for a
// single instance; distributed deployments use RedisTRL.
type InMemory struct {
	mu      sync.RWMutex
	expires map[string]time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{expires: make(map[string]time.Time)}
}

func (m *InMemory) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[jti] = time.Now().Add(ttl)
	return nil
}

func (m *InMemory) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.expires[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(m.expires, jti)
		return false, nil
	}
	return true, nil
}
