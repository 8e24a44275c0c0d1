// Package store persists accounts. Implementations return
// pkg/platform/sentinel errors; the service layer translates them.
package store

import (
	"context"
	"time"

	"ballotbox/internal/identity/models"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
)

// Filter selects account subsets for the admin listing.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterPending    Filter = "pending"
	FilterVerified   Filter = "verified"
	FilterIncomplete Filter = "incomplete"
)

// ParseFilter validates the admin listing filter, defaulting to all.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	switch Filter(s) {
	case FilterAll, FilterPending, FilterVerified, FilterIncomplete:
		return Filter(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown filter %q", s)
	}
}

// AccountStore is the persistence port for accounts.
//
// Uniqueness of email and voter_id is enforced by the store at write time
// (unique index or insert-under-lock), not by caller pre-checks.
type AccountStore interface {
	// CreateIfEmailAvailable inserts the account, returning
	// sentinel.ErrAlreadyUsed when the email or a supplied voter id is
	// already taken.
	CreateIfEmailAvailable(ctx context.Context, account *models.Account) error

	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context, filter Filter) ([]*models.Account, error)

	// Execute atomically loads the account, runs validate, then mutate,
	// and persists the result while holding the store's lock (mutex or
	// FOR UPDATE). Returns the updated account.
	Execute(ctx context.Context, accountID id.AccountID,
		validate func(*models.Account) error,
		mutate func(*models.Account)) (*models.Account, error)

	// ApproveIfVoterIDAvailable marks the account verified and assigns
	// voterID in one atomic write, returning sentinel.ErrAlreadyUsed when
	// another account already holds voterID. The collision leaves the
	// account untouched so the service can retry with a fresh identifier.
	ApproveIfVoterIDAvailable(ctx context.Context, accountID id.AccountID, voterID string, now time.Time) (*models.Account, error)

	// CountVoters counts accounts with the voter role, for stats.
	CountVoters(ctx context.Context) (int, error)
}

func matches(account *models.Account, filter Filter) bool {
	switch filter {
	case FilterPending:
		return account.ProfileComplete && !account.VerifiedByAdmin
	case FilterVerified:
		return account.ProfileComplete && account.VerifiedByAdmin
	case FilterIncomplete:
		return !account.ProfileComplete
	default:
		return true
	}
}
