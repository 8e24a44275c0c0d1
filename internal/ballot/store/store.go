// Package store is the append-only ballot ledger. Record is the only
// mutator; duplicate (account, election) pairs are refused by the store
// itself, which is what makes concurrent double-voting impossible.
package store

import (
	"context"

	"ballotbox/internal/ballot/models"
	id "ballotbox/pkg/domain"
)

// BallotStore is the persistence port for the ledger.
type BallotStore interface {
	// Record appends the ballot, returning sentinel.ErrAlreadyUsed when a
	// ballot for the same (account, election) already exists. The check
	// and the write are one atomic step.
	Record(ctx context.Context, ballot *models.Ballot) error

	HasVoted(ctx context.Context, accountID id.AccountID, electionID id.ElectionID) (bool, error)

	// ListByAccount returns the account's ballots oldest first.
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*models.Ballot, error)

	// Count counts all recorded ballots, for participation stats.
	Count(ctx context.Context) (int, error)
}
